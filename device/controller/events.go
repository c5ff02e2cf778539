package controller

import (
	"encoding/json"

	"github.com/danylo37/overlay-mesh/core/codec"
	"github.com/danylo37/overlay-mesh/core/node"
)

// EventKind distinguishes the three observable events any node can raise.
type EventKind uint8

const (
	EventPacketSent EventKind = iota
	EventPacketDropped
	EventControllerShortcut
)

func (k EventKind) String() string {
	switch k {
	case EventPacketSent:
		return "PacketSent"
	case EventPacketDropped:
		return "PacketDropped"
	case EventControllerShortcut:
		return "ControllerShortcut"
	default:
		return "Unknown"
	}
}

// Event is one observation raised by a node and consumed by the
// controller's run loop. Packet is always populated; To is only
// meaningful for PacketSent.
type Event struct {
	Kind   EventKind
	NodeID node.ID
	Packet *codec.Packet
	To     node.ID
}

// eventJSON is the wire shape of Event, named so the monitoring surface
// and the MQTT telemetry bridge can serialize it without reaching into
// controller internals.
type eventJSON struct {
	Kind   string        `json:"kind"`
	NodeID node.ID       `json:"node_id"`
	Packet *codec.Packet `json:"packet"`
	To     *node.ID      `json:"to,omitempty"`
}

// MarshalJSON renders Event the way an external monitor expects it: a
// named kind, the originating node, the packet, and the forwarding target
// when there is one.
func (e Event) MarshalJSON() ([]byte, error) {
	out := eventJSON{Kind: e.Kind.String(), NodeID: e.NodeID, Packet: e.Packet}
	if e.Kind == EventPacketSent {
		to := e.To
		out.To = &to
	}
	return json.Marshal(out)
}

package controller

import (
	"github.com/danylo37/overlay-mesh/core/codec"
	"github.com/danylo37/overlay-mesh/core/node"
)

// AddSender installs a direct outbound channel to a newly connected
// neighbor, mirroring the reference controller's AddSender(id, chan).
type AddSender struct {
	ID node.ID
	Ch chan<- *codec.Packet
}

// RemoveSender withdraws a neighbor's outbound channel, e.g. after a link
// is torn down or the neighbor crashed.
type RemoveSender struct {
	ID node.ID
}

// SetPacketDropRate hot-swaps a drone's PDR. It has no effect on anything
// but drones; a client or server receiving one is a configuration error
// the controller never produces.
type SetPacketDropRate struct {
	Rate float64
}

// Crash begins a drone's graceful crash-drain.
type Crash struct{}

// ShortcutPacket re-delivers a packet directly to its destination node,
// bypassing routing entirely. This is how the controller re-injects a
// packet a drone could not forward, and the only mechanism that bypasses
// the source route.
type ShortcutPacket struct {
	Packet *codec.Packet
}

// StartFlooding tells a client or server to begin a fresh discovery round.
type StartFlooding struct{}

// AskTypeTo tells a client to query a server's type, the first step of
// establishing what application protocol to speak to it.
type AskTypeTo struct {
	Server node.ID
}

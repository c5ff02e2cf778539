package app

import (
	"log/slog"

	"github.com/danylo37/overlay-mesh/core/codec"
	"github.com/danylo37/overlay-mesh/core/node"
	"github.com/danylo37/overlay-mesh/core/session"
)

// EventSink is the subset of device/drone.EventSink an application node
// needs: it never probabilistically drops traffic, so PacketDropped has no
// counterpart here.
type EventSink interface {
	PacketSent(pkt *codec.Packet, to node.ID)
	Shortcut(pkt *codec.Packet)
}

// outbox is the fragment-level send/retry/ack/nack plumbing shared by
// Client and Server, factored out because both sides of the application
// layer need the identical session/table/neighbor wiring — only what they
// do with a completed inbound message differs.
type outbox struct {
	id       node.ID
	table    *session.Table
	events   EventSink
	neighbor func(node.ID) (chan<- *codec.Packet, bool)
	log      *slog.Logger
}

// deliver sends pkt toward its current hop, or shortcuts it through the
// controller if that neighbor is unknown.
func (o *outbox) deliver(pkt *codec.Packet) {
	target, ok := pkt.Routing.CurrentHop()
	if !ok {
		o.log.Warn("packet with no current hop cannot be delivered or shortcut")
		return
	}
	ch, ok := o.neighbor(target)
	if !ok {
		o.events.Shortcut(pkt)
		return
	}
	ch <- pkt
	o.events.PacketSent(pkt, target)
}

// sendPending transmits every fragment of sessionID still owed a send.
func (o *outbox) sendPending(sessionID uint64) {
	s, ok := o.table.Outbound(sessionID)
	if !ok {
		return
	}
	for _, i := range s.Pending() {
		pkt, err := s.BuildPacket(i)
		if err != nil {
			continue
		}
		o.deliver(pkt)
		o.table.MarkSent(sessionID, uint64(i))
	}
}

// ackFragment sends the Ack for one received fragment back along the
// reverse of the route it arrived on, per spec 4.4's receive path.
func (o *outbox) ackFragment(pkt *codec.Packet) {
	ack := &codec.Packet{
		Routing:   pkt.Routing.Reversed(),
		SessionID: pkt.SessionID,
		Type:      codec.PacketAck,
		Ack:       &codec.AckData{FragmentIndex: pkt.Fragment.Index},
	}
	o.deliver(ack)
}

// receiveFragment stores pkt's fragment, acks it, and reports whether the
// session is now complete.
func (o *outbox) receiveFragment(pkt *codec.Packet) bool {
	complete := o.table.Inbound(pkt.SessionID).AddFragment(*pkt.Fragment)
	o.ackFragment(pkt)
	return complete
}

// respondFlood answers a flood request that reached this node directly, as
// a leaf: it appends itself to the path trace and sends the reversed trace
// back as a FloodResponse. Unlike a drone, an application node is always a
// leaf of the flood — it never re-broadcasts the request.
func (o *outbox) respondFlood(pkt *codec.Packet, kind node.Kind) {
	req := pkt.FloodRequest
	trace := append(append([]node.Hop{}, req.PathTrace...), node.Hop{ID: o.id, Kind: kind})

	hops := make([]node.ID, len(trace))
	for i, hop := range trace {
		hops[len(trace)-1-i] = hop.ID
	}
	if hops[len(hops)-1] != req.InitiatorID {
		hops = append(hops, req.InitiatorID)
	}

	resp := &codec.Packet{
		Routing:   node.NewSourceRoutingHeader(hops),
		SessionID: pkt.SessionID,
		Type:      codec.PacketFloodResponse,
		FloodResponse: &codec.FloodResponseData{
			FloodID:   req.FloodID,
			PathTrace: trace,
		},
	}
	o.deliver(resp)
}

// handleAck resolves an Ack against the table.
func (o *outbox) handleAck(pkt *codec.Packet) {
	o.table.HandleAck(pkt.SessionID, pkt.Ack.FragmentIndex)
}

// handleNack applies the reaction table and retransmits immediately when
// the action calls for it; discovery, abandonment and hold are left to
// the caller, which knows whether it even has a path cache to retry from.
func (o *outbox) handleNack(pkt *codec.Packet) (session.Action, bool) {
	action, ok := o.table.HandleNack(pkt.SessionID, pkt.Nack.FragmentIndex, pkt.Nack.Kind)
	if !ok {
		return session.ActionNone, false
	}
	if action == session.ActionRetransmit {
		o.sendPending(pkt.SessionID)
	}
	return action, true
}

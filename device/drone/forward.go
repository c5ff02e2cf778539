package drone

import (
	"github.com/danylo37/overlay-mesh/core/codec"
	"github.com/danylo37/overlay-mesh/core/node"
)

// respondNormal implements the forwarding decision for every packet type
// except FloodRequest, mirroring RustyDrone.respond_normal gate for gate:
// recipient check, crash-drain check, destination check, neighbor check,
// probabilistic drop, forward.
func (d *Drone) respondNormal(pkt *codec.Packet) {
	droppable := pkt.Droppable()
	routing := pkt.Routing

	// Gate 1: are we actually the packet's current hop?
	cur, ok := routing.CurrentHop()
	if !ok || cur != d.id {
		d.reactMisdelivered(pkt, droppable)
		return
	}

	// Gate 2: crash-drain — droppable traffic can no longer be routed.
	if d.crashing() && droppable {
		d.emitNack(pkt, codec.NackErrorInRouting, d.id)
		return
	}

	// Gate 3: are we the destination? A drone is never a legitimate message
	// destination. Droppable traffic gets NackDestinationIsDrone; control
	// traffic that terminates here has nowhere further to go and is
	// silently consumed — there is no addressee left to shortcut it to.
	next, hasNext := routing.NextHop()
	if !hasNext {
		if droppable {
			d.emitNack(pkt, codec.NackDestinationIsDrone, 0)
		}
		return
	}

	// Gate 4: do we have a live channel to the next hop?
	ch, ok := d.neighbor(next)
	if !ok {
		d.reactUnreachable(pkt, droppable, next)
		return
	}

	// Gate 5: probabilistic drop, droppable traffic only.
	if droppable && d.sample() < d.pdrSnapshot() {
		d.events.PacketDropped(pkt)
		d.emitNack(pkt, codec.NackDropped, 0)
		return
	}

	// Gate 6: forward.
	fwd := pkt.Clone()
	fwd.Routing = fwd.Routing.Advance()
	ch <- fwd
	d.events.PacketSent(fwd, next)
}

func (d *Drone) pdrSnapshot() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pdr
}

// reactMisdelivered handles a packet whose current hop does not name this
// drone (UnexpectedRecipient): droppable traffic gets a real NACK; control
// traffic is shortcut to the controller so it is not silently lost.
func (d *Drone) reactMisdelivered(pkt *codec.Packet, droppable bool) {
	if droppable {
		d.emitNack(pkt, codec.NackUnexpectedRecipient, d.id)
		return
	}
	d.shortcutAdvanced(pkt)
}

// reactUnreachable handles a missing-neighbor condition (ErrorInRouting):
// droppable traffic gets a real NACK naming the missing hop; control
// traffic is shortcut.
func (d *Drone) reactUnreachable(pkt *codec.Packet, droppable bool, missing node.ID) {
	if droppable {
		d.emitNack(pkt, codec.NackErrorInRouting, missing)
		return
	}
	d.shortcutAdvanced(pkt)
}

// emitNack builds the real NACK packet — routed back along the path walked
// so far, with this drone substituted at the head — and sends it toward
// the originator. faultNode is only meaningful for ErrorInRouting and
// UnexpectedRecipient; it is ignored otherwise.
func (d *Drone) emitNack(pkt *codec.Packet, kind codec.NackKind, faultNode node.ID) {
	var fragIndex uint64
	if pkt.Fragment != nil {
		fragIndex = pkt.Fragment.Index
	}

	nackNode := node.ID(0)
	switch kind {
	case codec.NackErrorInRouting, codec.NackUnexpectedRecipient:
		nackNode = faultNode
	}

	nack := &codec.Packet{
		Routing:   pkt.Routing.ReversePrefix(d.id),
		SessionID: pkt.SessionID,
		Type:      codec.PacketNack,
		Nack: &codec.NackData{
			FragmentIndex: fragIndex,
			Kind:          kind,
			Node:          nackNode,
		},
	}

	// nack.Routing was just built fresh (ReversePrefix, like
	// NewSourceRoutingHeader, leaves HopIndex pointing at the first real
	// recipient) so it is sent as-is, the same way an originated outbound
	// fragment is.
	target, ok := nack.Routing.CurrentHop()
	if !ok {
		return
	}
	ch, ok := d.neighbor(target)
	if !ok {
		d.events.Shortcut(nack)
		return
	}
	ch <- nack
	d.events.PacketSent(nack, target)
}

// shortcutAdvanced hands a control packet the drone could not forward to
// the controller for direct re-injection at its addressee, advancing the
// routing header the same way a normal forward would so the shortcut
// lands at the correct next hop.
func (d *Drone) shortcutAdvanced(pkt *codec.Packet) {
	fwd := pkt.Clone()
	fwd.Routing = fwd.Routing.Advance()
	d.events.Shortcut(fwd)
}

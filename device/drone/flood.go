package drone

import (
	"github.com/danylo37/overlay-mesh/core/codec"
	"github.com/danylo37/overlay-mesh/core/node"
)

// respondFloodRequest dispatches a FloodRequest to respondOld or
// respondNew depending on whether this drone's FloodSet has already
// recorded the (flood_id, initiator_id) identity, mirroring
// respond_flood_request/already_received_flood.
func (d *Drone) respondFloodRequest(pkt *codec.Packet) {
	req := pkt.FloodRequest

	d.mu.Lock()
	seen := d.floods.Seen(req.Identity())
	d.mu.Unlock()

	if seen {
		d.respondOld(pkt.SessionID, req)
	} else {
		d.respondNew(pkt.SessionID, req)
	}
}

// respondOld turns a re-received flood request around immediately: it
// appends itself to the path trace and source-routes a FloodResponse back
// along the reverse of the path walked so far.
func (d *Drone) respondOld(sessionID uint64, req *codec.FloodRequestData) {
	trace := append(append([]node.Hop{}, req.PathTrace...), node.Hop{ID: d.id, Kind: node.Drone})

	hops := make([]node.ID, len(trace))
	for i, h := range trace {
		hops[len(trace)-1-i] = h.ID
	}
	if hops[len(hops)-1] != req.InitiatorID {
		hops = append(hops, req.InitiatorID)
	}

	resp := &codec.Packet{
		Routing:   node.NewSourceRoutingHeader(hops),
		SessionID: sessionID,
		Type:      codec.PacketFloodResponse,
		FloodResponse: &codec.FloodResponseData{
			FloodID:   req.FloodID,
			PathTrace: trace,
		},
	}

	target, ok := resp.Routing.CurrentHop()
	if !ok {
		return
	}
	ch, ok := d.neighbor(target)
	if !ok {
		d.events.Shortcut(resp)
		return
	}
	ch <- resp
	d.events.PacketSent(resp, target)
}

// respondNew appends itself to the path trace and re-broadcasts the flood
// request to every neighbor except the one it arrived from, mirroring
// respond_new/flood_exept. The request carries no source route of its own;
// it is broadcast, not source-routed.
func (d *Drone) respondNew(sessionID uint64, req *codec.FloodRequestData) {
	prevHop := req.InitiatorID
	if len(req.PathTrace) > 0 {
		prevHop = req.PathTrace[len(req.PathTrace)-1].ID
	}

	fwd := req.Clone()
	fwd.PathTrace = append(fwd.PathTrace, node.Hop{ID: d.id, Kind: node.Drone})

	pkt := &codec.Packet{
		SessionID:    sessionID,
		Type:         codec.PacketFloodRequest,
		FloodRequest: &fwd,
	}

	d.mu.Lock()
	neighbors := make(map[node.ID]chan<- *codec.Packet, len(d.neighbors))
	for id, ch := range d.neighbors {
		neighbors[id] = ch
	}
	d.mu.Unlock()

	// If every neighbor is the one the request arrived from (a dead end),
	// there is nothing left to flood toward; answer immediately instead.
	sent := false
	for id, ch := range neighbors {
		if id == prevHop {
			continue
		}
		ch <- pkt.Clone()
		d.events.PacketSent(pkt, id)
		sent = true
	}
	if !sent {
		d.respondOld(sessionID, req)
	}
}

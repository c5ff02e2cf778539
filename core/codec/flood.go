package codec

import "github.com/danylo37/overlay-mesh/core/node"

// FloodRequestData identifies and traces a flood broadcast. Identity is the
// pair (FloodID, InitiatorID); a drone remembers identities it has already
// propagated so it never forwards the same flood twice.
type FloodRequestData struct {
	FloodID     uint64     `json:"flood_id"`
	InitiatorID node.ID    `json:"initiator_id"`
	PathTrace   []node.Hop `json:"path_trace"`
}

// Identity returns the (FloodID, InitiatorID) pair a drone uses to
// deduplicate propagation.
func (f FloodRequestData) Identity() FloodIdentity {
	return FloodIdentity{FloodID: f.FloodID, InitiatorID: f.InitiatorID}
}

// Clone returns a deep copy, since path traces are extended in place as a
// flood propagates.
func (f FloodRequestData) Clone() FloodRequestData {
	trace := make([]node.Hop, len(f.PathTrace))
	copy(trace, f.PathTrace)
	return FloodRequestData{FloodID: f.FloodID, InitiatorID: f.InitiatorID, PathTrace: trace}
}

// FloodIdentity is the dedup key for a flood round.
type FloodIdentity struct {
	FloodID     uint64
	InitiatorID node.ID
}

// FloodResponseData carries a path trace back toward the initiator. The
// route is built from the reversed trace, per spec Open Question: the
// initiator must appear exactly once, at the tail.
type FloodResponseData struct {
	FloodID   uint64     `json:"flood_id"`
	PathTrace []node.Hop `json:"path_trace"`
}

func (f FloodResponseData) Clone() FloodResponseData {
	trace := make([]node.Hop, len(f.PathTrace))
	copy(trace, f.PathTrace)
	return FloodResponseData{FloodID: f.FloodID, PathTrace: trace}
}

// Responder returns the last hop in the trace — the node that is
// terminating the flood and replying.
func (f FloodResponseData) Responder() (node.Hop, bool) {
	if len(f.PathTrace) == 0 {
		return node.Hop{}, false
	}
	return f.PathTrace[len(f.PathTrace)-1], true
}

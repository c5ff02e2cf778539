// Package dedupe tracks flood identities that have already been processed,
// preventing the same FloodRequest from being propagated more than once by
// a drone, and the same FloodResponse from being counted twice by an
// initiator.
package dedupe

import "github.com/danylo37/overlay-mesh/core/codec"

// FloodSet is a set of flood identities. A drone uses one FloodSet for the
// life of the node to satisfy P4 (no duplicate flood propagation); an
// initiator uses one per discovery round to recognize a responder it has
// already installed a path for.
type FloodSet struct {
	seen map[codec.FloodIdentity]struct{}
}

// New returns an empty FloodSet.
func New() *FloodSet {
	return &FloodSet{seen: make(map[codec.FloodIdentity]struct{})}
}

// Seen reports whether identity was already recorded, and records it if
// not. The set never evicts: a node's flood identity space is small and
// its lifetime is the simulation run.
func (s *FloodSet) Seen(id codec.FloodIdentity) bool {
	if _, ok := s.seen[id]; ok {
		return true
	}
	s.seen[id] = struct{}{}
	return false
}

// Clear forgets every recorded identity.
func (s *FloodSet) Clear() {
	clear(s.seen)
}

// Len returns the number of recorded identities.
func (s *FloodSet) Len() int {
	return len(s.seen)
}

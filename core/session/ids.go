package session

import (
	"sync/atomic"

	"github.com/danylo37/overlay-mesh/core/node"
)

// idBits is the width of the monotonic counter portion of a session id.
// The remaining top 8 bits encode the originating node, so independently
// running nodes can never collide on session id even though each counts
// from zero.
const idBits = 56

// Allocator hands out session ids for one node. The top 8 bits of every id
// it returns are the node's own id; the low 56 bits increment by one per
// call.
type Allocator struct {
	self    node.ID
	counter atomic.Uint64
}

// NewAllocator returns an Allocator for the given node.
func NewAllocator(self node.ID) *Allocator {
	return &Allocator{self: self}
}

// Next returns the next session id for this node.
func (a *Allocator) Next() uint64 {
	n := a.counter.Add(1)
	return uint64(a.self)<<idBits | (n & (1<<idBits - 1))
}

// OwnerOf extracts the originating node id encoded in a session id.
func OwnerOf(sessionID uint64) node.ID {
	return node.ID(sessionID >> idBits)
}

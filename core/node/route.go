package node

import "errors"

var (
	// ErrEmptyRoute is returned by operations that require at least one hop.
	ErrEmptyRoute = errors.New("source route has no hops")
	// ErrHopIndexOutOfRange is returned when HopIndex does not point at a
	// valid element of Hops.
	ErrHopIndexOutOfRange = errors.New("hop index out of range")
)

// SourceRoutingHeader is the fixed itinerary a packet travels. Hops[0] is
// the original source and is never itself a processing position; Hops[len-1]
// is the ultimate destination. HopIndex is a direct index into Hops naming
// the hop currently holding the packet — Hops[HopIndex] is the current
// owner. A freshly sent packet has HopIndex == 1, pointing at the first
// real hop after the source.
type SourceRoutingHeader struct {
	Hops     []ID `json:"hops"`
	HopIndex int  `json:"hop_index"`
}

// NewSourceRoutingHeader builds the header for a freshly sent packet.
func NewSourceRoutingHeader(hops []ID) SourceRoutingHeader {
	cp := make([]ID, len(hops))
	copy(cp, hops)
	idx := 1
	if len(cp) == 1 {
		idx = 0
	}
	return SourceRoutingHeader{Hops: cp, HopIndex: idx}
}

// Validate checks that HopIndex points at a real element of Hops.
func (h SourceRoutingHeader) Validate() error {
	if len(h.Hops) == 0 {
		return ErrEmptyRoute
	}
	if h.HopIndex < 0 || h.HopIndex >= len(h.Hops) {
		return ErrHopIndexOutOfRange
	}
	return nil
}

// CurrentHop returns the node that currently owns the packet.
func (h SourceRoutingHeader) CurrentHop() (ID, bool) {
	if h.HopIndex < 0 || h.HopIndex >= len(h.Hops) {
		return 0, false
	}
	return h.Hops[h.HopIndex], true
}

// NextHop returns the hop after the current one, if any.
func (h SourceRoutingHeader) NextHop() (ID, bool) {
	i := h.HopIndex + 1
	if i < 0 || i >= len(h.Hops) {
		return 0, false
	}
	return h.Hops[i], true
}

// Source returns the packet's original sender, Hops[0].
func (h SourceRoutingHeader) Source() (ID, bool) {
	if len(h.Hops) == 0 {
		return 0, false
	}
	return h.Hops[0], true
}

// Destination returns the packet's ultimate destination, Hops[len-1].
func (h SourceRoutingHeader) Destination() (ID, bool) {
	if len(h.Hops) == 0 {
		return 0, false
	}
	return h.Hops[len(h.Hops)-1], true
}

// Advance returns a copy of h with HopIndex incremented by one, as done by
// a drone forwarding a packet to the next hop.
func (h SourceRoutingHeader) Advance() SourceRoutingHeader {
	cp := h.Clone()
	cp.HopIndex++
	return cp
}

// Clone returns a deep copy of h.
func (h SourceRoutingHeader) Clone() SourceRoutingHeader {
	hops := make([]ID, len(h.Hops))
	copy(hops, h.Hops)
	return SourceRoutingHeader{Hops: hops, HopIndex: h.HopIndex}
}

// Reversed returns the fully reversed route with HopIndex reset to 1, as
// used when a destination builds an ACK back toward the original source.
func (h SourceRoutingHeader) Reversed() SourceRoutingHeader {
	n := len(h.Hops)
	hops := make([]ID, n)
	for i, id := range h.Hops {
		hops[n-1-i] = id
	}
	idx := 1
	if n == 1 {
		idx = 0
	}
	return SourceRoutingHeader{Hops: hops, HopIndex: idx}
}

// ReversePrefix builds the route a drone uses when it originates a NACK:
// take Hops[0..HopIndex] inclusive (the path walked so far, ending at the
// drone's own position), reverse it, then overwrite the head — which was
// the name the incoming packet used for the current hop, not necessarily
// the drone's own id if the packet was misrouted — with self. This is what
// lets a drone NACK "as itself" even when the incoming packet addressed a
// different current hop (UnexpectedRecipient).
func (h SourceRoutingHeader) ReversePrefix(self ID) SourceRoutingHeader {
	walked := make([]ID, h.HopIndex+1)
	copy(walked, h.Hops[:h.HopIndex+1])
	n := len(walked)
	hops := make([]ID, n)
	for i, id := range walked {
		hops[n-1-i] = id
	}
	hops[0] = self
	idx := 1
	if n == 1 {
		idx = 0
	}
	return SourceRoutingHeader{Hops: hops, HopIndex: idx}
}

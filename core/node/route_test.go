package node

import (
	"reflect"
	"testing"
)

func TestSourceRoutingHeaderHops(t *testing.T) {
	h := NewSourceRoutingHeader([]ID{1, 11, 21})

	if cur, ok := h.CurrentHop(); !ok || cur != 11 {
		t.Fatalf("CurrentHop() = %v, %v, want 11, true", cur, ok)
	}
	if next, ok := h.NextHop(); !ok || next != 21 {
		t.Fatalf("NextHop() = %v, %v, want 21, true", next, ok)
	}
	if src, _ := h.Source(); src != 1 {
		t.Fatalf("Source() = %v, want 1", src)
	}
	if dst, _ := h.Destination(); dst != 21 {
		t.Fatalf("Destination() = %v, want 21", dst)
	}
}

func TestSourceRoutingHeaderAdvance(t *testing.T) {
	h := NewSourceRoutingHeader([]ID{1, 11, 21})
	h2 := h.Advance()

	if h.HopIndex != 1 {
		t.Fatalf("Advance mutated original header")
	}
	if h2.HopIndex != 2 {
		t.Fatalf("HopIndex = %d, want 2", h2.HopIndex)
	}
	if cur, _ := h2.CurrentHop(); cur != 21 {
		t.Fatalf("CurrentHop() = %v, want 21", cur)
	}
	if _, ok := h2.NextHop(); ok {
		t.Fatalf("NextHop() present at destination, want none")
	}
}

func TestSourceRoutingHeaderChainAdvance(t *testing.T) {
	// C1 -> D11 -> D12 -> S21, matching the chain-forward scenario: S21
	// receives the fragment with hop_index == 3.
	h := NewSourceRoutingHeader([]ID{1, 11, 12, 21})
	if cur, _ := h.CurrentHop(); cur != 11 {
		t.Fatalf("CurrentHop() = %v, want 11", cur)
	}
	h = h.Advance()
	if cur, _ := h.CurrentHop(); cur != 12 {
		t.Fatalf("CurrentHop() = %v, want 12", cur)
	}
	h = h.Advance()
	if h.HopIndex != 3 {
		t.Fatalf("HopIndex = %d, want 3", h.HopIndex)
	}
	if cur, _ := h.CurrentHop(); cur != 21 {
		t.Fatalf("CurrentHop() = %v, want 21", cur)
	}
}

func TestSourceRoutingHeaderReversed(t *testing.T) {
	h := SourceRoutingHeader{Hops: []ID{1, 11, 12, 21}, HopIndex: 3}
	rev := h.Reversed()

	want := []ID{21, 12, 11, 1}
	if !reflect.DeepEqual(rev.Hops, want) {
		t.Fatalf("Reversed().Hops = %v, want %v", rev.Hops, want)
	}
	if rev.HopIndex != 1 {
		t.Fatalf("Reversed().HopIndex = %d, want 1", rev.HopIndex)
	}
}

func TestSourceRoutingHeaderReversePrefix(t *testing.T) {
	// Drone 11 receives a packet originated at 1, currently at its own
	// position (hop index 1). It NACKs back toward 1, substituting itself
	// at the head per the NACK addressing rule.
	h := SourceRoutingHeader{Hops: []ID{1, 11, 12, 21}, HopIndex: 1}
	nackRoute := h.ReversePrefix(11)

	want := []ID{11, 1}
	if !reflect.DeepEqual(nackRoute.Hops, want) {
		t.Fatalf("ReversePrefix().Hops = %v, want %v", nackRoute.Hops, want)
	}
	if nackRoute.HopIndex != 1 {
		t.Fatalf("ReversePrefix().HopIndex = %d, want 1", nackRoute.HopIndex)
	}
}

func TestSourceRoutingHeaderReversePrefixUnexpectedRecipient(t *testing.T) {
	// A packet addressed to 99 at this position arrives at 11 instead
	// (misrouted). The NACK still goes out "as 11", not as the name the
	// packet used.
	h := SourceRoutingHeader{Hops: []ID{1, 99, 12, 21}, HopIndex: 1}
	nackRoute := h.ReversePrefix(11)

	want := []ID{11, 1}
	if !reflect.DeepEqual(nackRoute.Hops, want) {
		t.Fatalf("ReversePrefix().Hops = %v, want %v", nackRoute.Hops, want)
	}
}

func TestSourceRoutingHeaderValidate(t *testing.T) {
	if err := (SourceRoutingHeader{}).Validate(); err != ErrEmptyRoute {
		t.Fatalf("Validate() = %v, want ErrEmptyRoute", err)
	}
	h := SourceRoutingHeader{Hops: []ID{1, 2}, HopIndex: 3}
	if err := h.Validate(); err != ErrHopIndexOutOfRange {
		t.Fatalf("Validate() = %v, want ErrHopIndexOutOfRange", err)
	}
}

package codec

import (
	"testing"

	"github.com/danylo37/overlay-mesh/core/node"
)

func TestSplitAndReassemble(t *testing.T) {
	payload := make([]byte, 300)
	for i := range payload {
		payload[i] = byte(i)
	}

	frags := Split(payload)
	if len(frags) != 3 {
		t.Fatalf("Split produced %d fragments, want 3", len(frags))
	}
	if frags[0].Length != FragmentSize || frags[1].Length != FragmentSize {
		t.Fatalf("non-final fragment lengths = %d, %d, want %d", frags[0].Length, frags[1].Length, FragmentSize)
	}
	if frags[2].Length != 300-2*FragmentSize {
		t.Fatalf("final fragment length = %d, want %d", frags[2].Length, 300-2*FragmentSize)
	}

	byIndex := map[uint64]Fragment{}
	for _, f := range frags {
		byIndex[f.Index] = f
	}
	out, err := Reassemble(byIndex, frags[0].Total)
	if err != nil {
		t.Fatalf("Reassemble() error = %v", err)
	}
	if len(out) != len(payload) {
		t.Fatalf("Reassemble() length = %d, want %d", len(out), len(payload))
	}
	for i := range payload {
		if out[i] != payload[i] {
			t.Fatalf("byte %d = %d, want %d", i, out[i], payload[i])
		}
	}
}

func TestReassembleMissingFragment(t *testing.T) {
	frags := map[uint64]Fragment{0: {Index: 0, Total: 2, Length: 4}}
	if _, err := Reassemble(frags, 2); err == nil {
		t.Fatalf("Reassemble() with missing fragment succeeded, want error")
	}
}

func TestPacketValidate(t *testing.T) {
	p := &Packet{Type: PacketMsgFragment}
	if err := p.Validate(); err != ErrMissingFragment {
		t.Fatalf("Validate() = %v, want ErrMissingFragment", err)
	}

	p.Fragment = &Fragment{Index: 0, Total: 1, Length: 1}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestPacketClone(t *testing.T) {
	p := &Packet{
		Routing:   node.NewSourceRoutingHeader([]node.ID{1, 11, 21}),
		SessionID: 42,
		Type:      PacketFloodRequest,
		FloodRequest: &FloodRequestData{
			FloodID:     7,
			InitiatorID: 1,
			PathTrace:   []node.Hop{{ID: 1, Kind: node.Client}},
		},
	}
	cp := p.Clone()
	cp.FloodRequest.PathTrace = append(cp.FloodRequest.PathTrace, node.Hop{ID: 11, Kind: node.Drone})
	cp.Routing.Hops[0] = 99

	if len(p.FloodRequest.PathTrace) != 1 {
		t.Fatalf("Clone shared the path trace slice with the original")
	}
	if p.Routing.Hops[0] != 1 {
		t.Fatalf("Clone shared the Hops slice with the original")
	}
}

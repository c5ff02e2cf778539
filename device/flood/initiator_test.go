package flood

import (
	"testing"

	"github.com/danylo37/overlay-mesh/core/codec"
	"github.com/danylo37/overlay-mesh/core/node"
	"github.com/danylo37/overlay-mesh/core/pathcache"
	"github.com/danylo37/overlay-mesh/device/drone"
)

func TestInitiatorBroadcastsToEveryNeighbor(t *testing.T) {
	cache := pathcache.New()
	i := New(Config{SelfID: 1, SelfKind: node.Client, Cache: cache})

	a, b := make(chan *codec.Packet, 1), make(chan *codec.Packet, 1)
	i.AddNeighbor(11, a)
	i.AddNeighbor(12, b)

	i.Initiate(1)

	for _, ch := range []chan *codec.Packet{a, b} {
		select {
		case pkt := <-ch:
			if pkt.Type != codec.PacketFloodRequest || pkt.FloodRequest.InitiatorID != 1 {
				t.Fatalf("unexpected broadcast packet %+v", pkt)
			}
		default:
			t.Fatal("neighbor never received the flood request")
		}
	}
}

func TestInitiatorSeedsPathTraceWithSelf(t *testing.T) {
	cache := pathcache.New()
	i := New(Config{SelfID: 1, SelfKind: node.Client, Cache: cache})

	a := make(chan *codec.Packet, 1)
	i.AddNeighbor(11, a)
	i.Initiate(1)

	pkt := <-a
	trace := pkt.FloodRequest.PathTrace
	if len(trace) != 1 || trace[0].ID != 1 || trace[0].Kind != node.Client {
		t.Fatalf("path_trace = %v, want [(1,Client)]", trace)
	}
}

func TestInitiatorInstallsPathFromResponse(t *testing.T) {
	cache := pathcache.New()
	i := New(Config{SelfID: 1, SelfKind: node.Client, Cache: cache})
	i.Initiate(1)

	resp := &codec.FloodResponseData{
		FloodID: i.RoundID(),
		PathTrace: []node.Hop{
			{ID: 1, Kind: node.Client},
			{ID: 11, Kind: node.Drone},
			{ID: 21, Kind: node.Server},
		},
	}
	i.HandleResponse(resp)

	if !cache.Has(21) {
		t.Fatal("expected a path to 21 installed from the flood response")
	}
	p, _ := cache.Select(21)
	want := []node.ID{1, 11, 21}
	if len(p.Hops) != len(want) {
		t.Fatalf("Hops = %v, want %v", p.Hops, want)
	}
	for idx := range want {
		if p.Hops[idx] != want[idx] {
			t.Fatalf("Hops = %v, want %v", p.Hops, want)
		}
	}
}

func TestInitiatorIgnoresDroneResponder(t *testing.T) {
	cache := pathcache.New()
	i := New(Config{SelfID: 1, SelfKind: node.Client, Cache: cache})
	i.Initiate(1)

	resp := &codec.FloodResponseData{
		FloodID:   i.RoundID(),
		PathTrace: []node.Hop{{ID: 1, Kind: node.Client}, {ID: 11, Kind: node.Drone}},
	}
	i.HandleResponse(resp)

	if cache.Has(11) {
		t.Fatal("a response terminating at a drone must not install a path to it")
	}
}

func TestInitiatorIgnoresStaleFloodID(t *testing.T) {
	cache := pathcache.New()
	i := New(Config{SelfID: 1, SelfKind: node.Client, Cache: cache})
	i.Initiate(1)
	stale := i.RoundID()
	i.Initiate(2) // starts a new round, bumping RoundID

	resp := &codec.FloodResponseData{
		FloodID:   stale,
		PathTrace: []node.Hop{{ID: 1, Kind: node.Client}, {ID: 21, Kind: node.Server}},
	}
	i.HandleResponse(resp)

	if cache.Has(21) {
		t.Fatal("a response from a stale flood round must be ignored")
	}
}

func TestInitiatorFlushesCacheOnNewRound(t *testing.T) {
	cache := pathcache.New()
	cache.Install(21, []node.ID{1, 99, 21})
	i := New(Config{SelfID: 1, SelfKind: node.Client, Cache: cache})

	i.Initiate(1)

	if cache.Has(21) {
		t.Fatal("Initiate must flush every previously cached path")
	}
}

// TestEndToEndLoopFreeFlood covers scenario 5: a triangle C1-D11-D12-C1,
// where D11 and D12 are also directly connected to each other. Without
// per-identity dedup the request would bounce between the two drones
// forever; each drone answers the request it sees for the second time with
// respond_old instead of re-broadcasting, so the round converges after a
// bounded number of packet deliveries (P4).
func TestEndToEndLoopFreeFlood(t *testing.T) {
	cache := pathcache.New()
	c1 := New(Config{SelfID: 1, SelfKind: node.Client, Cache: cache})

	toD11 := make(chan *codec.Packet, 8)
	toD12 := make(chan *codec.Packet, 8)
	c1.AddNeighbor(11, toD11)
	c1.AddNeighbor(12, toD12)

	d11 := drone.New(drone.Config{ID: 11, PDR: 0, Events: noopSink{}})
	d12 := drone.New(drone.Config{ID: 12, PDR: 0, Events: noopSink{}})

	toC1FromD11 := make(chan *codec.Packet, 8)
	toC1FromD12 := make(chan *codec.Packet, 8)
	d11.AddNeighbor(1, toC1FromD11)
	d12.AddNeighbor(1, toC1FromD12)

	toD12FromD11 := make(chan *codec.Packet, 8)
	toD11FromD12 := make(chan *codec.Packet, 8)
	d11.AddNeighbor(12, toD12FromD11)
	d12.AddNeighbor(11, toD11FromD12)

	c1.Initiate(1)

	pump := func(ch chan *codec.Packet, d *drone.Drone) bool {
		select {
		case pkt := <-ch:
			d.HandlePacket(pkt)
			return true
		default:
			return false
		}
	}

	responses := 0
	for round := 0; round < 10; round++ {
		progressed := false
		if pump(toD11, d11) {
			progressed = true
		}
		if pump(toD12, d12) {
			progressed = true
		}
		if pump(toD12FromD11, d12) {
			progressed = true
		}
		if pump(toD11FromD12, d11) {
			progressed = true
		}
		if !progressed {
			break
		}
	}

	for _, ch := range []chan *codec.Packet{toC1FromD11, toC1FromD12} {
		select {
		case <-ch:
			responses++
		default:
		}
	}

	if responses != 2 {
		t.Fatalf("got %d flood responses delivered to C1, want exactly 2", responses)
	}
	// The round must have settled: nothing left in flight anywhere.
	for _, ch := range []chan *codec.Packet{toD11, toD12, toD12FromD11, toD11FromD12, toC1FromD11, toC1FromD12} {
		select {
		case pkt := <-ch:
			t.Fatalf("unexpected leftover packet after convergence: %+v", pkt)
		default:
		}
	}
}

type noopSink struct{}

func (noopSink) PacketSent(*codec.Packet, node.ID) {}
func (noopSink) PacketDropped(*codec.Packet)       {}
func (noopSink) Shortcut(*codec.Packet)            {}

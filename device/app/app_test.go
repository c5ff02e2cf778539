package app

import (
	"testing"
	"time"

	"github.com/danylo37/overlay-mesh/core/clock"
	"github.com/danylo37/overlay-mesh/core/codec"
	"github.com/danylo37/overlay-mesh/core/node"
	"github.com/danylo37/overlay-mesh/core/pathcache"
	"github.com/danylo37/overlay-mesh/core/session"
)

type noopSink struct{}

func (noopSink) PacketSent(pkt *codec.Packet, to node.ID) {}
func (noopSink) Shortcut(pkt *codec.Packet)                {}

func newTable() *session.Table {
	return session.NewTable(clock.New(), time.Second)
}

// pumpDirect drains a and b's inbound channels into their HandlePacket
// dispatch until neither makes progress, the same round-based style
// device/flood's end-to-end test uses.
func pumpDirect(a, b interface{ HandlePacket(*codec.Packet) }, chA, chB chan *codec.Packet) {
	for round := 0; round < 32; round++ {
		progressed := false
		select {
		case pkt := <-chA:
			a.HandlePacket(pkt)
			progressed = true
		default:
		}
		select {
		case pkt := <-chB:
			b.HandlePacket(pkt)
			progressed = true
		default:
		}
		if !progressed {
			return
		}
	}
}

// TestClientAsksTextServerForFiles covers a direct client-server link (no
// intervening drone): the client's AskListFiles reaches the server and its
// ListFiles response reaches the client's OnResponse callback.
func TestClientAsksTextServerForFiles(t *testing.T) {
	store := NewStore()
	store.AddFile("contents of file zero")
	store.AddFile("contents of file one #Media[cat.png]")

	var got Response
	gotCh := make(chan struct{}, 1)

	client := NewClient(ClientConfig{
		SelfID: 1,
		Table:  newTable(),
		Cache:  pathcache.New(),
		Events: noopSink{},
		OnResponse: func(from node.ID, resp Response) {
			got = resp
			gotCh <- struct{}{}
		},
	})
	server := NewServer(ServerConfig{
		SelfID: 2,
		Type:   ServerText,
		Table:  newTable(),
		Store:  store,
		Events: noopSink{},
	})

	toServer := make(chan *codec.Packet, 8)
	toClient := make(chan *codec.Packet, 8)
	client.AddNeighbor(2, toServer)
	server.AddNeighbor(1, toClient)

	client.cache.Install(2, []node.ID{1, 2})
	if _, err := client.Ask(2, AskListFiles()); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	pumpDirect(client, server, toClient, toServer)

	select {
	case <-gotCh:
	default:
		t.Fatal("client never received a response")
	}
	if got.Kind != ResponseListFiles || len(got.Files) != 2 {
		t.Fatalf("unexpected response %+v", got)
	}
}

// TestCommunicationServerRelaysMessage covers client registration and
// message relay through a communication server: A registers, B registers,
// A sends B a message, and B's OnResponse observes it.
func TestCommunicationServerRelaysMessage(t *testing.T) {
	var bGot Response
	bGotCh := make(chan struct{}, 4)

	clientA := NewClient(ClientConfig{SelfID: 1, Table: newTable(), Cache: pathcache.New(), Events: noopSink{}})
	clientB := NewClient(ClientConfig{
		SelfID: 3, Table: newTable(), Cache: pathcache.New(), Events: noopSink{},
		OnResponse: func(from node.ID, resp Response) { bGot = resp; bGotCh <- struct{}{} },
	})
	server := NewServer(ServerConfig{SelfID: 2, Type: ServerCommunication, Table: newTable(), Events: noopSink{}})

	aToServer := make(chan *codec.Packet, 8)
	serverToA := make(chan *codec.Packet, 8)
	clientA.AddNeighbor(2, aToServer)
	server.AddNeighbor(1, serverToA)

	bToServer := make(chan *codec.Packet, 8)
	serverToB := make(chan *codec.Packet, 8)
	clientB.AddNeighbor(2, bToServer)
	server.AddNeighbor(3, serverToB)

	clientA.cache.Install(2, []node.ID{1, 2})
	clientB.cache.Install(2, []node.ID{3, 2})

	clientA.Ask(2, RegisterClient(1))
	pumpDirect(clientA, server, serverToA, aToServer)

	clientB.Ask(2, RegisterClient(3))
	pumpDirect(clientB, server, serverToB, bToServer)

	clientA.Ask(2, SendMessageTo(3, "hello B"))
	pumpDirect(clientA, server, serverToA, aToServer)
	pumpDirect(clientB, server, serverToB, bToServer)

	select {
	case <-bGotCh:
	default:
		t.Fatal("B never received the relayed message")
	}
	if bGot.Kind != ResponseMessageFrom || bGot.From != 1 || bGot.Message != "hello B" {
		t.Fatalf("unexpected response at B: %+v", bGot)
	}
}

func TestExtractMediaKeys(t *testing.T) {
	keys := ExtractMediaKeys("see #Media[cat.png] and also #Media[dog.jpg] please")
	if len(keys) != 2 || keys[0] != "cat.png" || keys[1] != "dog.jpg" {
		t.Fatalf("ExtractMediaKeys = %v, want [cat.png dog.jpg]", keys)
	}
	if keys := ExtractMediaKeys("nothing to see here"); len(keys) != 0 {
		t.Fatalf("ExtractMediaKeys = %v, want none", keys)
	}
}

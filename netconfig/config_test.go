package netconfig

import (
	"strings"
	"testing"

	"github.com/danylo37/overlay-mesh/device/app"
)

const validTopology = `
[[drone]]
id = 11
connected_node_ids = [1, 12]
pdr = 0.1

[[drone]]
id = 12
connected_node_ids = [11, 21]
pdr = 0.0

[[client]]
id = 1
connected_node_ids = [11]

[[server]]
id = 21
connected_node_ids = [12]
type = "text"
`

func TestParse_Valid(t *testing.T) {
	n, err := Parse([]byte(validTopology))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(n.Drone) != 2 || len(n.Client) != 1 || len(n.Server) != 1 {
		t.Fatalf("unexpected counts: %d drones, %d clients, %d servers", len(n.Drone), len(n.Client), len(n.Server))
	}
	if n.Server[0].Type != app.ServerText {
		t.Fatalf("server type = %v, want Text", n.Server[0].Type)
	}
}

func TestParse_AsymmetricLinkRejected(t *testing.T) {
	const topology = `
[[drone]]
id = 11
connected_node_ids = [12]
pdr = 0.0

[[drone]]
id = 12
connected_node_ids = []
pdr = 0.0
`
	_, err := Parse([]byte(topology))
	if err == nil || !strings.Contains(err.Error(), "asymmetric") {
		t.Fatalf("Parse error = %v, want asymmetric link error", err)
	}
}

func TestParse_DuplicateIDRejected(t *testing.T) {
	const topology = `
[[drone]]
id = 11
connected_node_ids = []
pdr = 0.0

[[client]]
id = 11
connected_node_ids = []
`
	_, err := Parse([]byte(topology))
	if err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("Parse error = %v, want duplicate id error", err)
	}
}

func TestParse_PDROutOfRangeRejected(t *testing.T) {
	const topology = `
[[drone]]
id = 11
connected_node_ids = []
pdr = 1.5
`
	_, err := Parse([]byte(topology))
	if err == nil || !strings.Contains(err.Error(), "out of range") {
		t.Fatalf("Parse error = %v, want pdr range error", err)
	}
}

func TestParse_UnknownServerTypeRejected(t *testing.T) {
	const topology = `
[[server]]
id = 21
connected_node_ids = []
type = "bogus"
`
	_, err := Parse([]byte(topology))
	if err == nil || !strings.Contains(err.Error(), "unknown server type") {
		t.Fatalf("Parse error = %v, want unknown server type error", err)
	}
}

func TestParse_UnknownPeerRejected(t *testing.T) {
	const topology = `
[[drone]]
id = 11
connected_node_ids = [99]
pdr = 0.0
`
	_, err := Parse([]byte(topology))
	if err == nil || !strings.Contains(err.Error(), "unknown node") {
		t.Fatalf("Parse error = %v, want unknown node error", err)
	}
}

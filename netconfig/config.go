// Package netconfig parses and validates the TOML file that bootstraps a
// simulation's topology: which drones, clients and servers exist, how
// they are wired together, and each drone's starting packet drop rate.
//
// Grounded on network_initializer.rs's initialize_from_file, which reads
// a wg_2024::config::Config of Drone/Client/Server entries and a
// connected_node_ids topology map before spawning anything; the
// symmetry/duplicate-ID checks that function left to panics on missing
// senders are made explicit validation here instead.
package netconfig

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/danylo37/overlay-mesh/core/node"
	"github.com/danylo37/overlay-mesh/device/app"
)

// DroneSpec is one [[drone]] TOML entry.
type DroneSpec struct {
	ID               node.ID   `toml:"id"`
	ConnectedNodeIDs []node.ID `toml:"connected_node_ids"`
	PDR              float64   `toml:"pdr"`
}

// ClientSpec is one [[client]] TOML entry.
type ClientSpec struct {
	ID               node.ID   `toml:"id"`
	ConnectedNodeIDs []node.ID `toml:"connected_node_ids"`
}

// ServerSpec is one [[server]] TOML entry. Type selects which
// application personality (communication/text/media) the bootstrapped
// server answers as — the wire format and the reference config don't
// carry this, so it is a bootstrap-only addition with no wire
// counterpart.
type ServerSpec struct {
	ID               node.ID         `toml:"id"`
	ConnectedNodeIDs []node.ID       `toml:"connected_node_ids"`
	Type             app.ServerType `toml:"-"`
	TypeName         string          `toml:"type"`
}

// Network is a fully parsed and validated topology.
type Network struct {
	Drone  []DroneSpec  `toml:"drone"`
	Client []ClientSpec `toml:"client"`
	Server []ServerSpec `toml:"server"`
}

// Load reads and validates the network topology at path.
func Load(path string) (*Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("netconfig: reading %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates TOML network configuration from data.
func Parse(data []byte) (*Network, error) {
	var n Network
	if _, err := toml.Decode(string(data), &n); err != nil {
		return nil, fmt.Errorf("netconfig: parsing TOML: %w", err)
	}
	for i := range n.Server {
		t, err := parseServerType(n.Server[i].TypeName)
		if err != nil {
			return nil, fmt.Errorf("netconfig: server %d: %w", n.Server[i].ID, err)
		}
		n.Server[i].Type = t
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}
	return &n, nil
}

func parseServerType(name string) (app.ServerType, error) {
	switch name {
	case "communication":
		return app.ServerCommunication, nil
	case "text":
		return app.ServerText, nil
	case "media":
		return app.ServerMedia, nil
	default:
		return app.ServerUndefined, fmt.Errorf("unknown server type %q", name)
	}
}

// Validate checks every invariant the simulation relies on at startup: no
// duplicate node IDs across any category, every drone PDR in [0,1], and a
// fully symmetric connection graph. It fails loudly rather than letting a
// malformed topology surface as a missing-neighbor error mid-run.
func (n *Network) Validate() error {
	adjacency := make(map[node.ID][]node.ID)
	seen := make(map[node.ID]bool)

	addNode := func(id node.ID, edges []node.ID) error {
		if seen[id] {
			return fmt.Errorf("netconfig: duplicate node id %d", id)
		}
		seen[id] = true
		adjacency[id] = edges
		return nil
	}

	for _, d := range n.Drone {
		if d.PDR < 0 || d.PDR > 1 {
			return fmt.Errorf("netconfig: drone %d: pdr %g out of range [0,1]", d.ID, d.PDR)
		}
		if err := addNode(d.ID, d.ConnectedNodeIDs); err != nil {
			return err
		}
	}
	for _, c := range n.Client {
		if err := addNode(c.ID, c.ConnectedNodeIDs); err != nil {
			return err
		}
	}
	for _, s := range n.Server {
		if err := addNode(s.ID, s.ConnectedNodeIDs); err != nil {
			return err
		}
	}

	for id, edges := range adjacency {
		for _, peer := range edges {
			if !seen[peer] {
				return fmt.Errorf("netconfig: node %d connects to unknown node %d", id, peer)
			}
			if !containsID(adjacency[peer], id) {
				return fmt.Errorf("netconfig: asymmetric link %d-%d: %d does not list %d back", id, peer, peer, id)
			}
		}
	}
	return nil
}

func containsID(ids []node.ID, target node.ID) bool {
	for _, id := range ids {
		if id == target {
			return true
		}
	}
	return false
}

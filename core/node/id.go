// Package node defines the identity and source-routing primitives shared by
// every actor in the overlay: drones, clients and servers.
package node

import "fmt"

// ID identifies a single actor in the overlay network. It is unique across
// the whole topology regardless of Kind.
type ID uint8

// Kind distinguishes the three roles a node can play. A node's Kind never
// changes after construction.
type Kind uint8

const (
	Drone Kind = iota
	Client
	Server
)

func (k Kind) String() string {
	switch k {
	case Drone:
		return "drone"
	case Client:
		return "client"
	case Server:
		return "server"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// MarshalJSON renders the Kind as its lowercase name so wire/event JSON
// stays human-readable.
func (k Kind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

// Hop pairs a NodeId with the Kind it had when it appended itself to a
// flood's path trace. The Kind is recorded at that moment because a node's
// role does not change, but the observer (the flood initiator) has no other
// way to learn it.
type Hop struct {
	ID   ID   `json:"id"`
	Kind Kind `json:"kind"`
}

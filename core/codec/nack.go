package codec

import "github.com/danylo37/overlay-mesh/core/node"

// AckData acknowledges successful receipt of one fragment.
type AckData struct {
	FragmentIndex uint64 `json:"fragment_index"`
}

// NackKind enumerates the reasons a drone refuses to carry a packet
// further.
type NackKind uint8

const (
	NackDropped NackKind = iota
	NackErrorInRouting
	NackDestinationIsDrone
	NackUnexpectedRecipient
)

func (k NackKind) String() string {
	switch k {
	case NackDropped:
		return "Dropped"
	case NackErrorInRouting:
		return "ErrorInRouting"
	case NackDestinationIsDrone:
		return "DestinationIsDrone"
	case NackUnexpectedRecipient:
		return "UnexpectedRecipient"
	default:
		return "Unknown"
	}
}

// NackData is the negative acknowledgement payload. Node is populated for
// ErrorInRouting (the missing next hop, or the drone itself when it is
// crash-draining) and UnexpectedRecipient (the drone that rejected the
// packet); it is unused for Dropped and DestinationIsDrone.
type NackData struct {
	FragmentIndex uint64   `json:"fragment_index"`
	Kind          NackKind `json:"kind"`
	Node          node.ID  `json:"node,omitempty"`
}

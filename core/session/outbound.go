package session

import (
	"errors"

	"github.com/danylo37/overlay-mesh/core/codec"
	"github.com/danylo37/overlay-mesh/core/node"
	"github.com/danylo37/overlay-mesh/core/pathcache"
)

var ErrFragmentIndexOutOfRange = errors.New("session: fragment index out of range")

// Action tells the caller what to do in reaction to an ACK/NACK.
type Action uint8

const (
	// ActionNone: nothing further is required.
	ActionNone Action = iota
	// ActionRetransmit: resend the fragment, reusing the session's
	// currently selected path.
	ActionRetransmit
	// ActionNeedsDiscovery: the destination has no usable path; schedule a
	// flood discovery and retry once one is installed.
	ActionNeedsDiscovery
	// ActionAbandon: the fragment can never be delivered by retrying
	// (a programming error); drop it.
	ActionAbandon
	// ActionHold: keep the fragment buffered; it needs controller
	// intervention (a topology repair) before anything else can happen.
	ActionHold
)

// OutboundSession is one application message's worth of fragments in
// flight toward Dest.
type OutboundSession struct {
	ID        uint64
	Dest      node.ID
	Fragments []codec.Fragment
	Status    []Status
	Path      *pathcache.Path
}

// NewOutboundSession splits payload into fragments and sets every one
// Pending. Path is nil until a route to dest is selected.
func NewOutboundSession(id uint64, dest node.ID, payload []byte) *OutboundSession {
	frags := codec.Split(payload)
	status := make([]Status, len(frags))
	return &OutboundSession{ID: id, Dest: dest, Fragments: frags, Status: status}
}

// AssignPath installs the path this session will send (or resend) its
// fragments along.
func (s *OutboundSession) AssignPath(p *pathcache.Path) {
	s.Path = p
}

// BuildPacket constructs the wire packet for fragment i along the
// session's currently assigned path, and marks the fragment InFlight. It
// requires a path to have been assigned.
func (s *OutboundSession) BuildPacket(i int) (*codec.Packet, error) {
	if i < 0 || i >= len(s.Fragments) {
		return nil, ErrFragmentIndexOutOfRange
	}
	if s.Path == nil {
		s.Status[i] = Status{State: NotSent, Reason: ReasonToBeSent}
		return nil, errNoPath
	}
	f := s.Fragments[i]
	pkt := &codec.Packet{
		Routing:   node.NewSourceRoutingHeader(s.Path.Hops),
		SessionID: s.ID,
		Type:      codec.PacketMsgFragment,
		Fragment:  &f,
	}
	s.Status[i] = Status{State: InFlight}
	return pkt, nil
}

var errNoPath = errors.New("session: no path assigned")

// HandleAck transitions fragment i to Acked and releases its hold on the
// path's use counter. Returns true if every fragment in the session is
// now Acked (the session is complete and may be discarded).
func (s *OutboundSession) HandleAck(i uint64) (done bool, err error) {
	if i >= uint64(len(s.Status)) {
		return false, ErrFragmentIndexOutOfRange
	}
	s.Status[i] = Status{State: Acked}
	if s.Path != nil {
		s.Path.Release()
	}
	return s.Done(), nil
}

// HandleNack applies the reaction table from the fragment/session layer
// spec and returns what the caller must do next.
func (s *OutboundSession) HandleNack(i uint64, kind codec.NackKind) (Action, error) {
	if i >= uint64(len(s.Status)) {
		return ActionNone, ErrFragmentIndexOutOfRange
	}
	if s.Path != nil {
		s.Path.Release()
	}
	switch kind {
	case codec.NackDropped:
		s.Status[i] = Status{State: NotSent, Reason: ReasonDropped}
		if s.Path != nil {
			return ActionRetransmit, nil
		}
		return ActionNeedsDiscovery, nil
	case codec.NackErrorInRouting:
		s.Status[i] = Status{State: NotSent, Reason: ReasonRoutingError}
		return ActionNeedsDiscovery, nil
	case codec.NackDestinationIsDrone:
		s.Status[i] = Status{State: NotSent, Reason: ReasonDroneDestination}
		return ActionAbandon, nil
	case codec.NackUnexpectedRecipient:
		s.Status[i] = Status{State: NotSent, Reason: ReasonBeenInWrongRecipient}
		return ActionHold, nil
	default:
		return ActionNone, nil
	}
}

// Done reports whether every fragment has been Acked.
func (s *OutboundSession) Done() bool {
	for _, st := range s.Status {
		if st.State != Acked {
			return false
		}
	}
	return true
}

// Pending returns the indices of fragments that need to be (re)sent: those
// that are Pending, or NotSent for a retryable reason.
func (s *OutboundSession) Pending() []int {
	var out []int
	for i, st := range s.Status {
		switch st.State {
		case Pending:
			out = append(out, i)
		case NotSent:
			if st.Reason == ReasonDropped || st.Reason == ReasonRoutingError || st.Reason == ReasonToBeSent {
				out = append(out, i)
			}
		}
	}
	return out
}

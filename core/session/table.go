// Package session implements the fragment/session transport layer:
// splitting outgoing messages into fragments, tracking their delivery
// state through ACK/NACK, reassembling incoming fragments, and sweeping
// for ACK timeouts on each runtime tick.
package session

import (
	"sync"
	"time"

	"github.com/danylo37/overlay-mesh/core/clock"
	"github.com/danylo37/overlay-mesh/core/codec"
	"github.com/danylo37/overlay-mesh/core/node"
)

// DefaultAckTimeout is the per-fragment ACK wait before a timeout-driven
// retry, per spec's "typical: 1 s".
const DefaultAckTimeout = time.Second

// Table owns every outbound and inbound session for one node.
type Table struct {
	mu         sync.Mutex
	clk        *clock.Clock
	ackTimeout time.Duration

	outbound map[uint64]*OutboundSession
	inbound  map[uint64]*InboundSession
	sentAt   map[uint64]map[uint64]time.Time // sessionID -> fragmentIndex -> last send time
}

// NewTable returns an empty session table. clk may be nil, in which case
// the system clock is used.
func NewTable(clk *clock.Clock, ackTimeout time.Duration) *Table {
	if clk == nil {
		clk = clock.New()
	}
	if ackTimeout <= 0 {
		ackTimeout = DefaultAckTimeout
	}
	return &Table{
		clk:        clk,
		ackTimeout: ackTimeout,
		outbound:   make(map[uint64]*OutboundSession),
		inbound:    make(map[uint64]*InboundSession),
		sentAt:     make(map[uint64]map[uint64]time.Time),
	}
}

// NewOutbound registers a new outbound session for dest, splitting payload
// into fragments, and returns it for the caller to assign a path to and
// start sending.
func (t *Table) NewOutbound(id uint64, dest node.ID, payload []byte) *OutboundSession {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := NewOutboundSession(id, dest, payload)
	t.outbound[id] = s
	t.sentAt[id] = make(map[uint64]time.Time)
	return s
}

// Outbound returns the outbound session for id, if any.
func (t *Table) Outbound(id uint64) (*OutboundSession, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.outbound[id]
	return s, ok
}

// MarkSent records that fragment i of session id was just transmitted, so
// CheckTimeouts can find it later.
func (t *Table) MarkSent(id uint64, i uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sentAt[id] == nil {
		t.sentAt[id] = make(map[uint64]time.Time)
	}
	t.sentAt[id][i] = t.clk.Now()
}

// HandleAck resolves an ACK against the named outbound session, removing
// the session from the table if it is now complete (every fragment Acked).
func (t *Table) HandleAck(id uint64, fragmentIndex uint64) (done bool, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, exists := t.outbound[id]
	if !exists {
		return false, false
	}
	done, err := s.HandleAck(fragmentIndex)
	if err != nil {
		return false, false
	}
	delete(t.sentAt[id], fragmentIndex)
	if done {
		delete(t.outbound, id)
		delete(t.sentAt, id)
	}
	return done, true
}

// HandleNack applies a NACK to the named outbound session and returns the
// action the caller must take.
func (t *Table) HandleNack(id uint64, fragmentIndex uint64, kind codec.NackKind) (Action, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, exists := t.outbound[id]
	if !exists {
		return ActionNone, false
	}
	action, err := s.HandleNack(fragmentIndex, kind)
	if err != nil {
		return ActionNone, false
	}
	delete(t.sentAt[id], fragmentIndex)
	if action == ActionAbandon {
		delete(t.outbound, id)
		delete(t.sentAt, id)
	}
	return action, true
}

// TimedOut returns (sessionID, fragmentIndex) pairs whose fragment has been
// InFlight longer than the table's ACK timeout, for a timeout-driven retry
// alongside the NACK-driven one.
func (t *Table) TimedOut() []FragmentRef {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clk.Now()
	var out []FragmentRef
	for id, s := range t.outbound {
		for i, st := range s.Status {
			if st.State != InFlight {
				continue
			}
			sentAt, ok := t.sentAt[id][uint64(i)]
			if !ok {
				continue
			}
			if now.Sub(sentAt) >= t.ackTimeout {
				out = append(out, FragmentRef{SessionID: id, Index: uint64(i)})
			}
		}
	}
	return out
}

// FragmentRef names one fragment of one session.
type FragmentRef struct {
	SessionID uint64
	Index     uint64
}

// Inbound returns the inbound reassembly session for id, creating one if
// this is the first fragment seen for it.
func (t *Table) Inbound(id uint64) *InboundSession {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.inbound[id]
	if !ok {
		s = NewInboundSession(id)
		t.inbound[id] = s
	}
	return s
}

// DropInbound discards a completed (or abandoned) inbound session.
func (t *Table) DropInbound(id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.inbound, id)
}

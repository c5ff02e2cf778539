package session

import "github.com/danylo37/overlay-mesh/core/codec"

// InboundSession accumulates fragments for one incoming session_id into a
// sparse buffer keyed by fragment index, so that a duplicate delivery of
// (session_id, fragment_index) — e.g. from a retransmission racing an ACK —
// is silently absorbed rather than reassembled twice (spec P5).
type InboundSession struct {
	ID      uint64
	total   uint64
	haveAll bool
	buf     map[uint64]codec.Fragment
}

// NewInboundSession starts an empty reassembly buffer for sessionID.
func NewInboundSession(sessionID uint64) *InboundSession {
	return &InboundSession{ID: sessionID, buf: make(map[uint64]codec.Fragment)}
}

// AddFragment stores f if its index hasn't been seen yet. total_n_fragments
// is learned from the first fragment seen, matching every subsequent one's
// claim (a mismatch is ignored rather than trusted, since the first value
// is what the session was opened with). Returns true once every fragment
// 0..total-1 has been received.
func (s *InboundSession) AddFragment(f codec.Fragment) bool {
	if s.haveAll {
		return true
	}
	if len(s.buf) == 0 {
		s.total = f.Total
	}
	if _, dup := s.buf[f.Index]; !dup {
		s.buf[f.Index] = f
	}
	if uint64(len(s.buf)) == s.total {
		s.haveAll = true
	}
	return s.haveAll
}

// Complete reports whether every fragment has arrived.
func (s *InboundSession) Complete() bool {
	return s.haveAll
}

// Reassemble concatenates the buffered fragments in index order. Callers
// must check Complete first.
func (s *InboundSession) Reassemble() ([]byte, error) {
	return codec.Reassemble(s.buf, s.total)
}

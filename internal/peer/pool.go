package peer

import (
	"context"
	"time"
)

// Pool is the process-wide map of peer id to supervised Session, created
// once at startup (spec.md §4.3) and passed explicitly to the router and
// HTTP ingress rather than kept as ambient state (spec.md §9 design note).
type Pool struct {
	order   []string
	sessions map[string]*Session
}

// NewPool builds an empty pool. Add peers in the order they should be
// iterated (configuration order, which is also router priority).
func NewPool() *Pool {
	return &Pool{sessions: make(map[string]*Session)}
}

// Add registers a peer session. Panics on a duplicate id since that is a
// configuration bug the caller (config.Validate) should have already
// rejected before reaching the pool.
func (p *Pool) Add(s *Session) {
	if _, exists := p.sessions[s.ID()]; exists {
		panic("peer: duplicate peer id " + s.ID())
	}
	p.order = append(p.order, s.ID())
	p.sessions[s.ID()] = s
}

// Get looks up a peer session by id.
func (p *Pool) Get(id string) (*Session, bool) {
	s, ok := p.sessions[id]
	return s, ok
}

// All returns every peer session in configuration order.
func (p *Pool) All() []*Session {
	out := make([]*Session, len(p.order))
	for i, id := range p.order {
		out[i] = p.sessions[id]
	}
	return out
}

// WaitForAnyBound blocks until at least one peer session is BOUND, or
// timeout elapses, per spec.md §4.3. It returns immediately, without
// sleeping, if a peer is already bound.
func (p *Pool) WaitForAnyBound(ctx context.Context, timeout time.Duration) bool {
	if p.anyBound() {
		return true
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	poll := time.NewTicker(50 * time.Millisecond)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-deadline.C:
			return false
		case <-poll.C:
			if p.anyBound() {
				return true
			}
		}
	}
}

func (p *Pool) anyBound() bool {
	for _, s := range p.sessions {
		if s.IsBound() {
			return true
		}
	}
	return false
}

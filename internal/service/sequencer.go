package service

import (
	"context"
	"sync"
	"time"
)

const (
	terminalIdleTTL = 30 * time.Minute
	maxTerminals    = 10000
)

// QuerySequencer stamps catalog queries per terminal so a response to an
// older query can never replace a newer one that was already delivered.
// Terminals idle for longer than the TTL are forgotten.
type QuerySequencer struct {
	mu        sync.Mutex
	terminals map[string]*terminalSeq
	ttl       time.Duration
	limit     int
	now       func() time.Time
}

type terminalSeq struct {
	issued    uint64
	delivered uint64
	lastSeen  time.Time
}

func NewQuerySequencer() *QuerySequencer {
	return &QuerySequencer{
		terminals: make(map[string]*terminalSeq),
		ttl:       terminalIdleTTL,
		limit:     maxTerminals,
		now:       time.Now,
	}
}

func (q *QuerySequencer) terminal(id string) *terminalSeq {
	now := q.now()
	t, ok := q.terminals[id]
	if !ok {
		if len(q.terminals) >= q.limit {
			q.evictLocked(now)
		}
		t = &terminalSeq{}
		q.terminals[id] = t
	}
	t.lastSeen = now
	return t
}

// Issue returns the ticket for a new query. A positive requested ticket
// (supplied by the terminal) is used as is; otherwise the next one is
// allocated.
func (q *QuerySequencer) Issue(terminalID string, requested uint64) uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()

	t := q.terminal(terminalID)
	if requested > 0 {
		if requested > t.issued {
			t.issued = requested
		}
		return requested
	}
	t.issued++
	return t.issued
}

// Deliver reports whether the response for ticket may be delivered, and
// records it as the latest delivered one. It returns false when a newer
// ticket has already been delivered.
func (q *QuerySequencer) Deliver(terminalID string, ticket uint64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	t := q.terminal(terminalID)
	if ticket < t.delivered {
		return false
	}
	t.delivered = ticket
	return true
}

// EvictStale drops terminals idle for longer than the TTL.
func (q *QuerySequencer) EvictStale() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.evictStaleLocked(q.now())
}

func (q *QuerySequencer) evictStaleLocked(now time.Time) int {
	evicted := 0
	for id, t := range q.terminals {
		if now.Sub(t.lastSeen) > q.ttl {
			delete(q.terminals, id)
			evicted++
		}
	}
	return evicted
}

// evictLocked makes room for one terminal: stale ones go first, then the
// least recently seen.
func (q *QuerySequencer) evictLocked(now time.Time) {
	if q.evictStaleLocked(now) > 0 {
		return
	}
	var (
		oldestID string
		oldest   time.Time
	)
	for id, t := range q.terminals {
		if oldestID == "" || t.lastSeen.Before(oldest) {
			oldestID, oldest = id, t.lastSeen
		}
	}
	delete(q.terminals, oldestID)
}

// Run sweeps idle terminals every TTL until ctx is cancelled.
func (q *QuerySequencer) Run(ctx context.Context) {
	ticker := time.NewTicker(q.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.EvictStale()
		}
	}
}

func (q *QuerySequencer) size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.terminals)
}

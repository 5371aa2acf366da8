// Package replay tracks seen nonces and per-server counters so replayed
// reports can be rejected before scoring.
package replay

import (
	"context"
	"sync"
	"sync/atomic"
)

// Ledger records report nonces and monotonic counters per server.
type Ledger interface {
	// SeenAndRecord atomically checks whether the nonce was seen for the
	// server and records it if not. Returns true when the nonce was already
	// seen (a replay), false when newly recorded.
	SeenAndRecord(ctx context.Context, serverID, nonce string) bool

	// Unrecord removes a nonce, allowing the report to be retried after a
	// downstream failure (e.g. queue backpressure).
	Unrecord(ctx context.Context, serverID, nonce string)

	// LastCounter returns the highest accepted counter for the server, or
	// -1 when no report has been accepted yet.
	LastCounter(ctx context.Context, serverID string) int64

	// Advance records a newly accepted counter for the server. Lower values
	// than the current one are ignored.
	Advance(ctx context.Context, serverID string, counter int64)

	// Size returns the number of nonces currently tracked.
	Size() int64
}

// node is one nonce entry in the eviction list.
type node struct {
	key  string
	next *node
}

func (n *node) reset() {
	n.key = ""
	n.next = nil
}

// inMemoryLedger implements Ledger with a bounded nonce set (LIFO eviction,
// pooled nodes) and an unbounded per-server counter table. One counter per
// registered server stays small; nonces are the growth concern.
type inMemoryLedger struct {
	mu       sync.RWMutex
	seen     map[string]*node
	head     *node
	maxSize  int
	size     atomic.Int64
	nodePool sync.Pool

	counters map[string]int64
}

// NewInMemoryLedger creates a ledger with configuration options.
func NewInMemoryLedger(opts ...Option) Ledger {
	l := &inMemoryLedger{
		maxSize:  100_000,
		counters: make(map[string]int64),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.seen = make(map[string]*node)
	l.nodePool = sync.Pool{
		New: func() interface{} {
			return &node{}
		},
	}
	return l
}

func nonceKey(serverID, nonce string) string {
	return serverID + "\x00" + nonce
}

func (l *inMemoryLedger) SeenAndRecord(ctx context.Context, serverID, nonce string) bool {
	key := nonceKey(serverID, nonce)

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.seen[key]; exists {
		return true
	}

	if l.maxSize > 0 && len(l.seen) >= l.maxSize {
		l.evict()
	}

	n := l.nodePool.Get().(*node)
	n.key = key
	n.next = l.head
	l.head = n
	l.seen[key] = n
	l.size.Add(1)
	return false
}

func (l *inMemoryLedger) Unrecord(ctx context.Context, serverID, nonce string) {
	key := nonceKey(serverID, nonce)

	l.mu.Lock()
	defer l.mu.Unlock()

	target, exists := l.seen[key]
	if !exists {
		return
	}
	delete(l.seen, key)

	if l.head == target {
		l.head = target.next
	} else {
		cur := l.head
		for cur != nil && cur.next != target {
			cur = cur.next
		}
		if cur != nil {
			cur.next = target.next
		}
	}
	target.reset()
	l.nodePool.Put(target)
	l.size.Add(-1)
}

// evict removes the oldest entry (tail of the list). Caller holds l.mu.
func (l *inMemoryLedger) evict() {
	if l.head == nil {
		return
	}
	if l.head.next == nil {
		delete(l.seen, l.head.key)
		l.head.reset()
		l.nodePool.Put(l.head)
		l.head = nil
		l.size.Add(-1)
		return
	}

	prev := l.head
	cur := l.head.next
	for cur.next != nil {
		prev = cur
		cur = cur.next
	}
	prev.next = nil
	delete(l.seen, cur.key)
	cur.reset()
	l.nodePool.Put(cur)
	l.size.Add(-1)
}

func (l *inMemoryLedger) LastCounter(ctx context.Context, serverID string) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if c, ok := l.counters[serverID]; ok {
		return c
	}
	return -1
}

func (l *inMemoryLedger) Advance(ctx context.Context, serverID string, counter int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cur, ok := l.counters[serverID]; ok && counter <= cur {
		return
	}
	l.counters[serverID] = counter
}

func (l *inMemoryLedger) Size() int64 {
	return l.size.Load()
}

package repository

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/level114/warden/internal/domain/model"
	"github.com/level114/warden/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Ordering: score DESC, then serverID ASC (deterministic). "Less" means
// ranks earlier, so in-order traversal produces the ranking from best to
// worst. Scores are plain ints on the published [0,1000] scale.

// treap node
type node struct {
	id    string
	score int
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aScore, aID) ranks earlier than (bScore, bID).
func less(aScore int, aID string, bScore int, bID string) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	fix(x)
	fix(y)
	return y
}

// scoreToPriority keeps higher scores higher in the treap.
func scoreToPriority(score int) uint64 {
	const offset = uint64(1) << 63
	return uint64(int64(score)) + offset
}

func insert(n *node, id string, score int) *node {
	if n == nil {
		return &node{id: id, score: score, prio: scoreToPriority(score), size: 1}
	}
	if less(score, id, n.score, n.id) {
		n.left = insert(n.left, id, score)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, score)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id string, score int) *node {
	if n == nil {
		return nil
	}
	if score == n.score && id == n.id {
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, score)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, score)
		}
	} else if less(score, id, n.score, n.id) {
		n.left = deleteNode(n.left, id, score)
	} else {
		n.right = deleteNode(n.right, id, score)
	}
	fix(n)
	return n
}

// collectTopN appends up to limit entries in rank order.
func collectTopN(n *node, limit int, records map[string]model.StoredScore, out *[]Entry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, records, out)
	if len(*out) < limit {
		if rec, exists := records[n.id]; exists {
			*out = append(*out, Entry{
				ServerID:       n.id,
				Score:          rec.Score,
				Classification: rec.Classification,
				UpdatedAt:      rec.UpdatedAt,
			})
		}
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, records, out)
	}
}

// Snapshot is an immutable view of the registry published periodically for
// lock-free reads.
type Snapshot struct {
	RankByServer  map[string]int
	ScoreByServer map[string]int
	TopCache      []Entry // sorted best first, bounded by the cache size
	TakenAt       time.Time
}

// TreapStore is the in-memory ranked registry.
type TreapStore struct {
	mu               sync.RWMutex
	root             *node
	byID             map[string]model.StoredScore
	snapshotInterval time.Duration
	topCacheSize     int

	snapshot atomic.Pointer[Snapshot]

	wg       sync.WaitGroup
	stopChan chan struct{}
}

// NewTreapStore constructs a treap store with configuration options and
// starts the periodic snapshot goroutine.
func NewTreapStore(ctx context.Context, opts ...Option) *TreapStore {
	s := &TreapStore{
		snapshotInterval: time.Second,
		topCacheSize:     500,
		byID:             make(map[string]model.StoredScore),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.stopChan = make(chan struct{})
	s.publishSnapshot()
	s.startPeriodicSnapshots(ctx)
	return s
}

func (s *TreapStore) startPeriodicSnapshots(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.snapshotInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.publishSnapshot()
			}
		}
	}()
}

func (s *TreapStore) publishSnapshot() {
	start := time.Now()
	s.mu.RLock()
	s.publishSnapshotLocked()
	s.mu.RUnlock()

	metrics.RecordRegistrySnapshotDuration(float64(time.Since(start).Milliseconds()))
	metrics.RecordRegistrySnapshot()
}

// publishSnapshotLocked rebuilds the snapshot; the caller holds the lock.
func (s *TreapStore) publishSnapshotLocked() {
	topCache := make([]Entry, 0, s.topCacheSize)
	collectTopN(s.root, s.topCacheSize, s.byID, &topCache)

	allEntries := make([]Entry, 0, len(s.byID))
	collectAll(s.root, s.byID, &allEntries)
	assignRanksWithTies(allEntries)

	rankByServer := make(map[string]int, len(s.byID))
	scoreByServer := make(map[string]int, len(s.byID))
	for _, entry := range allEntries {
		rankByServer[entry.ServerID] = entry.Rank
		scoreByServer[entry.ServerID] = entry.Score
	}
	for i := range topCache {
		if rank, exists := rankByServer[topCache[i].ServerID]; exists {
			topCache[i].Rank = rank
		}
	}

	s.snapshot.Store(&Snapshot{
		RankByServer:  rankByServer,
		ScoreByServer: scoreByServer,
		TopCache:      topCache,
		TakenAt:       time.Now(),
	})
}

// Snapshot returns the most recently published snapshot.
func (s *TreapStore) Snapshot() *Snapshot {
	return s.snapshot.Load()
}

// Close stops the snapshot goroutine.
func (s *TreapStore) Close() error {
	select {
	case <-s.stopChan:
	default:
		close(s.stopChan)
	}
	s.wg.Wait()
	return nil
}

// Put implements Store.Put with O(log n) expected time. Unlike a
// best-score leaderboard, a put always replaces: smoothed scores fall as
// well as rise.
func (s *TreapStore) Put(ctx context.Context, serverID string, score model.StoredScore) error {
	isNew := false

	s.mu.Lock()
	if old, ok := s.byID[serverID]; ok {
		s.root = deleteNode(s.root, serverID, old.Score)
	} else {
		isNew = true
	}
	s.byID[serverID] = score
	s.root = insert(s.root, serverID, score.Score)
	s.mu.Unlock()

	if isNew {
		metrics.UpdateRegistryRecords(s.Count(ctx))
	}
	return nil
}

// Get returns the stored score for a server.
func (s *TreapStore) Get(ctx context.Context, serverID string) (model.StoredScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[serverID]
	if !ok {
		return model.StoredScore{}, ErrNotFound
	}
	return rec, nil
}

// Rank returns the current rank and score for a server in O(n log n).
func (s *TreapStore) Rank(ctx context.Context, serverID string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.byID[serverID]; !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return Entry{}, ErrNotFound
	}

	allEntries := make([]Entry, 0, len(s.byID))
	collectAll(s.root, s.byID, &allEntries)
	sortEntries(allEntries)
	assignRanksWithTies(allEntries)

	for _, entry := range allEntries {
		if entry.ServerID == serverID {
			return entry, nil
		}
	}
	return Entry{}, ErrNotFound
}

// TopN returns the top N entries ordered by score desc.
func (s *TreapStore) TopN(ctx context.Context, n int) ([]Entry, error) {
	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, n)
	collectTopN(s.root, n, s.byID, &out)
	assignRanksWithTies(out)
	return out, nil
}

// Count returns the total number of servers tracked.
func (s *TreapStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// collectAll appends all entries in rank order.
func collectAll(n *node, byID map[string]model.StoredScore, out *[]Entry) {
	if n == nil {
		return
	}
	collectAll(n.left, byID, out)
	if rec, ok := byID[n.id]; ok {
		*out = append(*out, Entry{
			ServerID:       n.id,
			Score:          rec.Score,
			Classification: rec.Classification,
			UpdatedAt:      rec.UpdatedAt,
		})
	}
	collectAll(n.right, byID, out)
}

// sortEntries matches the treap ordering: score desc, server id asc.
func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].ServerID < entries[j].ServerID
	})
}

// assignRanksWithTies gives servers with equal scores the same rank; the
// following distinct score takes the next consecutive rank.
func assignRanksWithTies(entries []Entry) {
	if len(entries) == 0 {
		return
	}

	currentRank := 1
	for i := 0; i < len(entries); i++ {
		entries[i].Rank = currentRank

		sameScoreCount := 1
		for j := i + 1; j < len(entries) && entries[j].Score == entries[i].Score; j++ {
			entries[j].Rank = currentRank
			sameScoreCount++
		}

		currentRank++
		i += sameScoreCount - 1
	}
}

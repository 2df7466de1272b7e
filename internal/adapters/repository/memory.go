package repository

import (
	"context"
	"slices"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/chronoverse/chronoverse/internal/domain/model"
	"github.com/chronoverse/chronoverse/pkg/metrics"
)

// snapshot is an immutable view of the store. Writers build a new snapshot
// and publish it; readers never lock.
type snapshot struct {
	sorted []model.Event // ordered by (StartYear, ID)
	byID   map[string]int
	// maxSpan and maxReverse are the widest forward (EndYear-StartYear) and
	// reversed (StartYear-EndYear) extents seen. They bound the window scan.
	maxSpan    int64
	maxReverse int64
}

func newSnapshot(events []model.Event) *snapshot {
	s := &snapshot{sorted: events, byID: make(map[string]int, len(events))}
	sortEvents(s.sorted)
	for i := range s.sorted {
		e := &s.sorted[i]
		s.byID[e.ID] = i
		if e.StartYear != nil && e.EndYear != nil {
			s.maxSpan = max(s.maxSpan, *e.EndYear-*e.StartYear)
			s.maxReverse = max(s.maxReverse, *e.StartYear-*e.EndYear)
		}
	}
	return s
}

// MemoryStore keeps events in process memory.
type MemoryStore struct {
	mu     sync.Mutex // serializes writers
	snap   atomic.Pointer[snapshot]
	closed atomic.Bool
	opts   storeOptions
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{opts: defaultOptions()}
	for _, opt := range opts {
		opt(&s.opts)
	}
	s.snap.Store(newSnapshot(nil))
	return s
}

func (s *MemoryStore) load() (*snapshot, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	return s.snap.Load(), nil
}

// Window implements Store.Window.
func (s *MemoryStore) Window(_ context.Context, start, end int64) ([]model.Event, error) {
	snap, err := s.load()
	if err != nil {
		return nil, err
	}
	// Events starting after end+maxReverse never overlap; events starting
	// before start-maxSpan cannot reach start.
	hi := sort.Search(len(snap.sorted), func(i int) bool {
		sy := snap.sorted[i].StartYear
		return sy != nil && *sy > end+snap.maxReverse
	})
	lo := sort.Search(hi, func(i int) bool {
		sy := snap.sorted[i].StartYear
		return sy != nil && *sy >= start-snap.maxSpan
	})
	var out []model.Event
	for i := lo; i < hi; i++ {
		if overlaps(&snap.sorted[i], start, end) {
			out = append(out, snap.sorted[i])
		}
	}
	return out, nil
}

// All implements Store.All.
func (s *MemoryStore) All(_ context.Context) ([]model.Event, error) {
	snap, err := s.load()
	if err != nil {
		return nil, err
	}
	return slices.Clone(snap.sorted), nil
}

// Get implements Store.Get.
func (s *MemoryStore) Get(_ context.Context, id string) (model.Event, error) {
	snap, err := s.load()
	if err != nil {
		return model.Event{}, err
	}
	i, ok := snap.byID[id]
	if !ok {
		return model.Event{}, ErrNotFound
	}
	return snap.sorted[i], nil
}

// Upsert implements Store.Upsert.
func (s *MemoryStore) Upsert(_ context.Context, events []model.Event) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load()
	if err != nil {
		return 0, err
	}
	merged := slices.Clone(snap.sorted)
	index := make(map[string]int, len(snap.byID))
	for id, i := range snap.byID {
		index[id] = i
	}
	for _, e := range events {
		if i, ok := index[e.ID]; ok {
			merged[i] = e
			continue
		}
		index[e.ID] = len(merged)
		merged = append(merged, e)
	}
	s.publish(newSnapshot(merged))
	return len(events), nil
}

// Replace implements Store.Replace.
func (s *MemoryStore) Replace(_ context.Context, events []model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.load(); err != nil {
		return err
	}
	fresh := make([]model.Event, 0, len(events))
	seen := make(map[string]int, len(events))
	for _, e := range events {
		if i, ok := seen[e.ID]; ok {
			fresh[i] = e
			continue
		}
		seen[e.ID] = len(fresh)
		fresh = append(fresh, e)
	}
	s.publish(newSnapshot(fresh))
	return nil
}

func (s *MemoryStore) publish(snap *snapshot) {
	s.snap.Store(snap)
	if s.opts.reportMetrics {
		metrics.SetDatasetSize(len(snap.sorted))
	}
}

// Count implements Store.Count.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	snap, err := s.load()
	if err != nil {
		return 0, err
	}
	return len(snap.sorted), nil
}

// Close marks the store closed; later calls return ErrClosed.
func (s *MemoryStore) Close() error {
	s.closed.Store(true)
	return nil
}

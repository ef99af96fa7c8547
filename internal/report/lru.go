package report

import (
	"container/list"
	"sync"
)

// LRUStore keeps the most recently used records in memory and delegates
// to a backing Store on miss.
type LRUStore struct {
	mu    sync.Mutex
	cap   int
	back  Store
	order *list.List // front is most recent; values are *Record
	items map[string]*list.Element
}

// NewLRUStore creates an LRU cache holding up to cap records in front of
// back. Capacity is clamped to at least 1.
func NewLRUStore(cap int, back Store) *LRUStore {
	if cap < 1 {
		cap = 1
	}
	return &LRUStore{
		cap:   cap,
		back:  back,
		order: list.New(),
		items: make(map[string]*list.Element, cap),
	}
}

// Save caches rec and writes it through to the backing store.
func (s *LRUStore) Save(rec *Record) error {
	s.put(rec)
	return s.back.Save(rec)
}

// Load returns a cached record or loads it from the backing store and
// caches it.
func (s *LRUStore) Load(runID string) (*Record, error) {
	s.mu.Lock()
	if e, ok := s.items[runID]; ok {
		s.order.MoveToFront(e)
		rec := e.Value.(*Record)
		s.mu.Unlock()
		return rec, nil
	}
	s.mu.Unlock()

	rec, err := s.back.Load(runID)
	if err != nil {
		return nil, err
	}
	s.put(rec)
	return rec, nil
}

func (s *LRUStore) put(rec *Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.items[rec.ID]; ok {
		e.Value = rec
		s.order.MoveToFront(e)
		return
	}
	s.items[rec.ID] = s.order.PushFront(rec)
	for s.order.Len() > s.cap {
		oldest := s.order.Back()
		s.order.Remove(oldest)
		delete(s.items, oldest.Value.(*Record).ID)
	}
}

package kb

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/signalsfoundry/memory-orbs/model"
)

var (
	// ErrMemoryExists indicates a memory with the same ID is already stored.
	ErrMemoryExists = errors.New("memory already exists")
	// ErrMemoryNotFound indicates a requested memory was not found.
	ErrMemoryNotFound = errors.New("memory not found")
	// ErrMemoryInvalid indicates a memory failed validation.
	ErrMemoryInvalid = errors.New("invalid memory")
)

// EventType indicates what kind of change happened in the store.
type EventType int

const (
	EventMemoryAdded EventType = iota
	EventMemoryCaptioned
	EventMemoryRemoved
)

func (t EventType) String() string {
	switch t {
	case EventMemoryAdded:
		return "added"
	case EventMemoryCaptioned:
		return "captioned"
	case EventMemoryRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Event is emitted to subscribers when something interesting happens.
type Event struct {
	Type   EventType
	Memory model.Memory
}

// MemoryStore is an in-memory, thread-safe store of memories. It keeps
// insertion order and hands out copies so readers never race with the
// single caption mutation.
type MemoryStore struct {
	mu sync.RWMutex

	byID  map[string]*model.Memory
	order []string

	nextSub int
	subs    map[int]func(Event)
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID: make(map[string]*model.Memory),
		subs: make(map[int]func(Event)),
	}
}

func validate(m model.Memory) error {
	if m.ID == "" {
		return fmt.Errorf("%w: empty id", ErrMemoryInvalid)
	}
	if m.Scale <= 0 {
		return fmt.Errorf("%w: memory %q has non-positive scale %v", ErrMemoryInvalid, m.ID, m.Scale)
	}
	return nil
}

// Add stores a new memory. It returns an error if the ID already exists or
// the memory is invalid.
func (s *MemoryStore) Add(m model.Memory) error {
	return s.AddBatch([]model.Memory{m})
}

// AddBatch stores several memories atomically: either all are added or
// none are.
func (s *MemoryStore) AddBatch(batch []model.Memory) error {
	s.mu.Lock()
	seen := make(map[string]struct{}, len(batch))
	for _, m := range batch {
		if err := validate(m); err != nil {
			s.mu.Unlock()
			return err
		}
		if _, exists := s.byID[m.ID]; exists {
			s.mu.Unlock()
			return fmt.Errorf("%w: %q", ErrMemoryExists, m.ID)
		}
		if _, dup := seen[m.ID]; dup {
			s.mu.Unlock()
			return fmt.Errorf("%w: %q repeated in batch", ErrMemoryExists, m.ID)
		}
		seen[m.ID] = struct{}{}
	}

	events := make([]Event, 0, len(batch))
	for _, m := range batch {
		stored := m
		s.byID[m.ID] = &stored
		s.order = append(s.order, m.ID)
		events = append(events, Event{Type: EventMemoryAdded, Memory: m})
	}
	subs := s.subscribersLocked()
	s.mu.Unlock()

	notify(subs, events...)
	return nil
}

// Get returns a copy of the memory with the given ID.
func (s *MemoryStore) Get(id string) (model.Memory, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.byID[id]
	if !ok {
		return model.Memory{}, false
	}
	return *m, true
}

// Len returns the number of stored memories.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// CountAnalyzing returns how many memories are still waiting for a caption.
func (s *MemoryStore) CountAnalyzing() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, m := range s.byID {
		if m.IsAnalyzing {
			n++
		}
	}
	return n
}

// List returns a snapshot of all memories in insertion order.
func (s *MemoryStore) List() []model.Memory {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := make([]model.Memory, 0, len(s.order))
	for _, id := range s.order {
		res = append(res, *s.byID[id])
	}
	return res
}

// SortedByRecency returns a snapshot ordered newest first. Memories with the
// same timestamp keep their insertion order.
func (s *MemoryStore) SortedByRecency() []model.Memory {
	res := s.List()
	sortByRecency(res)
	return res
}

// IndexOf returns the recency index of id, or -1.
func (s *MemoryStore) IndexOf(id string) int {
	for i, m := range s.SortedByRecency() {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func sortByRecency(ms []model.Memory) {
	sort.SliceStable(ms, func(i, j int) bool {
		return ms[i].Timestamp.After(ms[j].Timestamp)
	})
}

// ApplyCaption sets the description of a memory that is still being
// analysed and clears its analysing flag. It reports false, changing
// nothing, when the memory is gone or was already captioned.
func (s *MemoryStore) ApplyCaption(id, description string) bool {
	s.mu.Lock()
	m, ok := s.byID[id]
	if !ok || !m.IsAnalyzing {
		s.mu.Unlock()
		return false
	}
	m.Description = description
	m.IsAnalyzing = false
	event := Event{Type: EventMemoryCaptioned, Memory: *m}
	subs := s.subscribersLocked()
	s.mu.Unlock()

	notify(subs, event)
	return true
}

// Remove deletes a memory. Later captions for the same ID become no-ops.
func (s *MemoryStore) Remove(id string) error {
	s.mu.Lock()
	m, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrMemoryNotFound, id)
	}
	delete(s.byID, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	event := Event{Type: EventMemoryRemoved, Memory: *m}
	subs := s.subscribersLocked()
	s.mu.Unlock()

	notify(subs, event)
	return nil
}

// Subscribe registers a callback for store events. Callbacks run outside
// the store lock on the goroutine that made the change. When the change
// comes through a scene.Scene its lock is still held, so a callback must
// not call back into the Scene. It returns an unsubscribe function.
func (s *MemoryStore) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *MemoryStore) subscribersLocked() []func(Event) {
	if len(s.subs) == 0 {
		return nil
	}
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	res := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		res = append(res, s.subs[id])
	}
	return res
}

func notify(subs []func(Event), events ...Event) {
	for _, e := range events {
		for _, sub := range subs {
			sub(e)
		}
	}
}

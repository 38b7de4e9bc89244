package store

import (
	"sort"
	"sync"

	"github.com/eldtechnologies/respoke-chatbot/internal/models"
)

// DefaultHistoryCapacity is the number of messages kept per group.
const DefaultHistoryCapacity = 50

// HistoryStore keeps a fixed-capacity FIFO of messages per group.
// Groups are created on first use and never removed.
type HistoryStore struct {
	mu       sync.RWMutex
	capacity int
	groups   map[string]*ring
}

// NewHistoryStore creates a store holding at most capacity messages per
// group. A non-positive capacity selects DefaultHistoryCapacity.
func NewHistoryStore(capacity int) *HistoryStore {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &HistoryStore{
		capacity: capacity,
		groups:   make(map[string]*ring),
	}
}

// Capacity returns the per-group message limit.
func (s *HistoryStore) Capacity() int {
	return s.capacity
}

// Append stores msg for groupID, evicting the oldest message when full.
func (s *HistoryStore) Append(groupID string, msg models.StoredMessage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.group(groupID).push(msg)
}

// Ensure creates an empty history for groupID if it has none.
func (s *HistoryStore) Ensure(groupID string) {
	s.mu.Lock()
	s.group(groupID)
	s.mu.Unlock()
}

// group returns the ring for groupID, creating it. Callers hold mu.
func (s *HistoryStore) group(groupID string) *ring {
	g, ok := s.groups[groupID]
	if !ok {
		g = newRing(s.capacity)
		s.groups[groupID] = g
	}
	return g
}

// Replay returns a copy of the group's messages, oldest first.
func (s *HistoryStore) Replay(groupID string) []models.StoredMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[groupID]
	if !ok {
		return []models.StoredMessage{}
	}
	return g.slice()
}

// Len returns the number of messages held for groupID.
func (s *HistoryStore) Len(groupID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if g, ok := s.groups[groupID]; ok {
		return g.size
	}
	return 0
}

// Groups returns a summary per known group, sorted by id.
func (s *HistoryStore) Groups() []models.GroupSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]models.GroupSummary, 0, len(s.groups))
	for id, g := range s.groups {
		summary := models.GroupSummary{ID: id, MessageCount: g.size}
		if last, ok := g.last(); ok {
			summary.LastTimestamp = last.Timestamp
		}
		summaries = append(summaries, summary)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].ID < summaries[j].ID
	})
	return summaries
}

// ring is a circular buffer; head indexes the oldest message.
type ring struct {
	buf  []models.StoredMessage
	head int
	size int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]models.StoredMessage, capacity)}
}

func (r *ring) push(msg models.StoredMessage) bool {
	if r.size < len(r.buf) {
		r.buf[(r.head+r.size)%len(r.buf)] = msg
		r.size++
		return false
	}
	r.buf[r.head] = msg
	r.head = (r.head + 1) % len(r.buf)
	return true
}

func (r *ring) slice() []models.StoredMessage {
	out := make([]models.StoredMessage, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.buf[(r.head+i)%len(r.buf)]
	}
	return out
}

func (r *ring) last() (models.StoredMessage, bool) {
	if r.size == 0 {
		return models.StoredMessage{}, false
	}
	return r.buf[(r.head+r.size-1)%len(r.buf)], true
}

package relay

import (
	"sort"
	"sync"
	"time"

	"github.com/clawdgotchi/hookbridge/internal/event"
)

type entry struct {
	record   event.Record
	received time.Time
}

// Store keeps the latest record per session id, as seen by the listener.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]entry
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]entry),
		now:      time.Now,
	}
}

func (s *Store) Get(sessionID string) (event.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[sessionID]
	return e.record, ok
}

// GetAll returns the latest records, most recently received first.
func (s *Store) GetAll() []event.Record {
	s.mu.RLock()
	entries := make([]entry, 0, len(s.sessions))
	for _, e := range s.sessions {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].received.Equal(entries[j].received) {
			return entries[i].record.SessionID < entries[j].record.SessionID
		}
		return entries[i].received.After(entries[j].received)
	})

	result := make([]event.Record, len(entries))
	for i, e := range entries {
		result[i] = e.record
	}
	return result
}

// Update stores rec as the latest state of its session.
func (s *Store) Update(rec event.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[rec.SessionID] = entry{record: rec, received: s.now()}
}

// ActiveCount counts sessions whose latest record is not "ended".
func (s *Store) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, e := range s.sessions {
		if e.record.Status != event.StatusEnded {
			count++
		}
	}
	return count
}

// Prune drops ended sessions last updated before cutoff.
func (s *Store) Prune(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, e := range s.sessions {
		if e.record.Status == event.StatusEnded && e.received.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

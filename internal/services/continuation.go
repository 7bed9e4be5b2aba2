package services

import (
	"sync"
	"time"

	"github.com/Ananth-NQI/narasumber-backend/internal/models"
)

// ContinuationStore holds at most one pending continuation per conversation
type ContinuationStore interface {
	// Arm replaces whatever was pending for the conversation
	Arm(conversationID string, c models.Continuation)
	// Take removes and returns the pending continuation
	Take(conversationID string) (models.Continuation, bool)
	Len() int
	// PruneArmedBefore drops continuations armed before cutoff
	PruneArmedBefore(cutoff time.Time) int
}

// MemoryContinuationStore is a process-local ContinuationStore
type MemoryContinuationStore struct {
	mu      sync.Mutex
	pending map[string]models.Continuation
}

// NewMemoryContinuationStore creates an empty continuation store
func NewMemoryContinuationStore() *MemoryContinuationStore {
	return &MemoryContinuationStore{pending: make(map[string]models.Continuation)}
}

func (s *MemoryContinuationStore) Arm(conversationID string, c models.Continuation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[conversationID] = c
}

func (s *MemoryContinuationStore) Take(conversationID string) (models.Continuation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.pending[conversationID]
	if ok {
		delete(s.pending, conversationID)
	}
	return c, ok
}

func (s *MemoryContinuationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *MemoryContinuationStore) PruneArmedBefore(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	pruned := 0
	for id, c := range s.pending {
		if c.ArmedAt.Before(cutoff) {
			delete(s.pending, id)
			pruned++
		}
	}
	return pruned
}

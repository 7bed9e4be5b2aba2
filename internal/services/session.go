package services

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Ananth-NQI/narasumber-backend/internal/models"
)

// SessionStore keeps SessionState per conversation id
type SessionStore interface {
	Get(conversationID string) (models.SessionState, bool)
	Set(conversationID string, state models.SessionState)
	Range(fn func(conversationID string, state models.SessionState) bool)
}

// MemorySessionStore is a process-local SessionStore
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]models.SessionState
}

// NewMemorySessionStore creates an empty session store
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]models.SessionState)}
}

func (s *MemorySessionStore) Get(conversationID string) (models.SessionState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.sessions[conversationID]
	return state, ok
}

func (s *MemorySessionStore) Set(conversationID string, state models.SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[conversationID] = state
}

func (s *MemorySessionStore) Range(fn func(conversationID string, state models.SessionState) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id, state := range s.sessions {
		if !fn(id, state) {
			return
		}
	}
}

// SessionRegistry tracks which group chats currently accept questions.
// Expiry is checked lazily on read; nothing sweeps the store.
type SessionRegistry struct {
	store          SessionStore
	now            Clock
	defaultMinutes int
	log            *logrus.Logger
}

// NewSessionRegistry creates a registry. defaultMinutes applies when a
// session is activated without a duration.
func NewSessionRegistry(store SessionStore, now Clock, defaultMinutes int, log *logrus.Logger) *SessionRegistry {
	if now == nil {
		now = time.Now
	}
	if defaultMinutes <= 0 {
		defaultMinutes = 30
	}
	return &SessionRegistry{
		store:          store,
		now:            now,
		defaultMinutes: defaultMinutes,
		log:            log,
	}
}

// SetSession overwrites the conversation's state. durationMinutes <= 0
// means the default duration.
func (r *SessionRegistry) SetSession(conversationID string, active bool, durationMinutes int) models.SessionState {
	state := models.SessionState{Status: models.SessionInactive}
	if active {
		if durationMinutes <= 0 {
			durationMinutes = r.defaultMinutes
		}
		expiresAt := r.now().Add(time.Duration(durationMinutes) * time.Minute)
		state = models.SessionState{Status: models.SessionActive, ExpiresAt: &expiresAt}
	}
	r.store.Set(conversationID, state)

	entry := r.log.WithFields(logrus.Fields{"conversation": conversationID, "status": state.Status})
	if state.ExpiresAt != nil {
		entry = entry.WithField("expires_at", state.ExpiresAt.Format(time.RFC3339))
	}
	entry.Info("Session updated")
	return state
}

// IsActive reports whether the conversation has an unexpired active session.
// Unknown conversations are inactive.
func (r *SessionRegistry) IsActive(conversationID string) bool {
	state, ok := r.store.Get(conversationID)
	if !ok {
		return false
	}
	return state.ActiveAt(r.now())
}

// DefaultMinutes is the duration used when none is given
func (r *SessionRegistry) DefaultMinutes() int {
	return r.defaultMinutes
}

// ActiveCount returns the number of currently active sessions (for monitoring)
func (r *SessionRegistry) ActiveCount() int {
	now := r.now()
	count := 0
	r.store.Range(func(_ string, state models.SessionState) bool {
		if state.ActiveAt(now) {
			count++
		}
		return true
	})
	return count
}

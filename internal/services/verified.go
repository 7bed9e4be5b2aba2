package services

import "sync"

// VerifiedSet records numbers that confirmed ownership with !verifikasi
type VerifiedSet interface {
	// Add returns false if the phone was already present
	Add(phone string) bool
	Contains(phone string) bool
}

// MemoryVerifiedSet is a process-local VerifiedSet
type MemoryVerifiedSet struct {
	mu     sync.RWMutex
	phones map[string]struct{}
}

// NewMemoryVerifiedSet creates an empty verified set
func NewMemoryVerifiedSet() *MemoryVerifiedSet {
	return &MemoryVerifiedSet{phones: make(map[string]struct{})}
}

func (s *MemoryVerifiedSet) Add(phone string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.phones[phone]; ok {
		return false
	}
	s.phones[phone] = struct{}{}
	return true
}

func (s *MemoryVerifiedSet) Contains(phone string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.phones[phone]
	return ok
}

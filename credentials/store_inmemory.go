package credentials

import (
	"context"
	"sync"
)

// InMemoryStore keeps credentials for the lifetime of the process.
type InMemoryStore struct {
	mu      sync.RWMutex
	session Session
	profile Profile
}

var _ Store = (*InMemoryStore)(nil)

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Session(_ context.Context) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session, nil
}

func (s *InMemoryStore) SetSession(_ context.Context, session Session) error {
	if err := session.validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = session
	return nil
}

func (s *InMemoryStore) Profile(_ context.Context) (Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile, nil
}

func (s *InMemoryStore) SetProfile(_ context.Context, profile Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = profile
	return nil
}

func (s *InMemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = Session{}
	s.profile = Profile{}
	return nil
}

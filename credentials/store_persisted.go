package credentials

import (
	"context"
	"sync"
)

// backend loads and saves the whole credentials document in one operation.
type backend interface {
	load(ctx context.Context) (document, error)
	save(ctx context.Context, doc document) error
	remove(ctx context.Context) error
}

// persistedStore implements Store over a backend with read-modify-write
// serialised by a mutex, so the token pair is never written piecemeal.
type persistedStore struct {
	mu      sync.Mutex
	backend backend
}

func (s *persistedStore) Session(ctx context.Context) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.backend.load(ctx)
	if err != nil {
		return Session{}, err
	}
	return doc.Session, nil
}

func (s *persistedStore) SetSession(ctx context.Context, session Session) error {
	if err := session.validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.backend.load(ctx)
	if err != nil {
		return err
	}
	doc.Session = session
	return s.backend.save(ctx, doc)
}

func (s *persistedStore) Profile(ctx context.Context) (Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.backend.load(ctx)
	if err != nil {
		return Profile{}, err
	}
	if doc.Profile == nil {
		return Profile{}, nil
	}
	return *doc.Profile, nil
}

func (s *persistedStore) SetProfile(ctx context.Context, profile Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.backend.load(ctx)
	if err != nil {
		return err
	}
	doc.Profile = &profile
	return s.backend.save(ctx, doc)
}

func (s *persistedStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.remove(ctx)
}

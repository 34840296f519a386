// Package memory provides a process-local store.Store backed by maps.
//
// It is intended for tests, examples, and single-process deployments. Every
// session write happens inside one critical section, so compare-and-set
// semantics hold under concurrent use.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/MrEthical07/goSession/store"
	"github.com/google/uuid"
)

var _ store.Store = (*Store)(nil)

// Store is a mutex-guarded in-memory user store.
type Store struct {
	mu      sync.RWMutex
	byID    map[string]*store.User
	byEmail map[string]string
	now     func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		byID:    make(map[string]*store.User),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*store.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[store.NormalizeEmail(email)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return s.byID[id].Clone(), nil
}

func (s *Store) FindByID(ctx context.Context, id string) (*store.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u.Clone(), nil
}

func (s *Store) Create(ctx context.Context, in store.NewUser) (*store.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	email := store.NormalizeEmail(in.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[email]; exists {
		return nil, store.ErrEmailTaken
	}

	now := s.now().UTC()
	u := &store.User{
		ID:           uuid.NewString(),
		Email:        email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: in.PasswordHash,
		TokenVersion: 0,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.byID[u.ID] = u
	s.byEmail[email] = u.ID

	return u.Clone(), nil
}

func (s *Store) SetSession(ctx context.Context, id string, expectedVersion int64, next store.Session) (*store.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if u.TokenVersion != expectedVersion {
		return nil, store.ErrVersionConflict
	}

	u.RefreshTokenHash = next.RefreshTokenHash
	u.TokenVersion = next.TokenVersion
	u.UpdatedAt = s.now().UTC()

	return u.Clone(), nil
}

func (s *Store) Revoke(ctx context.Context, id string) (*store.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}

	u.RefreshTokenHash = ""
	u.TokenVersion++
	u.UpdatedAt = s.now().UTC()

	return u.Clone(), nil
}

// Put inserts or replaces a user record as-is. It is meant for seeding.
func (s *Store) Put(u *store.User) {
	if u == nil {
		return
	}
	c := u.Clone()
	c.Email = store.NormalizeEmail(c.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.byID[c.ID]; ok && prev.Email != c.Email {
		delete(s.byEmail, prev.Email)
	}
	s.byID[c.ID] = c
	s.byEmail[c.Email] = c.ID
}

// Len returns the number of stored users.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// SetActive flips the active flag of an existing user.
func (s *Store) SetActive(ctx context.Context, id string, active bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	u.IsActive = active
	u.UpdatedAt = s.now().UTC()
	return nil
}

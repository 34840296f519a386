// Package storetest holds the behavioral suite every store.Store implementation
// must pass.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/MrEthical07/goSession/store"
)

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) store.Store

// Run executes the suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("CreateAndFind", func(t *testing.T) { testCreateAndFind(t, newStore(t)) })
	t.Run("CreateDuplicateEmail", func(t *testing.T) { testCreateDuplicate(t, newStore(t)) })
	t.Run("FindMissing", func(t *testing.T) { testFindMissing(t, newStore(t)) })
	t.Run("SetSessionCompareAndSet", func(t *testing.T) { testSetSession(t, newStore(t)) })
	t.Run("SetSessionMissingUser", func(t *testing.T) { testSetSessionMissing(t, newStore(t)) })
	t.Run("RevokeAdvancesVersion", func(t *testing.T) { testRevoke(t, newStore(t)) })
	t.Run("ConcurrentSetSessionSingleWinner", func(t *testing.T) { testConcurrentSetSession(t, newStore(t)) })
}

func seed(t *testing.T, s store.Store, email string) *store.User {
	t.Helper()

	u, err := s.Create(context.Background(), store.NewUser{
		Email:        email,
		PasswordHash: "hash-" + email,
		FirstName:    "Ada",
		LastName:     "Lovelace",
	})
	if err != nil {
		t.Fatalf("Create(%q) failed: %v", email, err)
	}
	return u
}

func testCreateAndFind(t *testing.T, s store.Store) {
	ctx := context.Background()
	created := seed(t, s, "Ada@Example.com ")

	if created.ID == "" {
		t.Fatal("expected generated id")
	}
	if created.Email != "ada@example.com" {
		t.Fatalf("expected normalized email, got %q", created.Email)
	}
	if created.TokenVersion != 0 {
		t.Fatalf("expected token version 0, got %d", created.TokenVersion)
	}
	if created.RefreshTokenHash != "" {
		t.Fatalf("expected no refresh hash, got %q", created.RefreshTokenHash)
	}
	if !created.IsActive {
		t.Fatal("expected new user to be active")
	}

	byEmail, err := s.FindByEmail(ctx, "ADA@example.com")
	if err != nil {
		t.Fatalf("FindByEmail failed: %v", err)
	}
	if byEmail.ID != created.ID || byEmail.PasswordHash != "hash-Ada@Example.com " {
		t.Fatalf("unexpected user by email: %+v", byEmail)
	}
	if byEmail.FirstName != "Ada" || byEmail.LastName != "Lovelace" {
		t.Fatalf("profile fields not persisted: %+v", byEmail)
	}

	byID, err := s.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if byID.Email != created.Email {
		t.Fatalf("unexpected user by id: %+v", byID)
	}
}

func testCreateDuplicate(t *testing.T, s store.Store) {
	seed(t, s, "dup@example.com")

	_, err := s.Create(context.Background(), store.NewUser{Email: "DUP@example.com", PasswordHash: "x"})
	if !errors.Is(err, store.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func testFindMissing(t *testing.T, s store.Store) {
	ctx := context.Background()

	if _, err := s.FindByEmail(ctx, "nobody@example.com"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("FindByEmail: expected ErrNotFound, got %v", err)
	}
	if _, err := s.FindByID(ctx, "00000000-0000-0000-0000-000000000000"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("FindByID: expected ErrNotFound, got %v", err)
	}
	if _, err := s.Revoke(ctx, "00000000-0000-0000-0000-000000000000"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Revoke: expected ErrNotFound, got %v", err)
	}
}

func testSetSession(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := seed(t, s, "cas@example.com")

	updated, err := s.SetSession(ctx, u.ID, 0, store.Session{RefreshTokenHash: "h0", TokenVersion: 0})
	if err != nil {
		t.Fatalf("SetSession(v0) failed: %v", err)
	}
	if updated.RefreshTokenHash != "h0" || updated.TokenVersion != 0 {
		t.Fatalf("unexpected state after SetSession: %+v", updated)
	}

	updated, err = s.SetSession(ctx, u.ID, 0, store.Session{RefreshTokenHash: "h1", TokenVersion: 1})
	if err != nil {
		t.Fatalf("SetSession(0->1) failed: %v", err)
	}
	if updated.RefreshTokenHash != "h1" || updated.TokenVersion != 1 {
		t.Fatalf("unexpected state after rotation: %+v", updated)
	}

	_, err = s.SetSession(ctx, u.ID, 0, store.Session{RefreshTokenHash: "stale", TokenVersion: 1})
	if !errors.Is(err, store.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict for stale expected version, got %v", err)
	}

	current, err := s.FindByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if current.RefreshTokenHash != "h1" || current.TokenVersion != 1 {
		t.Fatalf("conflicting write must not change state, got %+v", current)
	}
}

func testSetSessionMissing(t *testing.T, s store.Store) {
	_, err := s.SetSession(context.Background(), "00000000-0000-0000-0000-000000000000", 0, store.Session{RefreshTokenHash: "h"})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testRevoke(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := seed(t, s, "revoke@example.com")

	if _, err := s.SetSession(ctx, u.ID, 0, store.Session{RefreshTokenHash: "h0", TokenVersion: 0}); err != nil {
		t.Fatalf("SetSession failed: %v", err)
	}

	first, err := s.Revoke(ctx, u.ID)
	if err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if first.RefreshTokenHash != "" || first.TokenVersion != 1 {
		t.Fatalf("unexpected state after first revoke: %+v", first)
	}

	second, err := s.Revoke(ctx, u.ID)
	if err != nil {
		t.Fatalf("second Revoke failed: %v", err)
	}
	if second.RefreshTokenHash != "" || second.TokenVersion != 2 {
		t.Fatalf("unexpected state after second revoke: %+v", second)
	}

	if _, err := s.SetSession(ctx, u.ID, 0, store.Session{RefreshTokenHash: "late", TokenVersion: 1}); !errors.Is(err, store.ErrVersionConflict) {
		t.Fatalf("expected revoke to invalidate pending rotation, got %v", err)
	}
}

func testConcurrentSetSession(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := seed(t, s, "race@example.com")
	if _, err := s.SetSession(ctx, u.ID, 0, store.Session{RefreshTokenHash: "h0", TokenVersion: 0}); err != nil {
		t.Fatalf("SetSession failed: %v", err)
	}

	const n = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
		others    []error
	)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := s.SetSession(ctx, u.ID, 0, store.Session{RefreshTokenHash: "h1", TokenVersion: 1})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, store.ErrVersionConflict):
				conflicts++
			default:
				others = append(others, err)
			}
		}()
	}
	wg.Wait()

	if len(others) > 0 {
		t.Fatalf("unexpected errors: %v", others)
	}
	if wins != 1 || conflicts != n-1 {
		t.Fatalf("expected 1 winner and %d conflicts, got %d winners and %d conflicts", n-1, wins, conflicts)
	}
}

package goSession

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goSession/store"
	"go.uber.org/zap"
)

const (
	opFindUser   = "find user"
	opCreateUser = "create user"
	opUpdateUser = "update user"
	opRevoke     = "revoke sessions"
)

// boundedStore is the only path from flows to the user store. Every call is
// bounded by the configured timeout; business sentinels from package store
// pass through unchanged and every other failure becomes a *StoreError.
type boundedStore struct {
	inner   store.Store
	timeout time.Duration
	log     *zap.Logger
	metrics *Metrics
}

func newBoundedStore(inner store.Store, timeout time.Duration, log *zap.Logger, m *Metrics) *boundedStore {
	return &boundedStore{inner: inner, timeout: timeout, log: log, metrics: m}
}

func (b *boundedStore) FindByEmail(ctx context.Context, email string) (*store.User, error) {
	ctx, cancel := b.bound(ctx)
	defer cancel()
	u, err := b.inner.FindByEmail(ctx, email)
	return u, b.mapErr(opFindUser, err)
}

func (b *boundedStore) FindByID(ctx context.Context, id string) (*store.User, error) {
	ctx, cancel := b.bound(ctx)
	defer cancel()
	u, err := b.inner.FindByID(ctx, id)
	return u, b.mapErr(opFindUser, err)
}

func (b *boundedStore) Create(ctx context.Context, in store.NewUser) (*store.User, error) {
	ctx, cancel := b.bound(ctx)
	defer cancel()
	u, err := b.inner.Create(ctx, in)
	return u, b.mapErr(opCreateUser, err)
}

func (b *boundedStore) SetSession(ctx context.Context, id string, expectedVersion int64, next store.Session) (*store.User, error) {
	ctx, cancel := b.bound(ctx)
	defer cancel()
	u, err := b.inner.SetSession(ctx, id, expectedVersion, next)
	return u, b.mapErr(opUpdateUser, err)
}

func (b *boundedStore) Revoke(ctx context.Context, id string) (*store.User, error) {
	ctx, cancel := b.bound(ctx)
	defer cancel()
	u, err := b.inner.Revoke(ctx, id)
	return u, b.mapErr(opRevoke, err)
}

func (b *boundedStore) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, b.timeout)
}

func (b *boundedStore) mapErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, store.ErrEmailTaken),
		errors.Is(err, store.ErrVersionConflict):
		return err
	}

	b.metrics.Inc(MetricStoreUnavailable)
	b.log.Error("user store call failed", zap.String("op", op), zap.Error(err))
	return &StoreError{Op: op, Err: err}
}

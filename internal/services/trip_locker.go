package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fleetdispatch/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TripLocker serializes assignment work on a single trip. Lock never waits:
// it fails with ErrAssignmentConflict when another caller holds the trip.
type TripLocker interface {
	Lock(ctx context.Context, tripID primitive.ObjectID) (unlock func(), err error)
}

type lockEntry struct {
	token     string
	expiresAt time.Time
}

// MemoryTripLocker is a process-local TripLocker. Entries expire after ttl so
// a crashed caller cannot wedge a trip.
type MemoryTripLocker struct {
	mu    sync.Mutex
	locks map[primitive.ObjectID]lockEntry
	ttl   time.Duration
	now   func() time.Time
}

func NewMemoryTripLocker(ttl time.Duration) *MemoryTripLocker {
	if ttl <= 0 {
		ttl = utils.TripLockTTL
	}
	return &MemoryTripLocker{
		locks: make(map[primitive.ObjectID]lockEntry),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (l *MemoryTripLocker) Lock(_ context.Context, tripID primitive.ObjectID) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if entry, held := l.locks[tripID]; held && now.Before(entry.expiresAt) {
		return nil, fmt.Errorf("trip %s is being assigned: %w", tripID.Hex(), ErrAssignmentConflict)
	}

	token := utils.GenerateRandomString(16)
	l.locks[tripID] = lockEntry{token: token, expiresAt: now.Add(l.ttl)}

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		// Only release our own entry; it may have expired and been retaken.
		if entry, held := l.locks[tripID]; held && entry.token == token {
			delete(l.locks, tripID)
		}
	}, nil
}

// LockStore is the Redis surface used by RedisTripLocker.
type LockStore interface {
	SetNX(ctx context.Context, key, token string, expiration time.Duration) (bool, error)
	ReleaseIfHeld(ctx context.Context, key, token string) (bool, error)
}

// RedisTripLocker shares trip locks across instances with SET NX PX.
type RedisTripLocker struct {
	store LockStore
	ttl   time.Duration
}

func NewRedisTripLocker(store LockStore, ttl time.Duration) *RedisTripLocker {
	if ttl <= 0 {
		ttl = utils.TripLockTTL
	}
	return &RedisTripLocker{store: store, ttl: ttl}
}

func (l *RedisTripLocker) Lock(ctx context.Context, tripID primitive.ObjectID) (func(), error) {
	key := utils.CacheTripLockPrefix + tripID.Hex()
	token := utils.GenerateRandomString(16)

	ok, err := l.store.SetNX(ctx, key, token, l.ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire trip lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("trip %s is being assigned: %w", tripID.Hex(), ErrAssignmentConflict)
	}

	return func() {
		// The caller's context may already be done.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, _ = l.store.ReleaseIfHeld(releaseCtx, key, token)
	}, nil
}

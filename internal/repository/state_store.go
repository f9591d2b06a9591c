package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"TradeCore/internal/domain/models"
	domrepo "TradeCore/internal/domain/repository"
	"TradeCore/pkg/cache"
)

const (
	defaultLockWait  = 5 * time.Second
	defaultLockTTL   = 30 * time.Second
	lockPollInterval = 25 * time.Millisecond
)

// MemoryStateStore keeps session state in process. Each session has its
// own lock, so sessions never contend with each other.
type MemoryStateStore struct {
	mu       sync.Mutex
	states   map[string]models.TradeStateData
	locks    map[string]chan struct{}
	lockWait time.Duration
}

var _ domrepo.StateStore = (*MemoryStateStore)(nil)

func NewMemoryStateStore(lockWait time.Duration) *MemoryStateStore {
	if lockWait <= 0 {
		lockWait = defaultLockWait
	}
	return &MemoryStateStore{
		states:   make(map[string]models.TradeStateData),
		locks:    make(map[string]chan struct{}),
		lockWait: lockWait,
	}
}

func (s *MemoryStateStore) Load(_ context.Context, session string) (models.TradeStateData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.states[session]
	if !ok {
		return models.TradeStateData{}, models.ErrStateNotFound
	}
	return data, nil
}

func (s *MemoryStateStore) Save(_ context.Context, session string, data models.TradeStateData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[session] = data
	return nil
}

// Lock blocks until the session is free, the lock wait elapses or ctx ends.
func (s *MemoryStateStore) Lock(ctx context.Context, session string) (func(), error) {
	s.mu.Lock()
	ch, ok := s.locks[session]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[session] = ch
	}
	s.mu.Unlock()

	timer := time.NewTimer(s.lockWait)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-ch }) }, nil
	case <-timer.C:
		return nil, fmt.Errorf("%w: %s", models.ErrSessionBusy, session)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Snapshot copies every session state, for checkpointing.
func (s *MemoryStateStore) Snapshot() map[string]models.TradeStateData {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]models.TradeStateData, len(s.states))
	for k, v := range s.states {
		out[k] = v
	}
	return out
}

// Restore replaces session states from a checkpoint.
func (s *MemoryStateStore) Restore(states map[string]models.TradeStateData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = make(map[string]models.TradeStateData, len(states))
	for k, v := range states {
		s.states[k] = v
	}
}

// CacheStateStore keeps session state in a cache.Service, normally Redis,
// so several processes can share sessions. The lock is a keyed mutex with
// an owner token and a TTL.
type CacheStateStore struct {
	cache    cache.Service
	lockWait time.Duration
	lockTTL  time.Duration
}

var _ domrepo.StateStore = (*CacheStateStore)(nil)

func NewCacheStateStore(c cache.Service, lockWait time.Duration) *CacheStateStore {
	if lockWait <= 0 {
		lockWait = defaultLockWait
	}
	return &CacheStateStore{cache: c, lockWait: lockWait, lockTTL: defaultLockTTL}
}

func stateKey(session string) string { return cache.Key("state", session) }
func lockKey(session string) string  { return cache.Key("lock", session) }

func (s *CacheStateStore) Load(ctx context.Context, session string) (models.TradeStateData, error) {
	var data models.TradeStateData
	err := s.cache.Get(ctx, stateKey(session), &data)
	if errors.Is(err, cache.ErrCacheMiss) {
		return models.TradeStateData{}, models.ErrStateNotFound
	}
	if err != nil {
		return models.TradeStateData{}, fmt.Errorf("load session %s: %w", session, err)
	}
	return data, nil
}

func (s *CacheStateStore) Save(ctx context.Context, session string, data models.TradeStateData) error {
	if err := s.cache.Set(ctx, stateKey(session), data, 0); err != nil {
		return fmt.Errorf("save session %s: %w", session, err)
	}
	return nil
}

func (s *CacheStateStore) Lock(ctx context.Context, session string) (func(), error) {
	owner := uuid.NewString()
	key := lockKey(session)
	deadline := time.Now().Add(s.lockWait)

	for {
		ok, err := s.cache.TryLock(ctx, key, owner, s.lockTTL)
		if err != nil {
			return nil, fmt.Errorf("lock session %s: %w", session, err)
		}
		if ok {
			return func() {
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				_ = s.cache.Unlock(ctx, key, owner)
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", models.ErrSessionBusy, session)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockPollInterval):
		}
	}
}

package ratelimit

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Store keeps a counter per key for a fixed window ending at resetTime.
type Store interface {
	Get(ctx context.Context, key string) (count int, resetTime time.Time, exists bool, err error)
	Set(ctx context.Context, key string, count int, resetTime time.Time) error
	Increment(ctx context.Context, key string, resetTime time.Time) (int, error)
	Reset(ctx context.Context, key string) error
}

type entry struct {
	count     int
	resetTime time.Time
}

// MemoryStore is a process-local Store. Expired windows are evicted by
// go-cache's janitor.
type MemoryStore struct {
	mu    sync.Mutex
	cache *gocache.Cache
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cache: gocache.New(gocache.NoExpiration, time.Minute),
	}
}

func (s *MemoryStore) lookup(key string) (entry, bool) {
	v, ok := s.cache.Get(key)
	if !ok {
		return entry{}, false
	}
	e := v.(entry)
	if !time.Now().Before(e.resetTime) {
		return entry{}, false
	}
	return e, true
}

func (s *MemoryStore) Get(_ context.Context, key string) (int, time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.lookup(key); ok {
		return e.count, e.resetTime, true, nil
	}
	return 0, time.Time{}, false, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, count int, resetTime time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.Set(key, entry{count: count, resetTime: resetTime}, time.Until(resetTime))
	return nil
}

func (s *MemoryStore) Increment(_ context.Context, key string, resetTime time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(key)
	if !ok {
		e = entry{resetTime: resetTime}
	}
	e.count++
	s.cache.Set(key, e, time.Until(e.resetTime))
	return e.count, nil
}

func (s *MemoryStore) Reset(_ context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}

package store

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used by tests and by local runs
// without a redis. It mirrors Redis list-index semantics so code exercised
// against it behaves the same against the real store.
type MemoryStore struct {
	mu       sync.Mutex
	values   map[string]string
	expireAt map[string]time.Time
	lists    map[string][]string
	hashes   map[string]map[string]int64
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		values:   make(map[string]string),
		expireAt: make(map[string]time.Time),
		lists:    make(map[string][]string),
		hashes:   make(map[string]map[string]int64),
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if exp, ok := s.expireAt[key]; ok && time.Now().After(exp) {
		delete(s.values, key)
		delete(s.expireAt, key)
	}
	v, ok := s.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	if ttl > 0 {
		s.expireAt[key] = time.Now().Add(ttl)
	} else {
		delete(s.expireAt, key)
	}
	return nil
}

func (s *MemoryStore) ListAppend(_ context.Context, key string, values ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[key] = append(s.lists[key], values...)
	return nil
}

func (s *MemoryStore) ListRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.lists[key]
	from, to, ok := normalizeRange(start, stop, int64(len(list)))
	if !ok {
		return nil, nil
	}
	out := make([]string, to-from+1)
	copy(out, list[from:to+1])
	return out, nil
}

func (s *MemoryStore) ListTrim(_ context.Context, key string, start, stop int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.lists[key]
	from, to, ok := normalizeRange(start, stop, int64(len(list)))
	if !ok {
		delete(s.lists, key)
		return nil
	}
	s.lists[key] = list[from : to+1]
	return nil
}

func (s *MemoryStore) HashIncrBy(_ context.Context, key, field string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hashes[key]
	if !ok {
		h = make(map[string]int64)
		s.hashes[key] = h
	}
	h[field] += delta
	return h[field], nil
}

func (s *MemoryStore) HashGet(_ context.Context, key, field string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hashes[key]
	if !ok {
		return "", ErrNotFound
	}
	n, ok := h[field]
	if !ok {
		return "", ErrNotFound
	}
	return strconv.FormatInt(n, 10), nil
}

// normalizeRange resolves redis-style inclusive indices against a list of
// length n. ok is false when the range selects nothing.
func normalizeRange(start, stop, n int64) (from, to int64, ok bool) {
	if n == 0 {
		return 0, 0, false
	}
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start >= n || start > stop {
		return 0, 0, false
	}
	return start, stop, true
}

package kv

import (
	"context"
	"sort"
	"strings"
	"sync"
)

type memoryEntry struct {
	value    []byte
	metadata map[string]string
}

// MemoryStore keeps the namespace in process memory. It is the fallback
// when no durable backend is configured: data is lost on restart and is
// not shared across instances, so it is only suitable for local
// development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	value := make([]byte, len(e.value))
	copy(value, e.value)
	return value, nil
}

func (s *MemoryStore) Put(ctx context.Context, key string, value []byte, metadata map[string]string) error {
	v := make([]byte, len(value))
	copy(v, value)
	md := make(map[string]string, len(metadata))
	for k, mv := range metadata {
		md[k] = mv
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{value: v, metadata: md}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) List(ctx context.Context, prefix, cursor string, limit int) (*ListResult, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		if strings.HasPrefix(k, prefix) && k > cursor {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	res := &ListResult{Complete: true}
	for i, k := range keys {
		if i == limit {
			res.Complete = false
			res.Cursor = res.Keys[len(res.Keys)-1].Name
			break
		}
		e := s.entries[k]
		md := make(map[string]string, len(e.metadata))
		for mk, mv := range e.metadata {
			md[mk] = mv
		}
		res.Keys = append(res.Keys, KeyInfo{Name: k, Metadata: md})
	}
	return res, nil
}

package directory

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store used by tests and local development.
// It honors the same atomicity contract as the Redis implementation: Apply
// mutates state under one lock acquisition.
type MemoryStore struct {
	mu      sync.Mutex
	strings map[string]string
	hashes  map[string]map[string]string
	sets    map[string]map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		strings: make(map[string]string),
		hashes:  make(map[string]map[string]string),
		sets:    make(map[string]map[string]struct{}),
	}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	val, ok := s.strings[key]
	if !ok {
		return "", ErrNotFound
	}
	return val, nil
}

func (s *MemoryStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strings[key] = value
	return nil
}

func (s *MemoryStore) SetNX(ctx context.Context, key, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.strings[key]; ok {
		return false, nil
	}
	s.strings[key] = value
	return true, nil
}

func (s *MemoryStore) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteLocked(keys)
	return nil
}

func (s *MemoryStore) HashGet(ctx context.Context, key, field string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hash, ok := s.hashes[key]
	if !ok {
		return "", ErrNotFound
	}
	val, ok := hash[field]
	if !ok {
		return "", ErrNotFound
	}
	return val, nil
}

func (s *MemoryStore) HashGetAll(ctx context.Context, key string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hash, ok := s.hashes[key]
	if !ok || len(hash) == 0 {
		return nil, ErrNotFound
	}
	out := make(map[string]string, len(hash))
	for k, v := range hash {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryStore) SetAdd(ctx context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setAddLocked(key, members)
	return nil
}

func (s *MemoryStore) SetRemove(ctx context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setRemoveLocked(key, members)
	return nil
}

func (s *MemoryStore) SetMembers(ctx context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.sets[key]
	out := make([]string, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	return out, nil
}

func (s *MemoryStore) Apply(ctx context.Context, batch *Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyLocked(batch)
	return nil
}

func (s *MemoryStore) ApplyIfBelow(ctx context.Context, setKey string, limit int, batch *Batch) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sets[setKey]) >= limit {
		return false, nil
	}
	s.applyLocked(batch)
	return true, nil
}

func (s *MemoryStore) applyLocked(batch *Batch) {
	for _, op := range batch.ops {
		switch op.kind {
		case opSet:
			s.strings[op.key] = op.value
		case opDelete:
			s.deleteLocked(op.keys)
		case opHashSet:
			hash, ok := s.hashes[op.key]
			if !ok {
				hash = make(map[string]string)
				s.hashes[op.key] = hash
			}
			for k, v := range op.fields {
				hash[k] = v
			}
		case opSetAdd:
			s.setAddLocked(op.key, op.members)
		case opSetRemove:
			s.setRemoveLocked(op.key, op.members)
		}
	}
}

func (s *MemoryStore) deleteLocked(keys []string) {
	for _, key := range keys {
		delete(s.strings, key)
		delete(s.hashes, key)
		delete(s.sets, key)
	}
}

func (s *MemoryStore) setAddLocked(key string, members []string) {
	set, ok := s.sets[key]
	if !ok {
		set = make(map[string]struct{})
		s.sets[key] = set
	}
	for _, m := range members {
		set[m] = struct{}{}
	}
}

func (s *MemoryStore) setRemoveLocked(key string, members []string) {
	set, ok := s.sets[key]
	if !ok {
		return
	}
	for _, m := range members {
		delete(set, m)
	}
	if len(set) == 0 {
		delete(s.sets, key)
	}
}

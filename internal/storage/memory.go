package storage

import (
	"sync"
	"time"
)

// In-memory implementations of the repository interfaces, used as test
// doubles and in throwaway local runs.

type MemoryDigestCache struct {
	ttl time.Duration

	mu      sync.RWMutex
	entries map[string]DigestEntry

	Now func() time.Time
}

func NewMemoryDigestCache(ttl time.Duration) *MemoryDigestCache {
	return &MemoryDigestCache{
		ttl:     ttl,
		entries: make(map[string]DigestEntry),
		Now:     time.Now,
	}
}

func (c *MemoryDigestCache) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		return "", false
	}
	age := c.Now().Sub(entry.Timestamp)
	if age < 0 || age >= c.ttl {
		return "", false
	}
	return entry.ReplyContent, true
}

func (c *MemoryDigestCache) Put(key, content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = DigestEntry{Timestamp: c.Now(), ReplyContent: content}
	return nil
}

type MemoryPreferenceStore struct {
	mu    sync.RWMutex
	prefs map[string]Preference
}

func NewMemoryPreferenceStore() *MemoryPreferenceStore {
	return &MemoryPreferenceStore{prefs: make(map[string]Preference)}
}

func (s *MemoryPreferenceStore) Get(id string) Preference {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs[id]
}

func (s *MemoryPreferenceStore) Put(id string, p Preference) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs[id] = p
	return nil
}

func (s *MemoryPreferenceStore) All() map[string]Preference {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Preference, len(s.prefs))
	for id, p := range s.prefs {
		out[id] = p
	}
	return out
}

type MemoryHistoryStore struct {
	max int

	mu      sync.RWMutex
	history map[string][]Message
}

func NewMemoryHistoryStore(maxMessages int) *MemoryHistoryStore {
	return &MemoryHistoryStore{max: maxMessages, history: make(map[string][]Message)}
}

func (s *MemoryHistoryStore) Append(contextID string, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := append(s.history[contextID], msg)
	if s.max > 0 && len(h) > s.max {
		h = h[len(h)-s.max:]
	}
	s.history[contextID] = h
	return nil
}

func (s *MemoryHistoryStore) Get(contextID string) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h := s.history[contextID]
	out := make([]Message, len(h))
	copy(out, h)
	return out
}

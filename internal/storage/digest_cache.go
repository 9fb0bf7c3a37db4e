package storage

import (
	"strings"
	"sync"
	"time"
)

// DefaultTopicKey is the cache key used when no custom topic was given.
const DefaultTopicKey = "__DEFAULT__"

// TopicKey normalizes user keywords into a cache key. Keys are literal
// strings; synonymous phrasings of the same topic do not share an entry.
func TopicKey(keywords string) string {
	k := strings.TrimSpace(keywords)
	if k == "" {
		return DefaultTopicKey
	}
	return k
}

// DigestEntry is one cached formal digest, with its generation timestamp.
type DigestEntry struct {
	Timestamp    time.Time `json:"timestamp"`
	ReplyContent string    `json:"reply_content"`
}

// DigestCache stores the last formal digest per topic key, judged stale by
// age only. Entries are never deleted, only overwritten.
type DigestCache interface {
	Get(key string) (string, bool)
	Put(key, content string) error
}

// FileDigestCache persists entries as a flat JSON snapshot rewritten in full
// on every write.
type FileDigestCache struct {
	path string
	ttl  time.Duration

	mu      sync.RWMutex
	entries map[string]DigestEntry

	now func() time.Time
}

func NewFileDigestCache(path string, ttl time.Duration) (*FileDigestCache, error) {
	c := &FileDigestCache{
		path:    path,
		ttl:     ttl,
		entries: make(map[string]DigestEntry),
		now:     time.Now,
	}
	if err := loadSnapshot(path, &c.entries); err != nil {
		return nil, err
	}
	return c, nil
}

// Get returns the cached digest for the key when the entry is younger than
// the TTL. Entries with a timestamp in the future are treated as misses.
func (c *FileDigestCache) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		return "", false
	}

	now := c.now()
	age := now.Sub(entry.Timestamp)
	if age < 0 || age >= c.ttl {
		return "", false
	}
	return entry.ReplyContent, true
}

func (c *FileDigestCache) Put(key, content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = DigestEntry{
		Timestamp:    c.now(),
		ReplyContent: content,
	}
	return saveSnapshot(c.path, c.entries)
}

package cache

import (
	"testing"
	"time"
)

func TestSetAndGet(t *testing.T) {
	c := New()
	c.Set("name", "小明", time.Minute)

	v, ok := c.Get("name")
	if !ok || v.(string) != "小明" {
		t.Errorf("Get = %v, %v", v, ok)
	}
}

func TestExpiredEntryMisses(t *testing.T) {
	c := New()
	c.Set("name", "小明", -time.Second)

	if _, ok := c.Get("name"); ok {
		t.Error("expired entry should miss")
	}
}

func TestUnknownKeyMisses(t *testing.T) {
	c := New()
	if _, ok := c.Get("missing"); ok {
		t.Error("unknown key should miss")
	}
}

func TestCleanupRemovesExpired(t *testing.T) {
	c := New()
	c.Set("old", 1, -time.Second)
	c.Set("fresh", 2, time.Minute)

	c.cleanup()

	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.items["old"]; ok {
		t.Error("cleanup left an expired entry behind")
	}
	if _, ok := c.items["fresh"]; !ok {
		t.Error("cleanup removed a live entry")
	}
}

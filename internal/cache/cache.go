package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/ppiankov/vocabmine/internal/model"
)

// Cache stores fetched payloads for the lifetime of a process or longer
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key builds a cache key for a locator fetched by the named adapter
func Key(adapter, locator string) string {
	hash := sha256.Sum256([]byte(adapter + "\x00" + locator))
	return "vocabmine:v1:" + adapter + ":" + hex.EncodeToString(hash[:])
}

// New returns the cache described by cfg. A disabled cache stores nothing.
func New(cfg model.CacheConfig) Cache {
	if !cfg.Enabled {
		return nopCache{}
	}
	memory := NewMemoryCache(cfg.TTL, 10*time.Minute)
	if cfg.Dir == "" {
		return memory
	}
	return NewLayeredCache(memory, NewDiskCache(cfg.Dir, cfg.TTL))
}

type nopCache struct{}

func (nopCache) Get(string) ([]byte, bool)                { return nil, false }
func (nopCache) Set(string, []byte, time.Duration) error { return nil }
func (nopCache) Delete(string) error                      { return nil }
func (nopCache) Clear() error                             { return nil }

package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/ppiankov/claimcheck/internal/model"
)

// Cache stores extracted article text keyed by URL
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// ArticleKey generates the cache key for a source URL
func ArticleKey(url string) string {
	hash := sha256.Sum256([]byte(url))
	return "claimcheck:article:v1:" + hex.EncodeToString(hash[:])
}

// New builds the cache described by cfg. It returns nil when caching is
// disabled; callers treat a nil Cache as "always miss".
func New(cfg model.CacheConfig) Cache {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Dir == "" {
		return NewMemoryCache(cfg.TTL, 10*time.Minute)
	}
	return NewLayeredCache(cfg.TTL, cfg.Dir, cfg.TTL)
}

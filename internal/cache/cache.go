package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"time"

	"github.com/ppiankov/alignmap/internal/model"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

const keyPrefix = "alignmap:v1:"

// CacheKey derives a key from a namespace, a file path and its content.
// Any edit to the file yields a new key.
func CacheKey(namespace, path string, content []byte) string {
	h := sha256.New()
	h.Write([]byte(namespace))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(content)
	return keyPrefix + namespace + ":" + hex.EncodeToString(h.Sum(nil))
}

// DefaultDir is the disk cache location when none is configured
func DefaultDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "alignment-map")
	}
	return filepath.Join(os.TempDir(), "alignment-map-cache")
}

// New builds the cache described by cfg; nil when caching is disabled
func New(cfg model.CacheConfig) Cache {
	if !cfg.Enabled {
		return nil
	}
	if cfg.DiskTTL <= 0 {
		return NewMemoryCache(cfg.MemoryTTL, 10*time.Minute)
	}
	dir := cfg.Dir
	if dir == "" {
		dir = DefaultDir()
	}
	return NewLayeredCache(cfg.MemoryTTL, dir, cfg.DiskTTL)
}

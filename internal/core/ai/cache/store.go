// Package cache stores model replies keyed by a hash of the request that produced them.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"recipe-ingest/internal/infrastructure/config"
	"recipe-ingest/internal/pkg/common"

	"go.uber.org/zap"
)

// Store is a reply cache. Get returns common.ErrCacheMiss when key is absent or expired.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// Key hashes parts into a cache key under prefix.
func Key(prefix string, parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("recipe-ingest:%s:%s", prefix, hex.EncodeToString(h.Sum(nil)))
}

// New builds the store selected by cfg. It returns nil when caching is disabled.
func New(cfg config.CacheConfig) (Store, error) {
	if !cfg.Enabled {
		common.LogInfo("Cache disabled")
		return nil, nil
	}

	switch strings.ToLower(cfg.Backend) {
	case "", "memory":
		return NewManager(cfg.MaxSize, cfg.TTL), nil
	case "redis":
		store, err := NewRedisStore(cfg)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		common.LogError("Unknown cache backend", zap.String("backend", cfg.Backend))
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

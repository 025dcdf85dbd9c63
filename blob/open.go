package blob

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/etnz/books/internal/config"
)

// Open returns the Store selected by the runtime configuration.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return NewMemory(), nil
	case config.StoreDir:
		return OpenDir(cfg.StorePath)
	case config.StoreBolt:
		if dir := filepath.Dir(cfg.StorePath); dir != "." {
			if _, err := OpenDir(dir); err != nil {
				return nil, err
			}
		}
		return OpenBolt(cfg.StorePath)
	case config.StoreRedis:
		return OpenRedis(cfg.RedisAddr, cfg.RedisPrefix)
	case config.StorePostgres:
		return OpenPostgres(ctx, cfg.PostgresURL)
	case config.StoreGCS:
		return OpenGCS(ctx, cfg.GCSBucket, cfg.GCSPrefix)
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

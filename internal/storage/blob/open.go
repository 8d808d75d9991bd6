package blob

import (
	"context"
	"fmt"

	"github.com/zhouzirui/remedy-radar/backend/internal/config"
)

// Open builds the Store selected by cfg.Backend.
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case "", config.BackendMemory:
		return NewMemory(), nil
	case config.BackendFile:
		return NewDir(cfg.Dir)
	case config.BackendSQLite:
		return NewSQLite(cfg.SQLitePath)
	case config.BackendGCS:
		return NewGCS(ctx, cfg.GCSBucket, cfg.GCSPrefix)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

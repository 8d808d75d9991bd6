// Package blob holds the key-value byte stores the cart persists into.
package blob

import (
	"context"
	"fmt"

	"github.com/zhouzirui/remedy-radar/backend/internal/apperr"
)

// ErrNotFound is returned by Load when no value was ever saved for a key.
var ErrNotFound = fmt.Errorf("blob %w", apperr.ErrNotFound)

// Store is a durable named-entry store. Save fully overwrites the entry.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}

// Closer is implemented by stores that hold connections or files open.
type Closer interface {
	Close() error
}

package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/claude/trailog/internal/config"
)

// ErrNotFound is returned by Get when the key holds no value.
var ErrNotFound = errors.New("storage: key not found")

// KV is a durable key-value slot store. Values are opaque byte blobs.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open builds the backend selected by cfg.Storage.Driver.
func Open(ctx context.Context, cfg *config.Config) (KV, error) {
	switch cfg.Storage.Driver {
	case "memory":
		return NewMemory(), nil
	case "sqlite":
		return OpenSQLite(cfg.Storage.Path)
	case "postgres":
		dsn := cfg.Database.DSN()
		if err := RunMigrations(dsn, "migrations"); err != nil {
			return nil, err
		}
		return NewPostgres(ctx, dsn)
	case "redis":
		return NewRedis(ctx, cfg.Redis)
	case "s3":
		return NewS3(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

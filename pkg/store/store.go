package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/johncui/hydrogpt/pkg/store/memkv"
	"github.com/johncui/hydrogpt/pkg/store/redis"
	"github.com/johncui/hydrogpt/pkg/store/sqlite"
)

// ErrPersistence marks every storage or serialization failure.
var ErrPersistence = errors.New("persistence failure")

// persistenceError wraps err so that errors.Is matches both err and
// ErrPersistence.
func persistenceError(err error, msg string, opts ...goerr.Option) error {
	return goerr.Wrap(fmt.Errorf("%w: %w", ErrPersistence, err), msg, opts...)
}

// KV is the key-value persistence collaborator. No atomicity or conflict
// resolution is promised across keys.
type KV interface {
	Read(ctx context.Context, key string) (string, bool, error)
	Write(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Close() error
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Options configures Open.
type Options struct {
	Backend     string
	DBPath      string
	BusyTimeout time.Duration
	RedisURL    string
	KeyPrefix   string
	Logger      *slog.Logger
}

// Open builds the KV backend named by opt.Backend.
func Open(ctx context.Context, opt Options) (KV, error) {
	if opt.Logger == nil {
		opt.Logger = slog.New(slog.NewTextHandler(os.Stdout, nil))
	}
	if opt.Backend == "" {
		opt.Backend = BackendSQLite
	}

	switch opt.Backend {
	case BackendMemory:
		return memkv.New(), nil
	case BackendSQLite:
		if opt.DBPath == "" {
			opt.DBPath = "hydrogpt.db"
		}
		db, err := sqlite.New(ctx, sqlite.Config{
			Path:        opt.DBPath,
			BusyTimeout: opt.BusyTimeout,
			Logger:      opt.Logger,
		})
		if err != nil {
			return nil, persistenceError(err, "failed to open sqlite store", goerr.V("path", opt.DBPath))
		}
		return db, nil
	case BackendRedis:
		rs, err := redis.New(ctx, redis.Config{URL: opt.RedisURL, Prefix: opt.KeyPrefix})
		if err != nil {
			return nil, persistenceError(err, "failed to open redis store")
		}
		return rs, nil
	default:
		return nil, goerr.New("unknown storage backend", goerr.V("backend", opt.Backend))
	}
}

var (
	_ KV = (*memkv.Store)(nil)
	_ KV = (*sqlite.Database)(nil)
	_ KV = (*redis.Store)(nil)
)

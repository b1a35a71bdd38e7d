package redis

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	goredis "github.com/redis/go-redis/v9"
)

// Config controls the Redis connection.
type Config struct {
	// URL in redis://[user:pass@]host:port/db form.
	URL string
	// Prefix is prepended to every key.
	Prefix string
}

// Store keeps values as plain Redis strings without expiry.
type Store struct {
	client *goredis.Client
	prefix string
}

// New parses cfg.URL, connects and pings the server.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URL == "" {
		return nil, goerr.New("redis url is required")
	}

	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse redis url")
	}

	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, goerr.Wrap(err, "failed to connect to redis", goerr.V("addr", opts.Addr))
	}

	return &Store{client: client, prefix: cfg.Prefix}, nil
}

func (s *Store) key(k string) string { return s.prefix + k }

// Read returns the value under key; redis.Nil means absent.
func (s *Store) Read(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", false, nil
		}
		return "", false, goerr.Wrap(err, "failed to read key", goerr.V("key", key))
	}
	return v, true, nil
}

func (s *Store) Write(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return goerr.Wrap(err, "failed to write key", goerr.V("key", key))
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return goerr.Wrap(err, "failed to delete key", goerr.V("key", key))
	}
	return nil
}

// Keys lists keys under the configured prefix, prefix removed.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), s.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to scan keys", goerr.V("prefix", s.prefix))
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

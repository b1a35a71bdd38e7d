package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/johncui/hydrogpt/pkg/config"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hydrogpt.yaml")
	gt.NoError(t, os.WriteFile(path, []byte(body), 0o600)).Required()
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	gt.NoError(t, err).Required()

	gt.Value(t, cfg.Server.ListenAddr).Equal(":8080")
	gt.Value(t, cfg.Storage.Backend).Equal("sqlite")
	gt.Value(t, cfg.Storage.SQLitePath).Equal("hydrogpt.db")
	gt.Value(t, cfg.Engine.MemoryLimit).Equal(10)
	gt.Value(t, cfg.Engine.SearchDelay).Equal(time.Second)
	gt.Value(t, cfg.Engine.SearchJitter).Equal(2 * time.Second)
	gt.Value(t, cfg.Chat.TypingDelay).Equal(500 * time.Millisecond)
	gt.Value(t, cfg.Log.Format).Equal("text")
}

func TestLoad_File(t *testing.T) {
	t.Setenv("TEST_HYDROGPT_DB", "/tmp/from-env.db")

	path := writeFile(t, `
server:
  listen_addr: "127.0.0.1:9000"
storage:
  backend: sqlite
  sqlite_path: ${TEST_HYDROGPT_DB}
  key_prefix: "${TEST_HYDROGPT_UNSET:-hydro:}"
engine:
  memory_limit: 4
  search_delay: 250ms
  search_jitter: 0s
  seed: 42
log:
  level: debug
  format: json
`)

	cfg, err := config.Load(path)
	gt.NoError(t, err).Required()

	gt.Value(t, cfg.Server.ListenAddr).Equal("127.0.0.1:9000")
	gt.Value(t, cfg.Storage.SQLitePath).Equal("/tmp/from-env.db")
	gt.Value(t, cfg.Storage.KeyPrefix).Equal("hydro:")
	gt.Value(t, cfg.Engine.MemoryLimit).Equal(4)
	gt.Value(t, cfg.Engine.SearchDelay).Equal(250 * time.Millisecond)
	gt.Value(t, cfg.Engine.SearchJitter).Equal(time.Duration(0))
	gt.Value(t, cfg.Engine.Seed).Equal(uint64(42))
	gt.Value(t, cfg.Log.Level).Equal("debug")
	// untouched sections keep their defaults
	gt.Value(t, cfg.Chat.TypingDelay).Equal(500 * time.Millisecond)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "engine:\n  memory_limit: 4\n")
	t.Setenv("HYDROGPT_MEMORY_LIMIT", "7")
	t.Setenv("HYDROGPT_STORAGE", "memory")
	t.Setenv("HYDROGPT_SEARCH_DELAY", "not-a-duration")

	cfg, err := config.Load(path)
	gt.NoError(t, err).Required()
	gt.Value(t, cfg.Engine.MemoryLimit).Equal(7)
	gt.Value(t, cfg.Storage.Backend).Equal("memory")
	gt.Value(t, cfg.Engine.SearchDelay).Equal(time.Second)
}

func TestLoad_RedisURLFallback(t *testing.T) {
	t.Setenv("HYDROGPT_STORAGE", "redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := config.Load("")
	gt.NoError(t, err).Required()
	gt.Value(t, cfg.Storage.RedisURL).Equal("redis://localhost:6379/0")
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
		gt.Error(t, err)
	})

	t.Run("unresolved variable", func(t *testing.T) {
		_, err := config.Load(writeFile(t, "storage:\n  redis_url: ${TEST_HYDROGPT_NEVER_SET}\n"))
		gt.Error(t, err)
	})

	t.Run("bad yaml", func(t *testing.T) {
		_, err := config.Load(writeFile(t, "engine: [unclosed\n"))
		gt.Error(t, err)
	})

	t.Run("validation", func(t *testing.T) {
		_, err := config.Load(writeFile(t, "storage:\n  backend: etcd\nengine:\n  memory_limit: 0\n"))
		gt.Error(t, err).Is(config.ErrInvalid)
	})
}

func TestValidate(t *testing.T) {
	cfg := config.Default()
	gt.NoError(t, cfg.Validate())

	cfg.Storage.Backend = "redis"
	gt.Error(t, cfg.Validate()).Is(config.ErrInvalid)

	cfg.Storage.RedisURL = "redis://localhost:6379"
	gt.NoError(t, cfg.Validate())

	cfg.Log.Format = "xml"
	gt.Error(t, cfg.Validate()).Is(config.ErrInvalid)
}

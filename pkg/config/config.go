// Package config loads runtime settings from an optional YAML file and
// HYDROGPT_* environment variables.
package config

import (
	"errors"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

// ErrInvalid marks configuration that failed validation.
var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Engine  EngineConfig  `yaml:"engine"`
	Chat    ChatConfig    `yaml:"chat"`
	Log     LogConfig     `yaml:"log"`
}

type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

type StorageConfig struct {
	// Backend is one of memory, sqlite or redis.
	Backend     string        `yaml:"backend"`
	SQLitePath  string        `yaml:"sqlite_path"`
	BusyTimeout time.Duration `yaml:"busy_timeout"`
	RedisURL    string        `yaml:"redis_url"`
	KeyPrefix   string        `yaml:"key_prefix"`
}

type EngineConfig struct {
	MemoryLimit  int           `yaml:"memory_limit"`
	SearchDelay  time.Duration `yaml:"search_delay"`
	SearchJitter time.Duration `yaml:"search_jitter"`
	// Seed fixes reply selection when non-zero.
	Seed uint64 `yaml:"seed"`
}

type ChatConfig struct {
	TypingDelay time.Duration `yaml:"typing_delay"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Server: ServerConfig{ListenAddr: ":8080"},
		Storage: StorageConfig{
			Backend:     "sqlite",
			SQLitePath:  "hydrogpt.db",
			BusyTimeout: 5 * time.Second,
		},
		Engine: EngineConfig{
			MemoryLimit:  10,
			SearchDelay:  time.Second,
			SearchJitter: 2 * time.Second,
		},
		Chat: ChatConfig{TypingDelay: 500 * time.Millisecond},
		Log:  LogConfig{Level: "info", Format: "text"},
	}
}

// Load applies, in order, the defaults, the YAML file at path (skipped when
// path is empty) and environment overrides, then validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read config file", goerr.V("path", path))
		}
		expanded, err := expandEnv(raw)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to expand variables", goerr.V("path", path))
		}
		if err := yaml.Unmarshal(expanded, cfg); err != nil {
			return nil, goerr.Wrap(err, "failed to parse config file", goerr.V("path", path))
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.ListenAddr = getenv("HYDROGPT_LISTEN_ADDR", c.Server.ListenAddr)

	c.Storage.Backend = getenv("HYDROGPT_STORAGE", c.Storage.Backend)
	c.Storage.SQLitePath = getenv("HYDROGPT_DB_PATH", c.Storage.SQLitePath)
	c.Storage.BusyTimeout = getenvDuration("HYDROGPT_BUSY_TIMEOUT", c.Storage.BusyTimeout)
	c.Storage.RedisURL = getenv("HYDROGPT_REDIS_URL", getenv("REDIS_URL", c.Storage.RedisURL))
	c.Storage.KeyPrefix = getenv("HYDROGPT_KEY_PREFIX", c.Storage.KeyPrefix)

	c.Engine.MemoryLimit = getenvInt("HYDROGPT_MEMORY_LIMIT", c.Engine.MemoryLimit)
	c.Engine.SearchDelay = getenvDuration("HYDROGPT_SEARCH_DELAY", c.Engine.SearchDelay)
	c.Engine.SearchJitter = getenvDuration("HYDROGPT_SEARCH_JITTER", c.Engine.SearchJitter)
	c.Engine.Seed = getenvUint("HYDROGPT_SEED", c.Engine.Seed)

	c.Chat.TypingDelay = getenvDuration("HYDROGPT_TYPING_DELAY", c.Chat.TypingDelay)

	c.Log.Level = getenv("HYDROGPT_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getenv("HYDROGPT_LOG_FORMAT", c.Log.Format)
}

// Validate reports every problem at once; the error matches ErrInvalid.
func (c *Config) Validate() error {
	var errs []error
	add := func(msg string, opts ...goerr.Option) {
		errs = append(errs, goerr.New(msg, opts...))
	}

	switch c.Storage.Backend {
	case "memory", "sqlite":
	case "redis":
		if c.Storage.RedisURL == "" {
			add("redis backend requires storage.redis_url")
		}
	default:
		add("unknown storage backend", goerr.V("backend", c.Storage.Backend))
	}
	if c.Storage.Backend == "sqlite" && c.Storage.SQLitePath == "" {
		add("sqlite backend requires storage.sqlite_path")
	}
	if c.Engine.MemoryLimit <= 0 {
		add("engine.memory_limit must be positive", goerr.V("memory_limit", c.Engine.MemoryLimit))
	}
	if c.Engine.SearchDelay < 0 || c.Engine.SearchJitter < 0 {
		add("search delays must not be negative")
	}
	if c.Chat.TypingDelay < 0 {
		add("chat.typing_delay must not be negative")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		add("unknown log level", goerr.V("level", c.Log.Level))
	}
	switch c.Log.Format {
	case "text", "json", "console":
	default:
		add("unknown log format", goerr.V("format", c.Log.Format))
	}

	if len(errs) == 0 {
		return nil
	}
	return goerr.Wrap(errors.Join(append([]error{ErrInvalid}, errs...)...), "configuration rejected")
}

// envPattern matches ${VAR} and ${VAR:-default}.
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-((?:[^}\\]|\\.)*))?\}`)

// expandEnv substitutes environment references in raw YAML. A reference
// with neither a value nor a default is an error.
func expandEnv(raw []byte) ([]byte, error) {
	var errs []error

	out := envPattern.ReplaceAllFunc(raw, func(match []byte) []byte {
		subs := envPattern.FindSubmatch(match)
		name := string(subs[1])

		if v, ok := os.LookupEnv(name); ok {
			return []byte(v)
		}
		if subs[2] != nil {
			return subs[2]
		}
		errs = append(errs, goerr.New("unresolved variable", goerr.V("name", name)))
		return match
	})

	return out, errors.Join(errs...)
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvUint(key string, def uint64) uint64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// Package config loads lionz settings from the environment. Every key is
// read as LIONZ_<KEY> first and then as the bare <KEY>.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/lionzhd/lionz/internal/downloadcfg"
	"github.com/lionzhd/lionz/internal/sqldb"
)

const envVarPrefix = "LIONZ"

// Cache backends.
const (
	CacheMemory = "memory"
	CacheSQL    = "sql"
)

type Config struct {
	Aria2RPCURL         string        `envconfig:"ARIA2_RPC_URL"         default:"http://127.0.0.1:6800/jsonrpc"`
	Aria2Secret         string        `envconfig:"ARIA2_SECRET"`
	Aria2Timeout        time.Duration `envconfig:"ARIA2_TIMEOUT"         default:"30s"`
	Aria2ConnectTimeout time.Duration `envconfig:"ARIA2_CONNECT_TIMEOUT" default:"10s"`
	Aria2Retries        int           `envconfig:"ARIA2_RETRIES"         default:"3"`
	Aria2RetryDelay     time.Duration `envconfig:"ARIA2_RETRY_DELAY"     default:"500ms"`

	XtreamBaseURL  string        `envconfig:"XTREAM_BASE_URL"`
	XtreamUsername string        `envconfig:"XTREAM_USERNAME"`
	XtreamPassword string        `envconfig:"XTREAM_PASSWORD"`
	XtreamTimeout  time.Duration `envconfig:"XTREAM_TIMEOUT" default:"30s"`

	DBDriver string `envconfig:"DB_DRIVER" default:"sqlite"`
	DBDSN    string `envconfig:"DB_DSN"`

	CacheBackend string `envconfig:"CACHE_BACKEND" default:"memory"`
	CacheSize    int    `envconfig:"CACHE_SIZE"    default:"1024"`

	APIAddr  string `envconfig:"API_ADDR"  default:":9090"`
	APIToken string `envconfig:"API_TOKEN"`

	LogLevel      string `envconfig:"LOG_LEVEL"        default:"info"`
	LogFormat     string `envconfig:"LOG_FORMAT"       default:"text"`
	LogFile       string `envconfig:"LOG_FILE"`
	LogMaxSizeMB  int    `envconfig:"LOG_MAX_SIZE_MB"  default:"100"`
	LogMaxBackups int    `envconfig:"LOG_MAX_BACKUPS"  default:"3"`
	LogMaxAgeDays int    `envconfig:"LOG_MAX_AGE_DAYS" default:"28"`

	CollisionPolicy string `envconfig:"COLLISION_POLICY" default:"overwrite"`
	WatchEvents     bool   `envconfig:"WATCH_EVENTS"     default:"false"`
}

// Load reads the environment. It does not validate; call Validate.
func Load() (*Config, error) {
	var c Config
	if err := envconfig.Process(envVarPrefix, &c); err != nil {
		return nil, fmt.Errorf("parsing environment variables: %w", err)
	}
	return &c, nil
}

// Validate rejects missing upstream credentials and unknown enum values.
func (c *Config) Validate() error {
	for _, req := range []struct{ val, key string }{
		{c.XtreamBaseURL, "XTREAM_BASE_URL"},
		{c.XtreamUsername, "XTREAM_USERNAME"},
		{c.XtreamPassword, "XTREAM_PASSWORD"},
	} {
		if strings.TrimSpace(req.val) == "" {
			return fmt.Errorf("missing required configuration: %s_%s", envVarPrefix, req.key)
		}
	}
	if _, err := c.Dialect(); err != nil {
		return err
	}
	switch c.CacheBackend {
	case CacheMemory, CacheSQL:
	default:
		return fmt.Errorf("unknown cache backend %q (memory|sql)", c.CacheBackend)
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("cache size must be positive, got %d", c.CacheSize)
	}
	if _, err := c.Policy(); err != nil {
		return err
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q (text|json)", c.LogFormat)
	}
	if c.Aria2Retries < 0 {
		return fmt.Errorf("aria2 retries must not be negative, got %d", c.Aria2Retries)
	}
	return nil
}

func (c *Config) Dialect() (sqldb.Dialect, error) { return sqldb.ParseDialect(c.DBDriver) }

func (c *Config) Policy() (downloadcfg.CollisionPolicy, error) {
	return downloadcfg.ParseCollisionPolicy(c.CollisionPolicy)
}

// DSN returns the configured DSN or the dialect default: a local file for
// SQLite, POSTGRES_* variables for Postgres.
func (c *Config) DSN() string {
	if c.DBDSN != "" {
		return c.DBDSN
	}
	if d, _ := c.Dialect(); d == sqldb.Postgres {
		return sqldb.PostgresDSNFromEnv()
	}
	return "lionz.db"
}

// ParseLevel maps debug|info|warn|error onto slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return l, nil
}

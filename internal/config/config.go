// Package config loads server settings from defaults, an optional YAML or
// TOML file, SPENDWISE_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/mmynk/spendwise/pkg/logging"
)

const (
	defaultAddr          = ":8080"
	defaultCachePath     = "./data/spendwise.db"
	defaultTokenDuration = 24 * time.Hour
	defaultSyncInterval  = 30 * time.Second
	defaultQueue         = "spendwise.events"
	defaultLogLevel      = "info"
	defaultLogFormat     = logging.FormatText
	defaultLogMaxSizeMB  = 10
	defaultLogMaxFiles   = 5

	envPrefix = "SPENDWISE_"
)

// ErrInvalidConfig wraps every parse and validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// DefaultFiles are tried, in order, when no config path is given.
var DefaultFiles = []string{"spendwise.yaml", "spendwise.yml", "spendwise.toml"}

type Config struct {
	Server   ServerConfig   `yaml:"server" toml:"server"`
	Database DatabaseConfig `yaml:"database" toml:"database"`
	Auth     AuthConfig     `yaml:"auth" toml:"auth"`
	Sync     SyncConfig     `yaml:"sync" toml:"sync"`
	Events   EventsConfig   `yaml:"events" toml:"events"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`

	// Path is the file the config was read from, empty when none was found.
	Path string `yaml:"-" toml:"-"`
}

type ServerConfig struct {
	Addr        string   `yaml:"addr" toml:"addr"`
	CORSOrigins []string `yaml:"cors_origins" toml:"cors_origins"`
}

type DatabaseConfig struct {
	// CachePath is the SQLite file. Without RemoteURL it is the only store.
	CachePath string `yaml:"cache_path" toml:"cache_path"`
	// RemoteURL is a PostgreSQL connection string.
	RemoteURL string `yaml:"remote_url" toml:"remote_url"`
}

type AuthConfig struct {
	JWTSecret     string   `yaml:"jwt_secret" toml:"jwt_secret"`
	TokenDuration Duration `yaml:"token_duration" toml:"token_duration"`
}

type SyncConfig struct {
	// Interval between background journal replays. Zero disables the loop.
	Interval Duration `yaml:"interval" toml:"interval"`
}

type EventsConfig struct {
	AMQPURL string `yaml:"amqp_url" toml:"amqp_url"`
	Queue   string `yaml:"queue" toml:"queue"`
}

type LoggingConfig struct {
	Level     string `yaml:"level" toml:"level"`
	Format    string `yaml:"format" toml:"format"`
	File      string `yaml:"file" toml:"file"`
	MaxSizeMB int    `yaml:"max_size_mb" toml:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" toml:"max_files"`
}

// Duration is a time.Duration written as "30s" or "24h" in config files.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// LoadOptions says where to look for settings beyond the defaults.
type LoadOptions struct {
	ConfigPath string
	// Env replaces the process environment when set. Used by tests.
	Env   map[string]string
	Flags FlagOverrides
}

// FlagOverrides carry command-line values. Nil fields were not given.
type FlagOverrides struct {
	Addr      *string
	CachePath *string
	RemoteURL *string
	LogLevel  *string
}

func Default() Config {
	return Config{
		Server:   ServerConfig{Addr: defaultAddr},
		Database: DatabaseConfig{CachePath: defaultCachePath},
		Auth:     AuthConfig{TokenDuration: Duration(defaultTokenDuration)},
		Sync:     SyncConfig{Interval: Duration(defaultSyncInterval)},
		Events:   EventsConfig{Queue: defaultQueue},
		Logging: LoggingConfig{
			Level:     defaultLogLevel,
			Format:    defaultLogFormat,
			MaxSizeMB: defaultLogMaxSizeMB,
			MaxFiles:  defaultLogMaxFiles,
		},
	}
}

// Load builds the configuration and validates it.
func Load(opts LoadOptions) (Config, error) {
	cfg := Default()

	path, err := resolvePath(opts)
	if err != nil {
		return Config{}, err
	}
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
		cfg.Path = path
	}

	if err := applyEnv(&cfg, opts); err != nil {
		return Config{}, err
	}
	applyFlags(&cfg, opts.Flags)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func resolvePath(opts LoadOptions) (string, error) {
	path := opts.ConfigPath
	if path == "" {
		path, _ = lookupEnv(opts, envPrefix+"CONFIG")
	}
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("%w: config file %q: %v", ErrInvalidConfig, path, err)
		}
		return path, nil
	}

	for _, candidate := range DefaultFiles {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %q: %w", path, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("%w: parse YAML file %q: %v", ErrInvalidConfig, path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("%w: parse TOML file %q: %v", ErrInvalidConfig, path, err)
		}
	default:
		return fmt.Errorf("%w: unsupported config file extension %q", ErrInvalidConfig, ext)
	}
	return nil
}

func applyEnv(cfg *Config, opts LoadOptions) error {
	text := map[string]*string{
		"SERVER_ADDR":         &cfg.Server.Addr,
		"DATABASE_CACHE_PATH": &cfg.Database.CachePath,
		"DATABASE_REMOTE_URL": &cfg.Database.RemoteURL,
		"AUTH_JWT_SECRET":     &cfg.Auth.JWTSecret,
		"EVENTS_AMQP_URL":     &cfg.Events.AMQPURL,
		"EVENTS_QUEUE":        &cfg.Events.Queue,
		"LOG_LEVEL":           &cfg.Logging.Level,
		"LOG_FORMAT":          &cfg.Logging.Format,
		"LOG_FILE":            &cfg.Logging.File,
	}
	for key, target := range text {
		if value, ok := lookupEnv(opts, envPrefix+key); ok {
			*target = value
		}
	}

	if value, ok := lookupEnv(opts, envPrefix+"SERVER_CORS_ORIGINS"); ok {
		cfg.Server.CORSOrigins = splitList(value)
	}

	durations := map[string]*Duration{
		"AUTH_TOKEN_DURATION": &cfg.Auth.TokenDuration,
		"SYNC_INTERVAL":       &cfg.Sync.Interval,
	}
	for key, target := range durations {
		value, ok := lookupEnv(opts, envPrefix+key)
		if !ok {
			continue
		}
		if err := target.UnmarshalText([]byte(value)); err != nil {
			return fmt.Errorf("%w: parse %s%s: %v", ErrInvalidConfig, envPrefix, key, err)
		}
	}

	ints := map[string]*int{
		"LOG_MAX_SIZE_MB": &cfg.Logging.MaxSizeMB,
		"LOG_MAX_FILES":   &cfg.Logging.MaxFiles,
	}
	for key, target := range ints {
		value, ok := lookupEnv(opts, envPrefix+key)
		if !ok {
			continue
		}
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: parse %s%s: %v", ErrInvalidConfig, envPrefix, key, err)
		}
		*target = parsed
	}
	return nil
}

func applyFlags(cfg *Config, flags FlagOverrides) {
	if flags.Addr != nil {
		cfg.Server.Addr = *flags.Addr
	}
	if flags.CachePath != nil {
		cfg.Database.CachePath = *flags.CachePath
	}
	if flags.RemoteURL != nil {
		cfg.Database.RemoteURL = *flags.RemoteURL
	}
	if flags.LogLevel != nil {
		cfg.Logging.Level = *flags.LogLevel
	}
}

// Validate reports the first setting that cannot be used.
func (c Config) Validate() error {
	switch {
	case c.Server.Addr == "":
		return fmt.Errorf("%w: server.addr must not be empty", ErrInvalidConfig)
	case c.Database.CachePath == "":
		return fmt.Errorf("%w: database.cache_path must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.Auth.JWTSecret) == "":
		return fmt.Errorf("%w: auth.jwt_secret must be set", ErrInvalidConfig)
	case c.Auth.TokenDuration <= 0:
		return fmt.Errorf("%w: auth.token_duration must be > 0", ErrInvalidConfig)
	case c.Sync.Interval < 0:
		return fmt.Errorf("%w: sync.interval must not be negative", ErrInvalidConfig)
	case c.Events.AMQPURL != "" && c.Events.Queue == "":
		return fmt.Errorf("%w: events.queue is required with events.amqp_url", ErrInvalidConfig)
	case c.Logging.MaxSizeMB < 0 || c.Logging.MaxFiles < 0:
		return fmt.Errorf("%w: logging.max_size_mb and logging.max_files must not be negative", ErrInvalidConfig)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: logging.level: %v", ErrInvalidConfig, err)
	}
	switch strings.ToLower(c.Logging.Format) {
	case logging.FormatText, logging.FormatJSON:
	default:
		return fmt.Errorf("%w: logging.format must be %q or %q", ErrInvalidConfig, logging.FormatText, logging.FormatJSON)
	}
	return nil
}

// Offline reports whether the server runs on the local SQLite store alone.
func (c Config) Offline() bool {
	return c.Database.RemoteURL == ""
}

func lookupEnv(opts LoadOptions, key string) (string, bool) {
	if opts.Env != nil {
		value, ok := opts.Env[key]
		return value, ok
	}
	return os.LookupEnv(key)
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

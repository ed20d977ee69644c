// Package config loads the masonry configuration file.
//
// The file is TOML or YAML, chosen by extension (.toml, .yaml, .yml).
// Every field is optional; missing fields keep their [Default] value and
// a missing file yields the defaults. CLI flags override loaded values.
//
//	[layout]
//	min_cols = 1
//	max_cols = 4
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/masonry/pkg/cache"
	"github.com/matzehuels/masonry/pkg/errors"
	"github.com/matzehuels/masonry/pkg/masonry"
)

// DefaultPath is where the CLI looks for a config file.
const DefaultPath = "~/.config/masonry/config.toml"

// Cache backends.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
	BackendNone   = "none"
)

// Config is the full configuration.
type Config struct {
	Layout masonry.Constraints `toml:"layout" yaml:"layout"`
	Server Server              `toml:"server" yaml:"server"`
	API    API                 `toml:"api" yaml:"api"`
	Cache  Cache               `toml:"cache" yaml:"cache"`
	Mongo  Mongo               `toml:"mongo" yaml:"mongo"`
	Log    Log                 `toml:"log" yaml:"log"`
}

// Server configures `masonry serve`.
type Server struct {
	Addr            string `toml:"addr" yaml:"addr"`
	ShutdownSeconds int    `toml:"shutdown_seconds" yaml:"shutdown_seconds"`
	// RedisSessions stores server sessions in the cache's Redis instance.
	RedisSessions bool `toml:"redis_sessions" yaml:"redis_sessions"`
}

// API configures the gallery REST client.
type API struct {
	BaseURL  string `toml:"base_url" yaml:"base_url"`
	PageSize int    `toml:"page_size" yaml:"page_size"`
}

// Cache selects and configures the cache backend.
type Cache struct {
	Backend       string `toml:"backend" yaml:"backend"`
	Dir           string `toml:"dir" yaml:"dir"`
	RedisAddr     string `toml:"redis_addr" yaml:"redis_addr"`
	RedisPassword string `toml:"redis_password" yaml:"redis_password"`
	RedisDB       int    `toml:"redis_db" yaml:"redis_db"`
	Prefix        string `toml:"prefix" yaml:"prefix"`
}

// Mongo configures the MongoDB item store. An empty URI disables it.
type Mongo struct {
	URI      string `toml:"uri" yaml:"uri"`
	Database string `toml:"database" yaml:"database"`
}

// Log configures logging. An empty File logs to stderr only. Format is
// one of LogFormats; empty means text.
type Log struct {
	Format     string `toml:"format" yaml:"format"`
	File       string `toml:"file" yaml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" yaml:"max_age_days"`
}

// LogFormats lists the accepted log.format values.
var LogFormats = []string{"text", "logfmt", "json"}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Layout: masonry.DefaultConstraints(),
		Server: Server{Addr: ":8080", ShutdownSeconds: 10},
		API:    API{BaseURL: "http://127.0.0.1:8000/api/v1/", PageSize: 20},
		Cache: Cache{
			Backend:   BackendFile,
			Dir:       "~/.cache/masonry",
			RedisAddr: "localhost:6379",
			Prefix:    "masonry:",
		},
		Mongo: Mongo{Database: "masonry"},
		Log:   Log{MaxSizeMB: 10, MaxBackups: 3, MaxAgeDays: 28},
	}
}

// Load reads the config file at path on top of the defaults. A missing
// file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	resolved := ExpandPath(path)
	data, err := os.ReadFile(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", resolved, err)
	}

	switch ext := strings.ToLower(filepath.Ext(resolved)); ext {
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		return cfg, errors.New(errors.ErrCodeInvalidFormat, "unsupported config format %q (use .toml, .yaml or .yml)", ext)
	}
	if err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidInput, err, "parsing config %s", resolved)
	}

	cfg.Cache.Dir = ExpandPath(cfg.Cache.Dir)
	cfg.Log.File = ExpandPath(cfg.Log.File)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", resolved, err)
	}
	return cfg, nil
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := c.Layout.Validate(); err != nil {
		return err
	}
	switch c.Cache.Backend {
	case BackendFile, BackendRedis, BackendMemory, BackendNone:
	default:
		return errors.New(errors.ErrCodeInvalidInput, "cache.backend must be one of file, redis, memory, none; got %q", c.Cache.Backend)
	}
	if c.API.PageSize < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "api.page_size must not be negative")
	}
	if c.API.BaseURL != "" {
		if err := errors.ValidateURL(c.API.BaseURL); err != nil {
			return err
		}
	}
	if c.Log.Format != "" && !slices.Contains(LogFormats, c.Log.Format) {
		return errors.New(errors.ErrCodeInvalidInput, "log.format must be one of %s; got %q", strings.Join(LogFormats, ", "), c.Log.Format)
	}
	if c.Server.ShutdownSeconds < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "server.shutdown_seconds must not be negative")
	}
	return nil
}

// ExpandPath replaces a leading ~ with the home directory.
func ExpandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}

// Open creates the configured cache backend.
func (c Cache) Open(ctx context.Context) (cache.Cache, error) {
	switch c.Backend {
	case BackendFile:
		return cache.NewFileCache(ExpandPath(c.Dir))
	case BackendRedis:
		return cache.NewRedisCache(ctx, cache.RedisOptions{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
			Prefix:   c.Prefix,
		})
	case BackendMemory:
		return cache.NewMemoryCache(), nil
	case BackendNone, "":
		return cache.NewNullCache(), nil
	default:
		return nil, fmt.Errorf("%w: %q", cache.ErrBackend, c.Backend)
	}
}

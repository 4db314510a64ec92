// Package config loads viastitch.toml.
//
//	[stitch]
//	net = "GND"
//	via_diameter = 0.6
//	via_drill = 0.3
//	grid_x = 2.5
//	grid_y = 2.5
//	clearance = 0.25
//	resolution = 0.1
//	refill = true
//
//	[units]
//	per_mm = 1000000
//
//	[cache]
//	backend = "file"      # file, redis or none
//	redis_addr = "localhost:6379"
//	ttl = "168h"
//
//	[history]
//	backend = "sqlite"    # sqlite, mongo or none
//	mongo_uri = "mongodb://localhost:27017"
//
//	[server]
//	addr = ":8080"
//
// Every key is optional; missing keys keep their defaults. Unknown keys
// are rejected so that typos do not go unnoticed.
package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/viastitch/pkg/errors"
	"github.com/matzehuels/viastitch/pkg/geom"
	"github.com/matzehuels/viastitch/pkg/pipeline"
)

// FileName is the config file name looked up in the user config directory.
const FileName = "viastitch.toml"

// EnvPath overrides the default config path.
const EnvPath = "VIASTITCH_CONFIG"

// Backend names.
const (
	BackendNone   = "none"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
)

// Config is the file-level configuration.
type Config struct {
	Stitch  pipeline.Options `toml:"stitch"`
	Units   Units            `toml:"units"`
	Cache   Cache            `toml:"cache"`
	History History          `toml:"history"`
	Server  Server           `toml:"server"`
}

// Units configures the board unit scale.
type Units struct {
	PerMM int64 `toml:"per_mm"`
}

// Cache selects the plan cache backend.
type Cache struct {
	Backend       string `toml:"backend"`
	Dir           string `toml:"dir"` // file backend; empty selects the user cache dir
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	Prefix        string `toml:"prefix"`
	TTL           string `toml:"ttl"` // Go duration, e.g. "24h"
}

// TTLDuration parses TTL, returning def when it is empty.
func (c Cache) TTLDuration(def time.Duration) (time.Duration, error) {
	if c.TTL == "" {
		return def, nil
	}
	d, err := time.ParseDuration(c.TTL)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeInvalidConfig, err, "cache.ttl")
	}
	if d < 0 {
		return 0, errors.New(errors.ErrCodeInvalidConfig, "cache.ttl must not be negative, got %s", c.TTL)
	}
	return d, nil
}

// History selects the run history backend.
type History struct {
	Backend  string `toml:"backend"`
	Path     string `toml:"path"` // sqlite backend; empty selects the user data dir
	MongoURI string `toml:"mongo_uri"`
	Database string `toml:"database"`
}

// Server configures `viastitch serve`.
type Server struct {
	Addr string `toml:"addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Stitch:  pipeline.DefaultOptions(),
		Units:   Units{PerMM: int64(geom.DefaultScale)},
		Cache:   Cache{Backend: BackendFile},
		History: History{Backend: BackendSQLite},
		Server:  Server{Addr: ":8080"},
	}
}

// DefaultPath returns the config path: $VIASTITCH_CONFIG, or
// viastitch/viastitch.toml under the user config directory.
func DefaultPath() (string, error) {
	if p := os.Getenv(EnvPath); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "viastitch", FileName), nil
}

// Load reads the config at path over the defaults. An empty path selects
// [DefaultPath], which may be absent; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return cfg, nil
		}
		path = p
		explicit = os.Getenv(EnvPath) != ""
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if os.IsNotExist(err) {
			if explicit {
				return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "config %s", path)
			}
			return Default(), nil
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.New(errors.ErrCodeInvalidConfig, "%s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks backend names and units, and copies the units scale
// into the stitch options.
func (c *Config) Validate() error {
	if c.Units.PerMM <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "units.per_mm must be positive, got %d", c.Units.PerMM)
	}
	c.Stitch.UnitsPerMM = c.Units.PerMM

	if c.Cache.Backend == "" {
		c.Cache.Backend = BackendFile
	}
	if !slices.Contains([]string{BackendFile, BackendRedis, BackendNone}, c.Cache.Backend) {
		return errors.New(errors.ErrCodeInvalidConfig, "cache.backend %q must be one of file, redis, none", c.Cache.Backend)
	}
	if c.Cache.Backend == BackendRedis && c.Cache.RedisAddr == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "cache.redis_addr is required for the redis backend")
	}
	if _, err := c.Cache.TTLDuration(0); err != nil {
		return err
	}

	if c.History.Backend == "" {
		c.History.Backend = BackendSQLite
	}
	if !slices.Contains([]string{BackendSQLite, BackendMongo, BackendNone}, c.History.Backend) {
		return errors.New(errors.ErrCodeInvalidConfig, "history.backend %q must be one of sqlite, mongo, none", c.History.Backend)
	}
	if c.History.Backend == BackendMongo && c.History.MongoURI == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "history.mongo_uri is required for the mongo backend")
	}
	return nil
}

// Package config loads flowscope settings from TOML or YAML files.
//
// The format is chosen by extension (.toml, .yaml or .yml). Keys missing
// from the file keep their [Default] values, so a config only needs the
// settings it changes:
//
//	[layout]
//	charge = -80
//	seed = 7
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/flowscope/pkg/cache"
	"github.com/matzehuels/flowscope/pkg/errors"
	"github.com/matzehuels/flowscope/pkg/layout"
)

// Config is the top-level configuration.
type Config struct {
	Layout LayoutConfig `toml:"layout" yaml:"layout"`
	Cache  CacheConfig  `toml:"cache" yaml:"cache"`
	Server ServerConfig `toml:"server" yaml:"server"`
}

// LayoutConfig holds the simulation constants.
type LayoutConfig struct {
	LinkDistance    float64 `toml:"link_distance" yaml:"link_distance"`
	Charge          float64 `toml:"charge" yaml:"charge"`
	Theta           float64 `toml:"theta" yaml:"theta"`
	CollidePadding  float64 `toml:"collide_padding" yaml:"collide_padding"`
	ClusterRadius   float64 `toml:"cluster_radius" yaml:"cluster_radius"`
	ClusterStrength float64 `toml:"cluster_strength" yaml:"cluster_strength"`
	BurnIn          int     `toml:"burn_in" yaml:"burn_in"`
	AlphaMin        float64 `toml:"alpha_min" yaml:"alpha_min"`
	StableThreshold float64 `toml:"stable_threshold" yaml:"stable_threshold"`
	VelocityDecay   float64 `toml:"velocity_decay" yaml:"velocity_decay"`
	Seed            uint64  `toml:"seed" yaml:"seed"`
	MaxTicks        int     `toml:"max_ticks" yaml:"max_ticks"`
}

// CacheConfig selects the cache backend.
type CacheConfig struct {
	Backend         string `toml:"backend" yaml:"backend"`
	Dir             string `toml:"dir" yaml:"dir"`
	TTL             string `toml:"ttl" yaml:"ttl"`
	RedisAddr       string `toml:"redis_addr" yaml:"redis_addr"`
	RedisPassword   string `toml:"redis_password" yaml:"redis_password"`
	RedisDB         int    `toml:"redis_db" yaml:"redis_db"`
	MongoURI        string `toml:"mongo_uri" yaml:"mongo_uri"`
	MongoDatabase   string `toml:"mongo_database" yaml:"mongo_database"`
	MongoCollection string `toml:"mongo_collection" yaml:"mongo_collection"`
	Prefix          string `toml:"prefix" yaml:"prefix"`
}

// ServerConfig configures `flowscope serve`.
type ServerConfig struct {
	Addr         string `toml:"addr" yaml:"addr"`
	ReadTimeout  string `toml:"read_timeout" yaml:"read_timeout"`
	WriteTimeout string `toml:"write_timeout" yaml:"write_timeout"`
}

// Default returns the built-in configuration.
func Default() Config {
	p := layout.DefaultParams()
	return Config{
		Layout: LayoutConfig{
			LinkDistance:    p.LinkDistance,
			Charge:          p.Charge,
			Theta:           p.Theta,
			CollidePadding:  p.CollidePadding,
			ClusterRadius:   p.ClusterRadius,
			ClusterStrength: p.ClusterStrength,
			BurnIn:          p.BurnIn,
			AlphaMin:        p.AlphaMin,
			StableThreshold: p.StableThreshold,
			VelocityDecay:   p.VelocityDecay,
			Seed:            p.Seed,
			MaxTicks:        5000,
		},
		Cache: CacheConfig{
			Backend:         cache.BackendFile,
			TTL:             "24h",
			RedisAddr:       "localhost:6379",
			MongoURI:        "mongodb://localhost:27017",
			MongoDatabase:   "flowscope",
			MongoCollection: "cache",
		},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  "15s",
			WriteTimeout: "60s",
		},
	}
}

// Load reads path over the defaults. An empty path returns [Default].
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "config %s", path)
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return Config{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse %s", path)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse %s", path)
		}
	default:
		return Config{}, errors.New(errors.ErrCodeInvalidFormat, "config %s: unsupported extension %q", path, ext)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges and parses durations.
func (c Config) Validate() error {
	l := c.Layout
	switch {
	case l.LinkDistance <= 0:
		return invalid("layout.link_distance must be positive")
	case l.Theta < 0:
		return invalid("layout.theta must not be negative")
	case l.BurnIn < 0:
		return invalid("layout.burn_in must not be negative")
	case l.AlphaMin <= 0 || l.AlphaMin >= 1:
		return invalid("layout.alpha_min must be in (0, 1)")
	case l.StableThreshold <= 0 || l.StableThreshold > 1:
		return invalid("layout.stable_threshold must be in (0, 1]")
	case l.VelocityDecay < 0 || l.VelocityDecay > 1:
		return invalid("layout.velocity_decay must be in [0, 1]")
	}

	switch c.Cache.Backend {
	case "", cache.BackendFile, cache.BackendRedis, cache.BackendMongo, cache.BackendNone:
	default:
		return invalid("cache.backend %q is not one of file, redis, mongo, none", c.Cache.Backend)
	}
	for name, v := range map[string]string{
		"cache.ttl":            c.Cache.TTL,
		"server.read_timeout":  c.Server.ReadTimeout,
		"server.write_timeout": c.Server.WriteTimeout,
	} {
		if _, err := parseDuration(v); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "%s", name)
		}
	}
	return nil
}

func invalid(format string, args ...any) error {
	return errors.New(errors.ErrCodeInvalidInput, format, args...)
}

// Options converts the layout section to engine options.
func (l LayoutConfig) Options() []layout.Option {
	p := layout.DefaultParams()
	p.LinkDistance = l.LinkDistance
	p.Charge = l.Charge
	p.Theta = l.Theta
	p.CollidePadding = l.CollidePadding
	p.ClusterRadius = l.ClusterRadius
	p.ClusterStrength = l.ClusterStrength
	p.BurnIn = l.BurnIn
	p.AlphaMin = l.AlphaMin
	p.AlphaDecay = layout.AlphaDecayFor(l.AlphaMin, l.BurnIn)
	p.StableThreshold = l.StableThreshold
	p.VelocityDecay = l.VelocityDecay
	p.Seed = l.Seed
	return []layout.Option{layout.WithParams(p)}
}

// Params returns the effective simulation constants.
func (l LayoutConfig) Params() layout.Params {
	var p layout.Params
	for _, opt := range l.Options() {
		opt(&p)
	}
	return p
}

// Settings converts the cache section to backend settings.
func (c CacheConfig) Settings() cache.Config {
	return cache.Config{
		Backend: c.Backend,
		Dir:     c.Dir,
		Redis:   cache.RedisConfig{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB},
		Mongo:   cache.MongoConfig{URI: c.MongoURI, Database: c.MongoDatabase, Collection: c.MongoCollection},
	}
}

// TTLDuration returns the parsed cache TTL. Zero means no expiry.
func (c CacheConfig) TTLDuration() time.Duration {
	d, _ := parseDuration(c.TTL)
	return d
}

// Timeouts returns the parsed server timeouts.
func (s ServerConfig) Timeouts() (read, write time.Duration) {
	read, _ = parseDuration(s.ReadTimeout)
	write, _ = parseDuration(s.WriteTimeout)
	return read, write
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

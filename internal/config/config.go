package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/facet/pkg/registry"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// EnvConfig names the environment variable holding the config file path.
const EnvConfig = "FACET_CONFIG"

// DefaultPath is read when neither --config nor FACET_CONFIG is set. It may be absent.
const DefaultPath = "facet.yaml"

// Drivers
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
	DriverLoam   = "loam"
	DriverNone   = "none"
)

// Config is the application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server" yaml:"server" json:"server"`
	Catalog CatalogConfig `mapstructure:"catalog" yaml:"catalog" json:"catalog"`
	Cache   CacheConfig   `mapstructure:"cache" yaml:"cache" json:"cache"`
	Redis   RedisConfig   `mapstructure:"redis" yaml:"redis" json:"redis"`
	Log     LogConfig     `mapstructure:"log" yaml:"log" json:"log"`
	MCP     MCPConfig     `mapstructure:"mcp" yaml:"mcp" json:"mcp"`
}

type ServerConfig struct {
	Port int `mapstructure:"port" yaml:"port" json:"port"`
	// Admin enables the attribute editing routes.
	Admin bool `mapstructure:"admin" yaml:"admin" json:"admin"`
	CORS  bool `mapstructure:"cors" yaml:"cors" json:"cors"`
}

type CatalogConfig struct {
	// Driver is memory, redis or loam.
	Driver string `mapstructure:"driver" yaml:"driver" json:"driver"`
	// Dir is the Loam catalog directory.
	Dir string `mapstructure:"dir" yaml:"dir" json:"dir"`
	// Seed is an optional file of attributes created at startup (memory and redis only).
	Seed string `mapstructure:"seed" yaml:"seed" json:"seed"`
}

type CacheConfig struct {
	// Driver is memory, redis or none.
	Driver string        `mapstructure:"driver" yaml:"driver" json:"driver"`
	TTL    time.Duration `mapstructure:"ttl" yaml:"ttl" json:"ttl"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr" json:"addr"`
	Password string `mapstructure:"password" yaml:"password" json:"password"`
	DB       int    `mapstructure:"db" yaml:"db" json:"db"`
	Prefix   string `mapstructure:"prefix" yaml:"prefix" json:"prefix"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" json:"level"`
	Format string `mapstructure:"format" yaml:"format" json:"format"`
}

type MCPConfig struct {
	// Port serves MCP over SSE. Zero means stdio.
	Port int `mapstructure:"port" yaml:"port" json:"port"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Server:  ServerConfig{Port: 8080, CORS: true},
		Catalog: CatalogConfig{Driver: DriverMemory, Dir: "catalog"},
		Cache:   CacheConfig{Driver: DriverMemory},
		Redis:   RedisConfig{Addr: "localhost:6379", Prefix: "facet:"},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads the configuration file at path (YAML or JSON by extension) on top of the
// defaults. An empty path falls back to FACET_CONFIG, then to DefaultPath. A missing
// DefaultPath is not an error; a missing explicit path is.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := true
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path == "" {
		path = DefaultPath
		explicit = false
	}

	raw, err := readFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := decode(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks driver names and driver-specific requirements.
func (c Config) Validate() error {
	var errs []error
	switch c.Catalog.Driver {
	case DriverMemory, DriverRedis:
	case DriverLoam:
		if c.Catalog.Dir == "" {
			errs = append(errs, errors.New("catalog.dir is required for the loam driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown catalog.driver %q", c.Catalog.Driver))
	}
	switch c.Cache.Driver {
	case DriverMemory, DriverRedis, DriverNone:
	default:
		errs = append(errs, fmt.Errorf("unknown cache.driver %q", c.Cache.Driver))
	}
	if (c.Catalog.Driver == DriverRedis || c.Cache.Driver == DriverRedis) && c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr is required by the redis driver"))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	return errors.Join(errs...)
}

// seedFile is the layout of a seed file.
type seedFile struct {
	Attributes []registry.SeedAttribute `mapstructure:"attributes"`
}

// LoadSeed reads a seed file of attributes (YAML or JSON by extension).
func LoadSeed(path string) ([]registry.SeedAttribute, error) {
	raw, err := readFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed: %w", err)
	}
	var seed seedFile
	if err := decode(raw, &seed); err != nil {
		return nil, fmt.Errorf("failed to decode seed %s: %w", path, err)
	}
	return seed.Attributes, nil
}

func readFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	raw := make(map[string]any)
	ext := strings.ToLower(filepath.Ext(path))

	if ext == ".json" {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else {
		// Default to YAML
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}
	return raw, nil
}

func decode(raw map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

// Package config loads and validates the server/CLI configuration: listener
// settings, the ProviderSpec cache backend, logging level, and the set of
// named ProviderSpec sources an operator has registered. It also resolves
// the `${ENV:NAME}` placeholders spec section 6.5 says the translation
// core itself must never touch.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	cacheBackendMemory = "memory"
	cacheBackendRedis  = "redis"
)

// Config represents the application configuration parsed from YAML.
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Logging   LoggingConfig    `yaml:"logging"`
	Cache     CacheConfig      `yaml:"cache"`
	Providers []ProviderSource `yaml:"providers"`
}

// ServerConfig defines listener configuration.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig selects the slog level the CLI/server log at.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// CacheConfig selects the SpecCache backend (internal/cache) serve() uses
// to avoid re-validating a ProviderSpec document on every request.
type CacheConfig struct {
	Backend  string `yaml:"backend"` // "memory" (default) or "redis"
	LRUSize  int    `yaml:"lru_size"`
	RedisURL string `yaml:"redis_url"`
}

// ProviderSource names one ProviderSpec document on disk and the headers
// an external HTTP collaborator would send alongside it. Header values may
// contain ${ENV:NAME} placeholders; Load expands them eagerly so the rest
// of the program never sees the raw placeholder syntax.
type ProviderSource struct {
	Name    string            `yaml:"name"`
	Path    string            `yaml:"path"`
	Headers map[string]string `yaml:"headers"`
}

// envPlaceholderRe matches ${ENV:NAME}; NAME is any POSIX environment
// variable name.
var envPlaceholderRe = regexp.MustCompile(`\$\{ENV:([A-Za-z_][A-Za-z0-9_]*)\}`)

// ExpandEnvPlaceholders replaces every ${ENV:NAME} occurrence in s with the
// current value of the named environment variable, erroring if any named
// variable is unset. This is the "external loader" spec section 6.5 says
// must sit outside the translation core.
func ExpandEnvPlaceholders(s string) (string, error) {
	var firstErr error
	expanded := envPlaceholderRe.ReplaceAllStringFunc(s, func(match string) string {
		name := envPlaceholderRe.FindStringSubmatch(match)[1]
		val, ok := os.LookupEnv(name)
		if !ok && firstErr == nil {
			firstErr = fmt.Errorf("environment variable %q referenced by ${ENV:%s} is not set", name, name)
		}
		return val
	})
	if firstErr != nil {
		return "", firstErr
	}
	return expanded, nil
}

// Load reads a `.env` file if present (ignored if absent), then reads YAML
// configuration from disk, expands header placeholders, and validates the
// result.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return Config{}, fmt.Errorf("resolve config path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return Config{}, fmt.Errorf("read config file %q: %w", absPath, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file %q: %w", absPath, err)
	}

	for i, src := range cfg.Providers {
		for key, val := range src.Headers {
			expanded, err := ExpandEnvPlaceholders(val)
			if err != nil {
				return Config{}, fmt.Errorf("provider %s: header %q: %w", src.Name, key, err)
			}
			cfg.Providers[i].Headers[key] = expanded
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate performs strict sanity checks on the configuration.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid TCP port, got %d", c.Server.Port)
	}

	switch c.Cache.Backend {
	case "", cacheBackendMemory:
	case cacheBackendRedis:
		if strings.TrimSpace(c.Cache.RedisURL) == "" {
			return fmt.Errorf("cache.backend is %q but cache.redis_url is empty", cacheBackendRedis)
		}
	default:
		return fmt.Errorf("cache.backend %q must be %q or %q", c.Cache.Backend, cacheBackendMemory, cacheBackendRedis)
	}

	seen := make(map[string]bool, len(c.Providers))
	for _, src := range c.Providers {
		if strings.TrimSpace(src.Name) == "" {
			return fmt.Errorf("provider source name must not be empty")
		}
		if seen[src.Name] {
			return fmt.Errorf("provider source %q is declared more than once", src.Name)
		}
		seen[src.Name] = true
		if strings.TrimSpace(src.Path) == "" {
			return fmt.Errorf("provider %s: path must not be empty", src.Name)
		}
		for headerKey := range src.Headers {
			if !isCanonicalHTTPHeader(headerKey) {
				return fmt.Errorf("provider %s: header %q is not a valid canonical HTTP header", src.Name, headerKey)
			}
		}
	}

	return nil
}

// EffectiveLRUSize returns Cache.LRUSize, or a sane default when unset.
func (c Config) EffectiveLRUSize() int {
	if c.Cache.LRUSize > 0 {
		return c.Cache.LRUSize
	}
	return 128
}

func isCanonicalHTTPHeader(header string) bool {
	if header == "" {
		return false
	}
	for _, r := range header {
		if !(r == '-' || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')) {
			return false
		}
	}
	return true
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskTrack Contributors

// Package config loads TaskTrack configuration from defaults, an optional
// YAML file, the environment and command-line flags, in that order.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"

	"github.com/tasktrack/tasktrack/internal/auth"
	"github.com/tasktrack/tasktrack/internal/web"
)

// Environments.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Storage backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// EnvPrefix namespaces environment variables. Nested keys use a double
// underscore, e.g. TASKTRACK_AUTH__JWT_SECRET sets auth.jwt_secret.
const EnvPrefix = "TASKTRACK_"

// Config is the complete runtime configuration.
type Config struct {
	Env         string     `koanf:"env"`
	HTTPAddr    string     `koanf:"http_addr"`
	MetricsAddr string     `koanf:"metrics_addr"`
	LogFormat   string     `koanf:"log_format"`
	Store       string     `koanf:"store"`
	DatabaseURL string     `koanf:"database_url"`
	Auth        AuthConfig `koanf:"auth"`
	Web         WebConfig  `koanf:"web"`
}

// AuthConfig configures password hashing and session tokens.
type AuthConfig struct {
	JWTSecret     string        `koanf:"jwt_secret"`
	SessionTTL    time.Duration `koanf:"session_ttl"`
	BcryptCost    int           `koanf:"bcrypt_cost"`
	SecureCookies bool          `koanf:"secure_cookies"`
}

// WebConfig configures the HTTP surface.
type WebConfig struct {
	StaticDir      string   `koanf:"static_dir"`
	ProtectedPaths []string `koanf:"protected_paths"`
	AuthPaths      []string `koanf:"auth_paths"`
}

var defaults = map[string]any{
	"env":                 EnvDevelopment,
	"http_addr":           ":8080",
	"metrics_addr":        "127.0.0.1:9100",
	"log_format":          "json",
	"store":               StorePostgres,
	"auth.session_ttl":    auth.DefaultSessionTTL,
	"auth.bcrypt_cost":    auth.DefaultBcryptCost,
	"web.protected_paths": web.DefaultProtectedPaths(),
	"web.auth_paths":      web.DefaultAuthPaths(),
}

// legacyEnv maps conventional unprefixed variables to config keys. The
// prefixed form wins when both are set.
var legacyEnv = map[string]string{
	"DATABASE_URL": "database_url",
	"JWT_SECRET":   "auth.jwt_secret",
}

// Load builds a Config. path may be empty to skip the file layer; flags may
// be nil. Flags are matched to keys by replacing '-' with '_', so
// --http-addr sets http_addr. Only flags set on the command line override
// earlier layers.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("key", key).Wrap(err)
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("operation", "read config file").
				With("path", path).
				Wrap(err)
		}
	}

	for name, key := range legacyEnv {
		if value, ok := os.LookupEnv(name); ok && value != "" {
			if err := k.Set(key, value); err != nil {
				return nil, oops.Code("CONFIG_LOAD_FAILED").With("key", key).Wrap(err)
			}
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "read environment").Wrap(err)
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "read flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "decode config").Wrap(err)
	}

	// Cookies default to Secure only where TLS is expected.
	if !k.Exists("auth.secure_cookies") {
		cfg.Auth.SecureCookies = cfg.Env == EnvProduction
	}

	return &cfg, nil
}

// listKeys are split on commas when they come from the environment.
var listKeys = map[string]bool{
	"web.protected_paths": true,
	"web.auth_paths":      true,
}

// sectionPrefixes name the nested sections reachable with a single
// underscore, so TASKTRACK_AUTH_JWT_SECRET works like TASKTRACK_AUTH__JWT_SECRET.
var sectionPrefixes = []string{"auth_", "web_"}

// envValue turns TASKTRACK_AUTH__JWT_SECRET into the key auth.jwt_secret.
func envValue(name, value string) (string, any) {
	key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	if strings.Contains(key, "__") {
		key = strings.ReplaceAll(key, "__", ".")
	} else {
		for _, prefix := range sectionPrefixes {
			if strings.HasPrefix(key, prefix) {
				key = strings.TrimSuffix(prefix, "_") + "." + strings.TrimPrefix(key, prefix)
				break
			}
		}
	}
	if listKeys[key] {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return key, parts
	}
	return key, value
}

// IsProduction reports whether the production safety checks apply.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	invalid := func(key, format string, args ...any) error {
		return oops.Code("CONFIG_INVALID").With("key", key).Errorf(format, args...)
	}

	switch c.Env {
	case EnvDevelopment, EnvProduction:
	default:
		return invalid("env", "env must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.Env)
	}
	if c.HTTPAddr == "" {
		return invalid("http_addr", "http_addr is required")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return invalid("log_format", "log_format must be 'json' or 'text', got %q", c.LogFormat)
	}
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return invalid("database_url", "database_url (or DATABASE_URL) is required for the postgres store")
		}
	default:
		return invalid("store", "store must be %q or %q, got %q", StorePostgres, StoreMemory, c.Store)
	}
	if c.Auth.SessionTTL <= 0 {
		return invalid("auth.session_ttl", "auth.session_ttl must be positive, got %s", c.Auth.SessionTTL)
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		return invalid("auth.bcrypt_cost", "auth.bcrypt_cost must be between %d and %d, got %d",
			bcrypt.MinCost, bcrypt.MaxCost, c.Auth.BcryptCost)
	}
	if c.IsProduction() {
		if c.Auth.JWTSecret == "" || c.Auth.JWTSecret == auth.InsecureDevelopmentSecret {
			return invalid("auth.jwt_secret", "auth.jwt_secret (or JWT_SECRET) must be set in production")
		}
		if c.Store == StoreMemory {
			return invalid("store", "the memory store loses all data on restart and is not allowed in production")
		}
	}
	for _, p := range append(append([]string{}, c.Web.ProtectedPaths...), c.Web.AuthPaths...) {
		if !strings.HasPrefix(p, "/") {
			return invalid("web", "route pattern %q must start with '/'", p)
		}
	}
	return nil
}

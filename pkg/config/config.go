// Package config loads the cybered client configuration.
//
// Configuration is a TOML file, by default ~/.config/cybered/config.toml.
// A missing default file is not an error: [Default] values apply. Environment
// variables referenced as $VAR or ${VAR} inside the file are expanded before
// decoding, and CYBERED_BASE_URL and CYBERED_TOKEN override the file.
//
//	base_url     = "https://lms.example.com/api/v1"
//	timeout      = "10s"
//	max_attempts = 3
//	backoff      = "1s"
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
//
//	[cache.ttl]
//	courses_list = "2m"
//
// Every TTL must be positive except user_profile, where "0s" (the default)
// keeps the profile until a write to /users/ or a logout clears it.
//
//	[auth]
//	token = "${LMS_TOKEN}"
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/cyberedpro/cybered/pkg/cache"
	apierrors "github.com/cyberedpro/cybered/pkg/errors"
	"github.com/cyberedpro/cybered/pkg/gateway"
	"github.com/cyberedpro/cybered/pkg/httputil"
)

// Environment variables that override the file.
const (
	EnvBaseURL = "CYBERED_BASE_URL"
	EnvToken   = "CYBERED_TOKEN"
)

// DefaultBaseURL is the local development API.
const DefaultBaseURL = "http://127.0.0.1:8000/api/v1"

// Cache backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// Duration is a time.Duration written as a Go duration string ("90s", "2m").
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Config is the full client configuration.
type Config struct {
	BaseURL     string   `toml:"base_url"`
	Timeout     Duration `toml:"timeout"`
	MaxAttempts int      `toml:"max_attempts"`
	Backoff     Duration `toml:"backoff"`

	Cache CacheConfig `toml:"cache"`
	Auth  AuthConfig  `toml:"auth"`
}

// CacheConfig selects where the response cache is mirrored.
type CacheConfig struct {
	Backend       string    `toml:"backend"`
	Dir           string    `toml:"dir"`
	RedisAddr     string    `toml:"redis_addr"`
	RedisPassword string    `toml:"redis_password"`
	RedisDB       int       `toml:"redis_db"`
	RedisPrefix   string    `toml:"redis_prefix"`
	TTL           TTLConfig `toml:"ttl"`
}

// TTLConfig holds per-resource freshness windows. Only UserProfile may be
// zero, meaning until invalidated.
type TTLConfig struct {
	UserProfile   Duration `toml:"user_profile"`
	CoursesList   Duration `toml:"courses_list"`
	CourseDetails Duration `toml:"course_details"`
	Enrollments   Duration `toml:"enrollments"`
}

// AuthConfig locates the credentials.
type AuthConfig struct {
	SessionDir string `toml:"session_dir"`

	// Token, when set, is used instead of the stored session.
	Token string `toml:"token"`
}

// Default returns the built-in configuration.
func Default() *Config {
	ttl := cache.DefaultTTLs()
	return &Config{
		BaseURL:     DefaultBaseURL,
		Timeout:     Duration(httputil.DefaultTimeout),
		MaxAttempts: httputil.DefaultAttempts,
		Backoff:     Duration(httputil.DefaultDelay),
		Cache: CacheConfig{
			Backend:     BackendMemory,
			RedisAddr:   "localhost:6379",
			RedisPrefix: "cybered:",
			TTL: TTLConfig{
				UserProfile:   Duration(ttl.UserProfile),
				CoursesList:   Duration(ttl.CoursesList),
				CourseDetails: Duration(ttl.CourseDetails),
				Enrollments:   Duration(ttl.Enrollments),
			},
		},
	}
}

// DefaultPath returns ~/.config/cybered/config.toml, honoring XDG_CONFIG_HOME.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "cybered", "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "cybered", "config.toml"), nil
}

// Load reads the configuration at path over [Default], applies environment
// overrides and validates the result. An empty path loads the default file
// if it exists.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err == nil {
			path = p
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := cfg.decode(string(data)); err != nil {
				return nil, apierrors.Wrap(apierrors.ErrCodeInvalidConfig, err, "parse %s", path)
			}
		case errors.Is(err, fs.ErrNotExist) && !explicit:
		default:
			return nil, apierrors.Wrap(apierrors.ErrCodeInvalidConfig, err, "read config")
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes TOML text over [Default] without reading the environment
// overrides.
func Parse(text string) (*Config, error) {
	cfg := Default()
	if err := cfg.decode(text); err != nil {
		return nil, apierrors.Wrap(apierrors.ErrCodeInvalidConfig, err, "parse config")
	}
	return cfg, cfg.Validate()
}

func (c *Config) decode(text string) error {
	md, err := toml.Decode(os.ExpandEnv(text), c)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(EnvToken); v != "" {
		c.Auth.Token = v
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if err := apierrors.ValidateURL(c.BaseURL); err != nil {
		return apierrors.Wrap(apierrors.ErrCodeInvalidConfig, err, "base_url")
	}
	if c.Timeout <= 0 {
		return apierrors.New(apierrors.ErrCodeInvalidConfig, "timeout must be positive")
	}
	if c.MaxAttempts < 1 {
		return apierrors.New(apierrors.ErrCodeInvalidConfig, "max_attempts must be at least 1")
	}
	if c.Backoff <= 0 {
		return apierrors.New(apierrors.ErrCodeInvalidConfig, "backoff must be positive")
	}

	switch c.Cache.Backend {
	case BackendMemory, BackendFile:
	case BackendRedis:
		if c.Cache.RedisAddr == "" {
			return apierrors.New(apierrors.ErrCodeInvalidConfig, "cache.redis_addr is required for the redis backend")
		}
	default:
		return apierrors.New(apierrors.ErrCodeInvalidConfig, "unknown cache.backend %q", c.Cache.Backend)
	}

	ttls := []struct {
		name      string
		d         Duration
		unbounded bool
	}{
		{"user_profile", c.Cache.TTL.UserProfile, true},
		{"courses_list", c.Cache.TTL.CoursesList, false},
		{"course_details", c.Cache.TTL.CourseDetails, false},
		{"enrollments", c.Cache.TTL.Enrollments, false},
	}
	for _, ttl := range ttls {
		switch {
		case ttl.d < 0:
			return apierrors.New(apierrors.ErrCodeInvalidConfig, "cache.ttl.%s cannot be negative", ttl.name)
		case ttl.d == 0 && !ttl.unbounded:
			return apierrors.New(apierrors.ErrCodeInvalidConfig, "cache.ttl.%s must be positive", ttl.name)
		}
	}
	return nil
}

// TTLs returns the configured freshness windows.
func (c *Config) TTLs() cache.TTLs {
	return cache.TTLs{
		UserProfile:   time.Duration(c.Cache.TTL.UserProfile),
		CoursesList:   time.Duration(c.Cache.TTL.CoursesList),
		CourseDetails: time.Duration(c.Cache.TTL.CourseDetails),
		Enrollments:   time.Duration(c.Cache.TTL.Enrollments),
	}
}

// RedisConfig returns the redis mirror settings, namespaced by base URL so
// two APIs never share entries.
func (c *Config) RedisConfig() cache.RedisConfig {
	return cache.RedisConfig{
		Addr:     c.Cache.RedisAddr,
		Password: c.Cache.RedisPassword,
		DB:       c.Cache.RedisDB,
		Prefix:   c.Cache.RedisPrefix + cache.Namespace(c.BaseURL) + ":",
	}
}

// GatewayOptions maps the configuration onto gateway options. Callers fill
// in the cache, token source and logger.
func (c *Config) GatewayOptions() gateway.Options {
	return gateway.Options{
		BaseURL:     c.BaseURL,
		Timeout:     time.Duration(c.Timeout),
		MaxAttempts: c.MaxAttempts,
		Backoff:     time.Duration(c.Backoff),
	}
}

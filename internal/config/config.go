// Copyright 2026 Ian Lewis
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads sdcatalog configuration from defaults, an optional
// YAML file, and SDCATALOG_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of configuration environment variables.
const EnvPrefix = "SDCATALOG"

// ErrInvalid indicates an invalid configuration value.
var ErrInvalid = errors.New("invalid configuration")

// Config is the service configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `mapstructure:"listen"`

	// DataDir holds the application and user databases.
	DataDir string `mapstructure:"data_dir"`

	// AppDB is the application database path. Defaults to app.db in DataDir.
	AppDB string `mapstructure:"app_db"`

	// UserDB is the user database path. Defaults to user.db in DataDir.
	UserDB string `mapstructure:"user_db"`

	// DictionaryDirs are scanned for dictionaries.
	DictionaryDirs []string `mapstructure:"dictionary_dirs"`

	// ScanOnStart scans DictionaryDirs when the server starts. Scanning
	// registers every dictionary found, including ones that were deleted.
	ScanOnStart bool `mapstructure:"scan_on_start"`

	// Watch adds dictionaries that appear in DictionaryDirs while the server
	// is running.
	Watch bool `mapstructure:"watch"`

	Indexer IndexerConfig `mapstructure:"indexer"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Log     LogConfig     `mapstructure:"log"`
	Tracing TracingConfig `mapstructure:"tracing"`
}

// IndexerConfig configures index builds.
type IndexerConfig struct {
	Concurrency  int           `mapstructure:"concurrency"`
	BuildTimeout time.Duration `mapstructure:"build_timeout"`
}

// CacheConfig configures the lookup cache. A zero expiration disables it.
type CacheConfig struct {
	Expiration      time.Duration `mapstructure:"expiration"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TracingConfig configures tracing.
type TracingConfig struct {
	// Stdout writes spans to standard error.
	Stdout bool `mapstructure:"stdout"`
}

// Defaults returns the default configuration.
func Defaults() Config {
	return Config{
		Listen:         "127.0.0.1:8080",
		DataDir:        DefaultDataDir(),
		DictionaryDirs: DefaultDictionaryDirs(),
		ScanOnStart:    false,
		Watch:          false,
		Indexer: IndexerConfig{
			Concurrency:  4,
			BuildTimeout: 10 * time.Minute,
		},
		Cache: CacheConfig{
			Expiration:      10 * time.Minute,
			CleanupInterval: 30 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultPath returns the default configuration file path.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "sdcatalog", "config.yaml")
}

// DefaultDataDir returns the default data directory.
func DefaultDataDir() string {
	if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
		return filepath.Join(xdgDataHome, "sdcatalog")
	}
	if homeDir, err := os.UserHomeDir(); err == nil && homeDir != "" {
		return filepath.Join(homeDir, ".local", "share", "sdcatalog")
	}
	return "sdcatalog"
}

// AppDBPath returns the application database path.
func (c *Config) AppDBPath() string {
	if c.AppDB != "" {
		return c.AppDB
	}
	return filepath.Join(c.DataDir, "app.db")
}

// UserDBPath returns the user database path.
func (c *Config) UserDBPath() string {
	if c.UserDB != "" {
		return c.UserDB
	}
	return filepath.Join(c.DataDir, "user.db")
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	var errs []error
	if c.Listen == "" {
		errs = append(errs, fmt.Errorf("%w: listen is empty", ErrInvalid))
	}
	if c.DataDir == "" && (c.AppDB == "" || c.UserDB == "") {
		errs = append(errs, fmt.Errorf("%w: data_dir is empty", ErrInvalid))
	}
	if c.Indexer.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("%w: indexer.concurrency must be at least 1", ErrInvalid))
	}
	if c.Indexer.BuildTimeout < 0 {
		errs = append(errs, fmt.Errorf("%w: indexer.build_timeout is negative", ErrInvalid))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("%w: log.format %q", ErrInvalid, c.Log.Format))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("%w: log.level %q", ErrInvalid, c.Log.Level))
	}
	return errors.Join(errs...)
}

// Load reads the configuration. If path is empty the default path is used
// when it exists. Values in overrides take precedence over every other
// source and are keyed like the configuration file. It returns the config
// file that was read, if any.
func Load(path string, overrides map[string]any) (*Config, string, error) {
	v := viper.New()

	d := Defaults()
	v.SetDefault("listen", d.Listen)
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("app_db", d.AppDB)
	v.SetDefault("user_db", d.UserDB)
	v.SetDefault("dictionary_dirs", d.DictionaryDirs)
	v.SetDefault("scan_on_start", d.ScanOnStart)
	v.SetDefault("watch", d.Watch)
	v.SetDefault("indexer.concurrency", d.Indexer.Concurrency)
	v.SetDefault("indexer.build_timeout", d.Indexer.BuildTimeout)
	v.SetDefault("cache.expiration", d.Cache.Expiration)
	v.SetDefault("cache.cleanup_interval", d.Cache.CleanupInterval)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("tracing.stdout", d.Tracing.Stdout)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		if p := DefaultPath(); p != "" {
			if _, err := os.Stat(p); err == nil {
				path = p
			}
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, "", fmt.Errorf("reading config %q: %w", path, err)
		}
	}

	for k, val := range overrides {
		v.Set(k, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, v.ConfigFileUsed(), nil
}

// Exists reports whether a configuration file exists at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}

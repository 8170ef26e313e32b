// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads otco settings with a fixed precedence, highest
// first:
//  1. Command-line flags bound with Options.Flags
//  2. Environment variables (OTCO_<SECTION>_<KEY> and a few GitHub aliases)
//  3. The configuration file
//  4. Built-in defaults
//
// A .env file in the working directory is loaded into the environment
// first; it never overrides variables that are already set. Without an
// explicit path, the file is searched as otco.{toml,yaml,yml,json} in the
// working directory and then ~/.otco.{toml,yaml,yml,json}.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	otcoerrors "github.com/sirseerhq/sirseer-otco/internal/errors"
	"github.com/sirseerhq/sirseer-otco/internal/output"
)

// Extensions are the supported file formats in search order.
var Extensions = []string{"toml", "yaml", "yml", "json"}

// Options controls where configuration is read from.
type Options struct {
	// Path is an explicit config file. It must exist.
	Path string

	// Dir is searched for otco.* and .env. Defaults to the working directory.
	Dir string

	// Home is searched for .otco.*. Defaults to the user's home directory.
	Home string

	// Flags maps config keys to command-line flags. A flag only takes
	// precedence when it was set.
	Flags map[string]*pflag.Flag
}

// Source is a loaded configuration.
type Source struct {
	v    *viper.Viper
	file string
}

// Load reads configuration according to opts.
func Load(opts Options) (*Source, error) {
	if opts.Dir == "" {
		opts.Dir = "."
	}
	if opts.Home == "" {
		opts.Home, _ = os.UserHomeDir()
	}

	if err := loadDotenv(filepath.Join(opts.Dir, ".env")); err != nil {
		return nil, err
	}

	v := newViper()

	file := opts.Path
	if file == "" {
		file = Discover(opts.Dir, opts.Home)
	}
	if file != "" {
		if err := readFile(v, file); err != nil {
			return nil, err
		}
	}

	for key, flag := range opts.Flags {
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, fmt.Errorf("bind flag --%s: %w", flag.Name, err)
		}
	}

	return &Source{v: v, file: file}, nil
}

// Discover returns the first config file found in dir then home, or "".
func Discover(dir, home string) string {
	var candidates []string
	for _, ext := range Extensions {
		candidates = append(candidates, filepath.Join(dir, "otco."+ext))
	}
	if home != "" {
		for _, ext := range Extensions {
			candidates = append(candidates, filepath.Join(home, ".otco."+ext))
		}
	}
	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

func loadDotenv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix("OTCO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, aliases := range envAliases {
		names := append([]string{envName(key)}, aliases...)
		_ = v.BindEnv(append([]string{key}, names...)...)
	}
	return v
}

func envName(key string) string {
	return "OTCO_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func readFile(v *viper.Viper, path string) error {
	v.SetConfigFile(path)
	v.SetConfigType(fileType(path))
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config file %s not found: %w", path, otcoerrors.ErrInvalidInput)
		}
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// fileType derives the format from the extension, yaml when unknown.
func fileType(path string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if slices.Contains(Extensions, ext) {
		return ext
	}
	return "yaml"
}

// File returns the config file in use, or "" when none was found.
func (s *Source) File() string {
	return s.file
}

// Config decodes, expands and validates the effective configuration.
func (s *Source) Config() (*Config, error) {
	return decode(s.v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	cfg.State.Dir = expandPath(cfg.State.Dir)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Get returns the effective value of key.
func (s *Source) Get(key string) (any, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	if durationKeys[key] {
		return s.v.GetDuration(key).String(), nil
	}
	return s.v.Get(key), nil
}

// Keys lists every known key, sorted.
func Keys() []string {
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func checkKey(key string) error {
	if _, ok := defaults[key]; !ok {
		return fmt.Errorf("unknown config key %q: %w", key, otcoerrors.ErrInvalidInput)
	}
	return nil
}

// Set writes key=value into the file at path, keeping the file's other
// keys and leaving defaults out. The file is created when missing. The
// resulting configuration must validate.
func Set(path, key, value string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	typed, err := convert(key, value)
	if err != nil {
		return err
	}

	file := viper.New()
	file.SetConfigType(fileType(path))
	if _, err := os.Stat(path); err == nil {
		if err := readFile(file, path); err != nil {
			return err
		}
	}
	file.Set(key, typed)

	merged := newViper()
	if err := merged.MergeConfigMap(file.AllSettings()); err != nil {
		return fmt.Errorf("merge config: %w", err)
	}
	if _, err := decode(merged); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := file.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

// convert parses value as the type of key's default.
func convert(key, value string) (any, error) {
	bad := func(err error) error {
		return fmt.Errorf("invalid value %q for %s: %v: %w", value, key, err, otcoerrors.ErrInvalidInput)
	}
	if durationKeys[key] {
		d, err := time.ParseDuration(value)
		if err != nil {
			return nil, bad(err)
		}
		return d.String(), nil
	}
	switch defaults[key].(type) {
	case int:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, bad(err)
		}
		return n, nil
	case float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, bad(err)
		}
		return f, nil
	case bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, bad(err)
		}
		return b, nil
	}
	return value, nil
}

// WriteDefaults writes every default to path. An existing file is only
// replaced when force is set.
func WriteDefaults(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file %s already exists (use --force to overwrite): %w", path, otcoerrors.ErrInvalidInput)
	}

	v := viper.New()
	v.SetConfigType(fileType(path))
	for key, value := range defaults {
		v.Set(key, value)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), otcoerrors.ErrInvalidInput)
	}

	switch {
	case c.GitHub.APIURL == "":
		return invalid("github.api_url cannot be empty")
	case c.Pagination.PerPage < 1 || c.Pagination.PerPage > 100:
		return invalid("pagination.per_page must be between 1 and 100, got %d", c.Pagination.PerPage)
	case c.Pagination.PageCap < 1:
		return invalid("pagination.page_cap must be positive, got %d", c.Pagination.PageCap)
	case c.Pagination.MaxPages < 1:
		return invalid("pagination.max_pages must be positive, got %d", c.Pagination.MaxPages)
	case c.Pagination.PageCap > c.Pagination.MaxPages:
		return invalid("pagination.page_cap (%d) exceeds pagination.max_pages (%d)", c.Pagination.PageCap, c.Pagination.MaxPages)
	case c.Pagination.RequestsPerSecond < 0:
		return invalid("pagination.requests_per_second must not be negative")
	case c.RateLimit.MaxRetries < 0:
		return invalid("rate_limit.max_retries must not be negative, got %d", c.RateLimit.MaxRetries)
	case c.Retry.MaxAttempts < 1:
		return invalid("retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	case c.Output.MaxColumnWidth < 0:
		return invalid("output.max_column_width must not be negative")
	}
	if _, err := output.ParseFormat(c.Output.Format); err != nil {
		return fmt.Errorf("output.format: %w", err)
	}
	return nil
}

// expandPath expands a leading ~ and environment variables.
func expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return os.ExpandEnv(path)
}

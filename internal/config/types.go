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

package config

import "time"

// Config is the effective otco configuration.
type Config struct {
	GitHub     GitHubConfig     `mapstructure:"github"`
	Output     OutputConfig     `mapstructure:"output"`
	Pagination PaginationConfig `mapstructure:"pagination"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Retry      RetryConfig      `mapstructure:"retry"`
	Cache      CacheConfig      `mapstructure:"cache"`
	State      StateConfig      `mapstructure:"state"`
	Log        LogConfig        `mapstructure:"log"`
}

// GitHubConfig holds endpoints and credentials. Point APIURL and GraphQLURL
// at a GitHub Enterprise Server to use one.
type GitHubConfig struct {
	APIURL     string `mapstructure:"api_url"`
	GraphQLURL string `mapstructure:"graphql_url"`

	// TokenEnv names the environment variable holding the token.
	TokenEnv   string `mapstructure:"token_env"`
	APIVersion string `mapstructure:"api_version"`
}

type OutputConfig struct {
	Format         string `mapstructure:"format"`
	MaxColumnWidth int    `mapstructure:"max_column_width"`
}

type PaginationConfig struct {
	PerPage int `mapstructure:"per_page"`

	// PageCap bounds a fetch without --all.
	PageCap int `mapstructure:"page_cap"`

	// MaxPages bounds a fetch with --all.
	MaxPages int `mapstructure:"max_pages"`

	// RequestsPerSecond paces requests; 0 disables pacing.
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

// RateLimitConfig controls waiting on GitHub rate limits.
type RateLimitConfig struct {
	AutoWait bool          `mapstructure:"auto_wait"`
	MinWait  time.Duration `mapstructure:"min_wait"`
	MaxWait  time.Duration `mapstructure:"max_wait"`

	// MaxRetries is how many times a rate limited request is retried.
	MaxRetries int `mapstructure:"max_retries"`
}

type RetryConfig struct {
	MaxAttempts    int           `mapstructure:"max_attempts"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
	Multiplier     float64       `mapstructure:"multiplier"`
}

// CacheConfig enables the Redis response cache when RedisAddr is set.
type CacheConfig struct {
	RedisAddr string        `mapstructure:"redis_addr"`
	RedisDB   int           `mapstructure:"redis_db"`
	TTL       time.Duration `mapstructure:"ttl"`
}

type StateConfig struct {
	Dir string `mapstructure:"dir"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// defaults lists every key with its default value. A key missing here is
// unknown to get and set.
var defaults = map[string]any{
	"github.api_url":                 "https://api.github.com",
	"github.graphql_url":             "https://api.github.com/graphql",
	"github.token_env":               "GITHUB_TOKEN",
	"github.api_version":             "2022-11-28",
	"output.format":                  "table",
	"output.max_column_width":        50,
	"pagination.per_page":            30,
	"pagination.page_cap":            10,
	"pagination.max_pages":           1000,
	"pagination.requests_per_second": 0.0,
	"rate_limit.auto_wait":           true,
	"rate_limit.min_wait":            "1s",
	"rate_limit.max_wait":            "15m",
	"rate_limit.max_retries":         3,
	"retry.max_attempts":             3,
	"retry.initial_backoff":          "1s",
	"retry.max_backoff":              "30s",
	"retry.multiplier":               2.0,
	"cache.redis_addr":               "",
	"cache.redis_db":                 0,
	"cache.ttl":                      "5m",
	"state.dir":                      "~/.otco/state",
	"log.level":                      "info",
}

// durationKeys hold duration strings.
var durationKeys = map[string]bool{
	"rate_limit.min_wait":   true,
	"rate_limit.max_wait":   true,
	"retry.initial_backoff": true,
	"retry.max_backoff":     true,
	"cache.ttl":             true,
}

// envAliases are read in addition to OTCO_<SECTION>_<KEY>.
var envAliases = map[string][]string{
	"github.api_url":     {"GITHUB_API_URL"},
	"github.graphql_url": {"GITHUB_GRAPHQL_URL"},
	"output.format":      {"OTCO_OUTPUT"},
}

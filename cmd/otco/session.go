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

package main

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sirseerhq/sirseer-otco/internal/cache"
	"github.com/sirseerhq/sirseer-otco/internal/config"
	"github.com/sirseerhq/sirseer-otco/internal/fetch"
	"github.com/sirseerhq/sirseer-otco/internal/github"
)

// cacheConnectTimeout bounds the Redis reachability check.
const cacheConnectTimeout = 2 * time.Second

// session is the wired client stack of one command.
type session struct {
	cfg       *config.Config
	transport *github.Transport
	paginator *fetch.Paginator
	graphql   *github.GraphQLClient
	closers   []func() error
}

func (s *session) Close() {
	for _, c := range s.closers {
		_ = c()
	}
}

// openSession builds transport, optional cache and paginator. observer may
// be nil.
func (a *app) openSession(ctx context.Context, observer fetch.Observer) (*session, error) {
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	s := &session{cfg: cfg}

	token := a.token(cfg)
	if token == "" {
		a.logger.Warn().
			Str("env", cfg.GitHub.TokenEnv).
			Msg("no GitHub token; unauthenticated requests are limited to 60 per hour")
	}

	var base http.RoundTripper = github.NewBaseTransport()
	if cfg.Cache.RedisAddr != "" && !a.flags.noCache {
		cctx, cancel := context.WithTimeout(ctx, cacheConnectTimeout)
		manager, err := cache.Connect(cctx, cfg.Cache.RedisAddr, cfg.Cache.RedisDB)
		cancel()
		if err != nil {
			a.logger.Warn().Err(err).Str("addr", cfg.Cache.RedisAddr).Msg("response cache unavailable, continuing without it")
		} else {
			s.closers = append(s.closers, manager.Close)
			cacheLogger := a.logger.With().Str("component", "cache").Logger()
			base = cache.NewTransport(manager, cache.Options{
				Base:   base,
				TTL:    cfg.Cache.TTL,
				Logger: &cacheLogger,
			})
		}
	}

	transportLogger := a.logger.With().Str("component", "transport").Logger()
	s.transport = github.NewTransport(github.Options{
		Token:      token,
		APIVersion: cfg.GitHub.APIVersion,
		Base:       base,
		Logger:     &transportLogger,
	})

	fetchLogger := a.logger.With().Str("component", "fetch").Logger()
	s.paginator, err = fetch.NewPaginator(s.transport, fetch.Options{
		BaseURL:           cfg.GitHub.APIURL,
		Policy:            retryPolicy(cfg),
		MaxPages:          cfg.Pagination.MaxPages,
		RequestsPerSecond: cfg.Pagination.RequestsPerSecond,
		Logger:            &fetchLogger,
		Observer:          observer,
	})
	if err != nil {
		s.Close()
		return nil, err
	}

	s.graphql = github.NewGraphQLClient(graphQLURL(cfg), s.transport.HTTPClient())
	return s, nil
}

// token prefers --token over the configured environment variable.
func (a *app) token(cfg *config.Config) string {
	if a.flags.token != "" {
		return a.flags.token
	}
	if cfg.GitHub.TokenEnv == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(cfg.GitHub.TokenEnv))
}

func retryPolicy(cfg *config.Config) fetch.Policy {
	p := fetch.DefaultPolicy()
	p.MaxAttempts = cfg.Retry.MaxAttempts
	p.InitialBackoff = cfg.Retry.InitialBackoff
	p.MaxBackoff = cfg.Retry.MaxBackoff
	p.Multiplier = cfg.Retry.Multiplier
	p.AutoWait = cfg.RateLimit.AutoWait
	p.MinWait = cfg.RateLimit.MinWait
	p.MaxWait = cfg.RateLimit.MaxWait
	p.RateLimitRetries = cfg.RateLimit.MaxRetries
	return p
}

// graphQLURL follows a custom api_url when graphql_url was left at its
// default: https://host/api/v3 pairs with https://host/api/graphql.
func graphQLURL(cfg *config.Config) string {
	api := strings.TrimRight(cfg.GitHub.APIURL, "/")
	if cfg.GitHub.GraphQLURL != github.DefaultGraphQLURL || api == github.DefaultAPIURL {
		return cfg.GitHub.GraphQLURL
	}
	if strings.HasSuffix(api, "/api/v3") {
		return strings.TrimSuffix(api, "/v3") + "/graphql"
	}
	return api + "/graphql"
}

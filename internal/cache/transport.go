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

package cache

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultTTL is how long an entry is kept for revalidation.
	DefaultTTL = 5 * time.Minute

	// MaxEntryBytes bounds the body size that is cached.
	MaxEntryBytes = 8 * 1024 * 1024

	// HeaderCache is set to "revalidated" on responses served from cache.
	HeaderCache = "X-Otco-Cache"
)

// Store is the entry storage used by Transport. *Manager implements it.
type Store interface {
	Get(ctx context.Context, key Key) (*Entry, error)
	Set(ctx context.Context, key Key, entry *Entry) error
	Touch(ctx context.Context, key Key, expires time.Time) error
}

// Options configures a Transport.
type Options struct {
	// Base performs the network round trip.
	Base http.RoundTripper

	// TTL defaults to DefaultTTL.
	TTL time.Duration

	Logger *zerolog.Logger
}

// Transport is an http.RoundTripper that caches GET responses carrying an
// ETag or Last-Modified validator and revalidates them on later requests.
// Cache failures never fail a request; the request goes out uncached.
type Transport struct {
	store  Store
	base   http.RoundTripper
	ttl    time.Duration
	logger zerolog.Logger
	now    func() time.Time
}

// NewTransport wraps opts.Base with a cache backed by store.
func NewTransport(store Store, opts Options) *Transport {
	if opts.Base == nil {
		opts.Base = http.DefaultTransport
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Transport{
		store:  store,
		base:   opts.Base,
		ttl:    opts.TTL,
		logger: logger,
		now:    time.Now,
	}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet || req.Header.Get("Range") != "" {
		return t.base.RoundTrip(req)
	}

	ctx := req.Context()
	key := KeyFor(req)

	entry, err := t.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			t.logger.Debug().Err(err).Str("url", key.URL).Msg("cache lookup failed")
		}
		entry = nil
	}

	out := req
	if entry.Validatable() {
		out = req.Clone(ctx)
		addConditionalHeaders(out, entry)
	}

	resp, err := t.base.RoundTrip(out)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusNotModified && entry != nil:
		return t.fromCache(ctx, req, key, entry, resp), nil
	case resp.StatusCode == http.StatusOK && hasValidator(resp.Header):
		return t.store200(ctx, key, resp)
	}
	return resp, nil
}

// fromCache answers req with entry. Headers of the 304 replace the cached
// ones so rate limit accounting stays current.
func (t *Transport) fromCache(ctx context.Context, req *http.Request, key Key, entry *Entry, notModified *http.Response) *http.Response {
	_, _ = io.Copy(io.Discard, notModified.Body)
	_ = notModified.Body.Close()

	header := entry.Headers.Clone()
	if header == nil {
		header = http.Header{}
	}
	for name, values := range notModified.Header {
		if name == "Content-Length" {
			continue
		}
		header[name] = append([]string(nil), values...)
	}
	header.Set(HeaderCache, "revalidated")

	if err := t.store.Touch(ctx, key, t.now().Add(t.ttl)); err != nil {
		t.logger.Debug().Err(err).Str("url", key.URL).Msg("cache touch failed")
	}
	CacheHits.Inc()
	t.logger.Debug().Str("url", key.URL).Msg("cache hit")

	return &http.Response{
		Status:        http.StatusText(entry.StatusCode),
		StatusCode:    entry.StatusCode,
		Proto:         notModified.Proto,
		ProtoMajor:    notModified.ProtoMajor,
		ProtoMinor:    notModified.ProtoMinor,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(entry.Data)),
		ContentLength: int64(len(entry.Data)),
		Request:       req,
	}
}

func (t *Transport) store200(ctx context.Context, key Key, resp *http.Response) (*http.Response, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxEntryBytes+1))
	if err != nil {
		_ = resp.Body.Close()
		return nil, err
	}
	if len(body) > MaxEntryBytes {
		resp.Body = struct {
			io.Reader
			io.Closer
		}{io.MultiReader(bytes.NewReader(body), resp.Body), resp.Body}
		return resp, nil
	}
	_ = resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))

	now := t.now()
	entry := &Entry{
		Data:       body,
		ETag:       resp.Header.Get("ETag"),
		StatusCode: resp.StatusCode,
		Headers:    resp.Header.Clone(),
		CachedAt:   now,
		Expires:    now.Add(t.ttl),
	}
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if ts, err := http.ParseTime(lm); err == nil {
			entry.LastModified = ts
		}
	}

	if err := t.store.Set(ctx, key, entry); err != nil {
		t.logger.Debug().Err(err).Str("url", key.URL).Msg("cache store failed")
	}
	return resp, nil
}

func hasValidator(h http.Header) bool {
	return h.Get("ETag") != "" || h.Get("Last-Modified") != ""
}

// addConditionalHeaders prefers the ETag over Last-Modified.
func addConditionalHeaders(req *http.Request, entry *Entry) {
	if entry.ETag != "" {
		req.Header.Set("If-None-Match", entry.ETag)
		return
	}
	req.Header.Set("If-Modified-Since", entry.LastModified.UTC().Format(http.TimeFormat))
}

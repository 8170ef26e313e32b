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
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type memStore struct {
	mu      sync.Mutex
	entries map[string]*Entry
	fail    bool
}

func newMemStore() *memStore {
	return &memStore{entries: map[string]*Entry{}}
}

func (s *memStore) Get(_ context.Context, key Key) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return nil, io.ErrUnexpectedEOF
	}
	e, ok := s.entries[key.String()]
	if !ok {
		return nil, ErrCacheMiss
	}
	cp := *e
	return &cp, nil
}

func (s *memStore) Set(_ context.Context, key Key, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return io.ErrUnexpectedEOF
	}
	s.entries[key.String()] = entry
	return nil
}

func (s *memStore) Touch(_ context.Context, key Key, expires time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key.String()]; ok {
		e.Expires = expires
	}
	return nil
}

func (s *memStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// etagServer serves a fixed body with an ETag and answers 304 when the
// client presents it.
func etagServer(t *testing.T, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var full atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "4999")
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.Header().Set("X-RateLimit-Remaining", "4998")
			w.WriteHeader(http.StatusNotModified)
			return
		}
		full.Add(1)
		w.Header().Set("ETag", `"v1"`)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &full
}

func get(t *testing.T, client *http.Client, url, auth string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestTransport_Revalidates(t *testing.T) {
	srv, full := etagServer(t, `[{"id":1}]`)
	store := newMemStore()
	client := &http.Client{Transport: NewTransport(store, Options{})}

	first := get(t, client, srv.URL+"/repos/o/r/issues?page=1", "Bearer a")
	if got := readBody(t, first); got != `[{"id":1}]` {
		t.Fatalf("first body = %q", got)
	}
	if first.Header.Get(HeaderCache) != "" {
		t.Error("first response marked as cached")
	}
	if store.len() != 1 {
		t.Fatalf("store has %d entries, want 1", store.len())
	}

	second := get(t, client, srv.URL+"/repos/o/r/issues?page=1", "Bearer a")
	if second.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", second.StatusCode)
	}
	if got := readBody(t, second); got != `[{"id":1}]` {
		t.Errorf("cached body = %q", got)
	}
	if second.Header.Get(HeaderCache) != "revalidated" {
		t.Errorf("%s = %q", HeaderCache, second.Header.Get(HeaderCache))
	}
	if got := second.Header.Get("X-RateLimit-Remaining"); got != "4998" {
		t.Errorf("rate limit header = %q, want the 304's value", got)
	}
	if got := second.Header.Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want cached value", got)
	}
	if full.Load() != 1 {
		t.Errorf("server sent %d full responses, want 1", full.Load())
	}
}

func TestTransport_ScopedByCredential(t *testing.T) {
	srv, full := etagServer(t, `[]`)
	store := newMemStore()
	client := &http.Client{Transport: NewTransport(store, Options{})}

	readBody(t, get(t, client, srv.URL+"/x", "Bearer a"))
	readBody(t, get(t, client, srv.URL+"/x", "Bearer b"))

	if full.Load() != 2 {
		t.Errorf("server sent %d full responses, want 2", full.Load())
	}
	if store.len() != 2 {
		t.Errorf("store has %d entries, want 2", store.len())
	}
}

func TestTransport_SkipsUncacheable(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path == "/missing" {
			w.Header().Set("ETag", `"e"`)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = io.WriteString(w, "{}")
	}))
	defer srv.Close()

	store := newMemStore()
	client := &http.Client{Transport: NewTransport(store, Options{})}

	readBody(t, get(t, client, srv.URL+"/no-validator", ""))
	readBody(t, get(t, client, srv.URL+"/missing", ""))

	resp, err := client.Post(srv.URL+"/graphql", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatal(err)
	}
	readBody(t, resp)

	if store.len() != 0 {
		t.Errorf("store has %d entries, want 0", store.len())
	}
	if calls.Load() != 3 {
		t.Errorf("server saw %d calls, want 3", calls.Load())
	}
}

func TestTransport_StoreFailureFallsThrough(t *testing.T) {
	srv, full := etagServer(t, `[1]`)
	store := newMemStore()
	store.fail = true
	client := &http.Client{Transport: NewTransport(store, Options{})}

	for i := 0; i < 2; i++ {
		if got := readBody(t, get(t, client, srv.URL+"/x", "")); got != `[1]` {
			t.Errorf("body = %q", got)
		}
	}
	if full.Load() != 2 {
		t.Errorf("server sent %d full responses, want 2", full.Load())
	}
}

func TestTransport_LastModified(t *testing.T) {
	stamp := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	var conditional atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ims := r.Header.Get("If-Modified-Since"); ims != "" {
			conditional.Add(1)
			if ts, err := http.ParseTime(ims); err == nil && !ts.Before(stamp) {
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
		w.Header().Set("Last-Modified", stamp.Format(http.TimeFormat))
		_, _ = io.WriteString(w, "[2]")
	}))
	defer srv.Close()

	client := &http.Client{Transport: NewTransport(newMemStore(), Options{})}
	readBody(t, get(t, client, srv.URL+"/x", ""))
	resp := get(t, client, srv.URL+"/x", "")
	if got := readBody(t, resp); got != "[2]" {
		t.Errorf("body = %q", got)
	}
	if conditional.Load() != 1 {
		t.Errorf("conditional requests = %d, want 1", conditional.Load())
	}
}

func TestKeyFor(t *testing.T) {
	a, _ := http.NewRequest(http.MethodGet, "https://api.github.com/x?b=2&a=1#frag", nil)
	b, _ := http.NewRequest(http.MethodGet, "https://api.github.com/x?a=1&b=2", nil)
	if KeyFor(a) != KeyFor(b) {
		t.Errorf("query order changed the key: %v vs %v", KeyFor(a), KeyFor(b))
	}

	b.Header.Set("Authorization", "Bearer secret")
	kb := KeyFor(b)
	if kb == KeyFor(a) {
		t.Error("credential did not change the key")
	}
	if strings.Contains(kb.String(), "secret") {
		t.Errorf("key leaks the credential: %s", kb)
	}
	if !strings.HasPrefix(kb.String(), "otco:http:GET:") {
		t.Errorf("key = %s", kb)
	}
}

func TestEntry(t *testing.T) {
	var nilEntry *Entry
	if nilEntry.Validatable() {
		t.Error("nil entry is validatable")
	}

	e := &Entry{Expires: time.Now().Add(-time.Second)}
	if !e.IsExpired() || e.TTL() != 0 {
		t.Errorf("expired entry: IsExpired=%v TTL=%v", e.IsExpired(), e.TTL())
	}
	e.Expires = time.Now().Add(time.Minute)
	if e.IsExpired() || e.TTL() <= 0 {
		t.Errorf("live entry: IsExpired=%v TTL=%v", e.IsExpired(), e.TTL())
	}
	if e.Validatable() {
		t.Error("entry without validators is validatable")
	}
	e.ETag = `"x"`
	if !e.Validatable() {
		t.Error("entry with ETag not validatable")
	}
}

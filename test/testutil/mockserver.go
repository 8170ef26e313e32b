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

// Package testutil provides a fake GitHub REST API and helpers for running
// the otco binary in tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// Route is one list endpoint served by GitHubServer.
type Route struct {
	Items []map[string]any

	// ListField wraps each page as {"total_count": n, ListField: [...]}.
	ListField string

	// NoLink omits Link headers so clients must infer the next page.
	NoLink bool

	// Cursor pages with an opaque "after" parameter instead of page numbers.
	Cursor bool
}

// Failure is a scripted error response, consumed one per request.
type Failure struct {
	// Path limits the failure to requests for this path. Empty matches any.
	Path string

	Status     int
	RetryAfter string
	Body       string

	// Exhausted sends X-RateLimit-Remaining: 0 with the failure.
	Exhausted bool
}

// RecordedRequest is what the server saw for one request.
type RecordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
}

// GitHubServer serves list endpoints with GitHub style page/per_page
// pagination, Link headers and rate limit headers.
type GitHubServer struct {
	*httptest.Server

	mu       sync.Mutex
	routes   map[string]Route
	objects  map[string]any
	failures []Failure
	requests []RecordedRequest
	total    int

	hits atomic.Int32
}

// NewGitHubServer starts a server that is closed when the test ends.
func NewGitHubServer(t *testing.T) *GitHubServer {
	t.Helper()
	s := &GitHubServer{
		routes:  make(map[string]Route),
		objects: make(map[string]any),
		total:   -1,
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Handle serves route at path, for example "/repos/octo/hello/issues".
func (s *GitHubServer) Handle(path string, route Route) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[path] = route
}

// HandleObject serves body as a single JSON document at path.
func (s *GitHubServer) HandleObject(path string, body any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[path] = body
}

// FailNext queues failures for the next requests, in order.
func (s *GitHubServer) FailNext(failures ...Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failures...)
}

// SetTotalCount makes /graphql answer count queries with n.
func (s *GitHubServer) SetTotalCount(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total = n
}

// RequestCount returns the number of requests served, failures included.
func (s *GitHubServer) RequestCount() int {
	return int(s.hits.Load())
}

// Requests returns a copy of every recorded request.
func (s *GitHubServer) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordedRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// RequestsTo returns the recorded requests for path.
func (s *GitHubServer) RequestsTo(path string) []RecordedRequest {
	var out []RecordedRequest
	for _, r := range s.Requests() {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func (s *GitHubServer) serve(w http.ResponseWriter, r *http.Request) {
	s.hits.Add(1)

	s.mu.Lock()
	s.requests = append(s.requests, RecordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
	})
	var failure *Failure
	for i, f := range s.failures {
		if f.Path == "" || f.Path == r.URL.Path {
			s.failures = append(s.failures[:i], s.failures[i+1:]...)
			failure = &f
			break
		}
	}
	route, isList := s.routes[r.URL.Path]
	object, isObject := s.objects[r.URL.Path]
	total := s.total
	s.mu.Unlock()

	remaining := 4999
	if failure != nil && failure.Exhausted {
		remaining = 0
	}
	setRateHeaders(w, remaining)

	switch {
	case failure != nil:
		writeFailure(w, *failure)
	case r.URL.Path == "/graphql":
		s.serveCount(w, r, total)
	case isObject:
		writeJSON(w, http.StatusOK, object)
	case isList:
		s.servePage(w, r, route)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{
			"message":           "Not Found",
			"documentation_url": "https://docs.github.com/rest",
		})
	}
}

func (s *GitHubServer) servePage(w http.ResponseWriter, r *http.Request, route Route) {
	q := r.URL.Query()
	perPage := atoiDefault(q.Get("per_page"), 30)
	if perPage > 100 {
		perPage = 100
	}

	var start int
	if route.Cursor {
		start = atoiDefault(q.Get("after"), 0)
	} else {
		start = (atoiDefault(q.Get("page"), 1) - 1) * perPage
	}
	if start > len(route.Items) {
		start = len(route.Items)
	}
	end := start + perPage
	if end > len(route.Items) {
		end = len(route.Items)
	}
	items := route.Items[start:end]
	if items == nil {
		items = []map[string]any{}
	}

	if !route.NoLink {
		if link := s.link(r, route, start, end, perPage); link != "" {
			w.Header().Set("Link", link)
		}
	}

	if route.ListField != "" {
		writeJSON(w, http.StatusOK, map[string]any{
			"total_count":   len(route.Items),
			route.ListField: items,
		})
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// link builds the Link header for the page ending at end.
func (s *GitHubServer) link(r *http.Request, route Route, start, end, perPage int) string {
	pageURL := func(mutate func(url.Values)) string {
		q := r.URL.Query()
		mutate(q)
		return fmt.Sprintf("%s%s?%s", s.URL, r.URL.Path, q.Encode())
	}

	var parts []string
	if end < len(route.Items) {
		next := pageURL(func(q url.Values) {
			if route.Cursor {
				q.Set("after", strconv.Itoa(end))
			} else {
				q.Set("page", strconv.Itoa(end/perPage+1))
			}
		})
		parts = append(parts, fmt.Sprintf(`<%s>; rel="next"`, next))
	}
	if !route.Cursor && len(route.Items) > 0 {
		last := (len(route.Items) + perPage - 1) / perPage
		parts = append(parts, fmt.Sprintf(`<%s>; rel="last"`, pageURL(func(q url.Values) {
			q.Set("page", strconv.Itoa(last))
		})))
		if start > 0 {
			parts = append(parts, fmt.Sprintf(`<%s>; rel="first"`, pageURL(func(q url.Values) {
				q.Set("page", "1")
			})))
		}
	}
	return strings.Join(parts, ", ")
}

// serveCount answers the GraphQL totalCount queries for issues and pull
// requests.
func (s *GitHubServer) serveCount(w http.ResponseWriter, r *http.Request, total int) {
	if total < 0 {
		writeJSON(w, http.StatusOK, map[string]any{
			"errors": []map[string]string{{"message": "count not configured"}},
		})
		return
	}
	body, _ := io.ReadAll(r.Body)
	field := "issues"
	if strings.Contains(string(body), "pullRequests") {
		field = "pullRequests"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"repository": map[string]any{
				field: map[string]int{"totalCount": total},
			},
		},
	})
}

func setRateHeaders(w http.ResponseWriter, remaining int) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", "5000")
	h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	h.Set("X-RateLimit-Used", strconv.Itoa(5000-remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10))
	h.Set("X-RateLimit-Resource", "core")
}

func writeFailure(w http.ResponseWriter, f Failure) {
	if f.RetryAfter != "" {
		w.Header().Set("Retry-After", f.RetryAfter)
	}
	msg := f.Body
	if msg == "" {
		msg = http.StatusText(f.Status)
	}
	writeJSON(w, f.Status, map[string]string{"message": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || (n < 1 && def > 0) {
		return def
	}
	return n
}

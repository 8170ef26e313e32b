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

package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	otcoerrors "github.com/sirseerhq/sirseer-otco/internal/errors"
	"github.com/sirseerhq/sirseer-otco/internal/github"
	"github.com/sirseerhq/sirseer-otco/internal/record"
)

// pagedServer serves pages[i] at ?page=i+1 with GitHub style Link headers.
func pagedServer(t *testing.T, pages [][]map[string]any) (*httptest.Server, *int32) {
	t.Helper()
	var requests int32

	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		n, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if n < 1 || n > len(pages) {
			n = len(pages) + 1
		}

		if n < len(pages) {
			q := r.URL.Query()
			q.Set("page", strconv.Itoa(n+1))
			next := server.URL + r.URL.Path + "?" + q.Encode()
			w.Header().Set("Link", fmt.Sprintf(`<%s>; rel="next"`, next))
		} else {
			w.Header().Set("Link", fmt.Sprintf(`<%s%s?page=1>; rel="first"`, server.URL, r.URL.Path))
		}

		body := []map[string]any{}
		if n <= len(pages) {
			body = pages[n-1]
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(server.Close)
	return server, &requests
}

// endlessServer always returns a full page and a next link.
func endlessServer(t *testing.T) (*httptest.Server, *int32) {
	t.Helper()
	var requests int32

	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		n, _ := strconv.Atoi(r.URL.Query().Get("page"))
		w.Header().Set("Link", fmt.Sprintf(`<%s%s?page=%d>; rel="next"`, server.URL, r.URL.Path, n+1))
		fmt.Fprintf(w, `[{"page":%d}]`, n)
	}))
	t.Cleanup(server.Close)
	return server, &requests
}

func newTestPaginator(t *testing.T, baseURL string, clock Clock, configure ...func(*Options)) *Paginator {
	t.Helper()
	opts := Options{
		BaseURL: baseURL,
		Policy:  DefaultPolicy(),
		Clock:   clock,
	}
	for _, fn := range configure {
		fn(&opts)
	}
	p, err := NewPaginator(github.NewTransport(github.Options{Token: "test-token"}), opts)
	if err != nil {
		t.Fatalf("NewPaginator() error = %v", err)
	}
	return p
}

func mustDescriptor(t *testing.T, path string, opts ...Option) Descriptor {
	t.Helper()
	d, err := NewDescriptor(path, nil, opts...)
	if err != nil {
		t.Fatalf("NewDescriptor() error = %v", err)
	}
	return d
}

func TestPaginator_FetchAllThreePages(t *testing.T) {
	server, requests := pagedServer(t, [][]map[string]any{
		{{"id": 1}, {"id": 2}},
		{{"id": 3}, {"id": 4}},
		{},
	})
	p := newTestPaginator(t, server.URL, newFakeClock())

	rs, truncated, err := p.FetchAll(context.Background(), mustDescriptor(t, "/repos/o/r/issues", WithFetchAll(true)))
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if rs.Len() != 4 {
		t.Errorf("records = %d, want 4", rs.Len())
	}
	if truncated {
		t.Error("truncated = true, want false")
	}
	if got := atomic.LoadInt32(requests); got != 3 {
		t.Errorf("requests = %d, want 3", got)
	}

	for i, r := range rs.Records {
		v, _ := r.Get("id")
		if v.(json.Number).String() != strconv.Itoa(i+1) {
			t.Errorf("record %d id = %v, order not preserved", i, v)
		}
	}
}

func TestPaginator_PageCap(t *testing.T) {
	for _, pageCap := range []int{1, 3, 5} {
		t.Run(fmt.Sprintf("cap %d", pageCap), func(t *testing.T) {
			server, requests := endlessServer(t)
			p := newTestPaginator(t, server.URL, newFakeClock())

			rs, truncated, err := p.FetchAll(context.Background(), mustDescriptor(t, "/orgs/acme/repos", WithPageCap(pageCap)))
			if err != nil {
				t.Fatalf("FetchAll() error = %v", err)
			}
			if got := atomic.LoadInt32(requests); got > int32(pageCap) {
				t.Errorf("requests = %d, want at most %d", got, pageCap)
			}
			if rs.Len() != pageCap {
				t.Errorf("records = %d, want %d", rs.Len(), pageCap)
			}
			if !truncated {
				t.Error("truncated = false, want true")
			}
		})
	}
}

func TestPaginator_CapOnLastPageIsNotTruncated(t *testing.T) {
	server, _ := pagedServer(t, [][]map[string]any{
		{{"id": 1}},
		{{"id": 2}},
	})
	p := newTestPaginator(t, server.URL, newFakeClock())

	rs, truncated, err := p.FetchAll(context.Background(), mustDescriptor(t, "/x", WithPageCap(2)))
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if truncated {
		t.Error("truncated = true, but no next page existed")
	}
	if rs.Len() != 2 {
		t.Errorf("records = %d, want 2", rs.Len())
	}
}

func TestPaginator_FirstRequest(t *testing.T) {
	var got url.Values
	var path, auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		path = r.URL.Path
		auth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	p := newTestPaginator(t, server.URL+"/api/v3/", newFakeClock())
	d, err := NewDescriptor("/repos/o/r/issues", url.Values{"state": {"closed"}, "labels": {"bug,ui"}}, WithPageSize(50))
	if err != nil {
		t.Fatalf("NewDescriptor() error = %v", err)
	}
	if _, _, err := p.FetchAll(context.Background(), d); err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}

	if path != "/api/v3/repos/o/r/issues" {
		t.Errorf("path = %q", path)
	}
	if got.Get("page") != "1" || got.Get("per_page") != "50" {
		t.Errorf("paging params = %v", got)
	}
	if got.Get("state") != "closed" || got.Get("labels") != "bug,ui" {
		t.Errorf("filters = %v", got)
	}
	if auth != "Bearer test-token" {
		t.Errorf("Authorization = %q", auth)
	}
}

func TestPaginator_OffsetFallback(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		switch r.URL.Query().Get("page") {
		case "1":
			_, _ = w.Write([]byte(`[{"n":1},{"n":2}]`))
		case "2":
			_, _ = w.Write([]byte(`[{"n":3},{"n":4}]`))
		default:
			_, _ = w.Write([]byte(`[{"n":5}]`))
		}
	}))
	defer server.Close()

	p := newTestPaginator(t, server.URL, newFakeClock())
	rs, _, err := p.FetchAll(context.Background(), mustDescriptor(t, "/x", WithPageSize(2), WithFetchAll(true)))
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if rs.Len() != 5 {
		t.Errorf("records = %d, want 5", rs.Len())
	}
	if atomic.LoadInt32(&requests) != 3 {
		t.Errorf("requests = %d, want 3", atomic.LoadInt32(&requests))
	}
}

func TestPaginator_EmptyPageStopsDespiteNextLink(t *testing.T) {
	server, requests := pagedServer(t, [][]map[string]any{{}, {{"id": 1}}})
	p := newTestPaginator(t, server.URL, newFakeClock())

	rs, truncated, err := p.FetchAll(context.Background(), mustDescriptor(t, "/x", WithFetchAll(true)))
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if rs.Len() != 0 || truncated || atomic.LoadInt32(requests) != 1 {
		t.Errorf("records = %d truncated = %v requests = %d", rs.Len(), truncated, atomic.LoadInt32(requests))
	}
}

func TestPaginator_WrapperObject(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"total_count":2,"workflow_runs":[{"id":10},{"id":11}]}`))
	}))
	defer server.Close()

	p := newTestPaginator(t, server.URL, newFakeClock())
	var pages []*Page
	_, err := p.Walk(context.Background(), mustDescriptor(t, "/repos/o/r/actions/runs", WithListField("workflow_runs")), func(page *Page) error {
		pages = append(pages, page)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("pages = %d, want 1", len(pages))
	}
	if pages[0].TotalCount != 2 || len(pages[0].Records) != 2 || pages[0].Number != 1 {
		t.Errorf("page = %+v", pages[0])
	}
}

func TestPaginator_SecondaryRateLimitExhausted(t *testing.T) {
	clock := newFakeClock()
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.Header().Set(github.HeaderRateRemaining, "0")
		w.Header().Set(github.HeaderRateReset, strconv.FormatInt(clock.Now().Add(2*time.Second).Unix(), 10))
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"API rate limit exceeded"}`))
	}))
	defer server.Close()

	p := newTestPaginator(t, server.URL, clock)
	_, _, err := p.FetchAll(context.Background(), mustDescriptor(t, "/x"))

	var exceeded *otcoerrors.RateLimitExceeded
	if !errors.As(err, &exceeded) {
		t.Fatalf("error = %v, want *RateLimitExceeded", err)
	}
	if exceeded.Attempts != 4 {
		t.Errorf("Attempts = %d, want 4", exceeded.Attempts)
	}
	if exceeded.Reset.IsZero() {
		t.Error("Reset should be reported")
	}
	if atomic.LoadInt32(&requests) != 4 {
		t.Errorf("requests = %d, want 4", atomic.LoadInt32(&requests))
	}

	// One request and three retries, each after a wait for the reset.
	sleeps := clock.Sleeps()
	if len(sleeps) != 3 {
		t.Fatalf("sleeps = %v, want 3", sleeps)
	}
	for _, s := range sleeps {
		if s != 2*time.Second {
			t.Errorf("sleep = %v, want 2s", s)
		}
	}
}

func TestPaginator_RateLimitRecovers(t *testing.T) {
	clock := newFakeClock()
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requests, 1) == 1 {
			w.Header().Set(github.HeaderRetryAfter, "5")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`[{"id":1}]`))
	}))
	defer server.Close()

	p := newTestPaginator(t, server.URL, clock)
	rs, _, err := p.FetchAll(context.Background(), mustDescriptor(t, "/x"))
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if rs.Len() != 1 {
		t.Errorf("records = %d, want 1", rs.Len())
	}
	if sleeps := clock.Sleeps(); len(sleeps) != 1 || sleeps[0] != 5*time.Second {
		t.Errorf("sleeps = %v, want [5s]", sleeps)
	}
}

func TestPaginator_RateLimitWaitTooLong(t *testing.T) {
	clock := newFakeClock()
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.Header().Set(github.HeaderRetryAfter, "3600")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	p := newTestPaginator(t, server.URL, clock)
	_, _, err := p.FetchAll(context.Background(), mustDescriptor(t, "/x"))
	if !errors.Is(err, otcoerrors.ErrRateLimit) {
		t.Fatalf("error = %v, want ErrRateLimit", err)
	}
	if atomic.LoadInt32(&requests) != 1 || len(clock.Sleeps()) != 0 {
		t.Errorf("requests = %d sleeps = %v, want one request and no sleep", atomic.LoadInt32(&requests), clock.Sleeps())
	}
}

func TestPaginator_PermissionDenied(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.Header().Set(github.HeaderRateRemaining, "4999")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"Resource not accessible by integration"}`))
	}))
	defer server.Close()

	p := newTestPaginator(t, server.URL, newFakeClock())
	_, _, err := p.FetchAll(context.Background(), mustDescriptor(t, "/x"))

	var rejected *otcoerrors.RequestRejected
	if !errors.As(err, &rejected) {
		t.Fatalf("error = %v, want *RequestRejected", err)
	}
	if rejected.Status != http.StatusForbidden || rejected.Body != "Resource not accessible by integration" {
		t.Errorf("rejected = %+v", rejected)
	}
	if atomic.LoadInt32(&requests) != 1 {
		t.Errorf("requests = %d, want 1", atomic.LoadInt32(&requests))
	}
}

func TestPaginator_NotFoundNotRetried(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	}))
	defer server.Close()

	p := newTestPaginator(t, server.URL, newFakeClock())
	_, _, err := p.FetchAll(context.Background(), mustDescriptor(t, "/repos/o/missing/issues"))
	if !errors.Is(err, otcoerrors.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
	if atomic.LoadInt32(&requests) != 1 {
		t.Errorf("requests = %d, want 1", atomic.LoadInt32(&requests))
	}
}

func TestPaginator_RedirectToOtherHostRejected(t *testing.T) {
	var otherAuth atomic.Value
	other := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		otherAuth.Store(r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[]`))
	}))
	defer other.Close()
	target := strings.Replace(other.URL, "127.0.0.1", "localhost", 1) + "/collect"

	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		http.Redirect(w, r, target, http.StatusFound)
	}))
	defer server.Close()

	p := newTestPaginator(t, server.URL, newFakeClock())
	_, _, err := p.FetchAll(context.Background(), mustDescriptor(t, "/repos/o/r/issues"))

	var rejected *otcoerrors.RequestRejected
	if !errors.As(err, &rejected) || rejected.Status != http.StatusFound {
		t.Fatalf("error = %v, want RequestRejected with 302", err)
	}
	if atomic.LoadInt32(&requests) != 1 {
		t.Errorf("requests = %d, want 1", atomic.LoadInt32(&requests))
	}
	if v := otherAuth.Load(); v != nil {
		t.Errorf("other host was contacted with Authorization %q", v)
	}
}

func TestPaginator_ServerErrors(t *testing.T) {
	clock := newFakeClock()
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	p := newTestPaginator(t, server.URL, clock)
	_, _, err := p.FetchAll(context.Background(), mustDescriptor(t, "/x"))

	var unavailable *otcoerrors.UpstreamUnavailable
	if !errors.As(err, &unavailable) {
		t.Fatalf("error = %v, want *UpstreamUnavailable", err)
	}
	if unavailable.Status != http.StatusBadGateway || unavailable.Attempts != 3 {
		t.Errorf("unavailable = %+v", unavailable)
	}
	if atomic.LoadInt32(&requests) != 3 {
		t.Errorf("requests = %d, want 3", atomic.LoadInt32(&requests))
	}

	sleeps := clock.Sleeps()
	if len(sleeps) != 2 {
		t.Fatalf("sleeps = %v, want 2", sleeps)
	}
	if sleeps[0] < 900*time.Millisecond || sleeps[0] > 1100*time.Millisecond {
		t.Errorf("first backoff = %v, want about 1s", sleeps[0])
	}
	if sleeps[1] < 1800*time.Millisecond || sleeps[1] > 2200*time.Millisecond {
		t.Errorf("second backoff = %v, want about 2s", sleeps[1])
	}
}

func TestPaginator_ServerErrorRecovers(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requests, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`[{"id":1}]`))
	}))
	defer server.Close()

	p := newTestPaginator(t, server.URL, newFakeClock())
	rs, _, err := p.FetchAll(context.Background(), mustDescriptor(t, "/x"))
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if rs.Len() != 1 {
		t.Errorf("records = %d, want 1", rs.Len())
	}
}

func TestPaginator_Overrun(t *testing.T) {
	server, requests := endlessServer(t)
	p := newTestPaginator(t, server.URL, newFakeClock(), func(o *Options) { o.MaxPages = 4 })

	_, _, err := p.FetchAll(context.Background(), mustDescriptor(t, "/x", WithFetchAll(true)))

	var overrun *otcoerrors.PaginationOverrun
	if !errors.As(err, &overrun) {
		t.Fatalf("error = %v, want *PaginationOverrun", err)
	}
	if overrun.Ceiling != 4 || overrun.Records != 4 || overrun.Path != "/x" {
		t.Errorf("overrun = %+v", overrun)
	}
	if atomic.LoadInt32(requests) != 4 {
		t.Errorf("requests = %d, want 4", atomic.LoadInt32(requests))
	}
}

func TestPaginator_CapClampedToCeiling(t *testing.T) {
	server, requests := endlessServer(t)
	p := newTestPaginator(t, server.URL, newFakeClock(), func(o *Options) { o.MaxPages = 2 })

	d := mustDescriptor(t, "/x", WithPageCap(50))
	_, truncated, err := p.FetchAll(context.Background(), d)
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if !truncated || atomic.LoadInt32(requests) != 2 {
		t.Errorf("truncated = %v requests = %d", truncated, atomic.LoadInt32(requests))
	}
	if got := p.PageCap(d); got != 2 {
		t.Errorf("PageCap() = %d, want 2", got)
	}
	if got := p.PageCap(mustDescriptor(t, "/x", WithPageCap(1))); got != 1 {
		t.Errorf("PageCap() below ceiling = %d, want 1", got)
	}
}

func TestPaginator_CrossHostNextLinkRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Link", `<https://evil.example.com/x?page=2>; rel="next"`)
		_, _ = w.Write([]byte(`[{"id":1}]`))
	}))
	defer server.Close()

	p := newTestPaginator(t, server.URL, newFakeClock())
	_, _, err := p.FetchAll(context.Background(), mustDescriptor(t, "/x", WithFetchAll(true)))
	if err == nil {
		t.Fatal("expected error for cross-host next link")
	}
}

func TestPaginator_PrimaryQuotaWait(t *testing.T) {
	clock := newFakeClock()
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "1" {
			w.Header().Set(github.HeaderRateRemaining, "0")
			w.Header().Set(github.HeaderRateReset, strconv.FormatInt(clock.Now().Add(10*time.Second).Unix(), 10))
			w.Header().Set("Link", fmt.Sprintf(`<%s/x?page=2>; rel="next"`, server.URL))
			_, _ = w.Write([]byte(`[{"id":1}]`))
			return
		}
		_, _ = w.Write([]byte(`[{"id":2}]`))
	}))
	defer server.Close()

	p := newTestPaginator(t, server.URL, clock)
	rs, _, err := p.FetchAll(context.Background(), mustDescriptor(t, "/x", WithFetchAll(true)))
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if rs.Len() != 2 {
		t.Errorf("records = %d, want 2", rs.Len())
	}
	if sleeps := clock.Sleeps(); len(sleeps) != 1 || sleeps[0] != 10*time.Second {
		t.Errorf("sleeps = %v, want [10s]", sleeps)
	}
}

func TestPaginator_CancelDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(github.HeaderRetryAfter, "60")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	p := newTestPaginator(t, server.URL, RealClock())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, _, err := p.FetchAll(ctx, mustDescriptor(t, "/x"))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("cancellation did not interrupt the backoff sleep")
	}
}

func TestPaginator_WalkCallbackError(t *testing.T) {
	server, requests := endlessServer(t)
	p := newTestPaginator(t, server.URL, newFakeClock())

	stop := errors.New("stop")
	calls := 0
	_, err := p.Walk(context.Background(), mustDescriptor(t, "/x", WithFetchAll(true)), func(*Page) error {
		calls++
		if calls == 2 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) {
		t.Errorf("error = %v, want callback error", err)
	}
	if atomic.LoadInt32(requests) != 2 {
		t.Errorf("requests = %d, want 2", atomic.LoadInt32(requests))
	}
}

func TestPaginator_FetchOne(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/user" || r.URL.RawQuery != "" {
			t.Errorf("unexpected request %s", r.URL)
		}
		w.Header().Set(github.HeaderRateRemaining, "4321")
		_, _ = w.Write([]byte(`{"login":"octocat","id":1}`))
	}))
	defer server.Close()

	p := newTestPaginator(t, server.URL, newFakeClock())
	v, rate, err := p.FetchOne(context.Background(), "/user", nil)
	if err != nil {
		t.Fatalf("FetchOne() error = %v", err)
	}
	if rate.Remaining != 4321 {
		t.Errorf("Remaining = %d", rate.Remaining)
	}
	user, ok := v.(*record.Record)
	if !ok {
		t.Fatalf("value type = %T, want *record.Record", v)
	}
	if login, _ := user.Get("login"); login != "octocat" {
		t.Errorf("login = %v", login)
	}
}

// scriptedTransport replays errors without a network.
type scriptedTransport struct {
	mu    sync.Mutex
	errs  []error
	calls int
}

func (s *scriptedTransport) Send(ctx context.Context, req *github.Request) (*github.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return nil, err
	}
	return &github.Response{StatusCode: 200, Header: http.Header{}, Body: []byte(`[{"ok":true}]`)}, nil
}

func TestPaginator_TransportErrors(t *testing.T) {
	refused := &otcoerrors.TransportError{Kind: otcoerrors.KindConnection, Message: "connection refused", URL: "u", Attempts: 1}

	t.Run("recovers", func(t *testing.T) {
		tr := &scriptedTransport{errs: []error{refused}}
		p, err := NewPaginator(tr, Options{Clock: newFakeClock()})
		if err != nil {
			t.Fatalf("NewPaginator() error = %v", err)
		}
		rs, _, err := p.FetchAll(context.Background(), mustDescriptor(t, "/x"))
		if err != nil {
			t.Fatalf("FetchAll() error = %v", err)
		}
		if rs.Len() != 1 || tr.calls != 2 {
			t.Errorf("records = %d calls = %d", rs.Len(), tr.calls)
		}
	})

	t.Run("exhausted", func(t *testing.T) {
		tr := &scriptedTransport{errs: []error{refused, refused, refused, refused}}
		p, err := NewPaginator(tr, Options{Clock: newFakeClock(), Policy: DefaultPolicy()})
		if err != nil {
			t.Fatalf("NewPaginator() error = %v", err)
		}
		_, _, err = p.FetchAll(context.Background(), mustDescriptor(t, "/x"))

		var te *otcoerrors.TransportError
		if !errors.As(err, &te) {
			t.Fatalf("error = %v, want *TransportError", err)
		}
		if te.Attempts != 3 || tr.calls != 3 {
			t.Errorf("Attempts = %d calls = %d, want 3", te.Attempts, tr.calls)
		}
		if !errors.Is(err, otcoerrors.ErrNetworkFailure) {
			t.Error("expected ErrNetworkFailure")
		}
	})
}

type recordingObserver struct {
	sent    int
	retries []string
	pages   int
}

func (o *recordingObserver) RequestSent(string, int) { o.sent++ }
func (o *recordingObserver) RetryScheduled(r string, _ int, _ time.Duration) {
	o.retries = append(o.retries, r)
}
func (o *recordingObserver) PageFetched(*Page) { o.pages++ }

func TestPaginator_Observer(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requests, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`[{"id":1}]`))
	}))
	defer server.Close()

	obs := &recordingObserver{}
	p := newTestPaginator(t, server.URL, newFakeClock(), func(o *Options) { o.Observer = obs })
	if _, _, err := p.FetchAll(context.Background(), mustDescriptor(t, "/x")); err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if obs.sent != 2 || obs.pages != 1 || len(obs.retries) != 1 || obs.retries[0] != reasonServerError {
		t.Errorf("observer = %+v", obs)
	}
}

func TestNewPaginator_InvalidBaseURL(t *testing.T) {
	for _, raw := range []string{"not a url", "api.github.com", "://x"} {
		if _, err := NewPaginator(&scriptedTransport{}, Options{BaseURL: raw}); !errors.Is(err, otcoerrors.ErrInvalidInput) {
			t.Errorf("NewPaginator(%q) error = %v, want ErrInvalidInput", raw, err)
		}
	}
	if _, err := NewPaginator(nil, Options{}); err == nil {
		t.Error("expected error for nil transport")
	}
}

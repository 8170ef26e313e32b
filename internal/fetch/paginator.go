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
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	otcoerrors "github.com/sirseerhq/sirseer-otco/internal/errors"
	"github.com/sirseerhq/sirseer-otco/internal/github"
	"github.com/sirseerhq/sirseer-otco/internal/metrics"
	"github.com/sirseerhq/sirseer-otco/internal/record"
	"golang.org/x/time/rate"
)

// Transport performs one HTTP exchange. *github.Transport implements it.
type Transport interface {
	Send(ctx context.Context, req *github.Request) (*github.Response, error)
}

// Observer is told about each step of a walk. metadata.Tracker implements it.
type Observer interface {
	RequestSent(url string, attempt int)
	RetryScheduled(reason string, attempt int, wait time.Duration)
	PageFetched(page *Page)
}

// Options configures a Paginator.
type Options struct {
	// BaseURL is the API root, e.g. https://api.github.com or
	// https://ghe.example.com/api/v3.
	BaseURL string

	Policy Policy

	// MaxPages is the hard ceiling for fetch-all walks.
	MaxPages int

	// RequestsPerSecond paces requests when positive.
	RequestsPerSecond float64

	Clock    Clock
	Logger   *zerolog.Logger
	Observer Observer
}

// Paginator drives a Transport across the pages of a list endpoint. It is
// strictly sequential: one request is in flight at a time.
type Paginator struct {
	transport Transport
	base      *url.URL
	policy    Policy
	maxPages  int
	limiter   *rate.Limiter
	clock     Clock
	logger    zerolog.Logger
	observer  Observer
}

// NewPaginator validates opts and returns a Paginator sending through t.
func NewPaginator(t Transport, opts Options) (*Paginator, error) {
	if t == nil {
		return nil, fmt.Errorf("transport is required: %w", otcoerrors.ErrInvalidInput)
	}

	raw := opts.BaseURL
	if raw == "" {
		raw = github.DefaultAPIURL
	}
	base, err := url.Parse(raw)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid API URL %q: %w", raw, otcoerrors.ErrInvalidInput)
	}
	base.RawQuery = ""
	base.Fragment = ""

	p := &Paginator{
		transport: t,
		base:      base,
		policy:    opts.Policy.normalized(),
		maxPages:  opts.MaxPages,
		clock:     opts.Clock,
		logger:    zerolog.Nop(),
		observer:  opts.Observer,
	}
	if opts.Logger != nil {
		p.logger = *opts.Logger
	}
	if p.maxPages <= 0 {
		p.maxPages = DefaultMaxPages
	}
	if p.clock == nil {
		p.clock = RealClock()
	}
	if p.observer == nil {
		p.observer = nopObserver{}
	}
	if opts.RequestsPerSecond > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return p, nil
}

// FetchAll walks d and returns every record read. truncated is true when the
// page cap stopped the walk while more pages existed.
func (p *Paginator) FetchAll(ctx context.Context, d Descriptor) (*record.RecordSet, bool, error) {
	rs := record.NewSet()
	truncated, err := p.Walk(ctx, d, func(page *Page) error {
		for _, r := range page.Records {
			rs.Append(r)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return rs, truncated, nil
}

// PageCap returns the cap Walk applies to d: its own cap, clamped to the
// MaxPages ceiling.
func (p *Paginator) PageCap(d Descriptor) int {
	if d.PageCap() > p.maxPages {
		return p.maxPages
	}
	return d.PageCap()
}

// Walk fetches the pages of d in order and hands each to fn. An error from
// fn stops the walk and is returned as is.
func (p *Paginator) Walk(ctx context.Context, d Descriptor, fn func(*Page) error) (truncated bool, err error) {
	pageCap := p.PageCap(d)

	current := p.firstURL(d)
	logger := p.logger.With().Str("path", d.Path()).Logger()

	pages, records := 0, 0
	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		resp, err := p.send(ctx, current.String())
		if err != nil {
			return false, err
		}

		items, total, err := decodePage(resp.Body, d.ListField())
		if err != nil {
			return false, fmt.Errorf("%s: %w", current.Redacted(), err)
		}

		next, err := p.nextURL(resp, current, len(items), d)
		if err != nil {
			return false, err
		}

		pages++
		records += len(items)
		page := &Page{
			Number:     pages,
			URL:        current.String(),
			Records:    items,
			TotalCount: total,
			Rate:       resp.RateState(),
		}
		if next != nil {
			page.NextURL = next.String()
		}

		metrics.PagesTotal.Inc()
		metrics.RecordsTotal.Add(float64(len(items)))
		if page.Rate.HasRemaining {
			metrics.RateLimitRemaining.Set(float64(page.Rate.Remaining))
		}
		p.observer.PageFetched(page)
		logger.Debug().
			Int("page", pages).
			Int("records", len(items)).
			Bool("has_next", next != nil).
			Msg("page decoded")

		if err := fn(page); err != nil {
			return false, err
		}

		if next == nil || len(items) == 0 {
			return false, nil
		}
		if !d.FetchAll() && pages >= pageCap {
			metrics.TruncatedTotal.Inc()
			logger.Warn().Int("page_cap", pageCap).Int("records", records).Msg("page cap reached, result is partial")
			return true, nil
		}
		if d.FetchAll() && pages >= p.maxPages {
			return false, &otcoerrors.PaginationOverrun{Path: d.Path(), Ceiling: p.maxPages, Records: records}
		}

		if err := p.waitForQuota(ctx, page.Rate); err != nil {
			return false, err
		}
		current = next
	}
}

// FetchOne sends a single GET for a non-list endpoint and returns the
// decoded body.
func (p *Paginator) FetchOne(ctx context.Context, path string, query url.Values) (any, github.RateState, error) {
	u := p.resolve(path)
	u.RawQuery = query.Encode()

	resp, err := p.send(ctx, u.String())
	if err != nil {
		return nil, github.RateState{}, err
	}
	v, err := record.ParseJSON(resp.Body)
	if err != nil {
		return nil, resp.RateState(), fmt.Errorf("%s: decode response body: %w", u.Redacted(), err)
	}
	return v, resp.RateState(), nil
}

// send runs the retry state machine for one URL.
func (p *Paginator) send(ctx context.Context, rawURL string) (*github.Response, error) {
	r := newRetrier(p.policy, p.clock, rawURL)
	st := r.start()

	for {
		switch st.phase {
		case phaseFetching:
			if p.limiter != nil {
				if err := p.limiter.Wait(ctx); err != nil {
					return nil, err
				}
			}
			p.observer.RequestSent(rawURL, st.attempt)
			resp, err := p.transport.Send(ctx, &github.Request{Method: http.MethodGet, URL: rawURL})
			if err != nil {
				st = r.onError(st, err)
			} else {
				st = r.onResponse(st, resp)
			}

		case phaseBackoff:
			wait := st.wakeAt.Sub(p.clock.Now())
			if wait < 0 {
				wait = 0
			}
			metrics.RetriesTotal.WithLabelValues(st.reason).Inc()
			metrics.RetryWaitSeconds.WithLabelValues(st.reason).Observe(wait.Seconds())
			p.observer.RetryScheduled(st.reason, st.attempt, wait)
			p.logger.Warn().
				Str("url", rawURL).
				Str("reason", st.reason).
				Int("attempt", st.attempt).
				Int("max_attempts", p.policy.MaxAttempts).
				Dur("wait", wait).
				Err(st.err).
				Msg("retrying request")

			if err := p.clock.Sleep(ctx, wait); err != nil {
				return nil, err
			}
			st = r.wake(st)

		case phaseExhausted:
			if st.reason != "" {
				metrics.RetriesExhausted.WithLabelValues(st.reason).Inc()
			}
			return nil, st.err

		case phaseDone:
			return st.resp, nil
		}
	}
}

// waitForQuota sleeps until the primary quota resets when the last page
// used it up. Waits that AutoWait or MaxWait forbid are skipped; the next
// request then fails through the rate limit path.
func (p *Paginator) waitForQuota(ctx context.Context, rs github.RateState) error {
	if !rs.Exhausted() || rs.Reset.IsZero() {
		return nil
	}
	wait := rs.Reset.Sub(p.clock.Now())
	if wait <= 0 || !p.policy.AutoWait || (p.policy.MaxWait > 0 && wait > p.policy.MaxWait) {
		return nil
	}

	metrics.RetryWaitSeconds.WithLabelValues("primary_quota").Observe(wait.Seconds())
	p.logger.Warn().
		Dur("wait", wait).
		Time("reset", rs.Reset).
		Msg("primary rate limit used up, waiting for reset")
	return p.clock.Sleep(ctx, wait)
}

func (p *Paginator) resolve(path string) *url.URL {
	u := *p.base
	u.Path = strings.TrimSuffix(p.base.Path, "/") + path
	u.RawPath = ""
	return &u
}

func (p *Paginator) firstURL(d Descriptor) *url.URL {
	u := p.resolve(d.Path())
	q := d.Query()
	if !d.CursorPaged() {
		q.Set("page", "1")
	}
	q.Set("per_page", strconv.Itoa(d.PageSize()))
	u.RawQuery = q.Encode()
	return u
}

// nextURL follows rel="next" when the response has a Link header. Without
// one, a full page means the next page number unless d is cursor paged.
func (p *Paginator) nextURL(resp *github.Response, current *url.URL, count int, d Descriptor) (*url.URL, error) {
	link, present := github.NextLink(resp.Header)
	if present {
		if link == "" {
			return nil, nil
		}
		next, err := current.Parse(link)
		if err != nil {
			return nil, fmt.Errorf("invalid next link %q: %w", link, err)
		}
		if !strings.EqualFold(next.Scheme, p.base.Scheme) || !strings.EqualFold(next.Host, p.base.Host) {
			return nil, fmt.Errorf("refusing to follow next link to %s://%s outside %s", next.Scheme, next.Host, p.base.Host)
		}
		return next, nil
	}

	if d.CursorPaged() || count < d.PageSize() {
		return nil, nil
	}
	q := current.Query()
	n, err := strconv.Atoi(q.Get("page"))
	if err != nil || n < 1 {
		n = 1
	}
	q.Set("page", strconv.Itoa(n+1))
	next := *current
	next.RawQuery = q.Encode()
	return &next, nil
}

type nopObserver struct{}

func (nopObserver) RequestSent(string, int)                   {}
func (nopObserver) RetryScheduled(string, int, time.Duration) {}
func (nopObserver) PageFetched(*Page)                         {}

// isBlank reports an empty or whitespace-only body.
func isBlank(body []byte) bool {
	return len(bytes.TrimSpace(body)) == 0
}

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
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	otcoerrors "github.com/sirseerhq/sirseer-otco/internal/errors"
	"github.com/sirseerhq/sirseer-otco/internal/github"
)

// Policy controls how one request is retried.
type Policy struct {
	// MaxAttempts is the total number of times a request is sent when it
	// fails with a server error or a transport error.
	MaxAttempts int

	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64

	// Jitter is the randomization factor applied to backoff delays.
	Jitter float64

	// AutoWait enables sleeping through secondary rate limits. When false
	// the first rate limited response fails the request.
	AutoWait bool

	// MinWait is the shortest rate limit sleep.
	MinWait time.Duration

	// MaxWait is the longest rate limit sleep; a longer required wait fails
	// immediately. Zero means no limit.
	MaxWait time.Duration

	// RateLimitRetries is how many times a rate limited request is sent
	// again. The next rate limited response fails with RateLimitExceeded.
	RateLimitRetries int
}

// DefaultPolicy returns the policy used when nothing is configured.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		InitialBackoff: time.Second,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2.0,
		Jitter:         0.1,
		AutoWait:       true,
		MinWait:        time.Second,
		MaxWait:        15 * time.Minute,

		RateLimitRetries: 3,
	}
}

func (p Policy) normalized() Policy {
	def := DefaultPolicy()
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = def.InitialBackoff
	}
	if p.MaxBackoff < p.InitialBackoff {
		p.MaxBackoff = p.InitialBackoff
	}
	if p.Multiplier < 1 {
		p.Multiplier = def.Multiplier
	}
	if p.Jitter < 0 || p.Jitter >= 1 {
		p.Jitter = def.Jitter
	}
	if p.MinWait < 0 {
		p.MinWait = 0
	}
	if p.RateLimitRetries < 0 {
		p.RateLimitRetries = 0
	}
	return p
}

func (p Policy) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialBackoff
	b.MaxInterval = p.MaxBackoff
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = p.Jitter
	// Attempts are bounded by MaxAttempts, never by elapsed time.
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Retry reasons, used as metric labels and in logs.
const (
	reasonRateLimit   = "rate_limit"
	reasonServerError = "server_error"
	reasonTransport   = "transport"
)

type phase int

const (
	phaseFetching phase = iota
	phaseBackoff
	phaseExhausted
	phaseDone
)

func (p phase) String() string {
	switch p {
	case phaseFetching:
		return "fetching"
	case phaseBackoff:
		return "backoff"
	case phaseExhausted:
		return "exhausted"
	case phaseDone:
		return "done"
	}
	return "unknown"
}

// retryState is one state of a single request's lifecycle. attempt is the
// 1-based number of the send that was made (or is about to be made);
// rateRetries of those sends followed a rate limit sleep.
type retryState struct {
	phase       phase
	attempt     int
	rateRetries int
	wakeAt      time.Time
	reason      string
	resp        *github.Response
	err         error
}

// retrier holds the transition rules for one request URL.
type retrier struct {
	policy  Policy
	clock   Clock
	backoff backoff.BackOff
	url     string
}

func newRetrier(policy Policy, clock Clock, rawURL string) *retrier {
	return &retrier{
		policy:  policy,
		clock:   clock,
		backoff: policy.newBackOff(),
		url:     rawURL,
	}
}

func (r *retrier) start() retryState {
	return retryState{phase: phaseFetching, attempt: 1}
}

// wake moves a Backoff state to the next Fetching attempt.
func (r *retrier) wake(st retryState) retryState {
	next := retryState{phase: phaseFetching, attempt: st.attempt + 1, rateRetries: st.rateRetries}
	if st.reason == reasonRateLimit {
		next.rateRetries++
	}
	return next
}

// onError handles a send that produced no response.
func (r *retrier) onError(st retryState, err error) retryState {
	var te *otcoerrors.TransportError
	if errors.As(err, &te) {
		cp := *te
		te = &cp
	} else if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		// Cancellation is never retried.
		return retryState{phase: phaseExhausted, attempt: st.attempt, err: err}
	} else {
		te = &otcoerrors.TransportError{Kind: otcoerrors.KindUnknown, Message: err.Error(), URL: r.url, Err: err}
	}
	te.Attempts = st.attempt

	if r.errorAttempts(st) >= r.policy.MaxAttempts {
		return retryState{phase: phaseExhausted, attempt: st.attempt, reason: reasonTransport, err: te}
	}
	return r.backoffState(st, reasonTransport, te)
}

// onResponse classifies a response per status code.
func (r *retrier) onResponse(st retryState, resp *github.Response) retryState {
	switch {
	case resp.IsSuccess():
		return retryState{phase: phaseDone, attempt: st.attempt, resp: resp}

	case isRateLimited(resp):
		now := r.clock.Now()
		wait, reset := r.rateLimitWait(resp, now)
		if reset.IsZero() {
			reset = now.Add(wait)
		}
		exceeded := &otcoerrors.RateLimitExceeded{URL: r.url, Reset: reset, Attempts: st.attempt}
		if !r.policy.AutoWait ||
			(r.policy.MaxWait > 0 && wait > r.policy.MaxWait) ||
			st.rateRetries >= r.policy.RateLimitRetries {
			return retryState{phase: phaseExhausted, attempt: st.attempt, rateRetries: st.rateRetries, reason: reasonRateLimit, resp: resp, err: exceeded}
		}
		return retryState{
			phase:       phaseBackoff,
			attempt:     st.attempt,
			rateRetries: st.rateRetries,
			wakeAt:      now.Add(wait),
			reason:      reasonRateLimit,
			resp:        resp,
			err:         exceeded,
		}

	case resp.StatusCode >= 500:
		unavailable := &otcoerrors.UpstreamUnavailable{Status: resp.StatusCode, URL: r.url, Attempts: st.attempt}
		if r.errorAttempts(st) >= r.policy.MaxAttempts {
			return retryState{phase: phaseExhausted, attempt: st.attempt, reason: reasonServerError, resp: resp, err: unavailable}
		}
		next := r.backoffState(st, reasonServerError, unavailable)
		next.resp = resp
		return next

	default:
		return retryState{
			phase:   phaseExhausted,
			attempt: st.attempt,
			resp:    resp,
			err: &otcoerrors.RequestRejected{
				Status: resp.StatusCode,
				URL:    r.url,
				Body:   resp.Message(200),
			},
		}
	}
}

func (r *retrier) backoffState(st retryState, reason string, err error) retryState {
	delay := r.backoff.NextBackOff()
	if delay == backoff.Stop {
		return retryState{phase: phaseExhausted, attempt: st.attempt, rateRetries: st.rateRetries, reason: reason, err: err}
	}
	return retryState{
		phase:       phaseBackoff,
		attempt:     st.attempt,
		rateRetries: st.rateRetries,
		wakeAt:      r.clock.Now().Add(delay),
		reason:      reason,
		err:         err,
	}
}

// errorAttempts counts the sends of st that were not rate limit retries.
func (r *retrier) errorAttempts(st retryState) int {
	return st.attempt - st.rateRetries
}

// rateLimitWait returns max(reset-now, MinWait). Retry-After wins over
// X-RateLimit-Reset. reset is zero when neither header was usable.
func (r *retrier) rateLimitWait(resp *github.Response, now time.Time) (time.Duration, time.Time) {
	reset, ok := github.RetryAfter(resp.Header, now)
	if !ok {
		reset = resp.RateState().Reset
	}

	wait := r.policy.MinWait
	if !reset.IsZero() {
		if d := reset.Sub(now); d > wait {
			wait = d
		}
	}
	return wait, reset
}

// isRateLimited reports a secondary (or exhausted primary) rate limit. A 403
// with quota left, no Retry-After and no rate limit message is a permission
// failure instead.
func isRateLimited(resp *github.Response) bool {
	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return true
	case http.StatusForbidden:
		if resp.Header.Get(github.HeaderRetryAfter) != "" {
			return true
		}
		if strings.Contains(strings.ToLower(string(resp.Body)), "rate limit") {
			return true
		}
		rs := resp.RateState()
		return !rs.HasRemaining || rs.Remaining == 0
	}
	return false
}

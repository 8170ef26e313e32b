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

package github

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Rate limit response headers.
const (
	HeaderRateLimit     = "X-RateLimit-Limit"
	HeaderRateRemaining = "X-RateLimit-Remaining"
	HeaderRateUsed      = "X-RateLimit-Used"
	HeaderRateReset     = "X-RateLimit-Reset"
	HeaderRateResource  = "X-RateLimit-Resource"
	HeaderRetryAfter    = "Retry-After"
)

// RateState is the quota GitHub reported on a response.
type RateState struct {
	Limit     int
	Remaining int
	Used      int
	Reset     time.Time
	Resource  string

	// HasRemaining is set when X-RateLimit-Remaining was present and valid.
	HasRemaining bool
}

// Known reports whether any quota information was present.
func (s RateState) Known() bool {
	return s.HasRemaining || !s.Reset.IsZero()
}

// Exhausted reports a primary quota of zero.
func (s RateState) Exhausted() bool {
	return s.HasRemaining && s.Remaining == 0
}

// ParseRateState reads the X-RateLimit-* headers. Missing or malformed
// values are left zero.
func ParseRateState(h http.Header) RateState {
	var s RateState

	if v, ok := headerInt(h, HeaderRateRemaining); ok {
		s.Remaining = v
		s.HasRemaining = true
	}
	if v, ok := headerInt(h, HeaderRateLimit); ok {
		s.Limit = v
	}
	if v, ok := headerInt(h, HeaderRateUsed); ok {
		s.Used = v
	}
	if v, ok := headerInt(h, HeaderRateReset); ok && v > 0 {
		s.Reset = time.Unix(int64(v), 0)
	}
	s.Resource = h.Get(HeaderRateResource)

	return s
}

// RetryAfter returns the instant named by a Retry-After header, given either
// as delay seconds or an HTTP date.
func RetryAfter(h http.Header, now time.Time) (time.Time, bool) {
	raw := strings.TrimSpace(h.Get(HeaderRetryAfter))
	if raw == "" {
		return time.Time{}, false
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		if secs < 0 {
			secs = 0
		}
		return now.Add(time.Duration(secs) * time.Second), true
	}
	if at, err := http.ParseTime(raw); err == nil {
		return at, true
	}
	return time.Time{}, false
}

func headerInt(h http.Header, name string) (int, bool) {
	raw := strings.TrimSpace(h.Get(name))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

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

package errors

import (
	"fmt"
	"net/http"
	"time"
)

// TransportKind classifies a failed HTTP exchange that produced no response.
type TransportKind string

const (
	KindConnection TransportKind = "connection"
	KindTimeout    TransportKind = "timeout"
	KindTLS        TransportKind = "tls"
	KindDNS        TransportKind = "dns"
	KindProtocol   TransportKind = "protocol"
	KindUnknown    TransportKind = "unknown"
)

// TransportError is returned when a request never produced an HTTP response.
type TransportError struct {
	Kind     TransportKind
	Message  string
	URL      string
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	msg := fmt.Sprintf("%s error calling %s: %s", e.Kind, e.URL, e.Message)
	if e.Attempts > 1 {
		msg += fmt.Sprintf(" (after %d attempts)", e.Attempts)
	}
	return msg
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrNetworkFailure }

// RequestRejected is a 4xx response that is not a rate limit, or a redirect
// to another host. It is never retried.
type RequestRejected struct {
	Status int
	URL    string
	Body   string
}

func (e *RequestRejected) Error() string {
	msg := fmt.Sprintf("request to %s rejected with %d %s", e.URL, e.Status, http.StatusText(e.Status))
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (e *RequestRejected) Is(target error) bool {
	switch target {
	case ErrRequestRejected:
		return true
	case ErrInvalidToken:
		return e.Status == http.StatusUnauthorized
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// RateLimitExceeded is returned once secondary rate limit retries are used up,
// or when the required wait is longer than the configured maximum.
type RateLimitExceeded struct {
	URL      string
	Reset    time.Time
	Attempts int
}

func (e *RateLimitExceeded) Error() string {
	if e.Reset.IsZero() {
		return fmt.Sprintf("rate limit exceeded for %s after %d attempts", e.URL, e.Attempts)
	}
	return fmt.Sprintf("rate limit exceeded for %s after %d attempts, retry after %s",
		e.URL, e.Attempts, e.Reset.Local().Format(time.Kitchen))
}

func (e *RateLimitExceeded) Is(target error) bool { return target == ErrRateLimit }

// UpstreamUnavailable is returned when 5xx responses persist through every attempt.
type UpstreamUnavailable struct {
	Status   int
	URL      string
	Attempts int
}

func (e *UpstreamUnavailable) Error() string {
	return fmt.Sprintf("github returned %d %s for %s after %d attempts",
		e.Status, http.StatusText(e.Status), e.URL, e.Attempts)
}

func (e *UpstreamUnavailable) Is(target error) bool { return target == ErrUpstreamUnavailable }

// PaginationOverrun reports that a fetch-all walk needed more pages than the
// hard ceiling allows. Records holds how many records were read before stopping.
type PaginationOverrun struct {
	Path    string
	Ceiling int
	Records int
}

func (e *PaginationOverrun) Error() string {
	return fmt.Sprintf("%s: more than %d pages (%d records read); the server may be misbehaving",
		e.Path, e.Ceiling, e.Records)
}

func (e *PaginationOverrun) Is(target error) bool { return target == ErrPaginationOverrun }

// UnsupportedFormat names an output format that has no renderer.
type UnsupportedFormat struct {
	Format string
}

func (e *UnsupportedFormat) Error() string {
	return fmt.Sprintf("unsupported output format %q (want json, yaml, csv, psv or table)", e.Format)
}

func (e *UnsupportedFormat) Is(target error) bool { return target == ErrUnsupportedFormat }

// RenderIOError wraps a sink failure. When Path is set the destination file was
// left untouched.
type RenderIOError struct {
	Path string
	Err  error
}

func (e *RenderIOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("failed to write output: %v", e.Err)
	}
	return fmt.Sprintf("failed to write output to %s: %v", e.Path, e.Err)
}

func (e *RenderIOError) Unwrap() error { return e.Err }

func (e *RenderIOError) Is(target error) bool { return target == ErrRenderIO }

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
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	otcoerrors "github.com/sirseerhq/sirseer-otco/internal/errors"
	"github.com/sirseerhq/sirseer-otco/internal/giterror"
	"github.com/sirseerhq/sirseer-otco/internal/metrics"
	"github.com/sirseerhq/sirseer-otco/internal/version"
)

const (
	// DefaultAPIURL is the public GitHub REST endpoint.
	DefaultAPIURL = "https://api.github.com"

	// DefaultGraphQLURL is the public GitHub GraphQL endpoint.
	DefaultGraphQLURL = "https://api.github.com/graphql"

	// DefaultAPIVersion is sent as X-GitHub-Api-Version.
	DefaultAPIVersion = "2022-11-28"

	// DefaultTimeout bounds a single exchange including the body read.
	DefaultTimeout = 30 * time.Second

	maxRedirects = 10

	// MediaType is the Accept header GitHub recommends.
	MediaType = "application/vnd.github+json"

	// MaxResponseBytes caps a single response body.
	MaxResponseBytes = 32 * 1024 * 1024
)

// Options configures a Transport.
type Options struct {
	Token      string
	APIVersion string
	UserAgent  string
	Timeout    time.Duration

	// Base performs the actual round trip. A cache layer goes here.
	Base http.RoundTripper

	Logger *zerolog.Logger
}

// Transport sends authenticated requests and reads complete responses.
type Transport struct {
	client    *http.Client
	inspector giterror.Inspector
	logger    zerolog.Logger
}

// NewTransport builds a Transport from opts, filling in defaults.
func NewTransport(opts Options) *Transport {
	if opts.APIVersion == "" {
		opts.APIVersion = DefaultAPIVersion
	}
	if opts.UserAgent == "" {
		opts.UserAgent = version.UserAgent()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Base == nil {
		opts.Base = NewBaseTransport()
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &Transport{
		client: &http.Client{
			Timeout:       opts.Timeout,
			CheckRedirect: sameHostRedirect,
			Transport: &authTransport{
				token:      opts.Token,
				userAgent:  opts.UserAgent,
				apiVersion: opts.APIVersion,
				base:       opts.Base,
			},
		},
		inspector: giterror.NewInspector(),
		logger:    logger,
	}
}

// NewBaseTransport returns the pooled transport used when none is supplied.
func NewBaseTransport() *http.Transport {
	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		ForceAttemptHTTP2:   true,
	}
}

// sameHostRedirect follows redirects only within the host of the first
// request. authTransport sets Authorization on every hop, so a redirect to
// another host is returned to the caller as the 3xx response instead.
func sameHostRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	if !strings.EqualFold(req.URL.Host, via[0].URL.Host) {
		return http.ErrUseLastResponse
	}
	return nil
}

// HTTPClient exposes the authenticated client for the GraphQL count hint.
func (t *Transport) HTTPClient() *http.Client {
	return t.client
}

// Send performs req once. A nil error means a response was read, whatever
// its status. Cancellation of ctx is returned as ctx.Err(); every other
// failure is a *errors.TransportError.
func (t *Transport) Send(ctx context.Context, req *Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, nil)
	if err != nil {
		return nil, &otcoerrors.TransportError{
			Kind:     otcoerrors.KindProtocol,
			Message:  err.Error(),
			URL:      req.URL,
			Attempts: 1,
			Err:      err,
		}
	}
	for name, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(name, v)
		}
	}

	start := time.Now()
	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, t.transportError(ctx, req.URL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, t.transportError(ctx, req.URL, err)
	}

	elapsed := time.Since(start)
	metrics.RequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
	metrics.RequestDuration.Observe(elapsed.Seconds())

	t.logger.Debug().
		Str("method", method).
		Str("url", req.URL).
		Int("status", resp.StatusCode).
		Dur("elapsed", elapsed).
		Int("bytes", len(body)).
		Msg("github response")

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		URL:        req.URL,
	}, nil
}

func (t *Transport) transportError(ctx context.Context, rawURL string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	metrics.RequestsTotal.WithLabelValues("error").Inc()

	msg := err.Error()
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		msg = urlErr.Err.Error()
	}

	return &otcoerrors.TransportError{
		Kind:     t.inspector.Kind(err),
		Message:  msg,
		URL:      rawURL,
		Attempts: 1,
		Err:      err,
	}
}

// authTransport adds credentials and GitHub headers to each request and
// caps the response body.
type authTransport struct {
	token      string
	userAgent  string
	apiVersion string
	base       http.RoundTripper
}

// RoundTrip implements http.RoundTripper
func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())

	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", MediaType)
	}
	req.Header.Set("User-Agent", t.userAgent)
	req.Header.Set("X-GitHub-Api-Version", t.apiVersion)

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if resp.Body != nil {
		resp.Body = &limitedReader{
			ReadCloser: resp.Body,
			limit:      MaxResponseBytes,
		}
	}

	return resp, nil
}

// ErrResponseTooLarge is returned while reading a body over MaxResponseBytes.
var ErrResponseTooLarge = errors.New("response size exceeded limit")

// limitedReader wraps a ReadCloser with a size limit to prevent excessive memory usage.
type limitedReader struct {
	io.ReadCloser
	limit int64
	read  int64
}

// Read implements io.Reader with size limit enforcement.
func (lr *limitedReader) Read(p []byte) (n int, err error) {
	if lr.read >= lr.limit {
		// Probe for one more byte so a body of exactly limit bytes still ends in EOF.
		var probe [1]byte
		m, perr := lr.ReadCloser.Read(probe[:])
		if m == 0 && perr != nil {
			return 0, perr
		}
		return 0, fmt.Errorf("%w of %d bytes", ErrResponseTooLarge, lr.limit)
	}

	remaining := lr.limit - lr.read
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}

	n, err = lr.ReadCloser.Read(p)
	lr.read += int64(n)

	return n, err
}

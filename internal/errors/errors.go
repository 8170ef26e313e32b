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

// Package errors defines sentinel and typed errors for consistent error handling
// across otco. Sentinels map to CLI exit codes; typed errors carry the context
// (status, endpoint, attempt count) needed to log or display a failure without
// re-fetching.
package errors

import "errors"

// Sentinel errors for consistent error handling and exit code mapping
var (
	// ErrInvalidToken indicates GitHub rejected the credential (401).
	// Maps to exit code 2.
	ErrInvalidToken = errors.New("invalid github token")

	// ErrNotFound indicates the requested resource does not exist or is not accessible (404).
	// Maps to exit code 2.
	ErrNotFound = errors.New("resource not found")

	// ErrRequestRejected indicates a 4xx response that retrying cannot fix.
	// Maps to exit code 2.
	ErrRequestRejected = errors.New("request rejected")

	// ErrRateLimit indicates the GitHub rate limit is still in effect after waiting.
	// Maps to exit code 2.
	ErrRateLimit = errors.New("github rate limit exceeded")

	// ErrNetworkFailure indicates a network connection problem.
	// Maps to exit code 3.
	ErrNetworkFailure = errors.New("network connection failed")

	// ErrUpstreamUnavailable indicates GitHub kept answering with 5xx.
	// Maps to exit code 3.
	ErrUpstreamUnavailable = errors.New("github api unavailable")

	// ErrPaginationOverrun indicates the hard page ceiling was reached.
	// Maps to exit code 4.
	ErrPaginationOverrun = errors.New("pagination safety ceiling reached")

	// ErrUnsupportedFormat indicates an unknown output format was requested.
	// Maps to exit code 1.
	ErrUnsupportedFormat = errors.New("unsupported output format")

	// ErrRenderIO indicates the output sink could not be written.
	// Maps to exit code 5.
	ErrRenderIO = errors.New("failed to write output")

	// ErrInvalidInput indicates a malformed flag or argument.
	// Maps to exit code 1.
	ErrInvalidInput = errors.New("invalid input")
)

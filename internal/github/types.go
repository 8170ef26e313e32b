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
	"encoding/json"
	"net/http"
	"strings"
)

// Request is a single REST call. Method defaults to GET.
type Request struct {
	Method string
	URL    string
	Header http.Header
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	URL        string
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// RateState parses the rate limit headers of r.
func (r *Response) RateState() RateState {
	return ParseRateState(r.Header)
}

// Message returns the "message" field of a GitHub error body, or the first
// n bytes of the raw body when it is not JSON.
func (r *Response) Message(n int) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(r.Body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}

	body := strings.TrimSpace(string(r.Body))
	if len(body) > n {
		body = body[:n] + "..."
	}
	return body
}

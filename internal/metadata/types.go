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

package metadata

import (
	"time"
)

// FetchMetadata is the record of one run, saved with --save-metadata.
type FetchMetadata struct {
	OtcoVersion   string       `json:"otco_version"`
	FetchID       string       `json:"fetch_id"`
	Parameters    FetchParams  `json:"parameters"`
	Results       FetchResults `json:"results"`
	Incremental   bool         `json:"incremental"`
	PreviousFetch *FetchRef    `json:"previous_fetch,omitempty"`
}

// FetchParams captures what was asked for.
type FetchParams struct {
	// Endpoint is the catalog key, e.g. "issues".
	Endpoint string `json:"endpoint"`

	// Target is the organization or owner/repo.
	Target string `json:"target"`

	Path     string            `json:"path"`
	Query    map[string]string `json:"query,omitempty"`
	FetchAll bool              `json:"fetch_all"`
	PageSize int               `json:"page_size"`
	PageCap  int               `json:"page_cap"`
}

// FetchResults describes what happened.
type FetchResults struct {
	Records   int  `json:"records"`
	Pages     int  `json:"pages"`
	Requests  int  `json:"requests"`
	Retries   int  `json:"retries"`
	Truncated bool `json:"truncated"`

	// RetriesByReason splits Retries by cause (rate_limit, server_error,
	// transport).
	RetriesByReason map[string]int `json:"retries_by_reason,omitempty"`

	// WaitTime is the total time slept before retries.
	WaitTime string `json:"wait_time"`

	// TotalCountHint is the server side total when one was known.
	TotalCountHint *int `json:"total_count_hint,omitempty"`

	RateLimitRemaining *int       `json:"rate_limit_remaining,omitempty"`
	RateLimitReset     *time.Time `json:"rate_limit_reset,omitempty"`

	Duration    string    `json:"fetch_duration"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// FetchRef links an incremental fetch to the one before it.
type FetchRef struct {
	FetchID     string    `json:"fetch_id"`
	CompletedAt time.Time `json:"completed_at"`
}

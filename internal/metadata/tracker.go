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

// Package metadata tracks what a fetch did and saves it as JSON next to the
// incremental state, for audits and troubleshooting. A Tracker observes the
// paginator; GenerateMetadata turns its counts into a FetchMetadata record.
package metadata

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/sirseerhq/sirseer-otco/internal/fetch"
)

const filePrefix = "fetch-metadata-"

// NewFetchID returns a new lexically time-ordered fetch id.
func NewFetchID() string {
	return ulid.Make().String()
}

// Tracker implements fetch.Observer. It is safe for concurrent use.
type Tracker struct {
	mu sync.Mutex

	fetchID   string
	startTime time.Time
	now       func() time.Time

	requests  int
	pages     int
	records   int
	retries   map[string]int
	waited    time.Duration
	totalHint int
	rate      *rateSeen
}

type rateSeen struct {
	remaining int
	reset     time.Time
}

var _ fetch.Observer = (*Tracker)(nil)

// New starts tracking a fetch identified by fetchID.
func New(fetchID string) *Tracker {
	return &Tracker{
		fetchID:   fetchID,
		startTime: time.Now(),
		now:       time.Now,
		retries:   map[string]int{},
		totalHint: -1,
	}
}

// FetchID returns the id given to New.
func (t *Tracker) FetchID() string {
	return t.fetchID
}

// RequestSent counts one HTTP request.
func (t *Tracker) RequestSent(string, int) {
	t.mu.Lock()
	t.requests++
	t.mu.Unlock()
}

// RetryScheduled counts a retry and its wait.
func (t *Tracker) RetryScheduled(reason string, _ int, wait time.Duration) {
	t.mu.Lock()
	t.retries[reason]++
	t.waited += wait
	t.mu.Unlock()
}

// PageFetched counts a page and remembers its rate limit headers.
func (t *Tracker) PageFetched(page *fetch.Page) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.pages++
	t.records += len(page.Records)
	if page.TotalCount >= 0 {
		t.totalHint = page.TotalCount
	}
	if page.Rate.HasRemaining {
		t.rate = &rateSeen{remaining: page.Rate.Remaining, reset: page.Rate.Reset}
	}
}

// SetTotalHint records a total count learned outside the pages, such as
// the GraphQL count hint.
func (t *Tracker) SetTotalHint(n int) {
	t.mu.Lock()
	t.totalHint = n
	t.mu.Unlock()
}

// Pages returns the number of pages seen so far.
func (t *Tracker) Pages() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pages
}

// Records returns the number of records seen so far.
func (t *Tracker) Records() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.records
}

// GenerateMetadata builds the record of the fetch so far. records is the
// count finally rendered, which differs from the fetched count when client
// side filters dropped some.
func (t *Tracker) GenerateMetadata(version string, params FetchParams, truncated, incremental bool, previous *FetchRef) *FetchMetadata {
	t.mu.Lock()
	defer t.mu.Unlock()

	completedAt := t.now()
	results := FetchResults{
		Records:     t.records,
		Pages:       t.pages,
		Requests:    t.requests,
		Truncated:   truncated,
		WaitTime:    t.waited.String(),
		Duration:    completedAt.Sub(t.startTime).Round(time.Millisecond).String(),
		StartedAt:   t.startTime,
		CompletedAt: completedAt,
	}
	if len(t.retries) > 0 {
		results.RetriesByReason = make(map[string]int, len(t.retries))
		for reason, n := range t.retries {
			results.RetriesByReason[reason] = n
			results.Retries += n
		}
	}
	if t.totalHint >= 0 {
		hint := t.totalHint
		results.TotalCountHint = &hint
	}
	if t.rate != nil {
		remaining, reset := t.rate.remaining, t.rate.reset
		results.RateLimitRemaining = &remaining
		if !reset.IsZero() {
			results.RateLimitReset = &reset
		}
	}

	return &FetchMetadata{
		OtcoVersion:   version,
		FetchID:       t.fetchID,
		Parameters:    params,
		Results:       results,
		Incremental:   incremental,
		PreviousFetch: previous,
	}
}

// Ref returns a reference to m for the next incremental fetch.
func (m *FetchMetadata) Ref() *FetchRef {
	return &FetchRef{FetchID: m.FetchID, CompletedAt: m.Results.CompletedAt}
}

// SaveMetadata writes metadata to dir as fetch-metadata-<fetch id>.json
// through a temporary file and rename, and returns the final path.
func SaveMetadata(metadata *FetchMetadata, dir string) (string, error) {
	if metadata.FetchID == "" {
		return "", fmt.Errorf("metadata has no fetch id")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create metadata directory: %w", err)
	}

	path := filepath.Join(dir, filePrefix+metadata.FetchID+".json")
	tmp, err := os.CreateTemp(dir, "."+filePrefix+"*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create metadata file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := WriteMetadataToWriter(metadata, tmp); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to write metadata: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to sync metadata file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close metadata file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", fmt.Errorf("failed to set metadata file mode: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to save metadata file: %w", err)
	}
	return path, nil
}

// LoadLatestMetadata returns the newest metadata in dir for endpoint and
// target, or nil when there is none. Fetch ids sort by time, so the newest
// file has the greatest name.
func LoadLatestMetadata(dir, endpoint, target string) (*FetchMetadata, error) {
	files, err := filepath.Glob(filepath.Join(dir, filePrefix+"*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list metadata files: %w", err)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(files)))

	for _, file := range files {
		m, err := readMetadata(file)
		if err != nil {
			return nil, err
		}
		if m.Parameters.Endpoint == endpoint && strings.EqualFold(m.Parameters.Target, target) {
			return m, nil
		}
	}
	return nil, nil
}

func readMetadata(path string) (*FetchMetadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata file: %w", err)
	}
	defer f.Close()

	var m FetchMetadata
	if err := json.NewDecoder(f).Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to parse metadata %s: %w", filepath.Base(path), err)
	}
	return &m, nil
}

// WriteMetadataToWriter writes metadata as indented JSON.
func WriteMetadataToWriter(metadata *FetchMetadata, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(metadata)
}

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

package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirseerhq/sirseer-otco/internal/fetch"
)

// observers fans paginator events out to several observers.
type observers []fetch.Observer

func (o observers) RequestSent(url string, attempt int) {
	for _, x := range o {
		x.RequestSent(url, attempt)
	}
}

func (o observers) RetryScheduled(reason string, attempt int, wait time.Duration) {
	for _, x := range o {
		x.RetryScheduled(reason, attempt, wait)
	}
}

func (o observers) PageFetched(page *fetch.Page) {
	for _, x := range o {
		x.PageFetched(page)
	}
}

// progress prints a single updating status line to a terminal.
type progress struct {
	mu      sync.Mutex
	w       io.Writer
	label   string
	total   int
	records int
	pages   int
	start   time.Time
	now     func() time.Time
	shown   bool
}

func newProgress(w io.Writer, label string) *progress {
	return &progress{w: w, label: label, total: -1, start: time.Now(), now: time.Now}
}

// SetTotal sets the expected record count used for percentage and ETA.
func (p *progress) SetTotal(n int) {
	p.mu.Lock()
	p.total = n
	p.mu.Unlock()
}

func (p *progress) RequestSent(string, int) {}

func (p *progress) RetryScheduled(reason string, _ int, wait time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clear()
	fmt.Fprintf(p.w, "Retrying (%s) in %s...\n", reason, wait.Round(time.Second))
}

func (p *progress) PageFetched(page *fetch.Page) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pages = page.Number
	p.records += len(page.Records)
	if p.total < 0 && page.TotalCount >= 0 {
		p.total = page.TotalCount
	}
	fmt.Fprintf(p.w, "\r\033[K%s", p.line())
	p.shown = true
}

// line renders the status, with percentage and ETA once a total is known.
func (p *progress) line() string {
	if p.total <= 0 {
		return fmt.Sprintf("Fetching %s... %d records, page %d", p.label, p.records, p.pages)
	}

	percent := float64(p.records) * 100 / float64(p.total)
	if percent > 100 {
		percent = 100
	}
	var eta string
	if p.records > 0 && p.records < p.total {
		elapsed := p.now().Sub(p.start)
		remaining := time.Duration(float64(elapsed) * float64(p.total-p.records) / float64(p.records))
		if remaining > 0 {
			eta = fmt.Sprintf(" | ETA: %s", remaining.Round(time.Second))
		}
	}
	return fmt.Sprintf("Progress: %d / %d records [%.1f%%] | Page %d%s", p.records, p.total, percent, p.pages, eta)
}

func (p *progress) clear() {
	if p.shown {
		fmt.Fprint(p.w, "\r\033[K")
		p.shown = false
	}
}

// Done clears the status line.
func (p *progress) Done() {
	p.mu.Lock()
	p.clear()
	p.mu.Unlock()
}

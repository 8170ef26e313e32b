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

// Package metrics holds the Prometheus collectors recorded during a run.
//
// otco is a one-shot CLI, so nothing is scraped. Collectors register on a
// private Registry which can be dumped in the text exposition format with
// WriteTextfile, for pickup by a node_exporter textfile collector.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry receives every otco collector. It does not include the Go
// runtime or process collectors.
var Registry = prometheus.NewRegistry()

// Factory registers collectors on Registry. Other packages use it to add
// their own series.
var Factory = promauto.With(Registry)

var (
	// RequestsTotal counts HTTP exchanges by status code, or "error" when
	// no response was received.
	RequestsTotal = Factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otco_requests_total",
			Help: "Total number of GitHub API requests",
		},
		[]string{"status"},
	)

	// RequestDuration observes round trip latency including body read.
	RequestDuration = Factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "otco_request_duration_seconds",
			Help:    "GitHub API request latency",
			Buckets: prometheus.DefBuckets,
		},
	)

	// RetriesTotal counts scheduled retries by reason
	// ("rate_limit", "server_error", "transport").
	RetriesTotal = Factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otco_retries_total",
			Help: "Total number of retried requests",
		},
		[]string{"reason"},
	)

	// RetryWaitSeconds observes how long each retry slept.
	RetryWaitSeconds = Factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "otco_retry_wait_seconds",
			Help:    "Time spent waiting before a retry",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 300, 900},
		},
		[]string{"reason"},
	)

	// RetriesExhausted counts requests that gave up.
	RetriesExhausted = Factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otco_retries_exhausted_total",
			Help: "Total number of requests that failed after all attempts",
		},
		[]string{"reason"},
	)

	// RateLimitRemaining is the last X-RateLimit-Remaining value seen.
	RateLimitRemaining = Factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "otco_rate_limit_remaining",
			Help: "Remaining primary rate limit quota reported by GitHub",
		},
	)

	// PagesTotal counts successfully decoded pages.
	PagesTotal = Factory.NewCounter(
		prometheus.CounterOpts{
			Name: "otco_pages_total",
			Help: "Total number of result pages fetched",
		},
	)

	// RecordsTotal counts records decoded from pages.
	RecordsTotal = Factory.NewCounter(
		prometheus.CounterOpts{
			Name: "otco_records_total",
			Help: "Total number of records fetched",
		},
	)

	// TruncatedTotal counts fetches stopped by the page cap.
	TruncatedTotal = Factory.NewCounter(
		prometheus.CounterOpts{
			Name: "otco_truncated_fetches_total",
			Help: "Total number of fetches stopped at the page cap",
		},
	)
)

// WriteTextfile writes every collector on Registry to path. The file is
// written through a temporary file and renamed.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("write metrics to %s: %w", path, err)
	}
	return nil
}

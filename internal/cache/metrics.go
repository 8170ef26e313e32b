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

package cache

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sirseerhq/sirseer-otco/internal/metrics"
)

var (
	// CacheHits counts requests answered from cache after a 304.
	CacheHits = metrics.Factory.NewCounter(
		prometheus.CounterOpts{
			Name: "otco_cache_hits_total",
			Help: "Total number of responses served from cache after revalidation",
		},
	)

	// CacheMisses counts cacheable requests with no usable entry.
	CacheMisses = metrics.Factory.NewCounter(
		prometheus.CounterOpts{
			Name: "otco_cache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	// CacheStores counts responses written to the cache.
	CacheStores = metrics.Factory.NewCounter(
		prometheus.CounterOpts{
			Name: "otco_cache_stores_total",
			Help: "Total number of responses stored in the cache",
		},
	)

	// CacheErrors counts failed cache operations by operation
	// ("get", "set", "delete").
	CacheErrors = metrics.Factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otco_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"},
	)
)

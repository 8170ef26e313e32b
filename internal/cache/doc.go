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

// Package cache keeps GitHub REST responses in Redis and revalidates them
// with conditional requests.
//
// GitHub does not charge a 304 Not Modified answer against the primary rate
// limit, so re-running a listing whose pages have not changed costs almost
// no quota. Transport sits below the authenticating transport and answers a
// 304 with the cached body as a 200, carrying the fresh rate limit headers.
package cache

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

// Package main implements the otco command-line interface, a read-only
// client for GitHub REST list endpoints. Every listing walks the endpoint's
// pages, then projects and renders the records as JSON, YAML, CSV, PSV or a
// table.
//
// Usage:
//
//	otco issues list golang/go --state all --fields number,title --sort -number
//	otco org repos kubernetes --all -o csv --output-file repos.csv
//	otco meta rate-limit
//
// Without --all a listing stops after pagination.page_cap pages and warns
// that the result is partial.
//
// Exit codes:
//   - 0: Success
//   - 1: General or validation error
//   - 2: Authentication, rejected request or rate limit
//   - 3: Network error or GitHub unavailable
//   - 4: Pagination safety ceiling reached
//   - 5: Output could not be written
//   - 130: Interrupted
package main

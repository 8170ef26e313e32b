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

// Package state persists incremental fetch state.
//
// For each endpoint and target, a state file records when the last complete
// fetch started. The next incremental fetch passes that time as the
// endpoint's since filter. Files are JSON with a SHA256 checksum and a
// schema version, written through a temporary file and rename.
//
// Example usage:
//
//	path := state.FilePath(dir, "issues", "golang/go")
//	prev, err := state.LoadState(path)
//	...
//	err = state.SaveState(&state.FetchState{Endpoint: "issues", Target: "golang/go", Since: started}, path)
package state

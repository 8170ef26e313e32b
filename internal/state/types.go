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

package state

import (
	"time"
)

// CurrentVersion is the state schema version.
const CurrentVersion = 1

// FetchState is the saved state of one endpoint and target.
type FetchState struct {
	Version int `json:"version"`

	// Checksum is the SHA256 of the state with this field empty.
	Checksum string `json:"checksum"`

	// Endpoint is the catalog key, e.g. "issues".
	Endpoint string `json:"endpoint"`

	// Target is the organization or owner/repo.
	Target string `json:"target"`

	LastFetchID string `json:"last_fetch_id"`

	// Since is the start time of the last complete fetch. Records updated
	// during that fetch are returned again next time rather than missed.
	Since time.Time `json:"since"`

	// LastFetchTime is when the last complete fetch finished.
	LastFetchTime time.Time `json:"last_fetch_time"`

	TotalFetched int `json:"total_fetched"`
}

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
	"net/http"

	"github.com/tomnomnom/linkheader"
)

// NextLink returns the rel="next" target of the Link headers. present is
// false when the response carried no Link header at all, which callers use
// to fall back to page arithmetic.
func NextLink(h http.Header) (next string, present bool) {
	values := h.Values("Link")
	if len(values) == 0 {
		return "", false
	}

	for _, link := range linkheader.ParseMultiple(values).FilterByRel("next") {
		if link.URL != "" {
			return link.URL, true
		}
	}
	return "", true
}

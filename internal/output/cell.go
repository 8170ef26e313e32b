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

package output

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/sirseerhq/sirseer-otco/internal/record"
)

// cellText is the flat text of a value for delimited and table output.
// Nested values become compact JSON.
func cellText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case bool:
		if t {
			return "true"
		}
		return "false"
	case json.Number:
		if _, err := strconv.ParseFloat(string(t), 64); err != nil && !errors.Is(err, strconv.ErrRange) {
			return record.Unrenderable
		}
		return string(t)
	case string:
		return strings.ToValidUTF8(t, "\uFFFD")
	case *record.Record, []any:
		return string(record.CompactJSON(t))
	}
	return record.Unrenderable
}

// fieldValue returns the value of name on r, nil when absent.
func fieldValue(r *record.Record, name string) any {
	v, _ := r.Get(name)
	return v
}

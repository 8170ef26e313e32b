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
	"strings"

	otcoerrors "github.com/sirseerhq/sirseer-otco/internal/errors"
)

// Format names an output serialization.
type Format string

const (
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatCSV   Format = "csv"
	FormatPSV   Format = "psv"
	FormatTable Format = "table"
)

// Formats lists every supported format.
func Formats() []Format {
	return []Format{FormatJSON, FormatYAML, FormatCSV, FormatPSV, FormatTable}
}

// ParseFormat accepts a format name in any case. "yml" is an alias for yaml.
func ParseFormat(s string) (Format, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "yml" {
		name = string(FormatYAML)
	}
	for _, f := range Formats() {
		if string(f) == name {
			return f, nil
		}
	}
	return "", &otcoerrors.UnsupportedFormat{Format: s}
}

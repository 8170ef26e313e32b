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
	"encoding/csv"
	"io"

	"github.com/sirseerhq/sirseer-otco/internal/record"
)

// DelimitedRenderer writes a header row followed by one row per record.
// Quoting follows RFC 4180 for the configured delimiter.
type DelimitedRenderer struct {
	Comma rune
}

func (d DelimitedRenderer) Render(w io.Writer, rs *record.RecordSet) error {
	fields := rs.Fields()
	// Without a fixed field list an empty set has no header to print.
	if rs.Len() == 0 && rs.Columns == nil {
		return nil
	}

	cw := csv.NewWriter(w)
	if d.Comma != 0 {
		cw.Comma = d.Comma
	}

	if err := cw.Write(fields); err != nil {
		return err
	}

	row := make([]string, len(fields))
	for _, r := range rs.Records {
		for i, f := range fields {
			row[i] = cellText(fieldValue(r, f))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

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

package projection

import (
	"sort"

	"github.com/sirseerhq/sirseer-otco/internal/record"
)

// Project applies spec to rs and returns a new RecordSet.
//
// Sorting is stable and happens on the source values, so a row can be sorted
// by a field that is not selected. Field selection yields exactly spec.Fields
// on every row, with null for fields a row lacks. The limit is applied last.
func Project(rs *record.RecordSet, spec Spec) *record.RecordSet {
	out := &record.RecordSet{}
	if rs == nil {
		if len(spec.Fields) > 0 {
			out.Columns = append([]string(nil), spec.Fields...)
		}
		return out
	}

	rows := make([]*record.Record, len(rs.Records))
	copy(rows, rs.Records)

	if spec.Sort != nil {
		sortRows(rows, *spec.Sort)
	}

	out.Records = make([]*record.Record, len(rows))
	for i, r := range rows {
		out.Records[i] = selectFields(r, spec.Fields)
	}

	if spec.Limit > 0 && len(out.Records) > spec.Limit {
		out.Records = out.Records[:spec.Limit]
	}

	switch {
	case len(spec.Fields) > 0:
		out.Columns = append([]string(nil), spec.Fields...)
	case rs.Columns != nil:
		out.Columns = append([]string(nil), rs.Columns...)
	}
	return out
}

func selectFields(r *record.Record, fields []string) *record.Record {
	if len(fields) == 0 {
		return r.Clone()
	}
	sel := record.New()
	for _, f := range fields {
		v, _ := r.Get(f)
		sel.Set(f, v)
	}
	return sel
}

func sortRows(rows []*record.Record, key SortKey) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, _ := rows[i].Get(key.Field)
		b, _ := rows[j].Get(key.Field)

		aNull := record.KindOf(a) == record.KindNull
		bNull := record.KindOf(b) == record.KindNull
		switch {
		case aNull && bNull:
			return false
		case aNull:
			return false
		case bNull:
			return true
		}

		c := Compare(a, b)
		if key.Descending {
			c = -c
		}
		return c < 0
	})
}

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

package fetch

import (
	"encoding/json"
	"fmt"

	"github.com/sirseerhq/sirseer-otco/internal/github"
	"github.com/sirseerhq/sirseer-otco/internal/record"
)

// Page is one decoded list response.
type Page struct {
	// Number counts successfully retrieved pages, starting at 1.
	Number int

	URL     string
	Records []*record.Record

	// NextURL is empty on the last page.
	NextURL string

	// TotalCount is the body's total_count, or -1 when absent.
	TotalCount int

	Rate github.RateState
}

// decodePage turns a response body into records. A top-level array is the
// page. An object is unwrapped through listField when set, otherwise
// through its only array field; an object with no array field is a single
// record.
func decodePage(body []byte, listField string) ([]*record.Record, int, error) {
	if isBlank(body) {
		return nil, -1, nil
	}
	v, err := record.ParseJSON(body)
	if err != nil {
		return nil, -1, fmt.Errorf("decode response body: %w", err)
	}

	switch doc := v.(type) {
	case []any:
		return toRecords(doc), -1, nil
	case *record.Record:
		total := totalCount(doc)
		if listField != "" {
			items, ok := doc.Get(listField)
			if !ok {
				return nil, total, fmt.Errorf("response has no %q field", listField)
			}
			list, ok := items.([]any)
			if !ok {
				return nil, total, fmt.Errorf("response field %q is %s, not an array", listField, record.KindOf(items))
			}
			return toRecords(list), total, nil
		}

		var arrays []string
		for _, k := range doc.Keys() {
			if val, _ := doc.Get(k); record.KindOf(val) == record.KindArray {
				arrays = append(arrays, k)
			}
		}
		switch len(arrays) {
		case 0:
			return []*record.Record{doc}, total, nil
		case 1:
			list, _ := doc.Get(arrays[0])
			return toRecords(list.([]any)), total, nil
		default:
			return nil, total, fmt.Errorf("response has several array fields %v and no list field was named", arrays)
		}
	case nil:
		return nil, -1, nil
	default:
		return nil, -1, fmt.Errorf("response body is %s, want an array or object", record.KindOf(v))
	}
}

// toRecords keeps objects as they are and wraps any other element as
// {"value": v}.
func toRecords(items []any) []*record.Record {
	out := make([]*record.Record, 0, len(items))
	for _, item := range items {
		if r, ok := item.(*record.Record); ok && r != nil {
			out = append(out, r)
			continue
		}
		out = append(out, record.New().Set("value", item))
	}
	return out
}

func totalCount(doc *record.Record) int {
	v, ok := doc.Get("total_count")
	if !ok {
		return -1
	}
	n, ok := v.(json.Number)
	if !ok {
		return -1
	}
	i, err := n.Int64()
	if err != nil || i < 0 {
		return -1
	}
	return int(i)
}

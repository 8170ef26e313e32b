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

package record

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RecordSet is an ordered sequence of Records.
//
// Columns, when non-nil, fixes the field list (set by a projection that named
// its fields). Otherwise the field list is the union of all Records' fields in
// order of first appearance.
type RecordSet struct {
	Records []*Record
	Columns []string
}

// NewSet creates a RecordSet holding records.
func NewSet(records ...*Record) *RecordSet {
	return &RecordSet{Records: records}
}

// Len returns the number of Records.
func (s *RecordSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Records)
}

// Append adds records to the end of the set.
func (s *RecordSet) Append(records ...*Record) {
	s.Records = append(s.Records, records...)
}

// Fields returns the set's field list.
func (s *RecordSet) Fields() []string {
	if s == nil {
		return nil
	}
	if s.Columns != nil {
		out := make([]string, len(s.Columns))
		copy(out, s.Columns)
		return out
	}
	seen := make(map[string]struct{})
	var out []string
	for _, r := range s.Records {
		for _, k := range r.keys {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	return out
}

// MarshalJSON encodes the set as a JSON array of objects.
func (s *RecordSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, r := range s.Records {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := r.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON array of objects, keeping field order.
func (s *RecordSet) UnmarshalJSON(data []byte) error {
	v, err := ParseJSON(data)
	if err != nil {
		return err
	}
	items, ok := v.([]any)
	if !ok {
		return fmt.Errorf("record set: expected JSON array, got %s", KindOf(v))
	}
	records := make([]*Record, 0, len(items))
	for i, item := range items {
		rec, ok := item.(*Record)
		if !ok {
			return fmt.Errorf("record set: element %d is %s, not an object", i, KindOf(item))
		}
		records = append(records, rec)
	}
	s.Records = records
	s.Columns = nil
	return nil
}

// compile-time checks
var (
	_ json.Marshaler   = (*RecordSet)(nil)
	_ json.Unmarshaler = (*RecordSet)(nil)
	_ json.Marshaler   = (*Record)(nil)
	_ json.Unmarshaler = (*Record)(nil)
)

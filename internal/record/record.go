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

// Package record holds the format-agnostic in-memory result model: a Record
// is an ordered, possibly sparse mapping of field names to values and a
// RecordSet is an ordered sequence of Records.
//
// Values are one of: nil, bool, json.Number, string, *Record (nested mapping)
// or []any (sequence). Set normalizes Go numeric types and map[string]any to
// those forms.
package record

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
)

// Record is one result row. Field order is the order of first insertion.
// Values stored in a Record are shared by Clone and must be treated as
// read-only once the Record is handed to another component.
type Record struct {
	keys   []string
	values map[string]any
}

// New creates an empty Record.
func New() *Record {
	return &Record{values: make(map[string]any)}
}

// Set stores value under name and returns r for chaining. Setting an existing
// field replaces its value without changing its position.
func (r *Record) Set(name string, value any) *Record {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, ok := r.values[name]; !ok {
		r.keys = append(r.keys, name)
	}
	r.values[name] = Normalize(value)
	return r
}

// Get returns the value stored under name. A field that is present with a
// null value returns (nil, true).
func (r *Record) Get(name string) (any, bool) {
	if r == nil {
		return nil, false
	}
	v, ok := r.values[name]
	return v, ok
}

// Keys returns the field names in order.
func (r *Record) Keys() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of fields.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// Clone returns a copy of r with its own field list. Values are shared.
func (r *Record) Clone() *Record {
	c := &Record{
		keys:   make([]string, len(r.keys)),
		values: make(map[string]any, len(r.values)),
	}
	copy(c.keys, r.keys)
	for k, v := range r.values {
		c.values[k] = v
	}
	return c
}

// Normalize converts v to one of the value forms a Record stores.
// Unknown types are returned unchanged; renderers substitute a placeholder
// for them.
func Normalize(v any) any {
	switch t := v.(type) {
	case nil, bool, string, json.Number, *Record:
		return t
	case int:
		return json.Number(strconv.FormatInt(int64(t), 10))
	case int8:
		return json.Number(strconv.FormatInt(int64(t), 10))
	case int16:
		return json.Number(strconv.FormatInt(int64(t), 10))
	case int32:
		return json.Number(strconv.FormatInt(int64(t), 10))
	case int64:
		return json.Number(strconv.FormatInt(t, 10))
	case uint:
		return json.Number(strconv.FormatUint(uint64(t), 10))
	case uint8:
		return json.Number(strconv.FormatUint(uint64(t), 10))
	case uint16:
		return json.Number(strconv.FormatUint(uint64(t), 10))
	case uint32:
		return json.Number(strconv.FormatUint(uint64(t), 10))
	case uint64:
		return json.Number(strconv.FormatUint(t, 10))
	case float32:
		return normalizeFloat(float64(t), 32)
	case float64:
		return normalizeFloat(t, 64)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Normalize(e)
		}
		return out
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		rec := New()
		for _, k := range keys {
			rec.Set(k, t[k])
		}
		return rec
	}
	return v
}

// NaN and infinities have no JSON form; they are kept as float64 so the
// renderers can substitute a placeholder.
func normalizeFloat(f float64, bits int) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return f
	}
	return json.Number(strconv.FormatFloat(f, 'g', -1, bits))
}

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
	"encoding/json"
	"strconv"
)

// Kind is the category of a Record value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindObject
	KindArray
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	}
	return "unsupported value"
}

// KindOf returns the Kind of a stored value.
func KindOf(v any) Kind {
	switch t := v.(type) {
	case nil:
		return KindNull
	case bool:
		return KindBool
	case json.Number:
		return KindNumber
	case string:
		return KindString
	case *Record:
		if t == nil {
			return KindNull
		}
		return KindObject
	case []any:
		return KindArray
	}
	return KindOther
}

// Equal reports whether two values are equal, ignoring field order inside
// objects. Numbers are equal when their text or their float value matches.
func Equal(a, b any) bool {
	a, b = Normalize(a), Normalize(b)
	ka, kb := KindOf(a), KindOf(b)
	if ka != kb {
		return false
	}
	switch ka {
	case KindNull:
		return true
	case KindBool:
		return a.(bool) == b.(bool)
	case KindString:
		return a.(string) == b.(string)
	case KindNumber:
		na, nb := a.(json.Number), b.(json.Number)
		if na == nb {
			return true
		}
		fa, errA := strconv.ParseFloat(string(na), 64)
		fb, errB := strconv.ParseFloat(string(nb), 64)
		return errA == nil && errB == nil && fa == fb
	case KindObject:
		ra, rb := a.(*Record), b.(*Record)
		if ra.Len() != rb.Len() {
			return false
		}
		for _, k := range ra.keys {
			vb, ok := rb.values[k]
			if !ok || !Equal(ra.values[k], vb) {
				return false
			}
		}
		return true
	case KindArray:
		xa, xb := a.([]any), b.([]any)
		if len(xa) != len(xb) {
			return false
		}
		for i := range xa {
			if !Equal(xa[i], xb[i]) {
				return false
			}
		}
		return true
	}
	return false
}

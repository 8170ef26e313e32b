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
	"bytes"
	"encoding/json"
	"math/big"
	"strings"

	"github.com/sirseerhq/sirseer-otco/internal/record"
)

// Compare orders two non-null values. Numbers compare numerically and
// strings lexicographically (byte order, case-sensitive). Values of different
// kinds order as numbers < strings < booleans < everything else; objects and
// arrays compare by their compact JSON text.
func Compare(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}

	switch ra {
	case 0:
		return compareNumbers(a.(json.Number), b.(json.Number))
	case 1:
		return strings.Compare(a.(string), b.(string))
	case 2:
		ab, bb := a.(bool), b.(bool)
		switch {
		case ab == bb:
			return 0
		case !ab:
			return -1
		default:
			return 1
		}
	}
	return bytes.Compare(record.CompactJSON(a), record.CompactJSON(b))
}

func rank(v any) int {
	switch record.KindOf(v) {
	case record.KindNumber:
		return 0
	case record.KindString:
		return 1
	case record.KindBool:
		return 2
	}
	return 3
}

func compareNumbers(a, b json.Number) int {
	if a == b {
		return 0
	}
	fa, _, errA := big.ParseFloat(string(a), 10, 256, big.ToNearestEven)
	fb, _, errB := big.ParseFloat(string(b), 10, 256, big.ToNearestEven)
	if errA != nil || errB != nil {
		return strings.Compare(string(a), string(b))
	}
	return fa.Cmp(fb)
}

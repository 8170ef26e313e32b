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
	"bytes"
	"encoding/json"
	"io"

	"github.com/sirseerhq/sirseer-otco/internal/record"
)

// JSONRenderer writes an indented JSON array of objects. Field order and
// number text are kept as they are in the records.
type JSONRenderer struct{}

func (JSONRenderer) Render(w io.Writer, rs *record.RecordSet) error {
	if rs.Len() == 0 {
		_, err := io.WriteString(w, "[]\n")
		return err
	}

	compact, err := rs.MarshalJSON()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	buf.Grow(len(compact) * 2)
	if err := json.Indent(&buf, compact, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')

	_, err = w.Write(buf.Bytes())
	return err
}

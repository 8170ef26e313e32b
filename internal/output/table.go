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
	"bufio"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/sirseerhq/sirseer-otco/internal/record"
)

const (
	columnSeparator = "  "
	ellipsis        = "…"
)

// TableRenderer writes aligned columns for a terminal. Widths are measured
// in display cells, so wide characters line up.
type TableRenderer struct {
	MaxWidth int
}

var flatten = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\t", " ")

func (t TableRenderer) Render(w io.Writer, rs *record.RecordSet) error {
	if rs.Len() == 0 {
		_, err := io.WriteString(w, "No results.\n")
		return err
	}

	fields := rs.Fields()
	header := make([]string, len(fields))
	widths := make([]int, len(fields))
	numeric := make([]bool, len(fields))
	for i, f := range fields {
		header[i] = t.fit(f)
		widths[i] = runewidth.StringWidth(header[i])
		numeric[i] = true
	}

	type cell struct {
		text  string
		right bool
	}
	rows := make([][]cell, len(rs.Records))
	for r, rec := range rs.Records {
		rows[r] = make([]cell, len(fields))
		for i, f := range fields {
			v := fieldValue(rec, f)
			kind := record.KindOf(v)
			if kind != record.KindNull && kind != record.KindNumber {
				numeric[i] = false
			}
			text := t.fit(cellText(v))
			rows[r][i] = cell{text: text, right: kind == record.KindNumber}
			if cw := runewidth.StringWidth(text); cw > widths[i] {
				widths[i] = cw
			}
		}
	}

	bw := bufio.NewWriter(w)
	line := make([]string, len(fields))

	for i := range fields {
		line[i] = pad(header[i], widths[i], numeric[i])
	}
	writeLine(bw, line)

	for i := range fields {
		line[i] = strings.Repeat("-", widths[i])
	}
	writeLine(bw, line)

	for _, row := range rows {
		for i, c := range row {
			line[i] = pad(c.text, widths[i], c.right)
		}
		writeLine(bw, line)
	}

	return bw.Flush()
}

// fit flattens whitespace and truncates to MaxWidth display cells.
func (t TableRenderer) fit(s string) string {
	s = flatten.Replace(s)
	if t.MaxWidth > 0 && runewidth.StringWidth(s) > t.MaxWidth {
		return runewidth.Truncate(s, t.MaxWidth, ellipsis)
	}
	return s
}

func pad(s string, width int, right bool) string {
	gap := width - runewidth.StringWidth(s)
	if gap <= 0 {
		return s
	}
	if right {
		return strings.Repeat(" ", gap) + s
	}
	return s + strings.Repeat(" ", gap)
}

// writeLine joins cells and drops trailing padding. Write errors surface
// from the final Flush.
func writeLine(w *bufio.Writer, cells []string) {
	_, _ = w.WriteString(strings.TrimRight(strings.Join(cells, columnSeparator), " "))
	_ = w.WriteByte('\n')
}

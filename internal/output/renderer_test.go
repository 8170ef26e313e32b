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
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	otcoerrors "github.com/sirseerhq/sirseer-otco/internal/errors"
	"github.com/sirseerhq/sirseer-otco/internal/projection"
	"github.com/sirseerhq/sirseer-otco/internal/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleSet() *record.RecordSet {
	return record.NewSet(
		record.New().
			Set("number", 42).
			Set("title", "Fix <b> & bump, deps").
			Set("draft", false).
			Set("labels", []any{"bug", "ui"}).
			Set("user", record.New().Set("login", "octocat")),
		record.New().
			Set("number", 7).
			Set("title", "Add \"quoted\" text\nover two lines").
			Set("milestone", nil),
	)
}

func render(t *testing.T, f Format, rs *record.RecordSet) string {
	t.Helper()
	r, err := New(f, Options{})
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, rs))
	return buf.String()
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"json", FormatJSON},
		{"JSON", FormatJSON},
		{" yaml ", FormatYAML},
		{"yml", FormatYAML},
		{"csv", FormatCSV},
		{"psv", FormatPSV},
		{"Table", FormatTable},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseFormat("xml")
	assert.ErrorIs(t, err, otcoerrors.ErrUnsupportedFormat)
	var uf *otcoerrors.UnsupportedFormat
	require.True(t, errors.As(err, &uf))
	assert.Equal(t, "xml", uf.Format)
}

func TestNew_Unsupported(t *testing.T) {
	_, err := New(Format("ndjson"), Options{})
	assert.ErrorIs(t, err, otcoerrors.ErrUnsupportedFormat)
}

func TestJSONRenderer(t *testing.T) {
	rs := record.NewSet(
		record.New().Set("b", 1).Set("a", "x<y"),
		record.New().Set("b", 2.5).Set("nested", record.New().Set("z", []any{})),
	)

	want := `[
  {
    "b": 1,
    "a": "x<y"
  },
  {
    "b": 2.5,
    "nested": {
      "z": []
    }
  }
]
`
	assert.Equal(t, want, render(t, FormatJSON, rs))
	assert.Equal(t, "[]\n", render(t, FormatJSON, record.NewSet()))
}

func TestJSONRenderer_RoundTrip(t *testing.T) {
	spec, err := projection.Parse("title,number,labels,user,missing", "number", 0)
	require.NoError(t, err)
	projected := projection.Project(sampleSet(), spec)

	var parsed record.RecordSet
	require.NoError(t, parsed.UnmarshalJSON([]byte(render(t, FormatJSON, projected))))

	require.Equal(t, projected.Len(), parsed.Len())
	for i := range projected.Records {
		assert.True(t, record.Equal(projected.Records[i], parsed.Records[i]), "record %d differs", i)
	}
}

func TestJSONRenderer_Unrenderable(t *testing.T) {
	rs := record.NewSet(record.New().Set("score", math.NaN()).Set("name", "bad\xffbyte"))
	out := render(t, FormatJSON, rs)
	assert.Contains(t, out, `"score": "<unrenderable>"`)
	assert.Contains(t, out, `bad\ufffdbyte`)
}

func TestYAMLRenderer(t *testing.T) {
	rs := record.NewSet(
		record.New().
			Set("number", 42).
			Set("title", "true").
			Set("ratio", 0.5).
			Set("closed_at", nil).
			Set("labels", []any{"bug"}).
			Set("user", record.New().Set("login", "octocat")),
	)

	want := `- number: 42
  title: "true"
  ratio: 0.5
  closed_at: null
  labels:
    - bug
  user:
    login: octocat
`
	assert.Equal(t, want, render(t, FormatYAML, rs))
	assert.Equal(t, "[]\n", render(t, FormatYAML, record.NewSet()))
}

func TestYAMLRenderer_ParsesBack(t *testing.T) {
	var docs []map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(render(t, FormatYAML, sampleSet())), &docs))
	require.Len(t, docs, 2)
	assert.Equal(t, 42, docs[0]["number"])
	assert.Equal(t, "Fix <b> & bump, deps", docs[0]["title"])
	assert.Equal(t, map[string]any{"login": "octocat"}, docs[0]["user"])
	assert.Nil(t, docs[1]["milestone"])
}

func TestYAMLRenderer_NumbersReadBackAsNumbers(t *testing.T) {
	rs := record.NewSet(record.New().
		Set("big", json.Number("12345678901234567890")).
		Set("exp", json.Number("1.5e3")).
		Set("huge", json.Number("1e400")))

	out := render(t, FormatYAML, rs)
	var docs []map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &docs))
	require.Len(t, docs, 1)

	assert.Equal(t, uint64(12345678901234567890), docs[0]["big"])
	assert.Equal(t, 1500.0, docs[0]["exp"])
	assert.Equal(t, record.Unrenderable, docs[0]["huge"])
}

func TestDelimitedRenderer_CSVQuoting(t *testing.T) {
	out := render(t, FormatCSV, sampleSet())

	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"number", "title", "draft", "labels", "user", "milestone"}, rows[0])
	assert.Equal(t, []string{"42", "Fix <b> & bump, deps", "false", `["bug","ui"]`, `{"login":"octocat"}`, ""}, rows[1])
	assert.Equal(t, "Add \"quoted\" text\nover two lines", rows[2][1])
	assert.Equal(t, "", rows[2][2], "missing field renders empty")
	assert.Contains(t, out, `"Fix <b> & bump, deps"`)
}

func TestDelimitedRenderer_PSV(t *testing.T) {
	rs := record.NewSet(record.New().Set("name", "a|b").Set("n", 1))
	out := render(t, FormatPSV, rs)
	assert.Equal(t, "name|n\n\"a|b\"|1\n", out)

	reader := csv.NewReader(strings.NewReader(out))
	reader.Comma = '|'
	rows, err := reader.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "a|b", rows[1][0])
}

func TestDelimitedRenderer_Empty(t *testing.T) {
	assert.Equal(t, "", render(t, FormatCSV, record.NewSet()))

	fixed := &record.RecordSet{Columns: []string{"number", "title"}}
	assert.Equal(t, "number,title\n", render(t, FormatCSV, fixed))
}

func TestDelimitedRenderer_BinaryPlaceholder(t *testing.T) {
	rs := record.NewSet(record.New().Set("blob", []byte{0x00, 0xff}))
	rows, err := csv.NewReader(strings.NewReader(render(t, FormatCSV, rs))).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, record.Unrenderable, rows[1][0])
}

func TestTableRenderer(t *testing.T) {
	rs := record.NewSet(
		record.New().Set("number", 7).Set("title", "short"),
		record.New().Set("number", 1234).Set("title", "a\ttab"),
	)

	want := "number  title\n" +
		"------  -----\n" +
		"     7  short\n" +
		"  1234  a tab\n"
	assert.Equal(t, want, render(t, FormatTable, rs))
}

func TestTableRenderer_Truncates(t *testing.T) {
	r := TableRenderer{MaxWidth: 8}
	rs := record.NewSet(record.New().Set("title", "abcdefghijklmnop").Set("cjk", "日本語日本語"))

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, rs))
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)

	assert.Equal(t, "abcdefg…  日本語…", lines[2])
	assert.Equal(t, "title     cjk", lines[0])
}

func TestTableRenderer_Empty(t *testing.T) {
	assert.Equal(t, "No results.\n", render(t, FormatTable, record.NewSet()))
}

func TestEveryFormatKeepsExactlyTheRequestedFields(t *testing.T) {
	spec, err := projection.Parse("title,absent,number", "", 0)
	require.NoError(t, err)
	fields := []string{"title", "absent", "number"}

	for _, f := range Formats() {
		t.Run(string(f), func(t *testing.T) {
			var buf bytes.Buffer
			err := ProjectAndRender(context.Background(), sampleSet(), spec, f, NewStreamSink(&buf), Options{})
			require.NoError(t, err)
			out := buf.String()

			switch f {
			case FormatJSON:
				var rs record.RecordSet
				require.NoError(t, rs.UnmarshalJSON(buf.Bytes()))
				for _, r := range rs.Records {
					assert.Equal(t, fields, r.Keys())
				}
			case FormatYAML:
				var docs []yaml.Node
				require.NoError(t, yaml.Unmarshal(buf.Bytes(), &docs))
				for _, d := range docs {
					var keys []string
					for i := 0; i < len(d.Content); i += 2 {
						keys = append(keys, d.Content[i].Value)
					}
					assert.Equal(t, fields, keys)
				}
			case FormatCSV, FormatPSV:
				reader := csv.NewReader(strings.NewReader(out))
				if f == FormatPSV {
					reader.Comma = '|'
				}
				rows, err := reader.ReadAll()
				require.NoError(t, err)
				for _, row := range rows {
					assert.Len(t, row, len(fields))
				}
				assert.Equal(t, fields, rows[0])
			case FormatTable:
				header := strings.Fields(strings.SplitN(out, "\n", 2)[0])
				assert.Equal(t, fields, header)
			}
		})
	}
}

func TestProjectAndRender_DoesNotMutateInput(t *testing.T) {
	rs := sampleSet()
	before := string(render(t, FormatJSON, rs))

	spec, err := projection.Parse("number", "-number", 1)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, ProjectAndRender(context.Background(), rs, spec, FormatCSV, NewStreamSink(&buf), Options{}))

	assert.Equal(t, "number\n42\n", buf.String())
	assert.Equal(t, before, render(t, FormatJSON, rs))
}

func TestProjectAndRender_UnsupportedFormatWritesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	err := ProjectAndRender(context.Background(), sampleSet(), projection.Spec{}, Format("xml"), NewFileSink(path), Options{})
	assert.ErrorIs(t, err, otcoerrors.ErrUnsupportedFormat)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

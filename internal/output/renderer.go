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
	"context"
	"io"

	otcoerrors "github.com/sirseerhq/sirseer-otco/internal/errors"
	"github.com/sirseerhq/sirseer-otco/internal/projection"
	"github.com/sirseerhq/sirseer-otco/internal/record"
)

// DefaultMaxColumnWidth bounds table cells, in display columns.
const DefaultMaxColumnWidth = 50

// Renderer serializes a RecordSet. Only write errors are returned; values a
// format cannot represent are replaced, never fatal.
type Renderer interface {
	Render(w io.Writer, rs *record.RecordSet) error
}

// Options tunes renderers.
type Options struct {
	// MaxColumnWidth applies to the table format. Zero means the default.
	MaxColumnWidth int
}

// New returns the renderer for f.
func New(f Format, opts Options) (Renderer, error) {
	switch f {
	case FormatJSON:
		return JSONRenderer{}, nil
	case FormatYAML:
		return YAMLRenderer{}, nil
	case FormatCSV:
		return DelimitedRenderer{Comma: ','}, nil
	case FormatPSV:
		return DelimitedRenderer{Comma: '|'}, nil
	case FormatTable:
		width := opts.MaxColumnWidth
		if width <= 0 {
			width = DefaultMaxColumnWidth
		}
		return TableRenderer{MaxWidth: width}, nil
	}
	return nil, &otcoerrors.UnsupportedFormat{Format: string(f)}
}

// ProjectAndRender applies spec to rs and writes the result to sink in the
// given format. rs is not modified. An unsupported format is reported before
// anything is written.
func ProjectAndRender(ctx context.Context, rs *record.RecordSet, spec projection.Spec, format Format, sink Sink, opts Options) error {
	r, err := New(format, opts)
	if err != nil {
		return err
	}
	projected := projection.Project(rs, spec)
	return sink.Write(ctx, func(w io.Writer) error {
		return r.Render(w, projected)
	})
}

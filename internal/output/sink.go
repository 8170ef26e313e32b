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
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	otcoerrors "github.com/sirseerhq/sirseer-otco/internal/errors"
)

// Sink receives one rendered result. render writes the whole result to the
// writer it is given.
type Sink interface {
	Write(ctx context.Context, render func(io.Writer) error) error
}

// StreamSink writes to an io.Writer such as stdout.
type StreamSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewStreamSink creates a sink writing to w.
func NewStreamSink(w io.Writer) *StreamSink {
	return &StreamSink{w: w}
}

// Write renders into a buffered writer and flushes it.
func (s *StreamSink) Write(ctx context.Context, render func(io.Writer) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bw := bufio.NewWriter(&ctxWriter{ctx: ctx, w: s.w})
	if err := render(bw); err != nil {
		return sinkError(ctx, "", err)
	}
	if err := bw.Flush(); err != nil {
		return sinkError(ctx, "", err)
	}
	return nil
}

// FileSink replaces the file at Path with the rendered result. Nothing is
// visible at Path until the render has completed and been synced.
type FileSink struct {
	Path string

	// Perm is applied to the new file. Zero means 0644.
	Perm os.FileMode
}

// NewFileSink creates a sink for path.
func NewFileSink(path string) *FileSink {
	return &FileSink{Path: path}
}

// Write renders into a temporary file next to Path, then syncs and renames
// it over Path. On any failure, including cancellation, the temporary file
// is removed and Path keeps its previous content.
func (s *FileSink) Write(ctx context.Context, render func(io.Writer) error) (err error) {
	if s.Path == "" {
		return &otcoerrors.RenderIOError{Err: errors.New("empty output path")}
	}
	perm := s.Perm
	if perm == 0 {
		perm = 0o644
	}

	dir := filepath.Dir(s.Path)
	file, err := os.CreateTemp(dir, "."+filepath.Base(s.Path)+".*.tmp")
	if err != nil {
		return sinkError(ctx, s.Path, fmt.Errorf("failed to create output file: %w", err))
	}
	tempFile := file.Name()

	committed := false
	defer func() {
		if !committed {
			_ = file.Close()
			_ = os.Remove(tempFile)
		}
	}()

	bw := bufio.NewWriter(&ctxWriter{ctx: ctx, w: file})
	if err := render(bw); err != nil {
		return sinkError(ctx, s.Path, err)
	}
	if err := bw.Flush(); err != nil {
		return sinkError(ctx, s.Path, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := file.Sync(); err != nil {
		return sinkError(ctx, s.Path, fmt.Errorf("failed to sync output file: %w", err))
	}
	if err := file.Chmod(perm); err != nil {
		return sinkError(ctx, s.Path, fmt.Errorf("failed to set output file mode: %w", err))
	}
	if err := file.Close(); err != nil {
		return sinkError(ctx, s.Path, fmt.Errorf("failed to close output file: %w", err))
	}
	if err := os.Rename(tempFile, s.Path); err != nil {
		return sinkError(ctx, s.Path, fmt.Errorf("failed to rename output file: %w", err))
	}

	committed = true
	return nil
}

// sinkError keeps cancellation distinguishable from write failures.
func sinkError(ctx context.Context, path string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return ctxErr
	}
	return &otcoerrors.RenderIOError{Path: path, Err: err}
}

// ctxWriter fails writes once ctx is done so a long render stops promptly.
type ctxWriter struct {
	ctx context.Context
	w   io.Writer
}

func (c *ctxWriter) Write(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.w.Write(p)
}

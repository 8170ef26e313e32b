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
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	otcoerrors "github.com/sirseerhq/sirseer-otco/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeString(s string) func(io.Writer) error {
	return func(w io.Writer) error {
		_, err := io.WriteString(w, s)
		return err
	}
}

func tempFiles(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, ".*.tmp"))
	require.NoError(t, err)
	return matches
}

func TestFileSink_Write(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "issues.csv")

	require.NoError(t, NewFileSink(path).Write(context.Background(), writeString("a,b\n1,2\n")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(data))
	assert.Empty(t, tempFiles(t, dir))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestFileSink_RenderErrorKeepsPreviousFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")
	require.NoError(t, os.WriteFile(path, []byte("previous"), 0o644))

	boom := errors.New("disk full")
	err := NewFileSink(path).Write(context.Background(), func(w io.Writer) error {
		_, _ = io.WriteString(w, "partial")
		return boom
	})

	var rio *otcoerrors.RenderIOError
	require.True(t, errors.As(err, &rio), "error = %v", err)
	assert.Equal(t, path, rio.Path)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, otcoerrors.ErrRenderIO)

	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, "previous", string(data))
	assert.Empty(t, tempFiles(t, dir))
}

func TestFileSink_CancelledKeepsPreviousFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")
	require.NoError(t, os.WriteFile(path, []byte("previous"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	err := NewFileSink(path).Write(ctx, func(w io.Writer) error {
		cancel()
		_, err := w.Write(bytes.Repeat([]byte("x"), 64*1024))
		return err
	})
	assert.ErrorIs(t, err, context.Canceled)

	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, "previous", string(data))
	assert.Empty(t, tempFiles(t, dir))
}

func TestFileSink_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out.json")
	err := NewFileSink(path).Write(context.Background(), writeString("[]\n"))
	assert.ErrorIs(t, err, otcoerrors.ErrRenderIO)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestStreamSink(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewStreamSink(&buf).Write(context.Background(), writeString("hello\n")))
	assert.Equal(t, "hello\n", buf.String())

	err := NewStreamSink(failingWriter{}).Write(context.Background(), writeString("hello\n"))
	var rio *otcoerrors.RenderIOError
	require.True(t, errors.As(err, &rio))
	assert.Empty(t, rio.Path)
}

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

package fetch

import (
	"fmt"
	"net/url"
	"strings"

	otcoerrors "github.com/sirseerhq/sirseer-otco/internal/errors"
)

const (
	// DefaultPageSize is used when a descriptor does not set one.
	DefaultPageSize = 30

	// MaxPageSize is the largest per_page GitHub accepts.
	MaxPageSize = 100

	// DefaultPageCap bounds a walk that is not fetching everything.
	DefaultPageCap = 10

	// DefaultMaxPages is the hard ceiling for a fetch-all walk.
	DefaultMaxPages = 1000
)

// Descriptor describes one logical list query. It is immutable once built;
// Query returns a copy.
type Descriptor struct {
	path      string
	query     url.Values
	pageSize  int
	fetchAll  bool
	pageCap   int
	listField string
	cursor    bool
}

// Option configures a Descriptor.
type Option func(*Descriptor)

// WithPageSize sets per_page. Values above MaxPageSize are clamped.
func WithPageSize(n int) Option {
	return func(d *Descriptor) { d.pageSize = n }
}

// WithFetchAll ignores the page cap and walks until the last page.
func WithFetchAll(all bool) Option {
	return func(d *Descriptor) { d.fetchAll = all }
}

// WithPageCap sets how many successful pages a capped walk may read.
func WithPageCap(n int) Option {
	return func(d *Descriptor) { d.pageCap = n }
}

// WithListField names the array field of a wrapper object response,
// e.g. "workflow_runs".
func WithListField(name string) Option {
	return func(d *Descriptor) { d.listField = name }
}

// WithCursorPaging marks an endpoint that pages by cursor through the Link
// header only. No page parameter is sent and a response without a next link
// is the last page.
func WithCursorPaging() Option {
	return func(d *Descriptor) { d.cursor = true }
}

// NewDescriptor validates path and opts. path is relative to the API base
// URL and must not carry a query string; filters go in query.
func NewDescriptor(path string, query url.Values, opts ...Option) (Descriptor, error) {
	if !strings.HasPrefix(path, "/") {
		return Descriptor{}, fmt.Errorf("path %q must start with /: %w", path, otcoerrors.ErrInvalidInput)
	}
	if strings.ContainsAny(path, "?#") {
		return Descriptor{}, fmt.Errorf("path %q must not contain a query or fragment: %w", path, otcoerrors.ErrInvalidInput)
	}

	d := Descriptor{
		path:  path,
		query: cloneValues(query),
	}
	for _, opt := range opts {
		opt(&d)
	}

	switch {
	case d.pageSize < 0:
		return Descriptor{}, fmt.Errorf("page size must not be negative, got %d: %w", d.pageSize, otcoerrors.ErrInvalidInput)
	case d.pageSize == 0:
		d.pageSize = DefaultPageSize
	case d.pageSize > MaxPageSize:
		d.pageSize = MaxPageSize
	}

	switch {
	case d.pageCap < 0:
		return Descriptor{}, fmt.Errorf("page cap must not be negative, got %d: %w", d.pageCap, otcoerrors.ErrInvalidInput)
	case d.pageCap == 0:
		d.pageCap = DefaultPageCap
	}

	// The paginator owns these two parameters.
	d.query.Del("page")
	d.query.Del("per_page")

	return d, nil
}

func (d Descriptor) Path() string      { return d.path }
func (d Descriptor) PageSize() int     { return d.pageSize }
func (d Descriptor) FetchAll() bool    { return d.fetchAll }
func (d Descriptor) PageCap() int      { return d.pageCap }
func (d Descriptor) ListField() string { return d.listField }
func (d Descriptor) CursorPaged() bool { return d.cursor }

// Query returns a copy of the filter parameters.
func (d Descriptor) Query() url.Values {
	return cloneValues(d.query)
}

func (d Descriptor) String() string {
	if len(d.query) == 0 {
		return d.path
	}
	return d.path + "?" + d.query.Encode()
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vs := range v {
		out[k] = append([]string(nil), vs...)
	}
	return out
}

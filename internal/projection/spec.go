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

// Package projection reduces a RecordSet by field selection, sorting and a
// row limit. It never mutates its input: Project always builds a new
// RecordSet so the raw result can be rendered several times.
package projection

import (
	"fmt"
	"strings"

	otcoerrors "github.com/sirseerhq/sirseer-otco/internal/errors"
)

// DescendingPrefix marks a descending sort key, as in "-created_at".
const DescendingPrefix = "-"

// SortKey names the field to sort by.
type SortKey struct {
	Field      string
	Descending bool
}

// Spec is a projection: which fields to keep, how to sort, how many rows.
// The zero value keeps everything.
type Spec struct {
	// Fields lists the fields to keep, in output order. Empty keeps all fields.
	Fields []string
	// Sort is the optional sort key.
	Sort *SortKey
	// Limit caps the number of rows after sorting; 0 means unlimited.
	Limit int
}

// Parse builds a Spec from command-line style values: a comma separated field
// list, a sort field optionally prefixed with "-", and a row limit.
func Parse(fields, sortBy string, limit int) (Spec, error) {
	var spec Spec

	if strings.TrimSpace(fields) != "" {
		seen := make(map[string]struct{})
		for _, f := range strings.Split(fields, ",") {
			f = strings.TrimSpace(f)
			if f == "" {
				continue
			}
			if _, dup := seen[f]; dup {
				continue
			}
			seen[f] = struct{}{}
			spec.Fields = append(spec.Fields, f)
		}
		if len(spec.Fields) == 0 {
			return Spec{}, fmt.Errorf("--fields %q names no fields: %w", fields, otcoerrors.ErrInvalidInput)
		}
	}

	if sortBy = strings.TrimSpace(sortBy); sortBy != "" {
		key := &SortKey{Field: sortBy}
		if strings.HasPrefix(sortBy, DescendingPrefix) {
			key.Descending = true
			key.Field = strings.TrimSpace(strings.TrimPrefix(sortBy, DescendingPrefix))
		}
		if key.Field == "" {
			return Spec{}, fmt.Errorf("--sort %q names no field: %w", sortBy, otcoerrors.ErrInvalidInput)
		}
		spec.Sort = key
	}

	if limit < 0 {
		return Spec{}, fmt.Errorf("--limit must not be negative, got %d: %w", limit, otcoerrors.ErrInvalidInput)
	}
	spec.Limit = limit

	return spec, nil
}

// IsZero reports whether the spec leaves a RecordSet unchanged.
func (s Spec) IsZero() bool {
	return len(s.Fields) == 0 && s.Sort == nil && s.Limit == 0
}

func (s Spec) String() string {
	var parts []string
	if len(s.Fields) > 0 {
		parts = append(parts, "fields="+strings.Join(s.Fields, ","))
	}
	if s.Sort != nil {
		dir := "asc"
		if s.Sort.Descending {
			dir = "desc"
		}
		parts = append(parts, fmt.Sprintf("sort=%s %s", s.Sort.Field, dir))
	}
	if s.Limit > 0 {
		parts = append(parts, fmt.Sprintf("limit=%d", s.Limit))
	}
	if len(parts) == 0 {
		return "all"
	}
	return strings.Join(parts, " ")
}

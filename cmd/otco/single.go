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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/sirseerhq/sirseer-otco/internal/record"
)

func newAuthCommand(a *app) *cobra.Command {
	whoami := &cobra.Command{
		Use:   "whoami",
		Short: "Show the user the token authenticates as",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runSingle(cmd.Context(), "/user", func(v any) (*record.RecordSet, error) {
				r, ok := v.(*record.Record)
				if !ok {
					return nil, fmt.Errorf("unexpected /user response: %s", record.KindOf(v))
				}
				return record.NewSet(r), nil
			})
		},
	}
	return newGroupCommand("auth", "Authentication", whoami)
}

func newMetaCommand(a *app) *cobra.Command {
	rateLimit := &cobra.Command{
		Use:   "rate-limit",
		Short: "Show rate limit quota per resource",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runSingle(cmd.Context(), "/rate_limit", rateLimitRecords)
		},
	}
	return newGroupCommand("meta", "API metadata", rateLimit)
}

// runSingle fetches one non-list path and renders what toSet makes of it.
func (a *app) runSingle(ctx context.Context, path string, toSet func(any) (*record.RecordSet, error)) error {
	sess, err := a.openSession(ctx, nil)
	if err != nil {
		return err
	}
	defer sess.Close()

	v, _, err := sess.paginator.FetchOne(ctx, path, nil)
	if err != nil {
		return err
	}
	rs, err := toSet(v)
	if err != nil {
		return err
	}
	return a.render(ctx, rs)
}

// rateLimitRecords flattens GET /rate_limit into one record per resource.
func rateLimitRecords(v any) (*record.RecordSet, error) {
	doc, ok := v.(*record.Record)
	if !ok {
		return nil, fmt.Errorf("unexpected /rate_limit response: %s", record.KindOf(v))
	}
	raw, _ := doc.Get("resources")
	resources, ok := raw.(*record.Record)
	if !ok {
		return nil, fmt.Errorf("/rate_limit response has no resources object")
	}

	rs := &record.RecordSet{Columns: []string{"resource", "limit", "used", "remaining", "reset"}}
	for _, name := range resources.Keys() {
		v, _ := resources.Get(name)
		res, ok := v.(*record.Record)
		if !ok {
			continue
		}
		out := record.New().Set("resource", name)
		for _, field := range []string{"limit", "used", "remaining"} {
			val, _ := res.Get(field)
			out.Set(field, val)
		}
		reset, _ := res.Get("reset")
		out.Set("reset", resetTime(reset))
		rs.Append(out)
	}
	return rs, nil
}

// resetTime renders an epoch seconds value as RFC 3339 UTC.
func resetTime(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	secs, err := strconv.ParseInt(n.String(), 10, 64)
	if err != nil {
		return v
	}
	return time.Unix(secs, 0).UTC().Format(time.RFC3339)
}

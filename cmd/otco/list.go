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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sirseerhq/sirseer-otco/internal/config"
	"github.com/sirseerhq/sirseer-otco/internal/endpoints"
	"github.com/sirseerhq/sirseer-otco/internal/fetch"
	"github.com/sirseerhq/sirseer-otco/internal/logging"
	"github.com/sirseerhq/sirseer-otco/internal/metadata"
	"github.com/sirseerhq/sirseer-otco/internal/output"
	"github.com/sirseerhq/sirseer-otco/internal/projection"
	"github.com/sirseerhq/sirseer-otco/internal/record"
	"github.com/sirseerhq/sirseer-otco/internal/state"
	"github.com/sirseerhq/sirseer-otco/internal/version"
)

// listRequest is one listing invocation.
type listRequest struct {
	endpoint    endpoints.Endpoint
	target      string
	values      map[string]string
	incremental bool
}

// newListCommand builds a command for ep with one flag per endpoint filter.
func newListCommand(a *app, use, short string, ep endpoints.Endpoint) *cobra.Command {
	values := make(map[string]*string, len(ep.Filters))
	var incremental bool

	argName := "<owner/repo>"
	if ep.Target == endpoints.TargetOrg {
		argName = "<org>"
	}

	cmd := &cobra.Command{
		Use:   use + " " + argName,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := listRequest{
				endpoint:    ep,
				target:      args[0],
				values:      make(map[string]string, len(values)),
				incremental: incremental,
			}
			for name, v := range values {
				req.values[name] = *v
			}
			return a.runList(cmd.Context(), req)
		},
	}

	for _, f := range ep.Filters {
		usage := f.Usage
		if len(f.Allowed) > 0 {
			usage += " (" + strings.Join(f.Allowed, "|") + ")"
		}
		values[f.Name] = cmd.Flags().String(f.Name, f.Default, usage)
	}
	if hasSince(ep) {
		cmd.Flags().BoolVar(&incremental, "incremental", false,
			"Only fetch records updated since the last complete fetch, then save the new state")
	}
	return cmd
}

func hasSince(ep endpoints.Endpoint) bool {
	for _, f := range ep.Filters {
		if f.Name == "since" && f.Timestamp {
			return true
		}
	}
	return false
}

// runList fetches, filters, projects and renders one listing.
func (a *app) runList(ctx context.Context, req listRequest) error {
	cfg, err := a.config()
	if err != nil {
		return err
	}

	// Argument errors are reported before any request is made.
	spec, err := projection.Parse(a.flags.fields, a.flags.sort, a.flags.limit)
	if err != nil {
		return err
	}
	format, err := output.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}

	statePath := state.FilePath(cfg.State.Dir, req.endpoint.Key, req.target)
	if req.incremental {
		if err := a.applyState(statePath, req); err != nil {
			return err
		}
	}

	d, err := req.endpoint.Descriptor(req.target, req.values,
		fetch.WithPageSize(cfg.Pagination.PerPage),
		fetch.WithPageCap(cfg.Pagination.PageCap),
		fetch.WithFetchAll(a.flags.all),
	)
	if err != nil {
		return err
	}
	keep, err := req.endpoint.ClientFilter(req.values)
	if err != nil {
		return err
	}

	tracker := metadata.New(a.fetchID)
	obs := observers{tracker}
	var prog *progress
	if f, ok := a.stderr.(*os.File); ok && logging.IsTerminal(f) {
		prog = newProgress(a.stderr, req.target+" "+req.endpoint.Key)
		obs = append(obs, prog)
	}

	sess, err := a.openSession(ctx, obs)
	if err != nil {
		return err
	}
	defer sess.Close()

	if a.flags.all && req.endpoint.Count != "" && (prog != nil || a.flags.saveMetadata) {
		if n, ok := a.countHint(ctx, sess, req); ok {
			tracker.SetTotalHint(n)
			if prog != nil {
				prog.SetTotal(n)
			}
		}
	}

	started := time.Now()
	rs, truncated, err := sess.paginator.FetchAll(ctx, d)
	if prog != nil {
		prog.Done()
	}
	if err != nil {
		return err
	}
	fetched := rs.Len()
	rs = endpoints.FilterSet(rs, keep)

	if err := output.ProjectAndRender(ctx, rs, spec, format, a.sink(), output.Options{
		MaxColumnWidth: cfg.Output.MaxColumnWidth,
	}); err != nil {
		return err
	}

	if truncated {
		fmt.Fprintf(a.stderr, "Warning: results truncated at %d pages (%d records fetched). Use --all to fetch every page.\n",
			sess.paginator.PageCap(d), fetched)
	}

	a.logger.Info().
		Str("endpoint", req.endpoint.Key).
		Str("target", req.target).
		Int("pages", tracker.Pages()).
		Int("records", fetched).
		Int("rendered", rs.Len()).
		Bool("truncated", truncated).
		Dur("duration", time.Since(started)).
		Msg("fetch complete")

	if a.flags.saveMetadata {
		if err := a.saveMetadata(cfg, tracker, req, d, truncated); err != nil {
			return err
		}
	}

	if req.incremental && !truncated {
		st := &state.FetchState{
			Endpoint:      req.endpoint.Key,
			Target:        req.target,
			LastFetchID:   a.fetchID,
			Since:         started.UTC().Truncate(time.Second),
			LastFetchTime: time.Now().UTC(),
			TotalFetched:  fetched,
		}
		if err := state.SaveState(st, statePath); err != nil {
			return err
		}
	} else if req.incremental {
		a.logger.Warn().Msg("incremental state not saved because the fetch was truncated")
	}
	return nil
}

// applyState fills the since filter from saved state unless given.
func (a *app) applyState(path string, req listRequest) error {
	prev, err := state.LoadState(path)
	switch {
	case errors.Is(err, state.ErrNoState):
		a.logger.Info().Str("target", req.target).Msg("no previous state, fetching everything")
		return nil
	case err != nil:
		return err
	}
	if req.values["since"] == "" {
		req.values["since"] = prev.Since.UTC().Format(time.RFC3339)
	}
	return nil
}

// countHint asks GraphQL for a total. Failures only lose the hint.
func (a *app) countHint(ctx context.Context, sess *session, req listRequest) (int, bool) {
	owner, repo, err := endpoints.ParseRepository(req.target)
	if err != nil {
		return 0, false
	}
	n, err := sess.graphql.CountHint(ctx, req.endpoint.Count, owner, repo, req.values["state"])
	if err != nil {
		a.logger.Debug().Err(err).Msg("count hint unavailable")
		return 0, false
	}
	return n, true
}

func (a *app) saveMetadata(cfg *config.Config, tracker *metadata.Tracker, req listRequest, d fetch.Descriptor, truncated bool) error {
	dir := filepath.Join(cfg.State.Dir, "metadata")

	var previous *metadata.FetchRef
	if req.incremental {
		prev, err := metadata.LoadLatestMetadata(dir, req.endpoint.Key, req.target)
		if err != nil {
			a.logger.Warn().Err(err).Msg("could not read previous metadata")
		} else if prev != nil {
			previous = prev.Ref()
		}
	}

	query := make(map[string]string)
	for k := range d.Query() {
		query[k] = d.Query().Get(k)
	}
	params := metadata.FetchParams{
		Endpoint: req.endpoint.Key,
		Target:   req.target,
		Path:     d.Path(),
		Query:    query,
		FetchAll: d.FetchAll(),
		PageSize: d.PageSize(),
		PageCap:  d.PageCap(),
	}

	m := tracker.GenerateMetadata(version.Version, params, truncated, req.incremental, previous)
	path, err := metadata.SaveMetadata(m, dir)
	if err != nil {
		return err
	}
	a.logger.Debug().Str("path", path).Msg("metadata saved")
	return nil
}

// sink returns the output destination.
func (a *app) sink() output.Sink {
	if a.flags.outputFile != "" {
		return output.NewFileSink(a.flags.outputFile)
	}
	return output.NewStreamSink(a.stdout)
}

// render writes rs through the same projection and format as listings.
func (a *app) render(ctx context.Context, rs *record.RecordSet) error {
	cfg, err := a.config()
	if err != nil {
		return err
	}
	spec, err := projection.Parse(a.flags.fields, a.flags.sort, a.flags.limit)
	if err != nil {
		return err
	}
	format, err := output.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}
	return output.ProjectAndRender(ctx, rs, spec, format, a.sink(), output.Options{
		MaxColumnWidth: cfg.Output.MaxColumnWidth,
	})
}

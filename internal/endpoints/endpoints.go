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

// Package endpoints is the catalog of GitHub REST list endpoints otco can
// query. Each Endpoint turns a target ("org" or "owner/repo") and filter
// values into a fetch.Descriptor; the fetch engine knows nothing about
// individual endpoints.
package endpoints

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	otcoerrors "github.com/sirseerhq/sirseer-otco/internal/errors"
	"github.com/sirseerhq/sirseer-otco/internal/fetch"
	"github.com/sirseerhq/sirseer-otco/internal/github"
	"github.com/sirseerhq/sirseer-otco/internal/record"
)

// Target is what an endpoint path is scoped to.
type Target int

const (
	TargetOrg Target = iota
	TargetRepo
)

// Filter is one command-line filter of an endpoint.
type Filter struct {
	// Name is the flag name.
	Name string

	// Param is the query parameter, or the record field for client side
	// filters. Defaults to Name.
	Param string

	Usage   string
	Default string

	// Allowed restricts values when non-empty.
	Allowed []string

	// Timestamp requires an RFC 3339 value.
	Timestamp bool

	// Client filters are applied to fetched records instead of being sent.
	Client bool
}

func (f Filter) param() string {
	if f.Param != "" {
		return f.Param
	}
	return f.Name
}

// Endpoint describes one list endpoint.
type Endpoint struct {
	// Key identifies the endpoint in state files and metadata, e.g. "issues".
	Key string

	// Path is a template with {org}, {owner} and {repo} placeholders.
	Path   string
	Target Target

	// ListField names the array field of a wrapper object response.
	ListField string

	// CursorPaged endpoints page through Link header cursors only.
	CursorPaged bool

	Filters []Filter

	// Count enables a GraphQL total count hint for progress output.
	Count github.CountKind
}

var (
	OrgRepos = Endpoint{
		Key:    "repos",
		Path:   "/orgs/{org}/repos",
		Target: TargetOrg,
		Filters: []Filter{
			{Name: "type", Usage: "Repository type", Default: "all",
				Allowed: []string{"all", "public", "private", "forks", "sources", "member"}},
		},
	}

	Issues = Endpoint{
		Key:    "issues",
		Path:   "/repos/{owner}/{repo}/issues",
		Target: TargetRepo,
		Count:  github.CountIssues,
		Filters: []Filter{
			{Name: "state", Usage: "Issue state", Default: "open", Allowed: []string{"open", "closed", "all"}},
			{Name: "labels", Usage: "Comma separated label names"},
			{Name: "assignee", Usage: "Assignee login, \"none\" or \"*\""},
			{Name: "milestone", Usage: "Milestone number, \"none\" or \"*\""},
			{Name: "since", Usage: "Only issues updated at or after this RFC 3339 time", Timestamp: true},
		},
	}

	PullRequests = Endpoint{
		Key:    "pulls",
		Path:   "/repos/{owner}/{repo}/pulls",
		Target: TargetRepo,
		Count:  github.CountPullRequests,
		Filters: []Filter{
			{Name: "state", Usage: "Pull request state", Default: "open", Allowed: []string{"open", "closed", "all"}},
			{Name: "base", Usage: "Base branch name"},
			{Name: "draft", Usage: "Only draft (true) or ready (false) pull requests", Allowed: []string{"true", "false"}, Client: true},
		},
	}

	Workflows = Endpoint{
		Key:       "workflows",
		Path:      "/repos/{owner}/{repo}/actions/workflows",
		Target:    TargetRepo,
		ListField: "workflows",
	}

	WorkflowRuns = Endpoint{
		Key:       "workflow_runs",
		Path:      "/repos/{owner}/{repo}/actions/runs",
		Target:    TargetRepo,
		ListField: "workflow_runs",
		Filters: []Filter{
			{Name: "branch", Usage: "Branch name"},
			{Name: "status", Usage: "Run status", Allowed: []string{
				"queued", "in_progress", "completed", "waiting", "requested", "pending", "action_required",
				"success", "failure", "cancelled", "neutral", "skipped", "stale", "timed_out",
			}},
			{Name: "conclusion", Usage: "Run conclusion", Client: true, Allowed: []string{
				"success", "failure", "cancelled", "neutral", "skipped", "stale", "timed_out", "action_required",
			}},
		},
	}

	DependabotAlerts = Endpoint{
		Key:         "dependabot_alerts",
		Path:        "/repos/{owner}/{repo}/dependabot/alerts",
		Target:      TargetRepo,
		CursorPaged: true,
		Filters: []Filter{
			{Name: "state", Usage: "Alert state", Allowed: []string{"auto_dismissed", "dismissed", "fixed", "open"}},
			{Name: "severity", Usage: "Alert severity", Allowed: []string{"low", "medium", "high", "critical"}},
		},
	}

	CodeScanningAlerts = Endpoint{
		Key:    "code_scanning_alerts",
		Path:   "/repos/{owner}/{repo}/code-scanning/alerts",
		Target: TargetRepo,
		Filters: []Filter{
			{Name: "state", Usage: "Alert state", Allowed: []string{"open", "closed", "dismissed", "fixed"}},
			{Name: "severity", Usage: "Alert severity", Allowed: []string{"critical", "high", "medium", "low", "warning", "note", "error"}},
		},
	}

	SecretScanningAlerts = Endpoint{
		Key:    "secret_scanning_alerts",
		Path:   "/repos/{owner}/{repo}/secret-scanning/alerts",
		Target: TargetRepo,
		Filters: []Filter{
			{Name: "state", Usage: "Alert state", Allowed: []string{"open", "resolved"}},
			{Name: "secret-type", Param: "secret_type", Usage: "Comma separated secret types"},
		},
	}
)

// Catalog lists every list endpoint.
func Catalog() []Endpoint {
	return []Endpoint{
		OrgRepos, Issues, PullRequests, Workflows, WorkflowRuns,
		DependabotAlerts, CodeScanningAlerts, SecretScanningAlerts,
	}
}

var (
	ownerPattern = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9-]*[A-Za-z0-9])?$`)
	repoPattern  = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
)

// ParseRepository splits "owner/repo".
func ParseRepository(s string) (owner, repo string, err error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository format %q, expected owner/repo: %w", s, otcoerrors.ErrInvalidInput)
	}
	owner, repo = parts[0], parts[1]
	if !ownerPattern.MatchString(owner) {
		return "", "", fmt.Errorf("invalid owner %q: %w", owner, otcoerrors.ErrInvalidInput)
	}
	if !repoPattern.MatchString(repo) || repo == "." || repo == ".." {
		return "", "", fmt.Errorf("invalid repository name %q: %w", repo, otcoerrors.ErrInvalidInput)
	}
	return owner, repo, nil
}

// ParseOrg validates an organization login.
func ParseOrg(s string) (string, error) {
	if !ownerPattern.MatchString(s) {
		return "", fmt.Errorf("invalid organization %q: %w", s, otcoerrors.ErrInvalidInput)
	}
	return s, nil
}

// Expand substitutes target into the path template.
func (e Endpoint) Expand(target string) (string, error) {
	switch e.Target {
	case TargetOrg:
		org, err := ParseOrg(target)
		if err != nil {
			return "", err
		}
		return strings.ReplaceAll(e.Path, "{org}", org), nil
	default:
		owner, repo, err := ParseRepository(target)
		if err != nil {
			return "", err
		}
		return strings.NewReplacer("{owner}", owner, "{repo}", repo).Replace(e.Path), nil
	}
}

// Query validates values (keyed by filter name) and returns the query
// parameters to send. Empty values are omitted and client filters are
// never sent.
func (e Endpoint) Query(values map[string]string) (url.Values, error) {
	q := url.Values{}
	for _, f := range e.Filters {
		v, err := f.value(values)
		if err != nil {
			return nil, err
		}
		if v == "" || f.Client {
			continue
		}
		q.Set(f.param(), v)
	}
	return q, nil
}

func (f Filter) value(values map[string]string) (string, error) {
	v := strings.TrimSpace(values[f.Name])
	if v == "" {
		v = f.Default
	}
	if v == "" {
		return "", nil
	}
	if len(f.Allowed) > 0 && !slices.Contains(f.Allowed, v) {
		return "", fmt.Errorf("invalid --%s %q (want one of %s): %w",
			f.Name, v, strings.Join(f.Allowed, ", "), otcoerrors.ErrInvalidInput)
	}
	if f.Timestamp {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return "", fmt.Errorf("invalid --%s %q, expected RFC 3339 such as 2024-01-02T15:04:05Z: %w",
				f.Name, v, otcoerrors.ErrInvalidInput)
		}
		v = ts.UTC().Format(time.RFC3339)
	}
	return v, nil
}

// Descriptor builds the fetch descriptor for target and values.
func (e Endpoint) Descriptor(target string, values map[string]string, opts ...fetch.Option) (fetch.Descriptor, error) {
	path, err := e.Expand(target)
	if err != nil {
		return fetch.Descriptor{}, err
	}
	q, err := e.Query(values)
	if err != nil {
		return fetch.Descriptor{}, err
	}
	if e.ListField != "" {
		opts = append(opts, fetch.WithListField(e.ListField))
	}
	if e.CursorPaged {
		opts = append(opts, fetch.WithCursorPaging())
	}
	return fetch.NewDescriptor(path, q, opts...)
}

// ClientFilter returns a predicate applying the endpoint's client side
// filters, or nil when none is set.
func (e Endpoint) ClientFilter(values map[string]string) (func(*record.Record) bool, error) {
	type match struct {
		field string
		want  string
	}
	var matches []match
	for _, f := range e.Filters {
		if !f.Client {
			continue
		}
		v, err := f.value(values)
		if err != nil {
			return nil, err
		}
		if v != "" {
			matches = append(matches, match{field: f.param(), want: v})
		}
	}
	if len(matches) == 0 {
		return nil, nil
	}

	return func(r *record.Record) bool {
		for _, m := range matches {
			v, _ := r.Get(m.field)
			if scalarText(v) != m.want {
				return false
			}
		}
		return true
	}, nil
}

func scalarText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	}
	return ""
}

// FilterSet returns the records of rs that keep reports true, preserving
// order. The input set is not modified.
func FilterSet(rs *record.RecordSet, keep func(*record.Record) bool) *record.RecordSet {
	if keep == nil {
		return rs
	}
	out := &record.RecordSet{Columns: rs.Columns}
	for _, r := range rs.Records {
		if keep(r) {
			out.Append(r)
		}
	}
	return out
}

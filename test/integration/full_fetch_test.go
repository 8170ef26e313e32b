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

package integration

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirseerhq/sirseer-otco/test/testutil"
)

// TestFullFetch walks every page with --all and compares against the page
// capped default.
func TestFullFetch(t *testing.T) {
	requireIntegration(t)

	tests := []struct {
		name          string
		total         int
		args          []string
		wantRecords   int
		wantRequests  int
		wantTruncated bool
	}{
		{
			name:         "single page",
			total:        8,
			args:         []string{"--per-page", "10"},
			wantRecords:  8,
			wantRequests: 1,
		},
		{
			name:         "exact page boundary",
			total:        20,
			args:         []string{"--all", "--per-page", "10"},
			wantRecords:  20,
			wantRequests: 2,
		},
		{
			name:         "many pages with all",
			total:        250,
			args:         []string{"--all", "--per-page", "100"},
			wantRecords:  250,
			wantRequests: 3,
		},
		{
			name:          "page cap truncates",
			total:         250,
			args:          []string{"--per-page", "20", "--pages", "3"},
			wantRecords:   60,
			wantRequests:  3,
			wantTruncated: true,
		},
		{
			name:         "page cap larger than result",
			total:        30,
			args:         []string{"--per-page", "20", "--pages", "5"},
			wantRecords:  30,
			wantRequests: 2,
		},
		{
			name:         "empty repository",
			total:        0,
			args:         []string{"--all"},
			wantRecords:  0,
			wantRequests: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := issuesServer(t, tt.total)

			args := append([]string{"issues", "list", repo, "-o", "json"}, tt.args...)
			result := testutil.RunAgainst(t, srv, nil, args...)
			testutil.AssertCLISuccess(t, result)

			testutil.AssertJSONRecords(t, result.Stdout, tt.wantRecords)
			if got := srv.RequestCount(); got != tt.wantRequests {
				t.Errorf("requests = %d, want %d", got, tt.wantRequests)
			}
			truncated := strings.Contains(result.Stderr, "results truncated")
			if truncated != tt.wantTruncated {
				t.Errorf("truncation warning = %v, want %v; stderr: %s", truncated, tt.wantTruncated, result.Stderr)
			}
		})
	}
}

func TestFetchWithoutLinkHeaders(t *testing.T) {
	requireIntegration(t)

	srv := testutil.NewGitHubServer(t)
	srv.Handle(issuesPath, testutil.Route{Items: testutil.GenerateIssues(1, 25), NoLink: true})

	result := testutil.RunAgainst(t, srv, nil, "issues", "list", repo, "--all", "--per-page", "10", "-o", "json")
	testutil.AssertCLISuccess(t, result)
	testutil.AssertJSONRecords(t, result.Stdout, 25)

	reqs := srv.RequestsTo(issuesPath)
	if len(reqs) != 3 {
		t.Fatalf("requests = %d, want 3", len(reqs))
	}
	if got := reqs[2].Query.Get("page"); got != "3" {
		t.Errorf("third request page = %q, want 3", got)
	}
}

// TestOutputFormats renders the same listing in every format.
func TestOutputFormats(t *testing.T) {
	requireIntegration(t)

	tests := []struct {
		format string
		verify func(t *testing.T, out string)
	}{
		{
			format: "json",
			verify: func(t *testing.T, out string) {
				records := testutil.AssertJSONRecords(t, out, 3)
				if len(records[0]) != 2 {
					t.Errorf("fields = %v, want number and title only", records[0])
				}
			},
		},
		{
			format: "yaml",
			verify: func(t *testing.T, out string) {
				testutil.AssertContainsString(t, out, "- number: 3\n  title: Issue 3\n")
			},
		},
		{
			format: "csv",
			verify: func(t *testing.T, out string) {
				rows := testutil.AssertCSVOutput(t, out, []string{"number", "title"}, 3)
				if rows[0][0] != "3" {
					t.Errorf("first row = %v, want sorted descending", rows[0])
				}
			},
		},
		{
			format: "psv",
			verify: func(t *testing.T, out string) {
				testutil.AssertContainsString(t, out, "number|title\n3|Issue 3\n")
			},
		},
		{
			format: "table",
			verify: func(t *testing.T, out string) {
				lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
				if len(lines) != 5 {
					t.Fatalf("table lines = %d, want header, rule and 3 rows:\n%s", len(lines), out)
				}
				if !strings.HasPrefix(lines[1], "------") {
					t.Errorf("rule line = %q", lines[1])
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			srv := issuesServer(t, 3)
			result := testutil.RunAgainst(t, srv, nil, "issues", "list", repo,
				"-o", tt.format, "--fields", "number,title", "--sort", "-number")
			testutil.AssertCLISuccess(t, result)
			tt.verify(t, result.Stdout)
		})
	}
}

func TestEmptyResultFormats(t *testing.T) {
	requireIntegration(t)

	tests := []struct {
		format string
		want   string
	}{
		{"json", "[]\n"},
		{"yaml", "[]\n"},
		{"table", "No results.\n"},
		{"csv", "number,title\n"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			srv := issuesServer(t, 0)
			result := testutil.RunAgainst(t, srv, nil, "issues", "list", repo, "-o", tt.format, "--fields", "number,title")
			testutil.AssertCLISuccess(t, result)
			if result.Stdout != tt.want {
				t.Errorf("output = %q, want %q", result.Stdout, tt.want)
			}
		})
	}
}

func TestOrgRepos(t *testing.T) {
	requireIntegration(t)

	srv := testutil.NewGitHubServer(t)
	srv.Handle("/orgs/octo/repos", testutil.Route{Items: testutil.GenerateRepos("octo", 45)})

	for _, cmd := range [][]string{{"org", "repos"}, {"repo", "list"}} {
		t.Run(strings.Join(cmd, " "), func(t *testing.T) {
			args := append(cmd, "octo", "--all", "--per-page", "20", "--type", "private", "-o", "json", "--fields", "full_name,private")
			result := testutil.RunAgainst(t, srv, nil, args...)
			testutil.AssertCLISuccess(t, result)
			testutil.AssertJSONRecords(t, result.Stdout, 45)
		})
	}

	for _, r := range srv.RequestsTo("/orgs/octo/repos") {
		if r.Query.Get("type") != "private" {
			t.Errorf("type = %q, want private", r.Query.Get("type"))
		}
	}
}

func TestNestedValuesInDelimitedOutput(t *testing.T) {
	requireIntegration(t)

	srv := testutil.NewGitHubServer(t)
	srv.Handle(issuesPath, testutil.Route{Items: []map[string]any{
		testutil.NewIssueBuilder(1).WithAuthor("alice").WithLabels("bug").Build(),
		testutil.NewIssueBuilder(2).WithAuthor("bob").Build(),
	}})

	result := testutil.RunAgainst(t, srv, nil, "issues", "list", repo, "-o", "csv", "--fields", "number,user,labels,missing")
	testutil.AssertCLISuccess(t, result)

	rows := testutil.AssertCSVOutput(t, result.Stdout, []string{"number", "user", "labels", "missing"}, 2)
	if rows[0][1] != `{"login":"alice"}` || rows[1][1] != `{"login":"bob"}` {
		t.Errorf("user column = %v, %v", rows[0], rows[1])
	}
	if rows[0][2] != `[{"name":"bug"}]` || rows[1][2] != `[]` {
		t.Errorf("labels column = %q, %q", rows[0][2], rows[1][2])
	}
	if rows[0][2] != "" {
		t.Errorf("missing field rendered as %q, want empty", rows[0][2])
	}
}

func TestOutputFileIsAtomic(t *testing.T) {
	requireIntegration(t)

	srv := issuesServer(t, 5)
	out := filepath.Join(t.TempDir(), "issues.csv")
	testutil.WriteFile(t, filepath.Dir(out), "issues.csv", "previous content\n")

	result := testutil.RunAgainst(t, srv, nil, "issues", "list", repo, "-o", "csv", "--output-file", out, "--fields", "number")
	testutil.AssertCLISuccess(t, result)
	if result.Stdout != "" {
		t.Errorf("stdout = %q, want empty", result.Stdout)
	}
	testutil.AssertCSVOutput(t, testutil.ReadFile(t, out), []string{"number"}, 5)
	testutil.AssertFilePermissions(t, out, 0o644)

	// A failed fetch leaves the previous file untouched.
	srv.FailNext(testutil.Failure{Status: 404})
	result = testutil.RunAgainst(t, srv, nil, "issues", "list", repo, "-o", "csv", "--output-file", out)
	testutil.AssertExitCode(t, result, 2)
	testutil.AssertCSVOutput(t, testutil.ReadFile(t, out), []string{"number"}, 5)
}

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

// Package integration runs the otco binary against a fake GitHub API.
package integration

import (
	"os"
	"testing"

	"github.com/sirseerhq/sirseer-otco/test/testutil"
)

const (
	repo       = "octo/hello"
	issuesPath = "/repos/octo/hello/issues"
)

// requireIntegration skips unless INTEGRATION_TEST=true, since every test
// here builds the binary.
func requireIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv("INTEGRATION_TEST") != "true" {
		t.Skip("Skipping integration test. Set INTEGRATION_TEST=true to run.")
	}
}

// issuesServer serves n generated issues for octo/hello.
func issuesServer(t *testing.T, n int) *testutil.GitHubServer {
	t.Helper()
	srv := testutil.NewGitHubServer(t)
	srv.Handle(issuesPath, testutil.Route{Items: testutil.GenerateIssues(1, n)})
	return srv
}

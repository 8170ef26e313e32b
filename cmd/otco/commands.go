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
	"github.com/spf13/cobra"

	"github.com/sirseerhq/sirseer-otco/internal/endpoints"
)

func newGroupCommand(use, short string, subs ...*cobra.Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
	}
	cmd.AddCommand(subs...)
	return cmd
}

func newOrgCommand(a *app) *cobra.Command {
	return newGroupCommand("org", "Organization listings",
		newListCommand(a, "repos", "List repositories of an organization", endpoints.OrgRepos),
	)
}

func newRepoCommand(a *app) *cobra.Command {
	return newGroupCommand("repo", "Repository listings",
		newListCommand(a, "list", "List repositories of an organization", endpoints.OrgRepos),
	)
}

func newIssuesCommand(a *app) *cobra.Command {
	list := newListCommand(a, "list", "List issues of a repository", endpoints.Issues)
	list.Long = `List issues of a repository.

GitHub's issues endpoint also returns pull requests; those records carry a
pull_request field.

With --incremental, the since filter defaults to the start of the last
complete fetch of the same repository, and the state is updated after a
fetch that was not truncated.`
	return newGroupCommand("issues", "Issue listings", list)
}

func newPRsCommand(a *app) *cobra.Command {
	list := newListCommand(a, "list", "List pull requests of a repository", endpoints.PullRequests)
	list.Long = `List pull requests of a repository.

--draft is applied to the fetched records, since the REST endpoint has no
draft filter. The page cap therefore counts pages before that filter.`
	return newGroupCommand("prs", "Pull request listings", list)
}

func newActionsCommand(a *app) *cobra.Command {
	return newGroupCommand("actions", "GitHub Actions listings",
		newListCommand(a, "workflows", "List workflows of a repository", endpoints.Workflows),
		newListCommand(a, "runs", "List workflow runs of a repository", endpoints.WorkflowRuns),
	)
}

func newSecurityCommand(a *app) *cobra.Command {
	return newGroupCommand("security", "Security alert listings",
		newListCommand(a, "dependabot", "List Dependabot alerts of a repository", endpoints.DependabotAlerts),
		newListCommand(a, "code-scanning", "List code scanning alerts of a repository", endpoints.CodeScanningAlerts),
		newListCommand(a, "secret-scanning", "List secret scanning alerts of a repository", endpoints.SecretScanningAlerts),
	)
}

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

package github

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shurcooL/graphql"
	otcoerrors "github.com/sirseerhq/sirseer-otco/internal/errors"
	"github.com/sirseerhq/sirseer-otco/internal/giterror"
)

// IssueState and PullRequestState are named after the GraphQL enums so the
// query variables are typed correctly.
type (
	IssueState       string
	PullRequestState string
)

// CountKind selects what CountHint counts.
type CountKind string

const (
	CountIssues       CountKind = "issues"
	CountPullRequests CountKind = "pulls"
)

// GraphQLClient answers count queries. REST list endpoints do not report a
// total, so this is how progress output estimates the remaining work.
type GraphQLClient struct {
	client    *graphql.Client
	inspector giterror.Inspector
}

// NewGraphQLClient uses httpClient for transport, normally Transport.HTTPClient.
func NewGraphQLClient(endpoint string, httpClient *http.Client) *GraphQLClient {
	return &GraphQLClient{
		client:    graphql.NewClient(endpoint, httpClient),
		inspector: giterror.NewInspector(),
	}
}

// CountHint returns how many issues or pull requests owner/repo has in the
// REST state filter ("open", "closed" or "all"). The REST issues endpoint
// also lists pull requests, so the result is a lower bound there.
func (c *GraphQLClient) CountHint(ctx context.Context, kind CountKind, owner, repo, state string) (int, error) {
	variables := map[string]interface{}{
		"owner": graphql.String(owner),
		"repo":  graphql.String(repo),
	}

	var err error
	var total graphql.Int
	switch kind {
	case CountIssues:
		var query struct {
			Repository struct {
				Issues struct {
					TotalCount graphql.Int
				} `graphql:"issues(states: $states)"`
			} `graphql:"repository(owner: $owner, name: $repo)"`
		}
		variables["states"] = issueStates(state)
		err = c.client.Query(ctx, &query, variables)
		total = query.Repository.Issues.TotalCount
	case CountPullRequests:
		var query struct {
			Repository struct {
				PullRequests struct {
					TotalCount graphql.Int
				} `graphql:"pullRequests(states: $states)"`
			} `graphql:"repository(owner: $owner, name: $repo)"`
		}
		variables["states"] = pullRequestStates(state)
		err = c.client.Query(ctx, &query, variables)
		total = query.Repository.PullRequests.TotalCount
	default:
		return 0, fmt.Errorf("unknown count kind %q: %w", kind, otcoerrors.ErrInvalidInput)
	}

	if err != nil {
		return 0, c.mapError(ctx, err, owner, repo)
	}
	return int(total), nil
}

func issueStates(state string) []IssueState {
	switch state {
	case "open":
		return []IssueState{"OPEN"}
	case "closed":
		return []IssueState{"CLOSED"}
	default:
		return []IssueState{"OPEN", "CLOSED"}
	}
}

func pullRequestStates(state string) []PullRequestState {
	switch state {
	case "open":
		return []PullRequestState{"OPEN"}
	case "closed":
		return []PullRequestState{"CLOSED", "MERGED"}
	default:
		return []PullRequestState{"OPEN", "CLOSED", "MERGED"}
	}
}

func (c *GraphQLClient) mapError(ctx context.Context, err error, owner, repo string) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	// Check rate limit first, as 403 can be both auth and rate limit
	switch {
	case c.inspector.IsRateLimitError(err):
		return fmt.Errorf("count %s/%s: %w", owner, repo, otcoerrors.ErrRateLimit)
	case c.inspector.IsAuthError(err):
		return fmt.Errorf("count %s/%s: %w", owner, repo, otcoerrors.ErrInvalidToken)
	case c.inspector.IsNetworkError(err):
		return fmt.Errorf("count %s/%s: %v: %w", owner, repo, err, otcoerrors.ErrNetworkFailure)
	}
	return fmt.Errorf("count %s/%s: %w", owner, repo, err)
}

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

package testutil

import (
	"fmt"
	"time"
)

// baseTime anchors generated timestamps so fixtures are deterministic.
var baseTime = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

// IssueBuilder provides a fluent API for creating issue and pull request
// fixtures shaped like the REST API's.
type IssueBuilder struct {
	number    int
	title     string
	state     string
	author    string
	labels    []string
	draft     *bool
	isPull    bool
	createdAt time.Time
	updatedAt time.Time
	closedAt  *time.Time
}

// NewIssueBuilder creates an open issue with defaults derived from number.
func NewIssueBuilder(number int) *IssueBuilder {
	created := baseTime.Add(time.Duration(number) * time.Hour)
	return &IssueBuilder{
		number:    number,
		title:     fmt.Sprintf("Issue %d", number),
		state:     "open",
		author:    fmt.Sprintf("user%d", number),
		createdAt: created,
		updatedAt: created.Add(30 * time.Minute),
	}
}

// NewPullBuilder creates an open, non-draft pull request.
func NewPullBuilder(number int) *IssueBuilder {
	b := NewIssueBuilder(number)
	b.title = fmt.Sprintf("PR %d", number)
	b.isPull = true
	draft := false
	b.draft = &draft
	return b
}

// WithTitle sets the title.
func (b *IssueBuilder) WithTitle(title string) *IssueBuilder {
	b.title = title
	return b
}

// WithAuthor sets user.login.
func (b *IssueBuilder) WithAuthor(login string) *IssueBuilder {
	b.author = login
	return b
}

// WithLabels sets the label names.
func (b *IssueBuilder) WithLabels(labels ...string) *IssueBuilder {
	b.labels = labels
	return b
}

// WithDraft marks a pull request as draft or ready.
func (b *IssueBuilder) WithDraft(draft bool) *IssueBuilder {
	b.draft = &draft
	return b
}

// WithUpdatedAt sets updated_at.
func (b *IssueBuilder) WithUpdatedAt(t time.Time) *IssueBuilder {
	b.updatedAt = t
	return b
}

// WithClosedAt closes the item at t.
func (b *IssueBuilder) WithClosedAt(t time.Time) *IssueBuilder {
	b.closedAt = &t
	b.state = "closed"
	return b
}

// Build returns the fixture as decoded JSON.
func (b *IssueBuilder) Build() map[string]any {
	labels := make([]any, 0, len(b.labels))
	for _, l := range b.labels {
		labels = append(labels, map[string]any{"name": l})
	}

	item := map[string]any{
		"number":     b.number,
		"title":      b.title,
		"state":      b.state,
		"user":       map[string]any{"login": b.author},
		"labels":     labels,
		"created_at": b.createdAt.Format(time.RFC3339),
		"updated_at": b.updatedAt.Format(time.RFC3339),
		"closed_at":  nil,
	}
	if b.closedAt != nil {
		item["closed_at"] = b.closedAt.Format(time.RFC3339)
	}
	if b.isPull {
		item["draft"] = b.draft != nil && *b.draft
	}
	return item
}

// GenerateIssues returns issues numbered start..end inclusive.
func GenerateIssues(start, end int) []map[string]any {
	items := make([]map[string]any, 0, end-start+1)
	for i := start; i <= end; i++ {
		items = append(items, NewIssueBuilder(i).Build())
	}
	return items
}

// GeneratePulls returns pull requests numbered start..end inclusive. Every
// third one is a draft.
func GeneratePulls(start, end int) []map[string]any {
	items := make([]map[string]any, 0, end-start+1)
	for i := start; i <= end; i++ {
		items = append(items, NewPullBuilder(i).WithDraft(i%3 == 0).Build())
	}
	return items
}

// GenerateRepos returns repositories named repo-1..repo-n owned by org.
func GenerateRepos(org string, n int) []map[string]any {
	items := make([]map[string]any, 0, n)
	for i := 1; i <= n; i++ {
		name := fmt.Sprintf("repo-%d", i)
		items = append(items, map[string]any{
			"id":         i,
			"name":       name,
			"full_name":  org + "/" + name,
			"private":    i%2 == 0,
			"archived":   false,
			"owner":      map[string]any{"login": org},
			"updated_at": baseTime.Add(time.Duration(i) * time.Hour).Format(time.RFC3339),
		})
	}
	return items
}

// GenerateWorkflowRuns returns runs alternating between success and failure.
func GenerateWorkflowRuns(n int) []map[string]any {
	items := make([]map[string]any, 0, n)
	for i := 1; i <= n; i++ {
		conclusion := "success"
		if i%2 == 0 {
			conclusion = "failure"
		}
		items = append(items, map[string]any{
			"id":          1000 + i,
			"name":        "CI",
			"head_branch": "main",
			"status":      "completed",
			"conclusion":  conclusion,
			"run_number":  i,
		})
	}
	return items
}

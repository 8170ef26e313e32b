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

// Package github sends requests to the GitHub REST API and reads back what
// the paginator needs from each response: the body, the Link header and the
// rate limit headers.
//
// The package includes:
//   - Transport, which adds credentials and API version headers, caps
//     response size and turns connection failures into TransportError
//   - RateState and RetryAfter for the X-RateLimit-* and Retry-After headers
//   - NextLink for rel="next" navigation
//   - GraphQLClient, used only for result count hints when fetching everything
//
// Basic usage:
//
//	t := github.NewTransport(github.Options{Token: token})
//	resp, err := t.Send(ctx, &github.Request{URL: "https://api.github.com/orgs/golang/repos"})
//	if err != nil {
//	    // Handle error
//	}
//	next, _ := github.NextLink(resp.Header)
package github

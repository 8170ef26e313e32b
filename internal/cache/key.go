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

package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
)

const keyPrefix = "otco:http"

// Key identifies a cached response. Responses differ per credential, so
// the key carries a digest of the Authorization header rather than the
// header itself.
type Key struct {
	Method string
	URL    string
	Scope  string
}

// KeyFor derives the key of req.
func KeyFor(req *http.Request) Key {
	u := *req.URL
	u.RawQuery = u.Query().Encode()
	u.Fragment = ""

	scope := "anon"
	if auth := req.Header.Get("Authorization"); auth != "" {
		sum := sha256.Sum256([]byte(auth))
		scope = hex.EncodeToString(sum[:8])
	}

	return Key{
		Method: req.Method,
		URL:    u.String(),
		Scope:  scope,
	}
}

// String renders the Redis key, e.g.
//
//	otco:http:GET:3f2a9c0d1e4b5a67:https://api.github.com/repos/o/r/issues?page=1
func (k Key) String() string {
	method := k.Method
	if method == "" {
		method = http.MethodGet
	}
	return strings.Join([]string{keyPrefix, method, k.Scope, k.URL}, ":")
}

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
	"io"

	otcoerrors "github.com/sirseerhq/sirseer-otco/internal/errors"
	"github.com/sirseerhq/sirseer-otco/internal/giterror"
)

const (
	exitOK          = 0
	exitGeneral     = 1
	exitAuth        = 2
	exitNetwork     = 3
	exitOverrun     = 4
	exitRender      = 5
	exitInterrupted = 130
)

// exitCode maps err to the process exit code.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	case errors.Is(err, otcoerrors.ErrInvalidToken),
		errors.Is(err, otcoerrors.ErrNotFound),
		errors.Is(err, otcoerrors.ErrRequestRejected),
		errors.Is(err, otcoerrors.ErrRateLimit):
		return exitAuth
	case errors.Is(err, otcoerrors.ErrNetworkFailure),
		errors.Is(err, otcoerrors.ErrUpstreamUnavailable):
		return exitNetwork
	case errors.Is(err, otcoerrors.ErrPaginationOverrun):
		return exitOverrun
	case errors.Is(err, otcoerrors.ErrRenderIO):
		return exitRender
	}
	return exitGeneral
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
	if hint := giterror.Hint(err); hint != "" {
		fmt.Fprintf(w, "Hint: %s\n", hint)
	}
}

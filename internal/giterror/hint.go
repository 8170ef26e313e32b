package giterror

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	otcoerrors "github.com/sirseerhq/sirseer-otco/internal/errors"
)

// Hint returns a one-line suggestion for resolving err, or "" when there is
// nothing useful to add to the error message itself.
func Hint(err error) string {
	if err == nil {
		return ""
	}

	var (
		rateErr     *otcoerrors.RateLimitExceeded
		rejectedErr *otcoerrors.RequestRejected
		overrunErr  *otcoerrors.PaginationOverrun
	)

	switch {
	case errors.As(err, &rateErr):
		if !rateErr.Reset.IsZero() {
			wait := time.Until(rateErr.Reset).Round(time.Second)
			if wait > 0 {
				return fmt.Sprintf("Retry after %s (in %s), or narrow the query with filters", rateErr.Reset.Local().Format(time.Kitchen), wait)
			}
		}
		return "Wait a few minutes before retrying, or narrow the query with filters"
	case errors.Is(err, otcoerrors.ErrInvalidToken):
		return "Provide a valid token via --token or the GITHUB_TOKEN environment variable"
	case errors.Is(err, otcoerrors.ErrNotFound):
		return "Check the owner/repo name and that your token can access it"
	case errors.As(err, &rejectedErr):
		switch rejectedErr.Status {
		case http.StatusForbidden:
			return "The token is missing a scope or permission required by this endpoint"
		case http.StatusUnprocessableEntity, http.StatusBadRequest:
			return "Check the filter values passed to the command"
		}
		return ""
	case errors.As(err, &overrunErr):
		return "Narrow the query with filters or raise pagination.max_pages"
	case errors.Is(err, otcoerrors.ErrUpstreamUnavailable):
		return "GitHub is having trouble right now; try again later"
	case errors.Is(err, otcoerrors.ErrNetworkFailure):
		return "Check your network connection and the configured --api-url"
	case errors.Is(err, otcoerrors.ErrUnsupportedFormat):
		return "Use one of: json, yaml, csv, psv, table"
	case errors.Is(err, otcoerrors.ErrRenderIO):
		return "Check that the output directory exists and is writable"
	}
	return ""
}

package giterror

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"strings"

	otcoerrors "github.com/sirseerhq/sirseer-otco/internal/errors"
)

// Inspector provides methods for analyzing errors from the GitHub API.
type Inspector interface {
	// Kind classifies an error that occurred before any HTTP response was read.
	// It returns an empty kind for nil.
	Kind(err error) otcoerrors.TransportKind

	// IsRetryable reports whether sending the same request again may succeed.
	IsRetryable(err error) bool

	// IsAuthError returns true if the error represents an authentication or authorization failure.
	IsAuthError(err error) bool

	// IsRateLimitError returns true if the error represents a rate limit error.
	IsRateLimitError(err error) bool

	// IsNetworkError returns true if the error represents a network connectivity error.
	IsNetworkError(err error) bool
}

// NetworkInspector implements Inspector using the error chain first and
// message matching as a fallback.
type NetworkInspector struct{}

// NewInspector creates a new NetworkInspector.
func NewInspector() Inspector {
	return &NetworkInspector{}
}

// Kind maps err onto a TransportKind.
func (i *NetworkInspector) Kind(err error) otcoerrors.TransportKind {
	if err == nil {
		return ""
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return otcoerrors.KindTimeout
		}
		return otcoerrors.KindDNS
	}

	if isTLSError(err) {
		return otcoerrors.KindTLS
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return otcoerrors.KindTimeout
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return otcoerrors.KindConnection
	}

	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return otcoerrors.KindProtocol
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "no such host"):
		return otcoerrors.KindDNS
	case strings.Contains(errStr, "tls handshake") ||
		strings.Contains(errStr, "certificate"):
		return otcoerrors.KindTLS
	case strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded"):
		return otcoerrors.KindTimeout
	case strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "network is unreachable") ||
		strings.Contains(errStr, "dial tcp") ||
		strings.Contains(errStr, "broken pipe"):
		return otcoerrors.KindConnection
	case strings.Contains(errStr, "malformed http") ||
		strings.Contains(errStr, "unexpected eof"):
		return otcoerrors.KindProtocol
	}
	return otcoerrors.KindUnknown
}

// IsRetryable reports whether a transport failure may succeed on a new attempt.
// Cancellation by the caller is never retryable.
func (i *NetworkInspector) IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, otcoerrors.ErrNetworkFailure) {
		return true
	}
	return i.Kind(err) != ""
}

// IsAuthError checks if the error is an authentication or authorization error.
func (i *NetworkInspector) IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, otcoerrors.ErrInvalidToken) {
		return true
	}
	var rejected *otcoerrors.RequestRejected
	if errors.As(err, &rejected) {
		return rejected.Status == 401 || rejected.Status == 403
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "bad credentials") ||
		strings.Contains(errStr, "unauthorized")
}

// IsRateLimitError checks if the error is a rate limit error.
func (i *NetworkInspector) IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, otcoerrors.ErrRateLimit) {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "rate limit")
}

// IsNetworkError checks if the error is a network connectivity error.
func (i *NetworkInspector) IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, otcoerrors.ErrNetworkFailure) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	kind := i.Kind(err)
	return kind != "" && kind != otcoerrors.KindUnknown
}

func isTLSError(err error) bool {
	var (
		recordErr    tls.RecordHeaderError
		verifyErr    *tls.CertificateVerificationError
		authorityErr x509.UnknownAuthorityError
		hostErr      x509.HostnameError
		invalidErr   x509.CertificateInvalidError
	)
	return errors.As(err, &recordErr) ||
		errors.As(err, &verifyErr) ||
		errors.As(err, &authorityErr) ||
		errors.As(err, &hostErr) ||
		errors.As(err, &invalidErr)
}

package discovery

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
)

// ErrorClass represents whether a failed search is worth retrying.
type ErrorClass int

const (
	// ErrorClassRetryable indicates a transient failure (rate limit, 5xx, network).
	ErrorClassRetryable ErrorClass = iota
	// ErrorClassFatal indicates retrying will not help (quota, auth, not found).
	ErrorClassFatal
	// ErrorClassUnknown indicates the error type cannot be determined.
	ErrorClassUnknown
)

// String returns a human-readable name for the error class.
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorClassRetryable:
		return "retryable"
	case ErrorClassFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// youtube error reasons that retrying within the same day cannot fix.
var fatalGoogleReasons = map[string]bool{
	"quotaExceeded":       true,
	"dailyLimitExceeded":  true,
	"keyInvalid":          true,
	"forbidden":           true,
	"channelNotFound":     true,
	"notFound":            true,
	"accessNotConfigured": true,
}

// ClassifySearchError sorts a channel search failure for logging and metrics.
//
// Fatal: quota exhaustion, bad or missing credentials, unknown channel (401,
// 403, 404). Retryable: rate limiting (429), server errors, network errors and
// deadlines. Anything else is unknown.
func ClassifySearchError(err error) ErrorClass {
	if err == nil {
		return ErrorClassUnknown
	}
	if errors.Is(err, ErrNoCredential) {
		return ErrorClassFatal
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorClassRetryable
	}
	if errors.Is(err, context.Canceled) {
		return ErrorClassUnknown
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		for _, item := range gerr.Errors {
			if item.Reason == "rateLimitExceeded" || item.Reason == "userRateLimitExceeded" {
				return ErrorClassRetryable
			}
			if fatalGoogleReasons[item.Reason] {
				return ErrorClassFatal
			}
		}
		if c := classifyStatus(gerr.Code); c != ErrorClassUnknown {
			return c
		}
	}

	lower := strings.ToLower(err.Error())
	for _, p := range []string{"429", "too many requests", "rate limit", "500", "502", "503", "504", "internal server error", "bad gateway", "service unavailable", "gateway timeout"} {
		if strings.Contains(lower, p) {
			return ErrorClassRetryable
		}
	}
	for _, p := range []string{"quota", "401", "403", "404", "unauthorized", "forbidden", "invalid oauth token", "not found"} {
		if strings.Contains(lower, p) {
			return ErrorClassFatal
		}
	}
	for _, p := range []string{"connection reset", "connection refused", "timeout", "no such host", "eof", "broken pipe"} {
		if strings.Contains(lower, p) {
			return ErrorClassRetryable
		}
	}
	return ErrorClassUnknown
}

func classifyStatus(code int) ErrorClass {
	switch {
	case code == http.StatusTooManyRequests || code >= 500:
		return ErrorClassRetryable
	case code == http.StatusUnauthorized || code == http.StatusForbidden || code == http.StatusNotFound:
		return ErrorClassFatal
	}
	return ErrorClassUnknown
}

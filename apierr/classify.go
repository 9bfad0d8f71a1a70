package apierr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
)

// Classify maps any error to exactly one kind.
//
// An error that already carries an *Error anywhere in its chain is returned
// unchanged. Transport level failures classify as KindNetwork. Everything else
// is matched by message heuristics and defaults to KindServer.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	if e, ok := As(err); ok {
		return e
	}

	if isNetworkError(err) {
		return Wrap(KindNetwork, err, "")
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "unauthorized", "401"):
		return Wrap(KindAuthentication, err, "")
	case containsAny(msg, "forbidden", "403"):
		return Wrap(KindAuthorization, err, "")
	case containsAny(msg, "rate limit", "too many requests", "429"):
		return Wrap(KindRateLimit, err, "")
	case containsAny(msg, "server error", "500"):
		return Wrap(KindServer, err, "")
	case containsAny(msg, "unavailable", "503"):
		return Wrap(KindServiceUnavailable, err, "")
	case containsAny(msg, "failed to fetch", "network", "connection reset", "connection refused"):
		return Wrap(KindNetwork, err, "")
	default:
		return Wrap(KindServer, err, "")
	}
}

// ClassifyValue maps an arbitrary recovered value to a kind.
// Errors go through Classify; any other value becomes KindServer.
func ClassifyValue(v any) *Error {
	switch val := v.(type) {
	case nil:
		return New(KindServer, "")
	case error:
		return Classify(val)
	case string:
		return Classify(errors.New(val))
	default:
		return New(KindServer, "").WithDetail(fmt.Sprintf("%v", val))
	}
}

// ClassifyHTTPStatus maps an HTTP status to a kind.
//
// body is the raw response body; an ARM error envelope is decoded into
// Detail when present. retryAfter is the Retry-After header value in seconds.
func ClassifyHTTPStatus(status int, body string, retryAfter string) *Error {
	var e *Error

	switch {
	case status == http.StatusBadRequest:
		e = New(KindValidation, "")
	case status == http.StatusUnauthorized:
		e = New(KindAuthentication, "")
	case status == http.StatusForbidden:
		e = New(KindAuthorization, "")
	case status == http.StatusNotFound:
		e = New(KindValidation, "The requested resource was not found.")
	case status == http.StatusTooManyRequests:
		e = NewRateLimit("", ParseRetryAfter(retryAfter))
	case status == http.StatusServiceUnavailable:
		e = New(KindServiceUnavailable, "")
	case status == http.StatusInternalServerError,
		status == http.StatusBadGateway,
		status == http.StatusGatewayTimeout:
		e = New(KindServer, "")
	case status >= 400 && status < 500:
		e = New(KindValidation, "")
	default:
		e = New(KindServer, "")
	}

	e.StatusCode = status
	e.Detail = armErrorMessage(body)
	return e
}

// ParseRetryAfter parses a Retry-After header holding a number of seconds.
// Missing, negative, or unparseable values yield zero.
func ParseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}

// armError is the ARM error envelope.
type armError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func armErrorMessage(body string) string {
	body = strings.TrimSpace(body)
	if body == "" {
		return ""
	}

	var env armError
	if err := json.Unmarshal([]byte(body), &env); err == nil && env.Error.Message != "" {
		if env.Error.Code != "" {
			return env.Error.Code + ": " + env.Error.Message
		}
		return env.Error.Message
	}

	const maxDetail = 256
	if len(body) > maxDetail {
		return body[:maxDetail]
	}
	return body
}

func isNetworkError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

package apierr

import (
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// Kind identifies a failure category.
type Kind int

const (
	// KindNetwork is a transport failure before any HTTP response was read.
	KindNetwork Kind = iota + 1
	// KindAuthentication means no valid bearer token could be presented.
	KindAuthentication
	// KindAuthorization means the caller is authenticated but not permitted.
	KindAuthorization
	// KindRateLimit means the service throttled the caller.
	KindRateLimit
	// KindServer is a generic server side failure.
	KindServer
	// KindValidation is a bad request, a missing argument, or a malformed response.
	KindValidation
	// KindServiceUnavailable means the service or a local circuit is refusing traffic.
	KindServiceUnavailable
)

// Kinds lists every kind in declaration order.
var Kinds = []Kind{
	KindNetwork,
	KindAuthentication,
	KindAuthorization,
	KindRateLimit,
	KindServer,
	KindValidation,
	KindServiceUnavailable,
}

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindRateLimit:
		return "rate_limit"
	case KindServer:
		return "server"
	case KindValidation:
		return "validation"
	case KindServiceUnavailable:
		return "service_unavailable"
	default:
		return "unknown"
	}
}

// Code returns the stable machine readable code for the kind.
func (k Kind) Code() string {
	switch k {
	case KindNetwork:
		return "NETWORK_ERROR"
	case KindAuthentication:
		return "AUTHENTICATION_ERROR"
	case KindAuthorization:
		return "AUTHORIZATION_ERROR"
	case KindRateLimit:
		return "RATE_LIMIT_ERROR"
	case KindValidation:
		return "VALIDATION_ERROR"
	case KindServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	default:
		return "SERVER_ERROR"
	}
}

// Retryable reports whether failures of this kind may succeed on a later attempt.
func (k Kind) Retryable() bool {
	switch k {
	case KindNetwork, KindRateLimit, KindServer, KindServiceUnavailable:
		return true
	default:
		return false
	}
}

// UserMessage returns the default user-facing message for the kind.
func (k Kind) UserMessage() string {
	switch k {
	case KindNetwork:
		return "Network connection failed. Please check your connection and try again."
	case KindAuthentication:
		return "Authentication failed. Please sign in again."
	case KindAuthorization:
		return "You don't have permission to access this resource."
	case KindRateLimit:
		return "Too many requests. Please wait a moment and try again."
	case KindValidation:
		return "The request was invalid."
	case KindServiceUnavailable:
		return "The service is temporarily unavailable. Please try again later."
	default:
		return "The server encountered an error. Please try again later."
	}
}

// Error is a classified failure.
type Error struct {
	// Kind is the failure category.
	Kind Kind

	// Code is the stable code for Kind.
	Code string

	// Message is safe to show to an end user.
	Message string

	// Detail is the technical description, typically the ARM error message.
	Detail string

	// Retryable mirrors Kind.Retryable.
	Retryable bool

	// RetryAfter is the server requested delay, zero when absent.
	RetryAfter time.Duration

	// StatusCode is the HTTP status, zero when no response was received.
	StatusCode int

	cause    error
	sentinel bool
}

// Sentinels for errors.Is matching by kind.
var (
	ErrNetwork            = sentinel(KindNetwork)
	ErrAuthentication     = sentinel(KindAuthentication)
	ErrAuthorization      = sentinel(KindAuthorization)
	ErrRateLimit          = sentinel(KindRateLimit)
	ErrServer             = sentinel(KindServer)
	ErrValidation         = sentinel(KindValidation)
	ErrServiceUnavailable = sentinel(KindServiceUnavailable)
)

func sentinel(k Kind) *Error {
	return &Error{Kind: k, Code: k.Code(), Message: k.UserMessage(), Retryable: k.Retryable(), sentinel: true}
}

// New creates an error of the given kind. An empty message uses the kind default.
func New(kind Kind, message string) *Error {
	if message == "" {
		message = kind.UserMessage()
	}
	return &Error{
		Kind:      kind,
		Code:      kind.Code(),
		Message:   message,
		Retryable: kind.Retryable(),
	}
}

// Wrap creates an error of the given kind that records cause with a stack trace.
func Wrap(kind Kind, cause error, message string) *Error {
	e := New(kind, message)
	if cause != nil {
		e.cause = errors.WithStack(cause)
		e.Detail = cause.Error()
	}
	return e
}

// NewValidation creates a non-retryable validation error.
func NewValidation(message string) *Error {
	return New(KindValidation, message)
}

// NewAuthentication creates an authentication error wrapping cause.
func NewAuthentication(message string, cause error) *Error {
	return Wrap(KindAuthentication, cause, message)
}

// NewAuthorization creates an authorization error.
func NewAuthorization(message string) *Error {
	return New(KindAuthorization, message)
}

// NewServiceUnavailable creates a retryable service unavailable error.
func NewServiceUnavailable(message string) *Error {
	return New(KindServiceUnavailable, message)
}

// NewRateLimit creates a rate limit error with an optional retry delay.
func NewRateLimit(message string, retryAfter time.Duration) *Error {
	e := New(KindRateLimit, message)
	e.RetryAfter = retryAfter
	return e
}

// Error implements error.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Code)
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.StatusCode)
	}
	if e.Detail != "" && e.Detail != e.Message {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches kind sentinels, so errors.Is(err, ErrRateLimit) holds for any
// rate limit error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.sentinel {
		return t.Kind == e.Kind
	}
	return t == e
}

// IsRetryable implements the Retryable convention used by retry helpers.
func (e *Error) IsRetryable() bool {
	return e.Retryable
}

// WithStatus returns a copy of e carrying the HTTP status code.
func (e *Error) WithStatus(status int) *Error {
	c := *e
	c.sentinel = false
	c.StatusCode = status
	return &c
}

// WithDetail returns a copy of e carrying a technical detail string.
func (e *Error) WithDetail(detail string) *Error {
	c := *e
	c.sentinel = false
	c.Detail = detail
	return &c
}

// As returns the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsKind reports whether err classifies as kind.
func IsKind(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return Classify(err).Kind == kind
}

// IsRetryable reports whether err classifies as a retryable kind.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return Classify(err).Retryable
}

// UserMessage returns the user-facing message for err, or "" for nil.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	return Classify(err).Message
}

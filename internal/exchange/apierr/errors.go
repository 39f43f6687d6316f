// Package apierr holds the closed set of errors surfaced by the exchange
// REST client. Every failure carries the request method and path, the
// HTTP status (zero for transport failures) and a truncated body excerpt.
package apierr

import (
	"errors"
	"fmt"
	"time"
)

// BodyLimit caps the response excerpt attached to an Error.
const BodyLimit = 300

type Kind int

const (
	KindNetwork Kind = iota + 1
	KindAuth
	KindRateLimit
	KindHTTP
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindAuth:
		return "auth"
	case KindRateLimit:
		return "rate_limit"
	case KindHTTP:
		return "http"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrNetwork   = errors.New("сетевая ошибка")
	ErrAuth      = errors.New("ошибка авторизации")
	ErrRateLimit = errors.New("превышен лимит запросов")
	ErrHTTP      = errors.New("ошибка HTTP")
)

type Error struct {
	Kind       Kind
	StatusCode int
	Method     string
	Path       string
	Message    string
	Body       string
	// RetryAfter is set only for KindRateLimit when the server sent a usable hint.
	RetryAfter *time.Duration
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindNetwork:
		if e.Err != nil {
			return fmt.Sprintf("%s %s: %s: %v", e.Method, e.Path, e.Message, e.Err)
		}
		return fmt.Sprintf("%s %s: %s", e.Method, e.Path, e.Message)
	case KindRateLimit:
		if e.RetryAfter != nil {
			return fmt.Sprintf("%s %s: HTTP %d: %s (retry after %s)", e.Method, e.Path, e.StatusCode, e.Message, *e.RetryAfter)
		}
		return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrAuth:
		return e.Kind == KindAuth
	case ErrRateLimit:
		return e.Kind == KindRateLimit
	case ErrHTTP:
		return e.Kind == KindHTTP
	}
	return false
}

// Retryable reports whether another attempt may succeed: transport
// failures, rate limiting and server-side (5xx) errors.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindNetwork, KindRateLimit:
		return true
	case KindHTTP:
		return e.StatusCode >= 500
	default:
		return false
	}
}

func Network(method, path, message string, cause error) *Error {
	return &Error{
		Kind:    KindNetwork,
		Method:  method,
		Path:    path,
		Message: message,
		Err:     cause,
	}
}

func Auth(status int, method, path, body string) *Error {
	return &Error{
		Kind:       KindAuth,
		StatusCode: status,
		Method:     method,
		Path:       path,
		Message:    "авторизация отклонена",
		Body:       Truncate(body),
	}
}

func RateLimit(status int, method, path, body string, retryAfter *time.Duration) *Error {
	return &Error{
		Kind:       KindRateLimit,
		StatusCode: status,
		Method:     method,
		Path:       path,
		Message:    "слишком много запросов",
		Body:       Truncate(body),
		RetryAfter: retryAfter,
	}
}

func HTTP(status int, method, path, message, body string) *Error {
	return &Error{
		Kind:       KindHTTP,
		StatusCode: status,
		Method:     method,
		Path:       path,
		Message:    message,
		Body:       Truncate(body),
	}
}

// As is a shorthand for errors.As into *Error.
func As(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// Truncate cuts s to BodyLimit characters.
func Truncate(s string) string {
	if len(s) <= BodyLimit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= BodyLimit {
		return s
	}
	return string(runes[:BodyLimit])
}

package rest

import (
	"bitunix/internal/exchange/apierr"
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type verdict int

const (
	verdictSuccess verdict = iota
	verdictFatal
	verdictRetryable
	verdictClockSkew
)

func (v verdict) String() string {
	switch v {
	case verdictSuccess:
		return "success"
	case verdictFatal:
		return "fatal"
	case verdictRetryable:
		return "retryable"
	case verdictClockSkew:
		return "clock_skew"
	default:
		return "unknown"
	}
}

// SkewPredicate decides from an API error message whether the exchange
// rejected the request timestamp.
type SkewPredicate func(msg string) bool

// LooksLikeTimestampError is the default SkewPredicate. It is a
// best-effort keyword match over the payload message.
func LooksLikeTimestampError(msg string) bool {
	m := strings.ToLower(msg)
	switch {
	case strings.Contains(m, "timestamp"):
		return true
	case strings.Contains(m, "time") && strings.Contains(m, "expire"):
		return true
	case strings.Contains(m, "out of") && strings.Contains(m, "time"):
		return true
	}
	return false
}

// outcome is one finished attempt: either a transport error or a
// complete HTTP response.
type outcome struct {
	method  string
	path    string
	private bool
	attempt int

	err error

	status int
	header http.Header
	body   []byte
}

type classification struct {
	verdict verdict
	err     *apierr.Error
}

func classify(o outcome, skew SkewPredicate) classification {
	if o.err != nil {
		return classification{
			verdict: verdictRetryable,
			err:     apierr.Network(o.method, o.path, networkMessage(o.err), o.err),
		}
	}

	text := string(o.body)

	switch {
	case o.status == http.StatusUnauthorized || o.status == http.StatusForbidden:
		return classification{verdict: verdictFatal, err: apierr.Auth(o.status, o.method, o.path, text)}

	case o.status >= 200 && o.status < 300:
		return classifyPayload(o, skew)

	case o.status == http.StatusTooManyRequests:
		retryAfter := parseRetryAfter(o.header.Get("Retry-After"))
		return classification{verdict: verdictRetryable, err: apierr.RateLimit(o.status, o.method, o.path, text, retryAfter)}

	case o.status >= 500:
		return classification{verdict: verdictRetryable, err: apierr.HTTP(o.status, o.method, o.path, "server error", text)}

	default:
		msg := apierr.Truncate(strings.TrimSpace(text))
		if msg == "" {
			msg = "unknown error"
		}
		return classification{verdict: verdictFatal, err: apierr.HTTP(o.status, o.method, o.path, msg, text)}
	}
}

func classifyPayload(o outcome, skew SkewPredicate) classification {
	text := string(o.body)

	if !json.Valid(o.body) {
		return classification{verdict: verdictFatal, err: apierr.HTTP(o.status, o.method, o.path, "invalid JSON", text)}
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(o.body, &payload); err != nil || payload == nil {
		return classification{verdict: verdictFatal, err: apierr.HTTP(o.status, o.method, o.path, "unexpected JSON type (expected object)", text)}
	}

	if successCode(payload["code"]) {
		return classification{verdict: verdictSuccess}
	}

	msg := payloadMessage(payload)
	if o.private && o.attempt == 0 && skew != nil && skew(msg) {
		return classification{
			verdict: verdictClockSkew,
			err:     apierr.HTTP(o.status, o.method, o.path, msg, text),
		}
	}

	if msg == "" {
		msg = "API error"
	}
	return classification{verdict: verdictFatal, err: apierr.HTTP(o.status, o.method, o.path, msg, text)}
}

// successCode accepts an absent or null code, numeric zero and "0".
func successCode(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return true
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}

	switch c := v.(type) {
	case float64:
		return c == 0
	case string:
		return c == "0"
	default:
		return false
	}
}

func payloadMessage(payload map[string]json.RawMessage) string {
	for _, key := range []string{"msg", "message"} {
		raw := bytes.TrimSpace(payload[key])
		if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
			continue
		}

		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if s != "" {
				return s
			}
			continue
		}
		return string(raw)
	}
	return ""
}

// parseRetryAfter reads a numeric Retry-After value in seconds.
func parseRetryAfter(value string) *time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	secs, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(secs) || math.IsInf(secs, 0) || secs < 0 {
		return nil
	}

	d := time.Duration(secs * float64(time.Second))
	return &d
}

func networkMessage(err error) string {
	type timeout interface{ Timeout() bool }

	var t timeout
	if errors.As(err, &t) && t.Timeout() {
		return "таймаут запроса"
	}
	return "ошибка сети"
}

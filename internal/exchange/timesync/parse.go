package timesync

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"
)

// ServerTimeFromPayload extracts the server time from a time endpoint
// response. Accepted shapes, in priority order:
//
//	{"serverTime": 123}
//	{"data": {"serverTime": 123}}
//	{"data": 123}
func ServerTimeFromPayload(body []byte) (int64, bool) {
	var top map[string]json.RawMessage
	if err := decodeNumbers(body, &top); err != nil {
		return 0, false
	}

	if raw, ok := present(top, "serverTime"); ok {
		return parseMillis(raw)
	}

	inner, ok := present(top, "data")
	if !ok {
		return 0, false
	}

	var nested map[string]json.RawMessage
	if err := decodeNumbers(inner, &nested); err == nil {
		if raw, ok := present(nested, "serverTime"); ok {
			return parseMillis(raw)
		}
		return 0, false
	}
	return parseMillis(inner)
}

func present(m map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	raw, ok := m[key]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, false
	}
	return raw, true
}

func decodeNumbers(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

func parseMillis(raw json.RawMessage) (int64, bool) {
	var v any
	if err := decodeNumbers(raw, &v); err != nil {
		return 0, false
	}

	switch n := v.(type) {
	case json.Number:
		if ms, err := n.Int64(); err == nil {
			return ms, true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return int64(f), true
	case string:
		ms, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, false
		}
		return ms, true
	default:
		return 0, false
	}
}

var zonelessLayouts = []string{
	"Mon, 02 Jan 2006 15:04:05",
	"Mon, 2 Jan 2006 15:04:05",
	"02 Jan 2006 15:04:05",
	"2 Jan 2006 15:04:05",
}

// ServerTimeFromDate parses an HTTP Date header into unix milliseconds.
// A header without a zone is read as UTC.
func ServerTimeFromDate(header string) (int64, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0, errors.New("пустой заголовок Date")
	}

	if t, err := http.ParseTime(header); err == nil {
		return t.UnixMilli(), nil
	}
	if t, err := mail.ParseDate(header); err == nil {
		return t.UnixMilli(), nil
	}
	for _, layout := range zonelessLayouts {
		if t, err := time.ParseInLocation(layout, header, time.UTC); err == nil {
			return t.UnixMilli(), nil
		}
	}
	return 0, fmt.Errorf("некорректный заголовок Date: %q", header)
}

package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Field is a single member of an ordered JSON object.
type Field struct {
	Key   string
	Value any
}

// Body is a JSON object that keeps its members in insertion order.
// Bitunix signs the body exactly as sent, so request bodies built by this
// package use Body instead of maps.
type Body []Field

func (b Body) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range b {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := encodeCompact(f.Key)
		if err != nil {
			return nil, err
		}
		val, err := encodeCompact(f.Value)
		if err != nil {
			return nil, fmt.Errorf("поле %q: %w", f.Key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// CanonicalQuery sorts keys byte-wise and concatenates key and value with
// no separators: {"b":"2","a":"1"} becomes "a1b2". Multiple values of one
// key are emitted in order, each prefixed by the key.
func CanonicalQuery(params url.Values) string {
	if len(params) == 0 {
		return ""
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		for _, v := range params[k] {
			b.WriteString(k)
			b.WriteString(v)
		}
	}
	return b.String()
}

// CanonicalBody renders body as compact JSON, the same bytes that go on
// the wire. nil and empty objects render as "". Member order is kept for
// Body and structs; plain maps are emitted with sorted keys by
// encoding/json.
func CanonicalBody(body any) (string, error) {
	switch b := body.(type) {
	case nil:
		return "", nil
	case Body:
		if len(b) == 0 {
			return "", nil
		}
	case json.RawMessage:
		if len(bytes.TrimSpace(b)) == 0 {
			return "", nil
		}
	case string:
		if strings.TrimSpace(b) == "" {
			return "", nil
		}
		body = json.RawMessage(b)
	}

	out, err := encodeCompact(body)
	if err != nil {
		return "", err
	}

	switch s := string(out); s {
	case "{}", "null":
		return "", nil
	default:
		return s, nil
	}
}

func encodeCompact(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

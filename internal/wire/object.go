// Package wire holds the tolerant JSON readers shared by the models. The
// backend is loose about types, so every accessor has a fallback instead of
// an error: a missing or mistyped integer reads as the given default, a
// missing string reads as "", and an unparseable timestamp reads as the zero
// time.
package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"time"
)

// ErrNotArray is returned when a body that should be a JSON array is not.
var ErrNotArray = errors.New("expected a JSON array")

// Object is one decoded JSON object.
type Object map[string]any

// DecodeArray splits a JSON array body into its elements. Elements that are
// not objects are skipped and counted.
func DecodeArray(body []byte) ([]Object, int, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, 0, ErrNotArray
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, 0, err
	}

	objects := make([]Object, 0, len(raw))
	skipped := 0
	for _, item := range raw {
		obj, ok := decodeObject(item)
		if !ok {
			skipped++
			continue
		}
		objects = append(objects, obj)
	}
	return objects, skipped, nil
}

// DecodeObject decodes a single JSON object body.
func DecodeObject(body []byte) (Object, error) {
	obj, ok := decodeObject(body)
	if !ok {
		return nil, errors.New("expected a JSON object")
	}
	return obj, nil
}

func decodeObject(raw []byte) (Object, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}
	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()
	var obj Object
	if err := decoder.Decode(&obj); err != nil {
		return nil, false
	}
	return obj, true
}

// Has reports whether key is present.
func (o Object) Has(key string) bool {
	_, ok := o[key]
	return ok
}

// String returns the string at key, or "" when absent or not a string.
func (o Object) String(key string) string {
	if s, ok := o[key].(string); ok {
		return s
	}
	return ""
}

// Int returns the integral number at key, or def when absent, not a number,
// or not integral.
func (o Object) Int(key string, def int) int {
	switch v := o[key].(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return int(i)
		}
		if f, err := v.Float64(); err == nil && f == math.Trunc(f) {
			return int(f)
		}
	case float64:
		if v == math.Trunc(v) {
			return int(v)
		}
	}
	return def
}

// Time parses the ISO-8601 timestamp at key. Anything unparseable yields
// the zero time, which callers treat as invalid.
func (o Object) Time(key string) time.Time {
	return ParseTime(o.String(key))
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTime parses an ISO-8601 timestamp with or without fractional
// seconds and zone. It returns the zero time on failure.
func ParseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

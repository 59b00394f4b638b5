// Package analysis normalizes the vendor's post-call analysis into typed
// extraction and qualification records. All field coercion goes through the
// functions in this file.
package analysis

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ParseOptionalInt coerces a JSON number or numeric string to an integer.
// Currency symbols and thousands separators are ignored and fractions are
// truncated. Anything else, including absence, yields nil.
func ParseOptionalInt(v any) *int64 {
	switch t := v.(type) {
	case nil:
		return nil
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return &n
		}
		f, err := t.Float64()
		if err != nil {
			return nil
		}
		return truncate(f)
	case float64:
		return truncate(t)
	case float32:
		return truncate(float64(t))
	case int:
		n := int64(t)
		return &n
	case int64:
		return &t
	case string:
		s := strings.TrimSpace(t)
		s = strings.TrimPrefix(s, "$")
		s = strings.ReplaceAll(s, ",", "")
		if s == "" {
			return nil
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return &n
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		return truncate(f)
	default:
		return nil
	}
}

func truncate(f float64) *int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f < math.MinInt64 {
		return nil
	}
	n := int64(f)
	return &n
}

// ParseOptionalFloat coerces a JSON number or numeric string to a float.
func ParseOptionalFloat(v any) *float64 {
	var f float64
	switch t := v.(type) {
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case float64:
		f = t
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// ParseLooseBool is true only for boolean true or the string "true" in any
// casing. Everything else, including absence, is false.
func ParseLooseBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return strings.EqualFold(strings.TrimSpace(t), "true")
	default:
		return false
	}
}

// ParseOptionalBool keeps absence distinct from an explicit no: nil unless
// the value is a boolean or the string "true"/"false".
func ParseOptionalBool(v any) *bool {
	switch t := v.(type) {
	case bool:
		return &t
	case string:
		s := strings.TrimSpace(t)
		switch {
		case strings.EqualFold(s, "true"):
			b := true
			return &b
		case strings.EqualFold(s, "false"):
			b := false
			return &b
		}
	}
	return nil
}

// OptionalString passes scalar values through as text. Empty strings and
// structured values yield nil.
func OptionalString(v any) *string {
	var s string
	switch t := v.(type) {
	case string:
		if strings.TrimSpace(t) == "" {
			return nil
		}
		s = t
	case json.Number:
		s = t.String()
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(t)
	default:
		return nil
	}
	return &s
}

// StructuredValue re-encodes a sub-object unchanged for opaque storage.
func StructuredValue(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}

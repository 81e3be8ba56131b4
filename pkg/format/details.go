package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Details is an open, JSON-shaped record. Different format types carry
// structurally different payloads, so values are restricted to what JSON can
// express: string, bool, int, float64, nil, []any and map[string]any.
type Details map[string]any

// String returns the string stored under key, or "".
func (d Details) String(key string) string {
	s, _ := d[key].(string)
	return s
}

// Int returns the integer stored under key.
func (d Details) Int(key string) (int, bool) {
	switch v := d[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v == float64(int(v)) {
			return int(v), true
		}
	}
	return 0, false
}

// Strings returns the string list stored under key, skipping non-strings.
func (d Details) Strings(key string) []string {
	switch v := d[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Keys returns the keys in sorted order.
func (d Details) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a shallow copy.
func (d Details) Clone() Details {
	if d == nil {
		return nil
	}
	out := make(Details, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// UnmarshalJSON decodes into canonical form so that a decoded value is
// deep-equal to the Normalize'd value it was encoded from.
func (d *Details) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*d = nil
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*d = Details(canonical(raw).(map[string]any))
	return nil
}

// Normalize converts d to canonical JSON value space. Inspectors may use
// []string, int64 and nested Details freely; after Normalize the record
// looks exactly like its own JSON decoding.
func Normalize(d Details) (Details, error) {
	if d == nil {
		return Details{}, nil
	}
	data, err := json.Marshal(map[string]any(d))
	if err != nil {
		return nil, fmt.Errorf("marshal details: %w", err)
	}
	var out Details
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode details: %w", err)
	}
	return out, nil
}

func canonical(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return int(i)
		}
		f, _ := t.Float64()
		return f
	case []any:
		for i := range t {
			t[i] = canonical(t[i])
		}
		return t
	case map[string]any:
		for k := range t {
			t[k] = canonical(t[k])
		}
		return t
	default:
		return v
	}
}

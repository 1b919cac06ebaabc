package parse

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// LooseFloat is a JSON number that also accepts numeric strings. Anything that
// cannot be read as a number (including null) leaves the value unset instead
// of failing the whole request.
type LooseFloat struct {
	Value float64
	Set   bool
	// Raw keeps the rejected input so callers can log it.
	Raw string
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *LooseFloat) UnmarshalJSON(data []byte) error {
	*f = LooseFloat{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	var s string
	if data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			f.Raw = string(data)
			return nil
		}
	} else {
		s = string(data)
	}

	v, ok := Float(s)
	if !ok {
		f.Raw = s
		return nil
	}
	f.Value, f.Set = v, true
	return nil
}

// MarshalJSON implements json.Marshaler.
func (f LooseFloat) MarshalJSON() ([]byte, error) {
	if !f.Set {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// Ptr returns the value as a pointer, or nil when unset.
func (f LooseFloat) Ptr() *float64 {
	if !f.Set {
		return nil
	}
	v := f.Value
	return &v
}

// Or returns the value when set and def otherwise.
func (f LooseFloat) Or(def float64) float64 {
	if !f.Set {
		return def
	}
	return f.Value
}

// Float parses a trimmed numeric string. NaN and infinities are rejected.
func Float(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v != v || v > maxFloat || v < -maxFloat {
		return 0, false
	}
	return v, true
}

const maxFloat = 1.7976931348623157e308

package xtream

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// The upstream API is inconsistent about scalar types: the same field may be
// a number in one payload and a quoted string (or null, or "") in the next.
// These types decode any of those shapes and fall back to the zero value.

// FlexInt decodes 12, "12", "12.0", "", null or false into an int.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	*f = 0
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
	}
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		*f = FlexInt(n)
		return nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		*f = FlexInt(int(v))
	}
	return nil
}

func (f FlexInt) Int() int { return int(f) }

// FlexFloat decodes numbers or numeric strings into a float64.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(b []byte) error {
	*f = 0
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		*f = FlexFloat(v)
	}
	return nil
}

// FlexString decodes strings, numbers and booleans into their text form;
// null, objects and arrays become "".
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	*f = ""
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err == nil {
			*f = FlexString(s)
		}
	case 'n', '{', '[':
	default:
		*f = FlexString(b)
	}
	return nil
}

func (f FlexString) String() string { return string(f) }

// StringList decodes either a single string or an array of strings.
type StringList []string

func (l *StringList) UnmarshalJSON(b []byte) error {
	*l = nil
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err == nil && s != "" {
			*l = StringList{s}
		}
	case '[':
		var raw []FlexString
		if err := json.Unmarshal(b, &raw); err != nil {
			return nil
		}
		for _, s := range raw {
			if s != "" {
				*l = append(*l, string(s))
			}
		}
	}
	return nil
}

// isObject reports whether b holds a JSON object. The upstream sends [] or
// false in place of empty objects.
func isObject(b []byte) bool {
	b = bytes.TrimSpace(b)
	return len(b) > 0 && b[0] == '{'
}

package model

import (
	"fmt"
	"strings"
	"time"
)

// DateTimeLayout is the textual date format used at every boundary:
// request payloads, query parameters, and the statistics collector.
const DateTimeLayout = "2006-01-02 15:04:05"

// DateTime wraps time.Time so that JSON payloads carry the wire format
// instead of RFC 3339.
type DateTime struct {
	time.Time
}

// NewDateTime truncates t to second precision, matching the wire format.
func NewDateTime(t time.Time) DateTime {
	return DateTime{t.Truncate(time.Second)}
}

// ParseDateTime parses s in the wire format.
func ParseDateTime(s string) (DateTime, error) {
	t, err := time.Parse(DateTimeLayout, s)
	if err != nil {
		return DateTime{}, fmt.Errorf("parse datetime %q: %w", s, err)
	}
	return DateTime{t}, nil
}

// String formats the timestamp in the wire format.
func (d DateTime) String() string {
	return d.Format(DateTimeLayout)
}

// MarshalJSON implements json.Marshaler.
func (d DateTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(DateTimeLayout) + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *DateTime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		return nil
	}
	parsed, err := ParseDateTime(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

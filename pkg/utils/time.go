package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Now returns current time (swapped in tests)
var Now = time.Now

// ParseCursor parses a history cursor of the form "<time>[,<id>]" where time
// is RFC 3339 or unix milliseconds. The id breaks ties between entries that
// share a timestamp. An empty cursor means "now".
func ParseCursor(s string) (time.Time, string, error) {
	if s == "" {
		return Now(), "", nil
	}
	ts, id, _ := strings.Cut(s, ",")
	if ms, err := strconv.ParseInt(ts, 10, 64); err == nil {
		return time.UnixMilli(ms), id, nil
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("invalid cursor %q: %w", s, err)
	}
	return t, id, nil
}

// FormatCursor is the inverse of ParseCursor.
func FormatCursor(t time.Time, id string) string {
	return t.UTC().Format(time.RFC3339Nano) + "," + id
}

// ClampLimit bounds a requested page size to [1, max], using def for
// missing or invalid values.
func ClampLimit(s string, def, max int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// ClientTime is a timestamp supplied by a client. It accepts RFC 3339
// strings and unix milliseconds; any other value decodes to the zero time
// rather than failing the payload that carries it.
type ClientTime struct {
	time.Time
}

func (t *ClientTime) UnmarshalJSON(data []byte) error {
	t.Time = time.Time{}
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	var ms float64
	if err := json.Unmarshal(data, &ms); err == nil {
		t.Time = time.UnixMilli(int64(ms))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
			t.Time = parsed
		}
	}
	return nil
}

// Ptr returns nil for the zero time.
func (t ClientTime) Ptr() *time.Time {
	if t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

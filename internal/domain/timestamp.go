package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormatUnix is the only timestamp encoding currently accepted on the wire.
const FormatUnix = "unix"

// Timestamp is a point in time carried on the wire as "<format>:<seconds>",
// e.g. "unix:1700000000". Keeping the tag and the epoch separate avoids
// string slicing at every use site.
type Timestamp struct {
	Format  string
	Seconds int64
}

// ParseTimestamp parses a tagged date string. Anything that is not
// "unix:<integer>" fails with ErrBadTimestamp.
func ParseTimestamp(s string) (Timestamp, error) {
	raw, ok := strings.CutPrefix(s, FormatUnix+":")
	if !ok {
		return Timestamp{}, fmt.Errorf("%w: %q", ErrBadTimestamp, s)
	}
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return Timestamp{}, fmt.Errorf("%w: %q", ErrBadTimestamp, s)
	}
	return Timestamp{Format: FormatUnix, Seconds: secs}, nil
}

// UnixTimestamp builds a Timestamp from epoch seconds.
func UnixTimestamp(secs int64) Timestamp {
	return Timestamp{Format: FormatUnix, Seconds: secs}
}

// String renders the wire encoding.
func (t Timestamp) String() string {
	format := t.Format
	if format == "" {
		format = FormatUnix
	}
	return format + ":" + strconv.FormatInt(t.Seconds, 10)
}

// Time converts to a UTC time.Time.
func (t Timestamp) Time() time.Time {
	return time.Unix(t.Seconds, 0).UTC()
}

// MarshalText encodes the tagged wire format, so JSON payloads carry
// the same "unix:<seconds>" strings as stored rows.
func (t Timestamp) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText parses the tagged wire format.
func (t *Timestamp) UnmarshalText(data []byte) error {
	parsed, err := ParseTimestamp(string(data))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	ts, err := ParseTimestamp("unix:1700000000")
	if err != nil {
		t.Fatalf("ParseTimestamp: %v", err)
	}
	if ts.Format != FormatUnix || ts.Seconds != 1700000000 {
		t.Errorf("ParseTimestamp = %+v", ts)
	}
	if got := ts.String(); got != "unix:1700000000" {
		t.Errorf("String() = %q", got)
	}
}

func TestParseTimestampNegative(t *testing.T) {
	t.Parallel()

	// Pre-epoch times are representable
	ts, err := ParseTimestamp("unix:-60")
	if err != nil {
		t.Fatalf("ParseTimestamp: %v", err)
	}
	if ts.Seconds != -60 {
		t.Errorf("Seconds = %d, want -60", ts.Seconds)
	}
}

func TestParseTimestampRejectsMalformed(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"", "1000", "unix:", "unix:12.5", "iso:1000", "unix:ten"} {
		if _, err := ParseTimestamp(s); !errors.Is(err, ErrBadTimestamp) {
			t.Errorf("ParseTimestamp(%q) error = %v, want ErrBadTimestamp", s, err)
		}
	}
}

func TestTimestampTime(t *testing.T) {
	t.Parallel()

	ts := UnixTimestamp(0)
	if got := ts.Time(); !got.Equal(time.Unix(0, 0)) {
		t.Errorf("Time() = %v", got)
	}
}

func TestTimestampJSONRoundTrip(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(UnixTimestamp(1234))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `"unix:1234"` {
		t.Errorf("Marshal = %s", data)
	}

	var ts Timestamp
	if err := json.Unmarshal(data, &ts); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if ts.Seconds != 1234 {
		t.Errorf("Unmarshal Seconds = %d", ts.Seconds)
	}
}

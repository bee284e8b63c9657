package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SessionID identifies a key-exchange session on the backend.
type SessionID string

// String returns the string form of the session identifier.
func (id SessionID) String() string { return string(id) }

// Short returns the first eight characters of the identifier for display.
func (id SessionID) Short() string {
	if len(id) <= 8 {
		return string(id)
	}
	return string(id[:8])
}

// Fingerprint is a short, non-reversible identifier for a quantum key.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }

// Sender names the chat party a message is attributed to.
type Sender string

const (
	SenderAlice Sender = "alice"
	SenderBob   Sender = "bob"
)

// String returns the string form of the sender.
func (s Sender) String() string { return string(s) }

// Valid reports whether s is one of the two chat parties.
func (s Sender) Valid() bool { return s == SenderAlice || s == SenderBob }

// ParseSender maps user input onto a Sender.
func ParseSender(s string) (Sender, error) {
	switch Sender(strings.ToLower(strings.TrimSpace(s))) {
	case SenderAlice:
		return SenderAlice, nil
	case SenderBob:
		return SenderBob, nil
	}
	return "", fmt.Errorf("unknown sender %q (want alice or bob)", s)
}

// millisThreshold separates unix-second from unix-millisecond numeric timestamps.
const millisThreshold = 1e12

// isoLayouts are the timestamp layouts accepted from the backend. Naive
// timestamps (no zone) are interpreted as UTC.
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// Timestamp accepts either a JSON number (unix seconds or milliseconds) or an
// ISO-8601 string and always marshals as RFC 3339.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) Timestamp { return Timestamp{Time: t.UTC()} }

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		return t.parseString(s)
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	t.Time = fromNumber(f)
	return nil
}

func (t *Timestamp) parseString(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range isoLayouts {
		if v, err := time.Parse(layout, s); err == nil {
			t.Time = v.UTC()
			return nil
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		t.Time = fromNumber(f)
		return nil
	}
	return fmt.Errorf("timestamp: unrecognised format %q", s)
}

func fromNumber(f float64) time.Time {
	if f > millisThreshold {
		return time.UnixMilli(int64(f)).UTC()
	}
	sec := int64(f)
	nsec := int64((f - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec).UTC()
}

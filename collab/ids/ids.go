// Package ids defines the identifier types shared across the collaboration
// core: opaque thread identifiers for conversational sessions.
package ids

import (
	"github.com/google/uuid"
)

// ThreadID is an opaque, unique identifier for a conversational session.
// It is printable (String), comparable (==), and hashable (usable as a map
// key) by construction.
type ThreadID uuid.UUID

// NewThreadID allocates a fresh, random thread id.
func NewThreadID() ThreadID {
	return ThreadID(uuid.New())
}

// String renders the canonical hyphenated form.
func (t ThreadID) String() string {
	return uuid.UUID(t).String()
}

// IsZero reports whether t is the zero value (never issued by NewThreadID).
func (t ThreadID) IsZero() bool {
	return t == ThreadID{}
}

// ParseThreadID parses the canonical string form of a thread id.
func ParseThreadID(s string) (ThreadID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ThreadID{}, err
	}
	return ThreadID(u), nil
}

// MarshalText implements encoding.TextMarshaler so ThreadID can be used
// directly as a JSON string and as a map key.
func (t ThreadID) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ThreadID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*t = ThreadID(u)
	return nil
}

// Short returns the first 8 hex characters of the id, used in log lines and
// short-form status-message rendering where the full UUID is noise.
func (t ThreadID) Short() string {
	s := t.String()
	if len(s) < 8 {
		return s
	}
	return s[:8]
}

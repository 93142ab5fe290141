package ids

import (
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// New returns a lexicographically sortable identifier for stored records.
func New() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// NewSession returns a random identifier for a login session.
func NewSession() string {
	return uuid.NewString()
}

// IsSession reports whether s looks like an identifier produced by NewSession.
func IsSession(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

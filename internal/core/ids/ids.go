package ids

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// New returns a lexicographically sortable identifier used as every entity primary key.
func New() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// Valid reports whether id is a well-formed identifier produced by New.
func Valid(id string) bool {
	if id == "" {
		return false
	}
	_, err := ulid.ParseStrict(strings.ToUpper(id))
	return err == nil
}

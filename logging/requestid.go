package logging

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	idOnce    sync.Once
	idMu      sync.Mutex
	idEntropy *ulid.MonotonicEntropy
)

// NewRequestID returns a lexicographically sortable ULID. Safe for
// concurrent use.
func NewRequestID() string {
	idOnce.Do(func() {
		idEntropy = ulid.Monotonic(rand.Reader, 0)
	})

	idMu.Lock()
	defer idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now().UTC()), idEntropy).String()
}

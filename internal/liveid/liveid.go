// Package liveid generates client-local identifiers for ephemeral timeline
// entries. IDs are ULIDs from a monotonic source, so ids minted in the same
// millisecond still sort in creation order.
package liveid

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator mints ids for live timeline entries. Injected into the
// reconciler so tests can substitute a deterministic source.
type Generator interface {
	Next() string
}

// Source is the default Generator backed by monotonic ULID entropy.
type Source struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewSource returns a ready Generator.
func NewSource() *Source {
	return &Source{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// Next returns a fresh id with a "live-" prefix so locally minted ids never
// collide with server-assigned task ids.
func (s *Source) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy)
	return "live-" + id.String()
}

package dedup

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Guard suppresses near-simultaneous identical requests. Multiple consumers
// independently ask for the same resource on navigation; without this guard
// every mount turns into its own upstream call.
type Guard struct {
	mu      sync.Mutex
	window  time.Duration
	entries map[string]*entry
	// now is swappable in tests.
	now func() time.Time
}

type entry struct {
	lastCompleted time.Time
	inFlight      bool
}

// NewGuard creates a Guard that deduplicates identical requests completed
// within the given window or still in flight.
func NewGuard(window time.Duration) *Guard {
	return &Guard{
		window:  window,
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Key builds a canonical request key from an operation name and its arguments.
func Key(op string, args ...interface{}) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, op)
	for _, a := range args {
		parts = append(parts, fmt.Sprintf("%v", a))
	}
	return strings.Join(parts, ":")
}

// Begin admits or rejects a request for the given key.
// When admitted it returns done != nil; the caller must invoke done() once the
// request finishes (success or failure) so the completion time is stamped.
// When rejected (identical request in flight, or one completed inside the
// window) it returns admitted == false and a nil done.
func (g *Guard) Begin(key string) (done func(), admitted bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.entries[key]
	if ok {
		if e.inFlight {
			return nil, false
		}
		if g.now().Sub(e.lastCompleted) < g.window {
			return nil, false
		}
	} else {
		e = &entry{}
		g.entries[key] = e
	}

	e.inFlight = true

	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		e.inFlight = false
		e.lastCompleted = g.now()
	}, true
}

// Forget drops the entry for a key, letting the next identical request through
// immediately. Used when cached state tied to the key is reset.
func (g *Guard) Forget(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.entries, key)
}

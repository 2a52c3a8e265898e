package driven

import "time"

// Clock supplies all timestamps used by the core (cache entries, metrics,
// migration stamps). Injected so tests control time.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

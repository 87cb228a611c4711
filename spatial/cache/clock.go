package cache

import "time"

// Now returns the current time as nanoseconds since epoch, the unit
// LastAccessedNanos is stored in.
func Now() int64 { return time.Now().UnixNano() }

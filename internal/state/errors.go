package state

import "errors"

// ErrStale is returned when a write succeeded but the cache could not be refreshed.
var ErrStale = errors.New("write committed but cached state could not be refreshed")

package cache

import "errors"

// Sentinel errors for cache backends.
var (
	// ErrNetwork is returned when a networked backend (Redis) is unreachable.
	ErrNetwork = errors.New("cache backend unreachable")

	// ErrBackend is returned for an unknown backend name.
	ErrBackend = errors.New("unknown cache backend")
)

package streams

import "time"

// Polling bounds for waiter-state assertions.
const (
	testWaitTimeout = time.Second
	testWaitTick    = time.Millisecond
)

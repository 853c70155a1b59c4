package sesspool

import (
	"context"
	"time"
)

// Clock interface is required to emulate system clock.
//
// github.com/benbjohnson/clock mocks satisfy this interface and are used in tests.
type Clock interface {
	Now() time.Time
	Since(time.Time) time.Duration
	After(time.Duration) <-chan time.Time

	// WithTimeout returns a copy of the parent context which is cancelled after d elapses on this clock.
	WithTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc)
}

// SystemClock is the default clock implementation for the package.
// This type of clock just proxies calls to the `time` and `context` packages.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

func (SystemClock) Since(tm time.Time) time.Duration {
	return time.Since(tm)
}

func (SystemClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

func (SystemClock) WithTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, d)
}

package sesspool

import (
	"github.com/pkg/errors"
)

var (
	// ErrSessionPoolExhausted is returned when every session slot of a connection is in use.
	// With the fail-fast policy it is returned immediately, with the blocking policy after SessionWaitTimeout.
	ErrSessionPoolExhausted = errors.New("session pool exhausted: no session slot available")

	// ErrInvalidHandle is returned when an invalidated (or cleared) connection is used.
	ErrInvalidHandle = errors.New("connection is invalidated")

	// ErrPoolStopped is returned by any acquisition after Stop().
	ErrPoolStopped = errors.New("connection pool is stopped")

	// ErrPoolCleared is returned when the pool was cleared while the connection was being opened.
	// The connection opened for the previous pool state is closed.
	ErrPoolCleared = errors.New("connection pool was cleared while connection was opening")

	// ErrConfigSealed is returned by configuration setters after the first pool usage.
	ErrConfigSealed = errors.New("configuration can't be changed after first use")

	// ErrInvalidConfig is returned when the configuration contains out of range values.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrSessionNotHeld is returned when a session slot is released without a matching grant.
	ErrSessionNotHeld = errors.New("no session slot is held")
)

// ProviderError is returned when the ConnectionFactory or RawConn fails to open a connection or a session.
// Original error is available through errors.Unwrap (or errors.Is / errors.As).
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsProviderError reports whether err was caused by the underlying transport.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}

// IsExhausted reports whether err means "session pool is full" rather than "connection is broken".
func IsExhausted(err error) bool {
	return errors.Is(err, ErrSessionPoolExhausted)
}

func newProviderError(op string, err error) error {
	return errors.WithStack(&ProviderError{Op: op, Err: err})
}

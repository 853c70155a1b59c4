package sesspool

import (
	"context"
	"fmt"
)

// ConnectionFactory opens raw transport connections for the pool independently from the specific protocol.
type ConnectionFactory interface {
	// OpenConnection opens one new raw connection.
	//
	// Function should be implemented in the thread-safe way: the pool calls it concurrently
	// when several slots are provisioned at once.
	// The call could be slow and could fail. The pool never retries a failed call.
	OpenConnection(ctx context.Context) (RawConn, error)
}

// ConnectionFactoryFunc allows to use an ordinary function as ConnectionFactory.
type ConnectionFactoryFunc func(ctx context.Context) (RawConn, error)

// OpenConnection calls f(ctx).
func (f ConnectionFactoryFunc) OpenConnection(ctx context.Context) (RawConn, error) {
	return f(ctx)
}

// RawConn is a live transport connection returned by the ConnectionFactory.
// It is owned by exactly one pooled connection until the pool is cleared or stopped.
type RawConn interface {
	// OpenSession opens a new lightweight session on top of the connection.
	// Session accounting is done by the pool: this method is called only after a session slot was granted.
	OpenSession(ctx context.Context, cfg SessionConfig) (RawSession, error)

	// Close closes the connection. Could be called on already broken connection.
	Close() error
}

// RawSession is a session opened by RawConn.OpenSession.
type RawSession interface {
	Close() error
}

// FailureNotifier could be implemented by RawConn to report asynchronous connection failures.
//
// The pool registers a callback right after the connection is opened. When the callback is called,
// the pooled connection is invalidated and its slot is refilled on the next acquisition.
type FailureNotifier interface {
	NotifyOnFailure(fn func(err error))
}

// AckMode declares how messages received in a session are acknowledged.
// The pool doesn't interpret this value: it's passed to RawConn.OpenSession as is.
type AckMode int

const (
	AutoAcknowledge AckMode = iota
	ClientAcknowledge
	DupsOkAcknowledge
	SessionTransacted
)

func (m AckMode) String() string {
	switch m {
	case AutoAcknowledge:
		return "auto"
	case ClientAcknowledge:
		return "client"
	case DupsOkAcknowledge:
		return "dups_ok"
	case SessionTransacted:
		return "transacted"
	}

	return fmt.Sprintf("AckMode(%d)", int(m))
}

// SessionConfig holds session parameters passed to RawConn.OpenSession.
type SessionConfig struct {
	Transacted bool
	AckMode    AckMode
}

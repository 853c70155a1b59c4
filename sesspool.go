// Package sesspool implements a bounded pool of long-lived transport connections.
// Each pooled connection carries its own bounded pool of session slots.
//
// Connections are opened on demand (or all at once on startup) until MaxConnections is reached.
// After that the pool never opens new connections: existing ones are handed out in round-robin order,
// so the same connection is shared between many callers. Callers open sessions on the returned
// connection and close them after use.
//
// The transport is protocol-independent: see ConnectionFactory.
//
package sesspool

import (
	"context"
	"time"
)

// Conn is a pooled connection. It is shared between all callers who got it from the pool.
type Conn interface {
	// AcquireSession grants one session slot of the connection and opens a session.
	//
	// When every slot is in use ErrSessionPoolExhausted is returned immediately (or after
	// Config.SessionWaitTimeout if Config.BlockIfSessionPoolFull is set).
	// Errors of the underlying transport are returned as *ProviderError.
	//
	// Session should be closed (with Session.Close() or ReleaseSession() call) exactly once after use.
	AcquireSession(ctx context.Context, cfg SessionConfig) (*Session, error)

	// ReleaseSession closes the session and frees its slot.
	ReleaseSession(s *Session) error

	// Invalidate closes the original connection. Invalidated connection is never returned by the pool again:
	// its slot is filled with a new connection on the next acquisition.
	Invalidate() error

	// Valid returns false after Invalidate(), pool Clear() or Stop().
	Valid() bool

	// ID returns index of the connection slot inside the pool.
	ID() int

	// ActiveSessions returns number of session slots currently in use.
	ActiveSessions() int

	// OriginalConn returns original connection returned by the ConnectionFactory.
	//
	// XXX: Returned connection shouldn't be closed.
	OriginalConn() RawConn
}

// ConnPool is the base interface to interact with user.
type ConnPool interface {
	// Start opens all connections when Config.CreateConnectionsOnStartup is set. Does nothing otherwise.
	// Start seals the configuration.
	Start(ctx context.Context) error

	// AcquireConnection returns a connection from the pool.
	//
	// If less than MaxConnections connections are opened, new connection is opened and returned.
	// Otherwise the next connection in round-robin order is returned: two subsequent calls never return
	// the same connection when MaxConnections > 1.
	//
	// Connection opening errors are returned as *ProviderError. The call is never retried.
	// With Config.CreateConnectionsOnStartup the first call opens all connections; when only some of
	// them fail to open, one of the opened connections is returned and the rest are opened on demand.
	// The first call seals the configuration.
	AcquireConnection(ctx context.Context) (Conn, error)

	// AcquireConnectionRetry does same things as AcquireConnection, but it retries *ProviderError failures
	// with exponential backoff until a connection is opened. This process could be cancelled using the context.
	AcquireConnectionRetry(ctx context.Context) (Conn, error)

	// NumConnections returns number of opened connections.
	NumConnections() int

	// Stats returns pool statistics.
	Stats() Stats

	// Clear closes all opened connections. The pool is refilled from scratch on next acquisitions.
	Clear()

	// Stop closes all opened connections and makes all next acquisitions fail with ErrPoolStopped.
	Stop()

	// Configuration setters. They return ErrConfigSealed after the first pool usage.

	SetMaxConnections(n int) error
	SetMaxSessionsPerConnection(n int) error
	SetBlockIfSessionPoolFull(block bool) error
	SetSessionWaitTimeout(d time.Duration) error
	SetCreateConnectionsOnStartup(create bool) error
}

// Stats describes current pool state.
type Stats struct {
	MaxConnections int
	Connections    int
	Pending        int // slots being opened right now
	ActiveSessions int

	ConnectionsOpened uint64
	ConnectFailures   uint64
	SessionsExhausted uint64
}

// NewConnPool creates new pool with configuration passed.
func NewConnPool(cfg Config, factory ConnectionFactory) ConnPool {
	return newConnPool(cfg, factory)
}

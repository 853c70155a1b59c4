package sesspool

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

type pooledConn struct {
	id         int
	generation uint64

	raw   RawConn
	slots *sessionSlots
	ring  *connRing

	invalid   atomic.Bool
	done      chan struct{} // closed when the connection is invalidated
	closeOnce sync.Once
	closeErr  error
}

func newPooledConn(id int, generation uint64, raw RawConn, r *connRing) *pooledConn {
	cfg := r.cfg

	return &pooledConn{
		id:         id,
		generation: generation,
		raw:        raw,
		slots: newSessionSlots(cfg.MaxSessionsPerConnection, cfg.sessionPolicy(),
			cfg.SessionWaitTimeout, cfg.Clock),
		ring: r,
		done: make(chan struct{}),
	}
}

func (cn *pooledConn) ID() int {
	return cn.id
}

func (cn *pooledConn) Generation() uint64 {
	return cn.generation
}

func (cn *pooledConn) Valid() bool {
	return !cn.invalid.Load()
}

func (cn *pooledConn) OriginalConn() RawConn {
	return cn.raw
}

func (cn *pooledConn) ActiveSessions() int {
	return cn.slots.active()
}

func (cn *pooledConn) AcquireSession(ctx context.Context, cfg SessionConfig) (*Session, error) {
	if !cn.Valid() {
		return nil, errors.Wrapf(ErrInvalidHandle, "connection #%d", cn.id)
	}

	if err := cn.slots.grant(ctx, cn.done); err != nil {
		if IsExhausted(err) {
			cn.ring.counters.sessionsExhausted.Add(1)
		}
		return nil, err
	}

	// the connection could be invalidated while the slot was granted
	if !cn.Valid() {
		cn.releaseSlot()
		return nil, errors.Wrapf(ErrInvalidHandle, "connection #%d", cn.id)
	}

	rs, err := cn.raw.OpenSession(ctx, cfg)
	if err == nil && rs == nil {
		err = errors.New("nil session returned")
	}

	if err != nil {
		cn.releaseSlot()
		return nil, newProviderError("open session", err)
	}

	return &Session{raw: rs, conn: cn, cfg: cfg}, nil
}

func (cn *pooledConn) ReleaseSession(s *Session) error {
	if s == nil || s.conn != cn {
		return errors.Wrapf(ErrInvalidHandle, "session doesn't belong to connection #%d", cn.id)
	}

	return s.Close()
}

func (cn *pooledConn) Invalidate() error {
	if !cn.markInvalid() {
		return nil
	}

	cn.ring.detach(cn)
	return cn.closeRaw()
}

func (cn *pooledConn) releaseSlot() {
	if err := cn.slots.release(); err != nil {
		cn.ring.cfg.Logger.Printf("can't release session slot of connection #%d: %s", cn.id, err)
	}
}

// markInvalid returns true only for the first call. Session slot waiters are woken up.
func (cn *pooledConn) markInvalid() bool {
	if !cn.invalid.CompareAndSwap(false, true) {
		return false
	}

	close(cn.done)
	return true
}

func (cn *pooledConn) closeRaw() error {
	cn.closeOnce.Do(func() {
		if err := cn.raw.Close(); err != nil {
			cn.closeErr = errors.Wrapf(err, "can't close connection #%d", cn.id)
		}
	})

	return cn.closeErr
}

// watch subscribes on collaborator-reported failures if the raw connection supports it.
// Should be called without the ring lock held: the callback could be called synchronously.
func (cn *pooledConn) watch() {
	fn, ok := cn.raw.(FailureNotifier)
	if !ok {
		return
	}

	fn.NotifyOnFailure(func(err error) {
		if !cn.Valid() {
			return
		}

		cn.ring.cfg.Logger.Printf("connection #%d failed: %v", cn.id, err)
		if err := cn.Invalidate(); err != nil {
			cn.ring.cfg.Logger.Printf("%s", err)
		}
	})
}

// Session is a session acquired from a pooled connection.
// It holds one session slot of the connection until Close() is called.
type Session struct {
	raw  RawSession
	conn *pooledConn
	cfg  SessionConfig

	once sync.Once
	err  error
}

// OriginalSession returns the session opened by RawConn.
//
// XXX: Returned session shouldn't be closed directly: use Close() to release the session slot.
func (s *Session) OriginalSession() RawSession {
	return s.raw
}

// Config returns the configuration the session was opened with.
func (s *Session) Config() SessionConfig {
	return s.cfg
}

// Conn returns the connection the session belongs to.
func (s *Session) Conn() Conn {
	return s.conn
}

// Close closes the original session and frees the session slot.
// The slot is freed even if the original session fails to close.
// Subsequent calls return the result of the first one.
func (s *Session) Close() error {
	s.once.Do(func() {
		if err := s.raw.Close(); err != nil {
			s.err = errors.Wrapf(err, "can't close session of connection #%d", s.conn.id)
		}

		if err := s.conn.slots.release(); err != nil && s.err == nil {
			s.err = err
		}
	})

	return s.err
}

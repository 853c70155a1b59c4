// Package natspool implements NATS connections pool.
//
// Every pooled connection is a separate *nats.Conn; sessions are lightweight wrappers which
// track their subscriptions and, in transacted mode, buffer published messages until Commit.
//
package natspool

import (
	"context"
	"sync"
	"time"

	"github.com/derElektrobesen/sesspool"
	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
)

var (
	// ErrNotTransacted is returned by Commit and Rollback of a non-transacted session.
	ErrNotTransacted = errors.New("session is not transacted")

	// ErrSessionClosed is returned by any call of a closed session.
	ErrSessionClosed = errors.New("session is closed")
)

type factory struct {
	cfg Config
}

// NewFactory returns a sesspool.ConnectionFactory which opens NATS connections.
func NewFactory(cfg Config) sesspool.ConnectionFactory {
	return &factory{cfg: cfg.WithDefaults()}
}

// NewPool creates new NATS connections pool.
func NewPool(cfg Config) sesspool.ConnPool {
	cfg = cfg.WithDefaults()
	return sesspool.NewConnPool(*cfg.PoolConfig, NewFactory(cfg))
}

func (f *factory) OpenConnection(ctx context.Context) (sesspool.RawConn, error) {
	timeout := f.cfg.ConnectTimeout
	if deadline, ok := ctx.Deadline(); ok {
		left := time.Until(deadline)
		if left <= 0 {
			return nil, errors.Wrap(context.DeadlineExceeded, "can't connect to NATS")
		}

		if left < timeout {
			timeout = left
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "can't connect to NATS")
	}

	cn := &conn{logger: f.cfg.PoolConfig.Logger}
	opts := append(f.cfg.options(timeout),
		nats.ClosedHandler(cn.onClosed),
		nats.DisconnectErrHandler(cn.onDisconnect),
		nats.ReconnectHandler(cn.onReconnect),
	)

	nc, err := nats.Connect(f.cfg.URL, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "can't connect to NATS at %s", f.cfg.URL)
	}

	cn.setConn(nc)
	return cn, nil
}

// conn is a raw NATS connection owned by the pool.
type conn struct {
	logger sesspool.Logger

	mu        sync.Mutex
	nc        *nats.Conn
	closed    bool
	onFailure func(error)
}

func (cn *conn) setConn(nc *nats.Conn) {
	cn.mu.Lock()
	cn.nc = nc
	cn.mu.Unlock()
}

func (cn *conn) OpenSession(ctx context.Context, cfg sesspool.SessionConfig) (sesspool.RawSession, error) {
	cn.mu.Lock()
	nc := cn.nc
	cn.mu.Unlock()

	if nc == nil || nc.IsClosed() {
		return nil, nats.ErrConnectionClosed
	}

	return newSession(nc, cfg), nil
}

func (cn *conn) Close() error {
	cn.mu.Lock()
	nc := cn.nc
	cn.mu.Unlock()

	if nc != nil {
		nc.Close()
	}

	return nil
}

// NotifyOnFailure registers the callback called when nats.go gives up reconnecting
// or the connection is closed by anyone else.
func (cn *conn) NotifyOnFailure(fn func(err error)) {
	cn.mu.Lock()
	cn.onFailure = fn
	closed := cn.closed
	cn.mu.Unlock()

	if closed {
		fn(nats.ErrConnectionClosed)
	}
}

func (cn *conn) onClosed(nc *nats.Conn) {
	cn.mu.Lock()
	cn.closed = true
	fn := cn.onFailure
	cn.mu.Unlock()

	if fn == nil {
		return
	}

	err := nc.LastError()
	if err == nil {
		err = nats.ErrConnectionClosed
	}
	fn(err)
}

func (cn *conn) onDisconnect(nc *nats.Conn, err error) {
	if err != nil {
		cn.logger.Printf("disconnected from NATS: %v", err)
	}
}

func (cn *conn) onReconnect(nc *nats.Conn) {
	cn.logger.Printf("reconnected to NATS at %s", nc.ConnectedUrl())
}

// Session is a NATS session opened on a pooled connection.
// Use From() to get it from sesspool.Session.
type Session struct {
	nc  *nats.Conn
	cfg sesspool.SessionConfig

	mu      sync.Mutex
	subs    []*nats.Subscription
	pending []*nats.Msg
	closed  bool
}

func newSession(nc *nats.Conn, cfg sesspool.SessionConfig) *Session {
	return &Session{nc: nc, cfg: cfg}
}

// From returns NATS session opened by the pool.
func From(s *sesspool.Session) (*Session, error) {
	ns, ok := s.OriginalSession().(*Session)
	if !ok {
		return nil, errors.Errorf("unexpected session type %T", s.OriginalSession())
	}

	return ns, nil
}

// Transacted reports whether published messages are buffered until Commit.
func (s *Session) Transacted() bool {
	return s.cfg.Transacted || s.cfg.AckMode == sesspool.SessionTransacted
}

// Publish sends the message. In transacted mode the message is sent on Commit only.
func (s *Session) Publish(subject string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}

	if s.Transacted() {
		s.pending = append(s.pending, &nats.Msg{Subject: subject, Data: data})
		return nil
	}

	return errors.Wrapf(s.nc.Publish(subject, data), "can't publish to %s", subject)
}

// Subscribe subscribes on the subject. Subscription is removed when the session is closed.
func (s *Session) Subscribe(subject string, h nats.MsgHandler) (*nats.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}

	sub, err := s.nc.Subscribe(subject, h)
	if err != nil {
		return nil, errors.Wrapf(err, "can't subscribe to %s", subject)
	}

	s.subs = append(s.subs, sub)
	return sub, nil
}

// Request sends the request and waits for a reply until ctx is done.
func (s *Session) Request(ctx context.Context, subject string, data []byte) (*nats.Msg, error) {
	if err := s.checkOpened(); err != nil {
		return nil, err
	}

	msg, err := s.nc.RequestWithContext(ctx, subject, data)
	if err != nil {
		return nil, errors.Wrapf(err, "can't send request to %s", subject)
	}

	return msg, nil
}

// Flush waits until all published messages are processed by the server.
// Default nats.go flush timeout is used when ctx has no deadline.
func (s *Session) Flush(ctx context.Context) error {
	if err := s.checkOpened(); err != nil {
		return err
	}

	if _, ok := ctx.Deadline(); !ok {
		return errors.Wrap(s.nc.Flush(), "can't flush")
	}

	return errors.Wrap(s.nc.FlushWithContext(ctx), "can't flush")
}

// Commit publishes all buffered messages.
func (s *Session) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkTransactedLocked(); err != nil {
		return err
	}

	for i, msg := range s.pending {
		if err := s.nc.PublishMsg(msg); err != nil {
			s.pending = s.pending[i:]
			return errors.Wrapf(err, "can't publish to %s", msg.Subject)
		}
	}

	s.pending = nil
	return nil
}

// Rollback drops all buffered messages.
func (s *Session) Rollback() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkTransactedLocked(); err != nil {
		return err
	}

	s.pending = nil
	return nil
}

// Pending returns number of messages buffered until Commit.
func (s *Session) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.pending)
}

// Close removes all session subscriptions. Not committed messages are dropped.
// Use sesspool.Session.Close() instead: it frees the session slot.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.pending = nil

	var firstErr error
	for _, sub := range s.subs {
		err := sub.Unsubscribe()
		if err == nil || errors.Is(err, nats.ErrConnectionClosed) || errors.Is(err, nats.ErrBadSubscription) {
			continue
		}

		if firstErr == nil {
			firstErr = errors.Wrapf(err, "can't unsubscribe from %s", sub.Subject)
		}
	}
	s.subs = nil

	return firstErr
}

func (s *Session) checkOpened() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}

	return nil
}

func (s *Session) checkTransactedLocked() error {
	if s.closed {
		return ErrSessionClosed
	}

	if !s.Transacted() {
		return ErrNotTransacted
	}

	return nil
}

package sesspool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeFactory opens in-memory connections and tracks how many of them are alive.
type fakeFactory struct {
	delay time.Duration

	opened  atomic.Int64
	live    atomic.Int64
	maxLive atomic.Int64
}

func (f *fakeFactory) OpenConnection(ctx context.Context) (RawConn, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	id := f.opened.Add(1)
	live := f.live.Add(1)
	for {
		peak := f.maxLive.Load()
		if live <= peak || f.maxLive.CompareAndSwap(peak, live) {
			break
		}
	}

	return &fakeConn{id: id, f: f}, nil
}

type fakeConn struct {
	id     int64
	f      *fakeFactory
	closed atomic.Bool

	mu        sync.Mutex
	onFailure func(error)
}

func (cn *fakeConn) OpenSession(ctx context.Context, cfg SessionConfig) (RawSession, error) {
	return &fakeSession{cfg: cfg}, nil
}

func (cn *fakeConn) Close() error {
	if cn.closed.CompareAndSwap(false, true) {
		cn.f.live.Add(-1)
	}

	return nil
}

func (cn *fakeConn) NotifyOnFailure(fn func(error)) {
	cn.mu.Lock()
	defer cn.mu.Unlock()

	cn.onFailure = fn
}

func (cn *fakeConn) fail(err error) {
	cn.mu.Lock()
	fn := cn.onFailure
	cn.mu.Unlock()

	if fn != nil {
		fn(err)
	}
}

type fakeSession struct {
	cfg    SessionConfig
	closed atomic.Bool
}

func (s *fakeSession) Close() error {
	s.closed.Store(true)
	return nil
}

type testLogger struct {
	t *testing.T
}

func (l testLogger) Printf(format string, args ...interface{}) {
	l.t.Helper()
	l.t.Logf(format, args...)
}

func rawOf(cn Conn) *fakeConn {
	return cn.OriginalConn().(*fakeConn)
}

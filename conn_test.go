package sesspool

import (
	"context"
	"fmt"
	"testing"
	"time"

	gomock "github.com/golang/mock/gomock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func testSessionsAreLimited(t *testing.T) {
	t.Parallel()
	ass := require.New(t)

	p := NewConnPool(Config{MaxConnections: 1, MaxSessionsPerConnection: 1}, &fakeFactory{})

	cn, err := p.AcquireConnection(context.Background())
	ass.NoError(err)

	s, err := cn.AcquireSession(context.Background(), SessionConfig{AckMode: ClientAcknowledge})
	ass.NoError(err)
	ass.Equal(ClientAcknowledge, s.Config().AckMode)
	ass.Equal(ClientAcknowledge, s.OriginalSession().(*fakeSession).cfg.AckMode)
	ass.Equal(cn, s.Conn())
	ass.Equal(1, cn.ActiveSessions())

	start := time.Now()
	_, err = cn.AcquireSession(context.Background(), SessionConfig{})
	ass.Less(time.Since(start), 5*time.Second)
	ass.True(IsExhausted(err))
	ass.False(IsProviderError(err))

	// connection is still usable
	ass.True(cn.Valid())

	ass.NoError(cn.ReleaseSession(s))
	ass.True(s.OriginalSession().(*fakeSession).closed.Load())
	ass.Equal(0, cn.ActiveSessions())

	s, err = cn.AcquireSession(context.Background(), SessionConfig{})
	ass.NoError(err)
	ass.NoError(s.Close())
	ass.NoError(s.Close()) // second close does nothing
	ass.Equal(0, cn.ActiveSessions())
}

func testSessionsBlock(t *testing.T) {
	t.Parallel()
	ass := require.New(t)

	p := NewConnPool(Config{
		MaxSessionsPerConnection: 1,
		BlockIfSessionPoolFull:   true,
		SessionWaitTimeout:       20 * time.Millisecond,
	}, &fakeFactory{})

	cn, err := p.AcquireConnection(context.Background())
	ass.NoError(err)

	s, err := cn.AcquireSession(context.Background(), SessionConfig{})
	ass.NoError(err)

	_, err = cn.AcquireSession(context.Background(), SessionConfig{})
	ass.True(IsExhausted(err))

	acquired := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		// every failed wait is retried until the session is closed below
		for {
			s, err := cn.AcquireSession(ctx, SessionConfig{})
			if IsExhausted(err) {
				continue
			}
			if err == nil {
				err = s.Close()
			}
			acquired <- err
			return
		}
	}()

	time.Sleep(30 * time.Millisecond)
	ass.NoError(s.Close())
	ass.NoError(<-acquired)

	ass.GreaterOrEqual(p.Stats().SessionsExhausted, uint64(2))
}

func testOpenSessionFailure(t *testing.T) {
	t.Parallel()
	ass := require.New(t)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	raw := NewMockRawConn(ctrl)
	rawSession := NewMockRawSession(ctrl)

	p := NewConnPool(Config{MaxSessionsPerConnection: 1, Logger: testLogger{t: t}},
		ConnectionFactoryFunc(func(context.Context) (RawConn, error) { return raw, nil }))

	cn, err := p.AcquireConnection(context.Background())
	ass.NoError(err)

	sessErr := fmt.Errorf("channel limit reached")
	gomock.InOrder(
		raw.EXPECT().OpenSession(gomock.Any(), SessionConfig{Transacted: true}).Return(nil, sessErr),
		raw.EXPECT().OpenSession(gomock.Any(), SessionConfig{}).Return(nil, nil),
		raw.EXPECT().OpenSession(gomock.Any(), SessionConfig{}).Return(rawSession, nil),
		rawSession.EXPECT().Close().Return(fmt.Errorf("already closed")),
	)

	_, err = cn.AcquireSession(context.Background(), SessionConfig{Transacted: true})
	ass.True(IsProviderError(err))
	ass.True(errors.Is(err, sessErr))
	ass.Equal(0, cn.ActiveSessions())

	_, err = cn.AcquireSession(context.Background(), SessionConfig{})
	ass.True(IsProviderError(err))
	ass.Equal(0, cn.ActiveSessions())

	// the only slot was released after both failures
	s, err := cn.AcquireSession(context.Background(), SessionConfig{})
	ass.NoError(err)
	ass.Equal(1, cn.ActiveSessions())

	// slot is freed even when the original session fails to close
	ass.Error(s.Close())
	ass.Error(s.Close())
	ass.Equal(0, cn.ActiveSessions())

	raw.EXPECT().Close().Return(nil)
	p.Stop()
}

func testForeignSession(t *testing.T) {
	t.Parallel()
	ass := require.New(t)

	p := NewConnPool(Config{MaxConnections: 2}, &fakeFactory{})
	conns := acquireN(t, p, 2)

	s, err := conns[0].AcquireSession(context.Background(), SessionConfig{})
	ass.NoError(err)

	ass.True(errors.Is(conns[1].ReleaseSession(s), ErrInvalidHandle))
	ass.True(errors.Is(conns[1].ReleaseSession(nil), ErrInvalidHandle))
	ass.Equal(1, conns[0].ActiveSessions())

	ass.NoError(conns[0].ReleaseSession(s))
	ass.Equal(0, conns[0].ActiveSessions())
}

func testSessionsOfClearedConnection(t *testing.T) {
	t.Parallel()
	ass := require.New(t)

	p := NewConnPool(Config{}, &fakeFactory{})

	cn, err := p.AcquireConnection(context.Background())
	ass.NoError(err)

	s, err := cn.AcquireSession(context.Background(), SessionConfig{})
	ass.NoError(err)

	p.Clear()

	_, err = cn.AcquireSession(context.Background(), SessionConfig{})
	ass.True(errors.Is(err, ErrInvalidHandle))

	// sessions opened before clear still could be closed
	ass.NoError(s.Close())
	ass.Equal(0, cn.ActiveSessions())
}

func testBlockedSessionWaiterIsWoken(invalidate func(p ConnPool, cn Conn)) func(t *testing.T) {
	return func(t *testing.T) {
		t.Parallel()
		ass := require.New(t)

		f := &fakeFactory{}
		p := NewConnPool(Config{MaxSessionsPerConnection: 1, BlockIfSessionPoolFull: true}, f)

		cn, err := p.AcquireConnection(context.Background())
		ass.NoError(err)

		s, err := cn.AcquireSession(context.Background(), SessionConfig{})
		ass.NoError(err)

		waiting := make(chan error, 1)
		go func() {
			s, err := cn.AcquireSession(context.Background(), SessionConfig{})
			if err == nil {
				s.Close()
			}
			waiting <- err
		}()

		// let the goroutine block on the full connection
		time.Sleep(50 * time.Millisecond)
		invalidate(p, cn)

		select {
		case err := <-waiting:
			ass.True(errors.Is(err, ErrInvalidHandle), "got %v", err)
		case <-time.After(5 * time.Second):
			ass.FailNow("session waiter is not woken up after the connection is invalidated")
		}

		ass.False(cn.Valid())
		ass.True(rawOf(cn).closed.Load())

		ass.NoError(s.Close())
		ass.Equal(0, cn.ActiveSessions())

		// no session is granted on the invalidated connection even when a slot is free
		_, err = cn.AcquireSession(context.Background(), SessionConfig{})
		ass.True(errors.Is(err, ErrInvalidHandle))
		ass.Equal(0, cn.ActiveSessions())
	}
}

func TestConn(t *testing.T) {
	t.Parallel()

	t.Run("sessions_are_limited", testSessionsAreLimited)
	t.Run("sessions_block", testSessionsBlock)
	t.Run("open_session_failure", testOpenSessionFailure)
	t.Run("foreign_session", testForeignSession)
	t.Run("sessions_of_cleared_connection", testSessionsOfClearedConnection)
	t.Run("waiter_woken_on_clear", testBlockedSessionWaiterIsWoken(func(p ConnPool, _ Conn) { p.Clear() }))
	t.Run("waiter_woken_on_stop", testBlockedSessionWaiterIsWoken(func(p ConnPool, _ Conn) { p.Stop() }))
	t.Run("waiter_woken_on_invalidate", testBlockedSessionWaiterIsWoken(func(_ ConnPool, cn Conn) {
		cn.Invalidate()
	}))
}

func TestAckModeString(t *testing.T) {
	t.Parallel()
	ass := require.New(t)

	ass.Equal("auto", AutoAcknowledge.String())
	ass.Equal("client", ClientAcknowledge.String())
	ass.Equal("dups_ok", DupsOkAcknowledge.String())
	ass.Equal("transacted", SessionTransacted.String())
	ass.Equal("AckMode(9)", AckMode(9).String())
}

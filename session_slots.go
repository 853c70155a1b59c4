package sesspool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"
)

// SessionPolicy declares what happens when a session is requested from a connection with no free session slots.
type SessionPolicy int

const (
	// FailFast returns ErrSessionPoolExhausted immediately.
	FailFast SessionPolicy = iota

	// Block waits until some session is released (or the wait timeout elapses).
	Block
)

func (p SessionPolicy) String() string {
	switch p {
	case FailFast:
		return "fail_fast"
	case Block:
		return "block"
	}

	return fmt.Sprintf("SessionPolicy(%d)", int(p))
}

// sessionSlots is a per-connection counter of active sessions.
// Slots of different connections never contend with each other.
type sessionSlots struct {
	capacity int
	policy   SessionPolicy
	timeout  time.Duration
	clock    Clock

	sem *semaphore.Weighted // nil for unlimited pools

	mu      sync.Mutex
	nActive int
}

func newSessionSlots(capacity int, policy SessionPolicy, timeout time.Duration, clock Clock) *sessionSlots {
	s := &sessionSlots{
		capacity: capacity,
		policy:   policy,
		timeout:  timeout,
		clock:    clock,
	}

	if capacity > 0 {
		s.sem = semaphore.NewWeighted(int64(capacity))
	}

	return s
}

// grant takes one session slot. A blocked wait is broken when abort is closed:
// ErrInvalidHandle is returned in this case.
func (s *sessionSlots) grant(ctx context.Context, abort <-chan struct{}) error {
	if s.sem == nil || s.sem.TryAcquire(1) {
		s.inc()
		return nil
	}

	if s.policy == FailFast {
		return errors.Wrapf(ErrSessionPoolExhausted, "all %d sessions are in use", s.capacity)
	}

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if abort != nil {
		go func() {
			select {
			case <-abort:
				cancel()
			case <-waitCtx.Done():
			}
		}()
	}

	semCtx := waitCtx
	if s.timeout > 0 {
		var cancelTimeout context.CancelFunc
		semCtx, cancelTimeout = s.clock.WithTimeout(waitCtx, s.timeout)
		defer cancelTimeout()
	}

	// semaphore doesn't take the slot when the context is done
	if err := s.sem.Acquire(semCtx, 1); err != nil {
		select {
		case <-abort:
			return errors.Wrap(ErrInvalidHandle, "connection was invalidated while waiting for session slot")
		default:
		}

		if ctx.Err() != nil {
			return errors.Wrap(ctx.Err(), "session slot wait cancelled")
		}

		return errors.Wrapf(ErrSessionPoolExhausted, "no session released within %s", s.timeout)
	}

	s.inc()
	return nil
}

func (s *sessionSlots) inc() {
	s.mu.Lock()
	s.nActive++
	s.mu.Unlock()
}

func (s *sessionSlots) release() error {
	s.mu.Lock()
	if s.nActive == 0 {
		s.mu.Unlock()
		return ErrSessionNotHeld
	}
	s.nActive--
	s.mu.Unlock()

	if s.sem != nil {
		s.sem.Release(1)
	}

	return nil
}

func (s *sessionSlots) active() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.nActive
}

package main

import (
	"context"
	"sync/atomic"

	"github.com/derElektrobesen/sesspool"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// publisher is implemented by natspool.Session.
type publisher interface {
	Publish(subject string, data []byte) error
}

// committer is implemented by transacted natspool.Session.
type committer interface {
	Commit() error
}

type results struct {
	published  atomic.Uint64
	exhausted  atomic.Uint64
	failed     atomic.Uint64
	invalidate atomic.Uint64
}

type bench struct {
	pool    sesspool.ConnPool
	limiter *rate.Limiter
	logger  *zap.Logger

	subject string
	payload []byte
	session sesspool.SessionConfig

	res results
}

// worker publishes messages until ctx is done.
func (b *bench) worker(ctx context.Context) error {
	for {
		if err := b.limiter.Wait(ctx); err != nil {
			return nil // ctx is done
		}

		err := b.publishOnce(ctx)
		switch {
		case err == nil:
			b.res.published.Add(1)
		case errors.Is(err, sesspool.ErrPoolStopped):
			return err
		case ctx.Err() != nil:
			return nil
		case sesspool.IsExhausted(err):
			b.res.exhausted.Add(1)
		default:
			b.res.failed.Add(1)
			b.logger.Debug("publish failed", zap.Error(err))
		}
	}
}

func (b *bench) publishOnce(ctx context.Context) error {
	cn, err := b.pool.AcquireConnectionRetry(ctx)
	if err != nil {
		return err
	}

	s, err := cn.AcquireSession(ctx, b.session)
	if err != nil {
		if sesspool.IsProviderError(err) {
			// broken connection: let the pool replace it
			b.res.invalidate.Add(1)
			if invErr := cn.Invalidate(); invErr != nil {
				b.logger.Warn("can't invalidate connection", zap.Int("conn", cn.ID()), zap.Error(invErr))
			}
		}
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			b.logger.Warn("can't close session", zap.Int("conn", cn.ID()), zap.Error(err))
		}
	}()

	p, ok := s.OriginalSession().(publisher)
	if !ok {
		return errors.Errorf("session of type %T can't publish", s.OriginalSession())
	}

	if err := p.Publish(b.subject, b.payload); err != nil {
		return err
	}

	if c, ok := p.(committer); ok && b.session.Transacted {
		return c.Commit()
	}

	return nil
}

package sesspool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
)

type connPool struct {
	factory  ConnectionFactory
	counters poolCounters

	mu   sync.Mutex
	cfg  Config
	ring atomic.Pointer[connRing] // nil until the configuration is sealed
}

func newConnPool(cfg Config, factory ConnectionFactory) *connPool {
	return &connPool{
		cfg:     cfg.WithDefaults(),
		factory: factory,
	}
}

// sealed returns the connection ring, creating it on the first call.
func (p *connPool) sealed() *connRing {
	if r := p.ring.Load(); r != nil {
		return r
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if r := p.ring.Load(); r != nil {
		return r
	}

	r := newConnRing(p.cfg, p.factory, &p.counters)
	p.ring.Store(r)
	return r
}

func (p *connPool) Start(ctx context.Context) error {
	r := p.sealed()
	if !r.cfg.CreateConnectionsOnStartup {
		return r.running()
	}

	return r.warmUp(ctx)
}

func (p *connPool) AcquireConnection(ctx context.Context) (Conn, error) {
	cn, err := p.sealed().acquire(ctx)
	if err != nil {
		return nil, err
	}

	return cn, nil
}

func (p *connPool) AcquireConnectionRetry(ctx context.Context) (Conn, error) {
	r := p.sealed()
	bOff := newBackOff(r.cfg)

	for {
		cn, err := r.acquire(ctx)
		if err == nil {
			return cn, nil
		}

		if !IsProviderError(err) {
			return nil, err
		}

		timeout := bOff.NextBackOff()
		r.cfg.Logger.Printf("can't acquire connection: %s; retry after %s", err, timeout)

		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "operation cancelled")
		case <-r.cfg.Clock.After(timeout):
		}
	}
}

func newBackOff(cfg Config) backoff.BackOff {
	bc := backoff.NewExponentialBackOff()
	bc.InitialInterval = cfg.InitialBackoffInterval
	bc.MaxInterval = cfg.MaxBackoffInterval
	bc.MaxElapsedTime = 0
	bc.Clock = cfg.Clock

	if cfg.backoffRandomizationFactor != nil {
		// only for tests. Default backoff interval should be used in production
		bc.RandomizationFactor = *cfg.backoffRandomizationFactor
	}

	bc.Reset() // required to re-setup config options

	return bc
}

func (p *connPool) NumConnections() int {
	if r := p.ring.Load(); r != nil {
		return r.count()
	}

	return 0
}

func (p *connPool) Stats() Stats {
	if r := p.ring.Load(); r != nil {
		return r.stats()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	return Stats{MaxConnections: p.cfg.MaxConnections}
}

func (p *connPool) Clear() {
	if r := p.ring.Load(); r != nil {
		r.clear()
	}
}

func (p *connPool) Stop() {
	p.sealed().stop()
}

func (p *connPool) set(fn func(c *Config)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ring.Load() != nil {
		return ErrConfigSealed
	}

	cfg := p.cfg
	fn(&cfg)

	if err := cfg.Validate(); err != nil {
		return err
	}

	p.cfg = cfg.WithDefaults()
	return nil
}

func (p *connPool) SetMaxConnections(n int) error {
	if n < 1 {
		return errors.Wrapf(ErrInvalidConfig, "max connections should be positive, got %d", n)
	}

	return p.set(func(c *Config) { c.MaxConnections = n })
}

func (p *connPool) SetMaxSessionsPerConnection(n int) error {
	return p.set(func(c *Config) { c.MaxSessionsPerConnection = n })
}

func (p *connPool) SetBlockIfSessionPoolFull(block bool) error {
	return p.set(func(c *Config) { c.BlockIfSessionPoolFull = block })
}

func (p *connPool) SetSessionWaitTimeout(d time.Duration) error {
	return p.set(func(c *Config) { c.SessionWaitTimeout = d })
}

func (p *connPool) SetCreateConnectionsOnStartup(create bool) error {
	return p.set(func(c *Config) { c.CreateConnectionsOnStartup = create })
}

package sesspool

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

type poolCounters struct {
	connectionsOpened atomic.Uint64
	connectFailures   atomic.Uint64
	sessionsExhausted atomic.Uint64
}

// connRing is a fixed-size table of pooled connections.
//
// Slots are filled left-to-right while the table has free (not opened and not reserved) slots.
// When every slot is either opened or being opened, opened connections are handed out in round-robin order.
// Number of opened connections plus number of reserved slots never exceeds the table size, so the ring
// never holds more than len(slots) raw connections at once.
type connRing struct {
	cfg      Config
	factory  ConnectionFactory
	counters *poolCounters

	mu       sync.Mutex
	slots    []*pooledConn
	reserved []bool
	live     int
	pending  int
	rr       roundRobin
	epoch    uint64
	stopped  bool
	changed  chan struct{} // closed and replaced on every slot state change

	warmed  bool
	warming chan struct{}
}

func newConnRing(cfg Config, factory ConnectionFactory, counters *poolCounters) *connRing {
	return &connRing{
		cfg:      cfg,
		factory:  factory,
		counters: counters,
		slots:    make([]*pooledConn, cfg.MaxConnections),
		reserved: make([]bool, cfg.MaxConnections),
		rr:       newRoundRobin(cfg.MaxConnections),
		changed:  make(chan struct{}),
	}
}

func (r *connRing) acquire(ctx context.Context) (*pooledConn, error) {
	if r.cfg.CreateConnectionsOnStartup {
		if err := r.warmUp(ctx); err != nil {
			if !IsProviderError(err) {
				return nil, err
			}

			// Some of connections were opened: use them, failed slots are opened on demand.
			r.mu.Lock()
			cn := r.rotateLocked()
			r.mu.Unlock()

			if cn == nil {
				return nil, err
			}

			r.cfg.Logger.Printf("can't open all connections on startup: %s; using opened ones", err)
			return cn, nil
		}
	}

	r.mu.Lock()
	for {
		if r.stopped {
			r.mu.Unlock()
			return nil, ErrPoolStopped
		}

		if r.live+r.pending < len(r.slots) {
			idx := r.reserveLocked()
			epoch := r.epoch
			r.mu.Unlock()

			return r.provision(ctx, idx, epoch, true)
		}

		if cn := r.rotateLocked(); cn != nil {
			r.mu.Unlock()
			return cn, nil
		}

		// Every slot is being opened right now: wait for any of them.
		wait := r.changed
		r.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "operation cancelled")
		}

		r.mu.Lock()
	}
}

// warmUp opens connections for all free slots at once.
// Only the first call after the ring creation (or after clear) does the job, concurrent calls wait for it.
func (r *connRing) warmUp(ctx context.Context) error {
	r.mu.Lock()
	for {
		if r.stopped {
			r.mu.Unlock()
			return ErrPoolStopped
		}

		if r.warmed {
			r.mu.Unlock()
			return nil
		}

		if r.warming == nil {
			break
		}

		wait := r.warming
		r.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "operation cancelled")
		}

		r.mu.Lock()
	}

	done := make(chan struct{})
	r.warming = done
	epoch := r.epoch

	var idxs []int
	for r.live+r.pending < len(r.slots) {
		idxs = append(idxs, r.reserveLocked())
	}
	r.mu.Unlock()

	var g errgroup.Group
	for _, idx := range idxs {
		idx := idx
		g.Go(func() error {
			_, err := r.provision(ctx, idx, epoch, false)
			return err
		})
	}
	err := g.Wait()

	r.mu.Lock()
	if r.epoch == epoch {
		// Slots failed to open will be opened on demand.
		r.warmed = true
		r.rr.restart()
	}
	if r.warming == done {
		r.warming = nil
	}
	close(done)
	r.mu.Unlock()

	return err
}

func (r *connRing) reserveLocked() int {
	for i := range r.slots {
		if r.slots[i] == nil && !r.reserved[i] {
			r.reserved[i] = true
			r.pending++
			return i
		}
	}

	panic("no free slots in connection ring")
}

func (r *connRing) rotateLocked() *pooledConn {
	for i := 0; i < len(r.slots); i++ {
		if cn := r.slots[r.rr.next()]; cn != nil && cn.Valid() {
			return cn
		}
	}

	return nil
}

func (r *connRing) provision(ctx context.Context, idx int, epoch uint64, moveCursor bool) (*pooledConn, error) {
	raw, err := r.factory.OpenConnection(ctx)
	if err == nil && raw == nil {
		err = errors.New("nil connection returned")
	}

	r.mu.Lock()
	r.reserved[idx] = false
	r.pending--
	r.notifyLocked()

	if err != nil {
		r.mu.Unlock()

		r.counters.connectFailures.Add(1)
		r.cfg.Logger.Printf("can't open connection #%d: %s", idx, err)
		return nil, newProviderError("open connection", err)
	}

	if r.epoch != epoch {
		stopped := r.stopped
		r.mu.Unlock()

		r.cfg.Logger.Printf("pool was cleared while connection #%d was opening: closing it", idx)
		if err := raw.Close(); err != nil {
			r.cfg.Logger.Printf("can't close connection #%d: %s", idx, err)
		}

		if stopped {
			return nil, ErrPoolStopped
		}
		return nil, ErrPoolCleared
	}

	cn := newPooledConn(idx, epoch, raw, r)
	r.slots[idx] = cn
	r.live++
	if moveCursor {
		r.rr.moveTo(idx)
	}
	r.mu.Unlock()

	r.counters.connectionsOpened.Add(1)
	cn.watch()

	return cn, nil
}

// detach frees the slot of the invalidated connection. It'll be refilled on the next acquisition.
func (r *connRing) detach(cn *pooledConn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.slots[cn.id] == cn {
		r.slots[cn.id] = nil
		r.live--
		r.notifyLocked()
	}
}

func (r *connRing) notifyLocked() {
	close(r.changed)
	r.changed = make(chan struct{})
}

// clear invalidates and closes all opened connections.
// Slots reserved by in-flight acquisitions stay reserved until these acquisitions finish:
// their connections are closed and ErrPoolCleared is returned.
func (r *connRing) clear() {
	r.reset(false)
}

func (r *connRing) stop() {
	r.reset(true)
}

func (r *connRing) reset(stop bool) {
	r.mu.Lock()

	conns := make([]*pooledConn, 0, r.live)
	for i, cn := range r.slots {
		if cn == nil {
			continue
		}

		cn.markInvalid()
		conns = append(conns, cn)
		r.slots[i] = nil
	}

	r.live = 0
	r.rr.restart()
	r.epoch++
	r.warmed = false
	r.warming = nil
	if stop {
		r.stopped = true
	}
	r.notifyLocked()

	r.mu.Unlock()

	// Closing is best-effort: connections could be already broken.
	for _, cn := range conns {
		if err := cn.closeRaw(); err != nil {
			r.cfg.Logger.Printf("%s", err)
		}
	}
}

func (r *connRing) running() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return ErrPoolStopped
	}

	return nil
}

func (r *connRing) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.live
}

func (r *connRing) stats() Stats {
	r.mu.Lock()
	conns := make([]*pooledConn, 0, r.live)
	for _, cn := range r.slots {
		if cn != nil {
			conns = append(conns, cn)
		}
	}
	st := Stats{
		MaxConnections: len(r.slots),
		Connections:    r.live,
		Pending:        r.pending,
	}
	r.mu.Unlock()

	for _, cn := range conns {
		st.ActiveSessions += cn.ActiveSessions()
	}

	st.ConnectionsOpened = r.counters.connectionsOpened.Load()
	st.ConnectFailures = r.counters.connectFailures.Load()
	st.SessionsExhausted = r.counters.sessionsExhausted.Load()

	return st
}

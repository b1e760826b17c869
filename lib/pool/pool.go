package pool

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"gfx.cafe/gfx/sqlpool/lib/instrumentation/prom"
	"gfx.cafe/gfx/sqlpool/lib/metrics"
)

// Pool is a bounded set of physical connections. Slots [0, Size()) are always occupied.
type Pool struct {
	config Config
	log    *zap.Logger
	labels prom.PoolLabels

	slots      []*slot
	checkedOut int
	growing    bool
	// grown is closed and replaced every time a grow attempt finishes
	grown   chan struct{}
	drained chan struct{}
	closed  bool
	waiters waitQueue
	mu      sync.Mutex

	exhausted rate.Sometimes

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPool creates an empty pool and starts its housekeeper. Call Fill to open MinConnections.
func NewPool(config Config) *Pool {
	config = config.withDefaults()

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		config: config,
		log:    config.Logger.With(zap.String("pool", config.Name)),
		labels: prom.PoolLabels{
			Pool: config.Name,
		},
		grown:     make(chan struct{}),
		exhausted: rate.Sometimes{Interval: 10 * time.Second},
		ctx:       ctx,
		cancel:    cancel,
	}

	p.wg.Add(1)
	go p.housekeep()

	return p
}

func (T *Pool) Config() Config {
	return T.config
}

// Acquire checks out the lowest free slot. If there is none it opens a new connection while below
// MaxConnections, otherwise it blocks until a connection is released, ctx is done, or the pool is
// destroyed.
func (T *Pool) Acquire(ctx context.Context) (*Handle, error) {
	start := time.Now()

	if T.config.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, T.config.AcquireTimeout, ErrAcquireTimeout)
		defer cancel()
	}

	var stack []byte
	if T.config.TrackCheckouts {
		stack = debug.Stack()
	}

	h, err := T.acquire(ctx, stack)
	if err != nil {
		prom.Pool.AcquireErrors(T.labels.ToAcquireError(acquireErrorReason(err))).Inc()
		return nil, err
	}

	prom.Pool.Acquire(T.labels).Observe(float64(time.Since(start)) / float64(time.Millisecond))
	return h, nil
}

func (T *Pool) acquire(ctx context.Context, stack []byte) (*Handle, error) {
	var woken waiter
	var front bool
	for {
		T.mu.Lock()
		if woken != nil {
			T.waiters.put(woken)
			woken = nil
		}

		if T.closed {
			T.mu.Unlock()
			return nil, ErrPoolClosed
		}

		if h := T.checkoutL1(time.Now(), stack); h != nil {
			T.mu.Unlock()
			return h, nil
		}

		if !T.growing && len(T.slots) < T.config.MaxConnections {
			T.growing = true
			T.mu.Unlock()

			h, err := T.grow(ctx, true, stack)
			if err != nil {
				if ctx.Err() != nil {
					return nil, acquireError(ctx)
				}
				return nil, err
			}
			if h != nil {
				return h, nil
			}
			continue
		}

		w := T.waiters.get()
		if front {
			// woken but beaten to the slot, keep our place in line
			T.waiters.pushFront(w)
		} else {
			T.waiters.pushBack(w)
		}
		T.exhausted.Do(func() {
			T.log.Warn("pool exhausted, waiting for a connection to be released",
				zap.Int("max_connections", T.config.MaxConnections),
				zap.Int("waiting", T.waiters.len()),
			)
		})
		T.updateGaugesL1()
		T.mu.Unlock()

		select {
		case _, ok := <-w:
			if !ok {
				return nil, ErrPoolClosed
			}
			woken = w
			front = true
		case <-ctx.Done():
			T.mu.Lock()
			if !T.waiters.remove(w) {
				// lost the race, pass the wake-up along
				select {
				case _, ok := <-w:
					if ok {
						T.wakeOneL1()
					}
				default:
				}
			}
			T.updateGaugesL1()
			T.mu.Unlock()
			return nil, acquireError(ctx)
		}
	}
}

func acquireError(ctx context.Context) error {
	cause := context.Cause(ctx)
	if errors.Is(cause, ErrAcquireTimeout) {
		return ErrAcquireTimeout
	}
	return fmt.Errorf("%w: %w", ErrAcquireCanceled, cause)
}

func acquireErrorReason(err error) string {
	switch {
	case errors.Is(err, ErrPoolClosed):
		return "closed"
	case errors.Is(err, ErrAcquireTimeout):
		return "timeout"
	case errors.Is(err, ErrAcquireCanceled):
		return "canceled"
	case errors.Is(err, ErrConnect):
		return "connect"
	default:
		return "unknown"
	}
}

// checkoutL1 requires T.mu
func (T *Pool) checkoutL1(now time.Time, stack []byte) *Handle {
	for _, s := range T.slots {
		s.mu.Lock()
		if s.state != metrics.ConnStateIdle || s.destroyed {
			s.mu.Unlock()
			continue
		}
		h := T.checkoutL2(s, now, stack)
		s.mu.Unlock()
		return h
	}
	return nil
}

// checkoutL2 requires T.mu and s.mu
func (T *Pool) checkoutL2(s *slot, now time.Time, stack []byte) *Handle {
	s.setStateL1(metrics.ConnStateCheckedOut, now)
	s.warned = false
	s.stack = stack
	s.checkouts++

	h := &Handle{
		pool: T,
		slot: s,
		id:   s.id,
		conn: s.conn,
	}
	s.handle = h

	T.checkedOut++
	T.updateGaugesL1()
	return h
}

// wakeOneL1 requires T.mu
func (T *Pool) wakeOneL1() {
	w, ok := T.waiters.popFront()
	if !ok {
		return
	}
	w <- struct{}{}
	T.updateGaugesL1()
}

// grow opens one connection and appends it as a new slot. The caller must have set T.growing.
func (T *Pool) grow(ctx context.Context, checkout bool, stack []byte) (*Handle, error) {
	conn, err := T.config.Dialer.Dial(ctx)
	now := time.Now()

	T.mu.Lock()
	defer T.mu.Unlock()

	T.growing = false
	close(T.grown)
	T.grown = make(chan struct{})

	if err != nil {
		prom.Slot.DialFailures(T.labels).Inc()
		T.log.Warn("failed to open connection", zap.Error(err))
		// someone else may have better luck
		T.wakeOneL1()
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}

	if T.closed {
		_ = conn.Close()
		return nil, ErrPoolClosed
	}

	s := newSlot(conn, now)
	s.index = len(T.slots)
	T.slots = append(T.slots, s)
	prom.Slot.Created(T.labels).Inc()
	T.log.Debug("opened connection", zap.Int("slot", s.index), zap.Stringer("id", s.id))

	var h *Handle
	if checkout {
		s.mu.Lock()
		h = T.checkoutL2(s, now, stack)
		s.mu.Unlock()
	} else {
		T.wakeOneL1()
	}

	// waiters that queued while we were dialing can grow too
	if len(T.slots) < T.config.MaxConnections && T.waiters.len() > 0 {
		T.wakeOneL1()
	}

	T.updateGaugesL1()
	return h, nil
}

// Fill opens connections until the pool holds MinConnections.
func (T *Pool) Fill(ctx context.Context) error {
	for {
		T.mu.Lock()
		if T.closed {
			T.mu.Unlock()
			return ErrPoolClosed
		}
		if len(T.slots) >= T.config.MinConnections {
			T.mu.Unlock()
			return nil
		}
		if T.growing {
			grown := T.grown
			T.mu.Unlock()

			select {
			case <-grown:
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		T.growing = true
		T.mu.Unlock()

		if _, err := T.grow(ctx, false, nil); err != nil {
			return err
		}
	}
}

func (T *Pool) release(s *slot, h *Handle) {
	now := time.Now()

	T.mu.Lock()
	defer T.mu.Unlock()

	s.mu.Lock()
	if s.handle != h || s.destroyed {
		s.mu.Unlock()
		return
	}
	s.handle = nil
	s.stack = nil
	s.lastCheckinAt = now
	s.setStateL1(metrics.ConnStateIdle, now)
	s.mu.Unlock()

	T.checkedOut--
	if T.checkedOut == 0 && T.drained != nil {
		close(T.drained)
		T.drained = nil
	}

	T.wakeOneL1()
	T.updateGaugesL1()
}

// Destroy stops the pool. Waiters fail with ErrPoolClosed, checked out connections get
// DestroyGracePeriod to come back before every physical connection is closed.
func (T *Pool) Destroy() error {
	T.mu.Lock()
	if T.closed {
		T.mu.Unlock()
		return nil
	}
	T.closed = true
	for _, w := range T.waiters.drain() {
		close(w)
	}
	var drained chan struct{}
	if T.checkedOut > 0 {
		drained = make(chan struct{})
		T.drained = drained
	}
	T.mu.Unlock()

	T.cancel()
	T.wg.Wait()

	if drained != nil {
		timer := time.NewTimer(T.config.DestroyGracePeriod)
		select {
		case <-drained:
		case <-timer.C:
		}
		timer.Stop()
	}

	T.mu.Lock()
	slots := T.slots
	T.slots = nil
	T.checkedOut = 0
	T.drained = nil
	T.updateGaugesL1()
	T.mu.Unlock()

	var err error
	for _, s := range slots {
		s.mu.Lock()
		if s.state == metrics.ConnStateCheckedOut {
			T.log.Warn("force closing checked out connection",
				zap.Int("slot", s.index),
				zap.Stringer("id", s.id),
				zap.Duration("checked_out_for", time.Since(s.since)),
			)
		}
		s.destroyed = true
		conn := s.conn
		s.conn = nil
		s.handle = nil
		s.mu.Unlock()

		if conn != nil {
			err = multierr.Append(err, conn.Close())
		}
	}

	T.log.Info("pool destroyed", zap.Int("closed", len(slots)))
	return err
}

// Size returns the number of occupied slots.
func (T *Pool) Size() int {
	T.mu.Lock()
	defer T.mu.Unlock()
	return len(T.slots)
}

func (T *Pool) CheckedOut() int {
	T.mu.Lock()
	defer T.mu.Unlock()
	return T.checkedOut
}

func (T *Pool) Waiting() int {
	T.mu.Lock()
	defer T.mu.Unlock()
	return T.waiters.len()
}

func (T *Pool) Closed() bool {
	T.mu.Lock()
	defer T.mu.Unlock()
	return T.closed
}

func (T *Pool) ReadMetrics(m *metrics.Pool) {
	now := time.Now()

	T.mu.Lock()
	defer T.mu.Unlock()

	m.Name = T.config.Name
	m.Size = len(T.slots)
	m.MinConnections = T.config.MinConnections
	m.MaxConnections = T.config.MaxConnections
	m.CheckedOut = T.checkedOut
	m.Waiting = T.waiters.len()

	m.Clear()
	for _, s := range T.slots {
		var c metrics.Conn
		s.readMetrics(&c, now)
		m.Conns = append(m.Conns, c)
	}
}

// updateGaugesL1 requires T.mu
func (T *Pool) updateGaugesL1() {
	prom.Pool.Size(T.labels).Set(float64(len(T.slots)))
	prom.Pool.CheckedOut(T.labels).Set(float64(T.checkedOut))
	prom.Pool.Waiting(T.labels).Set(float64(T.waiters.len()))
}

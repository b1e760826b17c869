package pool

import (
	"context"
	"errors"
	"slices"
	"time"

	"go.uber.org/zap"

	"gfx.cafe/gfx/sqlpool/lib/instrumentation/prom"
	"gfx.cafe/gfx/sqlpool/lib/metrics"
)

func (T *Pool) housekeep() {
	defer T.wg.Done()

	ticker := time.NewTicker(T.config.HousekeepingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-T.ctx.Done():
			return
		case now := <-ticker.C:
			T.Maintain(T.ctx, now)
		}
	}
}

// Maintain runs one housekeeping cycle. Slots are visited from the highest index down: long
// checkouts are reported, idle slots on top are shrunk, and expired or broken connections are
// replaced. The pool is refilled to MinConnections afterwards.
func (T *Pool) Maintain(ctx context.Context, now time.Time) {
	T.mu.Lock()
	if T.closed {
		T.mu.Unlock()
		return
	}
	slots := slices.Clone(T.slots)
	T.mu.Unlock()

	for i := len(slots) - 1; i >= 0; i-- {
		if ctx.Err() != nil {
			return
		}

		s := slots[i]

		s.mu.Lock()
		if s.destroyed {
			s.mu.Unlock()
			continue
		}
		if s.state == metrics.ConnStateCheckedOut {
			T.checkLongCheckoutL1(s, now)
			s.mu.Unlock()
			continue
		}
		if s.state != metrics.ConnStateIdle {
			s.mu.Unlock()
			continue
		}
		// claimed, checkout skips probing slots
		s.setStateL1(metrics.ConnStateProbing, time.Now())
		idle := now.Sub(s.lastCheckinAt)
		age := now.Sub(s.createdAt)
		conn := s.conn
		s.mu.Unlock()

		if idle > T.config.IdleTimeout && T.shrink(s) {
			continue
		}

		if T.config.ConnectionTimeout > 0 && age >= T.config.ConnectionTimeout {
			T.recycle(ctx, s, "lifetime exceeded", nil)
			continue
		}

		if err := T.probe(ctx, conn); err != nil {
			T.recycle(ctx, s, "health probe failed", err)
			continue
		}

		T.restore(s)
	}

	if err := T.Fill(ctx); err != nil && !errors.Is(err, ErrPoolClosed) && ctx.Err() == nil {
		T.log.Warn("failed to refill pool", zap.Int("min_connections", T.config.MinConnections), zap.Error(err))
	}
}

// checkLongCheckoutL1 requires s.mu
func (T *Pool) checkLongCheckoutL1(s *slot, now time.Time) {
	if T.config.CheckoutWarnThreshold <= 0 || s.warned {
		return
	}
	held := now.Sub(s.since)
	if held < T.config.CheckoutWarnThreshold {
		return
	}
	s.warned = true
	prom.Slot.LongCheckouts(T.labels).Inc()

	fields := []zap.Field{
		zap.Int("slot", s.index),
		zap.Stringer("id", s.id),
		zap.Duration("held", held),
	}
	if len(s.stack) > 0 {
		fields = append(fields, zap.ByteString("stack", s.stack))
	}
	T.log.Warn("connection checked out for too long", fields...)
}

func (T *Pool) probe(ctx context.Context, conn Conn) error {
	ctx, cancel := context.WithTimeout(ctx, T.config.ProbeTimeout)
	defer cancel()

	if T.config.TestQuery != "" {
		_, err := conn.ExecContext(ctx, T.config.TestQuery)
		return err
	}
	return conn.PingContext(ctx)
}

// shrink removes s if it is the top slot and the pool is above MinConnections.
func (T *Pool) shrink(s *slot) bool {
	T.mu.Lock()
	if T.closed || len(T.slots) <= T.config.MinConnections {
		T.mu.Unlock()
		return false
	}
	top := len(T.slots) - 1
	if s.index != top || T.slots[top] != s {
		T.mu.Unlock()
		return false
	}
	T.slots[top] = nil
	T.slots = T.slots[:top]

	s.mu.Lock()
	s.destroyed = true
	conn := s.conn
	s.conn = nil
	id := s.id
	s.mu.Unlock()

	// the freed capacity lets a waiter grow
	T.wakeOneL1()
	T.updateGaugesL1()
	T.mu.Unlock()

	prom.Slot.Shrunk(T.labels).Inc()
	T.log.Debug("shrunk idle slot", zap.Int("slot", top), zap.Stringer("id", id))

	if err := conn.Close(); err != nil {
		T.log.Debug("error closing shrunk connection", zap.Stringer("id", id), zap.Error(err))
	}
	return true
}

// recycle replaces the physical connection of a claimed slot.
func (T *Pool) recycle(ctx context.Context, s *slot, reason string, cause error) {
	s.mu.Lock()
	s.setStateL1(metrics.ConnStateRecycling, time.Now())
	old := s.conn
	oldID := s.id
	s.conn = nil
	s.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			T.log.Debug("error closing recycled connection", zap.Stringer("id", oldID), zap.Error(err))
		}
	}

	conn, err := T.config.Dialer.Dial(ctx)
	if err != nil {
		prom.Slot.DialFailures(T.labels).Inc()
		T.lose(s, err)
		return
	}

	now := time.Now()

	T.mu.Lock()
	defer T.mu.Unlock()

	s.mu.Lock()
	if T.closed || s.destroyed {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	s.replaceL1(conn, now)
	s.setStateL1(metrics.ConnStateIdle, now)
	newID := s.id
	index := s.index
	s.mu.Unlock()

	prom.Slot.Recycled(T.labels).Inc()
	fields := []zap.Field{
		zap.Int("slot", index),
		zap.Stringer("old", oldID),
		zap.Stringer("new", newID),
		zap.String("reason", reason),
	}
	if cause != nil {
		fields = append(fields, zap.Error(cause))
	}
	T.log.Info("recycled connection", fields...)

	T.wakeOneL1()
}

// lose drops a slot that could not be reopened. Slots above it move down one index.
func (T *Pool) lose(s *slot, err error) {
	T.mu.Lock()
	defer T.mu.Unlock()

	s.mu.Lock()
	s.destroyed = true
	id := s.id
	s.mu.Unlock()

	if T.closed {
		return
	}

	i := s.index
	if i < len(T.slots) && T.slots[i] == s {
		T.slots = slices.Delete(T.slots, i, i+1)
		for j := i; j < len(T.slots); j++ {
			moved := T.slots[j]
			moved.mu.Lock()
			moved.index = j
			moved.mu.Unlock()
		}
	}

	prom.Slot.Lost(T.labels).Inc()
	T.log.Warn("could not reopen connection, running with reduced capacity",
		zap.Int("slot", i),
		zap.Stringer("id", id),
		zap.Int("size", len(T.slots)),
		zap.Error(err),
	)
	T.updateGaugesL1()

	// a waiter may be able to grow into the freed capacity
	T.wakeOneL1()
}

// restore returns a probed slot to the idle set.
func (T *Pool) restore(s *slot) {
	T.mu.Lock()
	defer T.mu.Unlock()

	s.mu.Lock()
	if !s.destroyed {
		s.setStateL1(metrics.ConnStateIdle, time.Now())
	}
	s.mu.Unlock()

	T.wakeOneL1()
}

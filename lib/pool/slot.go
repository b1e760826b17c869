package pool

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"gfx.cafe/gfx/sqlpool/lib/metrics"
)

type slot struct {
	// index is written while holding both Pool.mu and mu
	index int

	id        uuid.UUID
	conn      Conn
	state     metrics.ConnState
	destroyed bool
	createdAt time.Time
	since     time.Time

	lastCheckinAt time.Time
	// stack is the checkout stack, only captured when tracking checkouts
	stack  []byte
	warned bool
	handle *Handle

	checkouts       int
	lastMetricsRead time.Time
	util            [metrics.ConnStateCount]time.Duration

	mu sync.Mutex
}

func newSlot(conn Conn, now time.Time) *slot {
	return &slot{
		id:              uuid.New(),
		conn:            conn,
		state:           metrics.ConnStateIdle,
		createdAt:       now,
		since:           now,
		lastCheckinAt:   now,
		lastMetricsRead: now,
	}
}

// setStateL1 requires s.mu
func (T *slot) setStateL1(state metrics.ConnState, now time.Time) {
	var dur time.Duration
	if T.since.Before(T.lastMetricsRead) {
		dur = now.Sub(T.lastMetricsRead)
	} else {
		dur = now.Sub(T.since)
	}
	if T.state < metrics.ConnStateCount {
		T.util[T.state] += dur
	}

	T.state = state
	T.since = now
}

// replaceL1 swaps in a fresh physical connection. Requires s.mu
func (T *slot) replaceL1(conn Conn, now time.Time) {
	T.id = uuid.New()
	T.conn = conn
	T.createdAt = now
	T.lastCheckinAt = now
	T.warned = false
	T.stack = nil
}

func (T *slot) readMetrics(m *metrics.Conn, now time.Time) {
	T.mu.Lock()
	defer T.mu.Unlock()

	m.Time = now
	m.Slot = T.index
	m.ID = T.id
	m.State = T.state
	m.Since = T.since
	m.CreatedAt = T.createdAt
	m.LastCheckinAt = T.lastCheckinAt
	m.CheckoutCount = T.checkouts
	m.Utilization = T.util

	var dur time.Duration
	if T.since.Before(T.lastMetricsRead) {
		dur = now.Sub(T.lastMetricsRead)
	} else {
		dur = now.Sub(T.since)
	}
	if T.state < metrics.ConnStateCount {
		m.Utilization[T.state] += dur
	}

	T.lastMetricsRead = now
	T.util = [metrics.ConnStateCount]time.Duration{}
}

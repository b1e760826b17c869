package pool

import (
	"context"
	"database/sql"
	"sync"

	"github.com/google/uuid"
)

// Handle is a checked out connection. Close returns it to the pool, after which every other
// method fails with ErrConnClosed.
type Handle struct {
	pool *Pool
	slot *slot
	// id identifies the physical connection behind this handle
	id   uuid.UUID
	conn Conn
	mu   sync.RWMutex
}

// ID identifies the physical connection. It changes when a slot is recycled.
func (T *Handle) ID() uuid.UUID {
	return T.id
}

func (T *Handle) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	T.mu.RLock()
	defer T.mu.RUnlock()
	if T.conn == nil {
		return nil, ErrConnClosed
	}
	return T.conn.ExecContext(ctx, query, args...)
}

func (T *Handle) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	T.mu.RLock()
	defer T.mu.RUnlock()
	if T.conn == nil {
		return nil, ErrConnClosed
	}
	return T.conn.QueryContext(ctx, query, args...)
}

func (T *Handle) PrepareContext(ctx context.Context, query string) (*sql.Stmt, error) {
	T.mu.RLock()
	defer T.mu.RUnlock()
	if T.conn == nil {
		return nil, ErrConnClosed
	}
	return T.conn.PrepareContext(ctx, query)
}

func (T *Handle) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	T.mu.RLock()
	defer T.mu.RUnlock()
	if T.conn == nil {
		return nil, ErrConnClosed
	}
	return T.conn.BeginTx(ctx, opts)
}

func (T *Handle) PingContext(ctx context.Context) error {
	T.mu.RLock()
	defer T.mu.RUnlock()
	if T.conn == nil {
		return ErrConnClosed
	}
	return T.conn.PingContext(ctx)
}

// Raw runs f with the driver connection. f must not close the handle.
func (T *Handle) Raw(f func(driverConn any) error) error {
	T.mu.RLock()
	defer T.mu.RUnlock()
	if T.conn == nil {
		return ErrConnClosed
	}
	return T.conn.Raw(f)
}

// Closed reports whether the handle was returned to the pool.
func (T *Handle) Closed() bool {
	T.mu.RLock()
	defer T.mu.RUnlock()
	return T.conn == nil
}

// Close returns the connection to the pool. Only the first call has an effect.
func (T *Handle) Close() error {
	T.mu.Lock()
	if T.conn == nil {
		T.mu.Unlock()
		return nil
	}
	s := T.slot
	T.conn = nil
	T.slot = nil
	T.mu.Unlock()

	T.pool.release(s, T)
	return nil
}

var _ Conn = (*Handle)(nil)

package pool

import (
	"context"
	"database/sql"
)

// Conn is the connection surface shared by physical connections and the
// handles given to callers.
type Conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
	PingContext(ctx context.Context) error
	Raw(f func(driverConn any) error) error
	Close() error
}

// Dialer opens physical connections.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

type DialerFunc func(ctx context.Context) (Conn, error)

func (T DialerFunc) Dial(ctx context.Context) (Conn, error) {
	return T(ctx)
}

var _ Conn = (*sql.Conn)(nil)
var _ Dialer = DialerFunc(nil)

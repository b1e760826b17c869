// Package fakedb is an in-memory database/sql driver for tests. DSNs look like
// sqlpooltest://[user[:password]@]server, each server is created with NewServer.
package fakedb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sync"
	"sync/atomic"
)

const DriverName = "sqlpooltest"

var (
	ErrUnknownServer = errors.New("unknown server")
	ErrRefused       = errors.New("connection refused")
)

var (
	servers   = make(map[string]*Server)
	serversMu sync.Mutex
)

func init() {
	sql.Register(DriverName, Driver{})
}

type Server struct {
	Name string

	// FailDials makes the next n dials fail
	FailDials atomic.Int64
	// Down makes every dial fail
	Down atomic.Bool

	Opened    atomic.Int64
	Closed    atomic.Int64
	Commits   atomic.Int64
	Rollbacks atomic.Int64

	conns   []*Conn
	queries []string
	user    string
	mu      sync.Mutex
}

// NewServer registers a server. Registering the same name again replaces it.
func NewServer(name string) *Server {
	s := &Server{Name: name}

	serversMu.Lock()
	defer serversMu.Unlock()
	servers[name] = s
	return s
}

func (T *Server) DSN() string {
	return DriverName + "://" + T.Name
}

// BreakAll marks every open connection as broken, pings and statements on them fail.
func (T *Server) BreakAll() {
	T.mu.Lock()
	defer T.mu.Unlock()
	for _, c := range T.conns {
		c.broken.Store(true)
	}
}

func (T *Server) Queries() []string {
	T.mu.Lock()
	defer T.mu.Unlock()
	return append([]string(nil), T.queries...)
}

// User is the username of the most recent dial.
func (T *Server) User() string {
	T.mu.Lock()
	defer T.mu.Unlock()
	return T.user
}

func (T *Server) OpenConns() int {
	return int(T.Opened.Load() - T.Closed.Load())
}

func (T *Server) record(query string) {
	T.mu.Lock()
	defer T.mu.Unlock()
	T.queries = append(T.queries, query)
}

func (T *Server) dial(user string) (*Conn, error) {
	if T.Down.Load() {
		return nil, ErrRefused
	}
	for {
		n := T.FailDials.Load()
		if n <= 0 {
			break
		}
		if T.FailDials.CompareAndSwap(n, n-1) {
			return nil, ErrRefused
		}
	}

	c := &Conn{server: T}

	T.mu.Lock()
	T.conns = append(T.conns, c)
	T.user = user
	T.mu.Unlock()

	T.Opened.Add(1)
	return c, nil
}

type Driver struct{}

func (Driver) Open(name string) (driver.Conn, error) {
	u, err := url.Parse(name)
	if err != nil {
		return nil, err
	}
	if u.Scheme != DriverName {
		return nil, fmt.Errorf("unexpected scheme %q", u.Scheme)
	}

	serversMu.Lock()
	s, ok := servers[u.Host]
	serversMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownServer, u.Host)
	}

	return s.dial(u.User.Username())
}

var _ driver.Driver = Driver{}

type Conn struct {
	server *Server
	broken atomic.Bool
	closed atomic.Bool
}

func (T *Conn) check() error {
	if T.closed.Load() || T.broken.Load() {
		return driver.ErrBadConn
	}
	return nil
}

func (T *Conn) Prepare(query string) (driver.Stmt, error) {
	if err := T.check(); err != nil {
		return nil, err
	}
	return &Stmt{conn: T, query: query}, nil
}

func (T *Conn) Close() error {
	if T.closed.CompareAndSwap(false, true) {
		T.server.Closed.Add(1)
	}
	return nil
}

func (T *Conn) Begin() (driver.Tx, error) {
	return T.BeginTx(context.Background(), driver.TxOptions{})
}

func (T *Conn) BeginTx(_ context.Context, _ driver.TxOptions) (driver.Tx, error) {
	if err := T.check(); err != nil {
		return nil, err
	}
	return &Tx{conn: T}, nil
}

func (T *Conn) ExecContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Result, error) {
	if err := T.check(); err != nil {
		return nil, err
	}
	T.server.record(query)
	return driver.RowsAffected(1), nil
}

func (T *Conn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	if err := T.check(); err != nil {
		return nil, err
	}
	T.server.record(query)
	return &Rows{}, nil
}

func (T *Conn) Ping(_ context.Context) error {
	return T.check()
}

var _ driver.Conn = (*Conn)(nil)
var _ driver.ConnBeginTx = (*Conn)(nil)
var _ driver.ExecerContext = (*Conn)(nil)
var _ driver.QueryerContext = (*Conn)(nil)
var _ driver.Pinger = (*Conn)(nil)

type Stmt struct {
	conn  *Conn
	query string
}

func (T *Stmt) Close() error {
	return nil
}

func (T *Stmt) NumInput() int {
	return -1
}

func (T *Stmt) Exec(_ []driver.Value) (driver.Result, error) {
	return T.conn.ExecContext(context.Background(), T.query, nil)
}

func (T *Stmt) Query(_ []driver.Value) (driver.Rows, error) {
	return T.conn.QueryContext(context.Background(), T.query, nil)
}

var _ driver.Stmt = (*Stmt)(nil)

type Tx struct {
	conn *Conn
}

func (T *Tx) Commit() error {
	if err := T.conn.check(); err != nil {
		return err
	}
	T.conn.server.Commits.Add(1)
	return nil
}

func (T *Tx) Rollback() error {
	T.conn.server.Rollbacks.Add(1)
	return nil
}

var _ driver.Tx = (*Tx)(nil)

// Rows yields a single row with a single column holding 1.
type Rows struct {
	done bool
}

func (T *Rows) Columns() []string {
	return []string{"?column?"}
}

func (T *Rows) Close() error {
	return nil
}

func (T *Rows) Next(dest []driver.Value) error {
	if T.done {
		return io.EOF
	}
	T.done = true
	dest[0] = int64(1)
	return nil
}

var _ driver.Rows = (*Rows)(nil)

package dbmanager

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"gfx.cafe/gfx/sqlpool/lib/pool"
	"gfx.cafe/gfx/sqlpool/lib/profile"
	"gfx.cafe/gfx/sqlpool/lib/provider"
	"gfx.cafe/gfx/sqlpool/test/fakedb"
)

type flakyProvider struct {
	failures  atomic.Int64
	err       error
	calls     atomic.Int64
	destroyed atomic.Bool
	conn      pool.Conn
}

func (T *flakyProvider) Start(context.Context) error {
	return nil
}

func (T *flakyProvider) GetConnection(context.Context) (pool.Conn, error) {
	T.calls.Add(1)
	if T.failures.Add(-1) >= 0 {
		return nil, T.err
	}
	return T.conn, nil
}

func (T *flakyProvider) Destroy() error {
	T.destroyed.Store(true)
	return nil
}

func (T *flakyProvider) DriverName() string {
	return "pgx"
}

type nopConn struct {
	pool.Conn
}

func (nopConn) Close() error {
	return nil
}

func newFakeDBManager(t *testing.T, config Config) (*Manager, *fakedb.Server) {
	t.Helper()

	server := fakedb.NewServer(t.Name())
	p := provider.NewProvider(provider.Config{
		Driver:               fakedb.DriverName,
		URL:                  server.DSN(),
		MinConnections:       1,
		MaxConnections:       2,
		HousekeepingInterval: time.Hour,
		Logger:               zaptest.NewLogger(t),
	})
	if config.Logger == nil {
		config.Logger = zaptest.NewLogger(t)
	}
	m := NewManager(p, config)
	if err := m.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_ = m.Destroy()
	})
	return m, server
}

func TestStartRunsSchemaCheck(t *testing.T) {
	var checked atomic.Bool
	m, _ := newFakeDBManager(t, Config{
		SchemaChecker: SchemaCheckerFunc(func(ctx context.Context, conn pool.Conn) error {
			checked.Store(true)
			return conn.PingContext(ctx)
		}),
	})

	if !checked.Load() {
		t.Error("schema checker was not run")
	}
	if m.DatabaseType() != Unknown {
		t.Errorf("expected unknown database for the test driver, got %s", m.DatabaseType())
	}
}

func TestStartSchemaFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	_, _ = newFakeDBManager(t, Config{
		Logger: zap.New(core),
		SchemaChecker: SchemaCheckerFunc(func(context.Context, pool.Conn) error {
			return errors.New("missing table ofVersion")
		}),
	})

	if logs.FilterMessage("database schema check failed").Len() != 1 {
		t.Error("expected schema failure to be logged")
	}
}

func TestGetConnectionRetries(t *testing.T) {
	p := &flakyProvider{err: pool.ErrAcquireTimeout, conn: nopConn{}}
	p.failures.Store(2)

	m := NewManager(p, Config{
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
		Logger:     zaptest.NewLogger(t),
	})
	c, err := m.GetConnection(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	m.CloseConnection(c)
	if p.calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", p.calls.Load())
	}
}

func TestGetConnectionGivesUp(t *testing.T) {
	p := &flakyProvider{err: pool.ErrConnect}
	p.failures.Store(100)

	m := NewManager(p, Config{
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
	})
	_, err := m.GetConnection(context.Background())
	if !errors.Is(err, pool.ErrConnect) {
		t.Fatalf("expected connect error, got %v", err)
	}
	if !strings.Contains(err.Error(), "after 3 attempts") {
		t.Errorf("expected attempt count in %q", err)
	}
}

func TestGetConnectionDoesNotRetryClosedPool(t *testing.T) {
	p := &flakyProvider{err: pool.ErrPoolClosed}
	p.failures.Store(100)

	m := NewManager(p, Config{
		RetryDelay: time.Millisecond,
	})
	if _, err := m.GetConnection(context.Background()); !errors.Is(err, pool.ErrPoolClosed) {
		t.Fatalf("expected ErrPoolClosed, got %v", err)
	}
	if p.calls.Load() != 1 {
		t.Errorf("expected a single attempt, got %d", p.calls.Load())
	}
}

func TestSetProviderDestroysPrevious(t *testing.T) {
	old := &flakyProvider{conn: nopConn{}}
	m := NewManager(old, Config{})
	if err := m.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	next := &flakyProvider{conn: nopConn{}}
	if err := m.SetProvider(context.Background(), next); err != nil {
		t.Fatal(err)
	}
	if !old.destroyed.Load() {
		t.Error("previous provider was not destroyed")
	}
	if m.DatabaseType() != PostgreSQL {
		t.Errorf("expected postgresql, got %s", m.DatabaseType())
	}

	if err := m.Destroy(); err != nil {
		t.Fatal(err)
	}
	if _, err := m.GetConnection(context.Background()); !errors.Is(err, ErrNoProvider) {
		t.Errorf("expected ErrNoProvider after destroy, got %v", err)
	}
}

func TestWithTransaction(t *testing.T) {
	m, server := newFakeDBManager(t, Config{})
	ctx := context.Background()

	err := m.WithTransaction(ctx, nil, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "insert into t values (1)")
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if server.Commits.Load() != 1 {
		t.Errorf("expected a commit, got %d", server.Commits.Load())
	}

	boom := errors.New("boom")
	err = m.WithTransaction(ctx, nil, func(*sql.Tx) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("expected fn error, got %v", err)
	}
	if server.Rollbacks.Load() != 1 {
		t.Errorf("expected a rollback, got %d", server.Rollbacks.Load())
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected panic to propagate")
			}
		}()
		_ = m.WithTransaction(ctx, nil, func(*sql.Tx) error {
			panic("unreachable state")
		})
	}()
	if server.Rollbacks.Load() != 2 {
		t.Errorf("expected panic to roll back, got %d rollbacks", server.Rollbacks.Load())
	}

	m.mu.RLock()
	p := m.provider.(*provider.Provider)
	m.mu.RUnlock()
	if n := p.Pool().CheckedOut(); n != 0 {
		t.Errorf("transactions leaked %d connections", n)
	}
}

func TestProfiling(t *testing.T) {
	m, _ := newFakeDBManager(t, Config{
		Profiling: true,
	})
	ctx := context.Background()

	c, err := m.GetConnection(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(*profile.Conn); !ok {
		t.Fatalf("expected profiled connection, got %T", c)
	}
	if _, err = c.ExecContext(ctx, "update t set a=1"); err != nil {
		t.Fatal(err)
	}
	m.CloseConnection(c)

	if m.Profiler().QueryCount(profile.Update) != 1 {
		t.Errorf("expected 1 profiled update, got %d", m.Profiler().QueryCount(profile.Update))
	}

	m.SetProfiling(false)
	c, err = m.GetConnection(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(*profile.Conn); ok {
		t.Error("expected plain connection with profiling off")
	}
	m.CloseConnection(c)
}

func TestDatabaseType(t *testing.T) {
	cases := []struct {
		driver  string
		typ     DatabaseType
		testSQL string
	}{
		{"pgx", PostgreSQL, "select 1"},
		{"postgres", PostgreSQL, "select 1"},
		{"mysql", MySQL, "select 1"},
		{"godror", Oracle, "select 1 from dual"},
		{"go_ibm_db2", DB2, "select 1 from sysibm.sysdummy1"},
		{"sqlserver", SQLServer, "select 1"},
		{"firebirdsql", Interbase, "select 1"},
		{"sqlite3", Unknown, "select 1"},
	}
	for _, c := range cases {
		if got := DetectDatabaseType(c.driver); got != c.typ {
			t.Errorf("%s: expected %s, got %s", c.driver, c.typ, got)
		}
		if got := TestSQL(c.driver); got != c.testSQL {
			t.Errorf("%s: expected %q, got %q", c.driver, c.testSQL, got)
		}
	}
}

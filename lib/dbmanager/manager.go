package dbmanager

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"gfx.cafe/gfx/sqlpool/lib/pool"
	"gfx.cafe/gfx/sqlpool/lib/profile"
)

var ErrNoProvider = errors.New("no connection provider")

const (
	DefaultMaxRetries = 10
	DefaultRetryDelay = 250 * time.Millisecond
)

type ConnectionProvider interface {
	Start(ctx context.Context) error
	GetConnection(ctx context.Context) (pool.Conn, error)
	Destroy() error
	DriverName() string
}

// SchemaChecker verifies, and upgrades if needed, the schema once a provider is started.
type SchemaChecker interface {
	CheckSchema(ctx context.Context, conn pool.Conn) error
}

type SchemaCheckerFunc func(ctx context.Context, conn pool.Conn) error

func (T SchemaCheckerFunc) CheckSchema(ctx context.Context, conn pool.Conn) error {
	return T(ctx, conn)
}

type Config struct {
	// MaxRetries is how many times GetConnection retries after the first failed attempt
	MaxRetries int
	RetryDelay time.Duration

	Profiling bool
	Profiler  *profile.Profiler

	SchemaChecker SchemaChecker

	Logger *zap.Logger
}

// Manager hands out connections from a ConnectionProvider.
type Manager struct {
	config Config
	log    *zap.Logger

	profiling atomic.Bool

	provider ConnectionProvider
	dbType   DatabaseType
	mu       sync.RWMutex
}

func NewManager(provider ConnectionProvider, config Config) *Manager {
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	} else if config.MaxRetries == 0 {
		config.MaxRetries = DefaultMaxRetries
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = DefaultRetryDelay
	}
	if config.Profiler == nil {
		config.Profiler = profile.NewProfiler(nil)
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	m := &Manager{
		config:   config,
		log:      config.Logger,
		provider: provider,
	}
	m.SetProfiling(config.Profiling)
	return m
}

// Start starts the current provider and runs the schema check.
func (T *Manager) Start(ctx context.Context) error {
	T.mu.RLock()
	p := T.provider
	T.mu.RUnlock()

	if p == nil {
		return ErrNoProvider
	}
	return T.SetProvider(ctx, p)
}

// SetProvider destroys the previous provider and starts p in its place.
func (T *Manager) SetProvider(ctx context.Context, p ConnectionProvider) error {
	if p == nil {
		return ErrNoProvider
	}

	T.mu.Lock()
	old := T.provider
	T.provider = p
	T.dbType = DetectDatabaseType(p.DriverName())
	T.mu.Unlock()

	if old != nil && old != p {
		if err := old.Destroy(); err != nil {
			T.log.Warn("error destroying previous connection provider", zap.Error(err))
		}
	}

	if err := p.Start(ctx); err != nil {
		return err
	}

	c, err := T.GetConnection(ctx)
	if err != nil {
		return err
	}
	defer T.CloseConnection(c)

	T.log.Info("database connection manager started", zap.Stringer("database", T.DatabaseType()))

	if T.config.SchemaChecker != nil {
		if err = T.config.SchemaChecker.CheckSchema(ctx, c); err != nil {
			T.log.Error("database schema check failed", zap.Error(err))
		}
	}

	return nil
}

func (T *Manager) DatabaseType() DatabaseType {
	T.mu.RLock()
	defer T.mu.RUnlock()
	return T.dbType
}

func (T *Manager) Profiler() *profile.Profiler {
	return T.config.Profiler
}

func (T *Manager) Profiling() bool {
	return T.profiling.Load()
}

// SetProfiling toggles wrapping new connections with the profiler.
func (T *Manager) SetProfiling(enabled bool) {
	if T.profiling.Swap(enabled) == enabled {
		return
	}
	if enabled {
		T.config.Profiler.Start()
	} else {
		T.config.Profiler.Stop()
	}
}

// GetConnection checks out a connection, retrying failures up to MaxRetries times. A stopped
// pool and a done ctx are not retried.
func (T *Manager) GetConnection(ctx context.Context) (pool.Conn, error) {
	T.mu.RLock()
	p := T.provider
	T.mu.RUnlock()

	if p == nil {
		return nil, ErrNoProvider
	}

	var attempts int
	get := func() (pool.Conn, error) {
		attempts++
		c, err := p.GetConnection(ctx)
		if err != nil {
			if errors.Is(err, pool.ErrPoolClosed) || ctx.Err() != nil {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		return c, nil
	}
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(T.config.RetryDelay), uint64(T.config.MaxRetries)),
		ctx,
	)
	notify := func(err error, next time.Duration) {
		T.log.Debug("failed to get connection, retrying",
			zap.Int("attempt", attempts),
			zap.Duration("backoff", next),
			zap.Error(err),
		)
	}

	c, err := backoff.RetryNotifyWithData(get, b, notify)
	if err != nil {
		return nil, fmt.Errorf("failed to get connection after %d attempts: %w", attempts, err)
	}

	if T.profiling.Load() {
		return T.config.Profiler.Wrap(c), nil
	}
	return c, nil
}

// WithTransaction runs fn in a transaction that is committed when fn returns nil and rolled back
// otherwise. The connection is returned to the pool either way.
func (T *Manager) WithTransaction(ctx context.Context, opts *sql.TxOptions, fn func(tx *sql.Tx) error) (err error) {
	c, err := T.GetConnection(ctx)
	if err != nil {
		return err
	}
	defer T.CloseConnection(c)

	tx, err := c.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = multierr.Append(err, rbErr)
			}
			return
		}
		err = tx.Commit()
	}()

	return fn(tx)
}

// CloseConnection closes c and logs any error. Handy in defers.
func (T *Manager) CloseConnection(c io.Closer) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		T.log.Error("error closing connection", zap.Error(err))
	}
}

func (T *Manager) Destroy() error {
	T.mu.Lock()
	p := T.provider
	T.provider = nil
	T.mu.Unlock()

	if p == nil {
		return nil
	}
	return p.Destroy()
}

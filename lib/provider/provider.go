package provider

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"gfx.cafe/gfx/sqlpool/lib/pool"
)

var ErrAlreadyStarted = errors.New("provider already started")

// Provider owns a database/sql driver and the pool built on top of it.
type Provider struct {
	config Config
	log    *zap.Logger

	db   *sql.DB
	pool *pool.Pool
	mu   sync.RWMutex
}

func NewProvider(config Config) *Provider {
	config = config.withDefaults()
	return &Provider{
		config: config,
		log:    config.Logger.With(zap.String("driver", config.Driver)),
	}
}

func (T *Provider) Config() Config {
	return T.config
}

func (T *Provider) DriverName() string {
	return T.config.Driver
}

// Pool returns the running pool, or nil if the provider is not started.
func (T *Provider) Pool() *pool.Pool {
	T.mu.RLock()
	defer T.mu.RUnlock()
	return T.pool
}

// Start opens the driver and fills the pool to MinConnections, retrying connection failures
// with exponential backoff up to StartupAttempts times.
func (T *Provider) Start(ctx context.Context) error {
	if err := T.config.Validate(); err != nil {
		return err
	}

	T.mu.Lock()
	defer T.mu.Unlock()

	if T.pool != nil {
		return ErrAlreadyStarted
	}

	dsn := DataSourceName(T.config.Driver, T.config.URL, T.config.Username, T.config.Password)
	db, err := sql.Open(T.config.Driver, dsn)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	// every Conn is a fresh physical connection owned by the pool
	db.SetMaxIdleConns(0)

	p := pool.NewPool(pool.Config{
		Dialer:                DBDialer{DB: db},
		Name:                  T.config.Name,
		MinConnections:        T.config.MinConnections,
		MaxConnections:        T.config.MaxConnections,
		ConnectionTimeout:     T.config.ConnectionTimeout,
		IdleTimeout:           T.config.IdleTimeout,
		HousekeepingInterval:  T.config.HousekeepingInterval,
		TrackCheckouts:        T.config.TrackCheckouts,
		CheckoutWarnThreshold: T.config.CheckoutWarnThreshold,
		TestQuery:             T.config.TestQuery,
		AcquireTimeout:        T.config.AcquireTimeout,
		Logger:                T.config.Logger,
	})

	var attempts int
	fill := func() error {
		attempts++
		err := p.Fill(ctx)
		if err == nil || errors.Is(err, pool.ErrConnect) {
			return err
		}
		return backoff.Permanent(err)
	}
	b := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewExponentialBackOff(
				backoff.WithInitialInterval(T.config.StartupBackoff),
				backoff.WithMaxElapsedTime(0),
			),
			uint64(T.config.StartupAttempts-1),
		),
		ctx,
	)
	notify := func(err error, next time.Duration) {
		T.log.Warn("failed to populate connection pool, retrying",
			zap.Int("attempt", attempts),
			zap.Int("max_attempts", T.config.StartupAttempts),
			zap.Duration("backoff", next),
			zap.Error(err),
		)
	}

	if err = backoff.RetryNotify(fill, b, notify); err != nil {
		err = multierr.Combine(err, p.Destroy(), db.Close())
		return fmt.Errorf("failed to populate connection pool after %d attempts: %w", attempts, err)
	}

	T.db = db
	T.pool = p

	T.log.Info("connection pool started",
		zap.Int("min_connections", T.config.MinConnections),
		zap.Int("max_connections", T.config.MaxConnections),
		zap.Int("attempts", attempts),
	)
	return nil
}

// GetConnection checks out a connection. Closing it returns it to the pool.
func (T *Provider) GetConnection(ctx context.Context) (pool.Conn, error) {
	T.mu.RLock()
	p := T.pool
	T.mu.RUnlock()

	if p == nil {
		return nil, pool.ErrPoolClosed
	}

	h, err := p.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return h, nil
}

// Restart destroys the pool and starts a new one with the same configuration.
func (T *Provider) Restart(ctx context.Context) error {
	if err := T.Destroy(); err != nil {
		T.log.Warn("error destroying pool during restart", zap.Error(err))
	}
	return T.Start(ctx)
}

func (T *Provider) Destroy() error {
	T.mu.Lock()
	p := T.pool
	db := T.db
	T.pool = nil
	T.db = nil
	T.mu.Unlock()

	if p == nil {
		return nil
	}

	return multierr.Combine(p.Destroy(), db.Close())
}

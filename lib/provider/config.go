package provider

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

var ErrConfig = errors.New("invalid connection configuration")

const (
	DefaultMinConnections  = 3
	DefaultMaxConnections  = 10
	DefaultStartupAttempts = 5
	DefaultStartupBackoff  = time.Second
)

type Config struct {
	// Name labels the pool in logs and metrics, defaults to Driver
	Name string

	// Driver is a database/sql driver name
	Driver   string
	URL      string
	Username string
	Password string

	// MinConnections of 0 selects DefaultMinConnections, capped at MaxConnections
	MinConnections int
	MaxConnections int
	// ConnectionTimeout is the max lifetime of a physical connection. 0 = unlimited
	ConnectionTimeout time.Duration

	IdleTimeout          time.Duration
	HousekeepingInterval time.Duration
	AcquireTimeout       time.Duration

	TrackCheckouts        bool
	CheckoutWarnThreshold time.Duration

	// TestQuery probes idle connections. Empty = ping
	TestQuery string

	StartupAttempts int
	StartupBackoff  time.Duration

	Logger *zap.Logger
}

func (T Config) Validate() error {
	if T.Driver == "" {
		return fmt.Errorf("%w: driver is required", ErrConfig)
	}
	if T.URL == "" {
		return fmt.Errorf("%w: url is required", ErrConfig)
	}
	if T.MinConnections < 0 || T.MaxConnections < 0 {
		return fmt.Errorf("%w: pool bounds must not be negative", ErrConfig)
	}
	if T.MaxConnections != 0 && T.MinConnections > T.MaxConnections {
		return fmt.Errorf("%w: min_connections %d exceeds max_connections %d", ErrConfig, T.MinConnections, T.MaxConnections)
	}
	return nil
}

func (T Config) withDefaults() Config {
	if T.Name == "" {
		T.Name = T.Driver
	}
	if T.MaxConnections == 0 {
		T.MaxConnections = DefaultMaxConnections
	}
	if T.MinConnections == 0 {
		T.MinConnections = min(DefaultMinConnections, T.MaxConnections)
	}
	if T.StartupAttempts <= 0 {
		T.StartupAttempts = DefaultStartupAttempts
	}
	if T.StartupBackoff <= 0 {
		T.StartupBackoff = DefaultStartupBackoff
	}
	if T.Logger == nil {
		T.Logger = zap.NewNop()
	}
	return T
}

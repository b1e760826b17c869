package pool

import (
	"time"

	"go.uber.org/zap"
)

const (
	DefaultMaxConnections        = 10
	DefaultHousekeepingInterval  = 30 * time.Second
	DefaultProbeTimeout          = 5 * time.Second
	DefaultDestroyGracePeriod    = 5 * time.Second
	DefaultCheckoutWarnThreshold = 10 * time.Minute
	DefaultIdleTimeout           = time.Minute
)

type Config struct {
	Dialer Dialer

	// Name labels logs and metrics
	Name string

	MinConnections int
	MaxConnections int

	// ConnectionTimeout is the max lifetime of a physical connection.
	// 0 = unlimited
	ConnectionTimeout time.Duration

	// IdleTimeout is how long the top slot may sit unused before the pool shrinks
	IdleTimeout time.Duration

	HousekeepingInterval time.Duration

	// TrackCheckouts captures the stack of every checkout so long checkout warnings can say where it came from
	TrackCheckouts bool

	// CheckoutWarnThreshold is how long a connection may be checked out before a warning is logged.
	// 0 = no warnings, unless TrackCheckouts is set
	CheckoutWarnThreshold time.Duration

	// TestQuery is executed by the health probe. Empty = ping
	TestQuery    string
	ProbeTimeout time.Duration

	// AcquireTimeout bounds how long Acquire may block.
	// 0 = wait until a connection is free or the caller gives up
	AcquireTimeout time.Duration

	// DestroyGracePeriod is how long Destroy waits for checked out connections before force closing them
	DestroyGracePeriod time.Duration

	Logger *zap.Logger
}

func (T Config) withDefaults() Config {
	if T.MaxConnections <= 0 {
		T.MaxConnections = DefaultMaxConnections
	}
	if T.MinConnections < 0 {
		T.MinConnections = 0
	}
	if T.MinConnections > T.MaxConnections {
		T.MinConnections = T.MaxConnections
	}
	if T.IdleTimeout <= 0 {
		T.IdleTimeout = DefaultIdleTimeout
	}
	if T.HousekeepingInterval <= 0 {
		T.HousekeepingInterval = DefaultHousekeepingInterval
	}
	if T.ProbeTimeout <= 0 {
		T.ProbeTimeout = DefaultProbeTimeout
	}
	if T.DestroyGracePeriod < 0 {
		T.DestroyGracePeriod = 0
	} else if T.DestroyGracePeriod == 0 {
		T.DestroyGracePeriod = DefaultDestroyGracePeriod
	}
	if T.TrackCheckouts && T.CheckoutWarnThreshold == 0 {
		T.CheckoutWarnThreshold = DefaultCheckoutWarnThreshold
	}
	if T.Name == "" {
		T.Name = "default"
	}
	if T.Logger == nil {
		T.Logger = zap.NewNop()
	}
	return T
}

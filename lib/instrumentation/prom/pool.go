package prom

import (
	"gfx.cafe/open/gotoprom"
	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	gotoprom.MustInit(&Pool, "sqlpool_pool", prometheus.Labels{})
	gotoprom.MustInit(&Slot, "sqlpool_slot", prometheus.Labels{})
}

type PoolLabels struct {
	Pool string `label:"pool"`
}

type AcquireErrorLabels struct {
	Pool   string `label:"pool"`
	Reason string `label:"reason"`
}

func (s *PoolLabels) ToAcquireError(reason string) AcquireErrorLabels {
	return AcquireErrorLabels{
		Pool:   s.Pool,
		Reason: reason,
	}
}

var Pool struct {
	Acquire       func(PoolLabels) prometheus.Histogram       `name:"acquire_ms" buckets:"0.005,0.01,0.1,0.25,0.5,0.75,1,5,10,100,500,1000,5000" help:"ms to acquire from pool"`
	AcquireErrors func(AcquireErrorLabels) prometheus.Counter `name:"acquire_errors" help:"failed acquires"`
	Size          func(PoolLabels) prometheus.Gauge           `name:"size" help:"current slots"`
	CheckedOut    func(PoolLabels) prometheus.Gauge           `name:"checked_out" help:"connections currently checked out"`
	Waiting       func(PoolLabels) prometheus.Gauge           `name:"waiting" help:"callers waiting for a connection"`
}

var Slot struct {
	Created       func(PoolLabels) prometheus.Counter `name:"created" help:"physical connections opened"`
	DialFailures  func(PoolLabels) prometheus.Counter `name:"dial_failures" help:"physical connections that failed to open"`
	Recycled      func(PoolLabels) prometheus.Counter `name:"recycled" help:"connections replaced after a failed probe or lifetime expiry"`
	Shrunk        func(PoolLabels) prometheus.Counter `name:"shrunk" help:"idle slots removed"`
	Lost          func(PoolLabels) prometheus.Counter `name:"lost" help:"slots removed because they could not be reopened"`
	LongCheckouts func(PoolLabels) prometheus.Counter `name:"long_checkouts" help:"checkouts held past the warning threshold"`
}

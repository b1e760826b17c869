package sqlpoolcmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"gfx.cafe/gfx/sqlpool/lib/metrics"
	"gfx.cafe/gfx/sqlpool/lib/profile"
)

func cmdRun(fl Flags) (int, error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := newStack(ctx, fl)
	if err != nil {
		return 1, err
	}
	defer s.shutdown()

	if err = s.manager.Start(ctx); err != nil {
		return 1, err
	}
	s.log.Info("pool started",
		zap.String("driver", s.config.Driver),
		zap.Stringer("database", s.manager.DatabaseType()),
		zap.Int("min_connections", s.config.MinConnections),
		zap.Int("max_connections", s.config.MaxConnections),
	)

	if s.config.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{
			Addr:              s.config.MetricsAddress,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.log.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		s.log.Info("serving metrics", zap.String("address", s.config.MetricsAddress))
	}

	interval := fl.Duration("report-interval")
	if interval <= 0 {
		interval = s.config.HousekeepingInterval.Duration()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var m metrics.Pool
	for {
		select {
		case <-ctx.Done():
			s.log.Info("shutting down")
			return 0, nil
		case <-ticker.C:
			s.report(&m)
		}
	}
}

func (T *stack) report(m *metrics.Pool) {
	p := T.provider.Pool()
	if p == nil {
		return
	}
	p.ReadMetrics(m)
	T.log.Info("pool state",
		zap.Int("size", m.Size),
		zap.Int("checked_out", m.CheckedOut),
		zap.Int("waiting", m.Waiting),
		zap.Int("probing", m.CountState(metrics.ConnStateProbing)),
		zap.Int("recycling", m.CountState(metrics.ConnStateRecycling)),
	)
	T.log.Debug(m.String())

	if !T.manager.Profiling() {
		return
	}
	profiler := T.manager.Profiler()
	for typ := profile.Type(0); typ < profile.TypeCount; typ++ {
		if profiler.QueryCount(typ) == 0 {
			continue
		}
		fields := []zap.Field{
			zap.Stringer("type", typ),
			zap.Int("count", profiler.QueryCount(typ)),
			zap.Duration("average", profiler.AverageQueryTime(typ)),
			zap.Float64("per_second", profiler.QueriesPerSecond(typ)),
		}
		if top := profiler.SortedQueries(typ, true); len(top) > 0 {
			fields = append(fields, zap.String("slowest", top[0].SQL), zap.Duration("slowest_total", top[0].TotalTime))
		}
		T.log.Info("query profile", fields...)
	}
}

package profile

import (
	"context"
	"database/sql"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"gfx.cafe/gfx/sqlpool/lib/instrumentation/prom"
	"gfx.cafe/gfx/sqlpool/lib/pool"
)

// Conn times every statement run through ExecContext and QueryContext. Close is passed through,
// so wrapping a pool handle still returns it to the pool.
//
// PrepareContext and BeginTx are passed through untimed: the *sql.Stmt and *sql.Tx they return
// are concrete types that run statements on the driver connection directly.
type Conn struct {
	pool.Conn

	profiler *Profiler
}

func (T *Profiler) Wrap(conn pool.Conn) *Conn {
	return &Conn{
		Conn:     conn,
		profiler: T,
	}
}

func (T *Conn) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx, span, typ := T.start(ctx, "Exec", query)
	start := time.Now()
	res, err := T.Conn.ExecContext(ctx, query, args...)
	T.finish(span, typ, query, time.Since(start), err)
	return res, err
}

func (T *Conn) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	ctx, span, typ := T.start(ctx, "Query", query)
	start := time.Now()
	rows, err := T.Conn.QueryContext(ctx, query, args...)
	T.finish(span, typ, query, time.Since(start), err)
	return rows, err
}

func (T *Conn) start(ctx context.Context, name, query string) (context.Context, trace.Span, Type) {
	typ := Classify(query)
	ctx, span := T.profiler.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("sql", query),
			attribute.String("type", typ.String()),
		),
	)
	return ctx, span, typ
}

func (T *Conn) finish(span trace.Span, typ Type, query string, dur time.Duration, err error) {
	defer span.End()

	labels := prom.QueryLabels{
		Type: typ.String(),
	}
	prom.Query.Execution(labels).Observe(float64(dur) / float64(time.Millisecond))
	if err != nil {
		prom.Query.Errors(labels).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}

	T.profiler.AddQuery(typ, query, dur)
}

var _ pool.Conn = (*Conn)(nil)

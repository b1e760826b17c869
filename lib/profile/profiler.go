package profile

import (
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Entry aggregates every execution of one normalized statement.
type Entry struct {
	SQL       string
	Count     int
	TotalTime time.Duration
}

func (T *Entry) AverageTime() time.Duration {
	if T.Count == 0 {
		return 0
	}
	return T.TotalTime / time.Duration(T.Count)
}

type stats struct {
	count   int
	total   time.Duration
	start   time.Time
	end     time.Time
	queries map[string]*Entry
}

// Profiler collects statement timings per statement type.
type Profiler struct {
	tracer trace.Tracer

	stats [TypeCount]stats
	mu    sync.Mutex
}

// NewProfiler returns a profiler that starts spans on tracer, or the global tracer when nil.
func NewProfiler(tracer trace.Tracer) *Profiler {
	if tracer == nil {
		tracer = otel.Tracer("sqlpool", trace.WithInstrumentationAttributes(
			attribute.String("component", "gfx.cafe/gfx/sqlpool/lib/profile"),
		))
	}
	return &Profiler{
		tracer: tracer,
	}
}

// Start marks the beginning of the measured window for rate calculations.
func (T *Profiler) Start() {
	now := time.Now()

	T.mu.Lock()
	defer T.mu.Unlock()

	for i := range T.stats {
		T.stats[i].start = now
		T.stats[i].end = time.Time{}
	}
}

func (T *Profiler) Stop() {
	now := time.Now()

	T.mu.Lock()
	defer T.mu.Unlock()

	for i := range T.stats {
		T.stats[i].end = now
	}
}

func (T *Profiler) Reset() {
	T.mu.Lock()
	defer T.mu.Unlock()

	T.stats = [TypeCount]stats{}
}

func (T *Profiler) AddQuery(typ Type, query string, dur time.Duration) {
	if query == "" || typ < 0 || typ >= TypeCount {
		return
	}
	query = Normalize(query)

	T.mu.Lock()
	defer T.mu.Unlock()

	s := &T.stats[typ]
	s.count++
	s.total += dur

	if s.queries == nil {
		s.queries = make(map[string]*Entry)
	}
	e, ok := s.queries[query]
	if !ok {
		e = &Entry{SQL: query}
		s.queries[query] = e
	}
	e.Count++
	e.TotalTime += dur
}

func (T *Profiler) QueryCount(typ Type) int {
	T.mu.Lock()
	defer T.mu.Unlock()
	return T.stats[typ].count
}

func (T *Profiler) TotalQueryTime(typ Type) time.Duration {
	T.mu.Lock()
	defer T.mu.Unlock()
	return T.stats[typ].total
}

func (T *Profiler) AverageQueryTime(typ Type) time.Duration {
	T.mu.Lock()
	defer T.mu.Unlock()

	s := &T.stats[typ]
	if s.count == 0 {
		return 0
	}
	return s.total / time.Duration(s.count)
}

// QueriesPerSecond is the rate over the window since Start, up to Stop or now.
func (T *Profiler) QueriesPerSecond(typ Type) float64 {
	now := time.Now()

	T.mu.Lock()
	defer T.mu.Unlock()

	s := &T.stats[typ]
	if s.count == 0 || s.start.IsZero() {
		return 0
	}
	end := s.end
	if end.IsZero() {
		end = now
	}
	elapsed := end.Sub(s.start).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(s.count) / elapsed
}

// SortedQueries returns the statements of one type, most executed first or slowest in total
// first when byTime is set.
func (T *Profiler) SortedQueries(typ Type, byTime bool) []Entry {
	T.mu.Lock()
	entries := make([]Entry, 0, len(T.stats[typ].queries))
	for _, e := range T.stats[typ].queries {
		entries = append(entries, *e)
	}
	T.mu.Unlock()

	slices.SortFunc(entries, func(a, b Entry) int {
		if byTime && a.TotalTime != b.TotalTime {
			if a.TotalTime > b.TotalTime {
				return -1
			}
			return 1
		}
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		if a.SQL < b.SQL {
			return -1
		}
		if a.SQL > b.SQL {
			return 1
		}
		return 0
	})
	return entries
}

package sheet

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts and times every round trip to the backing store.
type Metrics struct {
	ops      *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the store collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ops: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "task_store_operations_total",
				Help: "Round trips to the task sheet by operation and result",
			},
			[]string{"op", "result"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "task_store_operation_duration_seconds",
				Help:    "Latency of task sheet round trips",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"op"},
		),
	}
	reg.MustRegister(m.ops, m.duration)
	return m
}

type instrumentedTable struct {
	next    Table
	metrics *Metrics
}

// Instrument wraps t so that each call is recorded in m.
func Instrument(t Table, m *Metrics) Table {
	return &instrumentedTable{next: t, metrics: m}
}

func (t *instrumentedTable) observe(op string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	t.metrics.ops.WithLabelValues(op, result).Inc()
	t.metrics.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (t *instrumentedTable) ReadAllRows(ctx context.Context) (rows []Row, err error) {
	defer func(start time.Time) { t.observe("read_all_rows", start, err) }(time.Now())
	return t.next.ReadAllRows(ctx)
}

func (t *instrumentedTable) AppendRow(ctx context.Context, values []string) (err error) {
	defer func(start time.Time) { t.observe("append_row", start, err) }(time.Now())
	return t.next.AppendRow(ctx, values)
}

func (t *instrumentedTable) WriteCell(ctx context.Context, row, col int, value string) (err error) {
	defer func(start time.Time) { t.observe("write_cell", start, err) }(time.Now())
	return t.next.WriteCell(ctx, row, col, value)
}

func (t *instrumentedTable) ReadHeaderRow(ctx context.Context) (header []string, err error) {
	defer func(start time.Time) { t.observe("read_header_row", start, err) }(time.Now())
	return t.next.ReadHeaderRow(ctx)
}

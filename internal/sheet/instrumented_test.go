package sheet

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTable struct {
	err error
}

func (s stubTable) ReadAllRows(context.Context) ([]Row, error) { return nil, s.err }

func (s stubTable) AppendRow(context.Context, []string) error { return s.err }

func (s stubTable) WriteCell(context.Context, int, int, string) error { return s.err }

func (s stubTable) ReadHeaderRow(context.Context) ([]string, error) { return nil, s.err }

func TestInstrumentCountsResults(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	ctx := context.Background()

	ok := Instrument(stubTable{}, m)
	_, err := ok.ReadAllRows(ctx)
	require.NoError(t, err)
	require.NoError(t, ok.WriteCell(ctx, 2, 1, "x"))

	boom := errors.New("quota exceeded")
	failing := Instrument(stubTable{err: boom}, m)
	assert.ErrorIs(t, failing.AppendRow(ctx, []string{"1"}), boom)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ops.WithLabelValues("read_all_rows", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ops.WithLabelValues("write_cell", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ops.WithLabelValues("append_row", "error")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ops.WithLabelValues("append_row", "ok")))
}

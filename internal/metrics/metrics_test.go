package metrics

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failing struct{ NoopMetrics }

func (failing) IncrementCounter(context.Context, string, uint64) error {
	return errors.New("backend down")
}

func TestLogMetrics(t *testing.T) {
	var out bytes.Buffer
	m := NewLogMetrics(slog.New(slog.NewTextHandler(&out, nil)))
	ctx := context.Background()

	require.NoError(t, m.IncrementCounter(ctx, MetricInvocations, 2))
	require.NoError(t, m.IncrementCounter(ctx, MetricInvocations, 3))
	for _, v := range []float64{150, 50, 100} {
		require.NoError(t, m.RecordHistogram(ctx, MetricComputeUnits, v))
	}

	assert.Equal(t, uint64(5), m.Counter(MetricInvocations))
	assert.Equal(t, uint64(0), m.Counter("unknown"))
	assert.Equal(t, Summary{Count: 3, Sum: 300, Min: 50, Max: 150}, m.Histogram(MetricComputeUnits))
	assert.Equal(t, float64(100), m.Histogram(MetricComputeUnits).Mean())
	assert.Equal(t, Summary{}, m.Histogram("unknown"))

	require.NoError(t, m.Flush(ctx))
	assert.Contains(t, out.String(), "metrics flush")
	assert.Contains(t, out.String(), "compute_units.count=3")
}

func TestCollection(t *testing.T) {
	ctx := context.Background()
	a := NewLogMetrics(nil)
	b := NewLogMetrics(nil)
	c := NewCollection(a)
	c.Add(b)
	assert.Equal(t, 2, c.Len())

	require.NoError(t, c.IncrementCounter(ctx, MetricInvocations, 1))
	require.NoError(t, c.RecordHistogram(ctx, MetricHeapBytes, 64))
	assert.Equal(t, uint64(1), a.Counter(MetricInvocations))
	assert.Equal(t, uint64(1), b.Histogram(MetricHeapBytes).Count)

	c.Add(failing{})
	assert.EqualError(t, c.IncrementCounter(ctx, MetricInvocations, 1), "backend down")
	require.NoError(t, c.Flush(ctx))
}

package rowstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/logbase/internal/querysql"
)

// fakeStore returns canned results and records the contexts it saw.
type fakeStore struct {
	row    Row
	rows   []Row
	err    error
	block  bool
	closed bool
}

func (f *fakeStore) Dialect() querysql.Dialect { return querysql.SQLite }

func (f *fakeStore) wait(ctx context.Context) error {
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return f.err
}

func (f *fakeStore) Exec(ctx context.Context, _ string, _ []any) error {
	return f.wait(ctx)
}

func (f *fakeStore) QueryRow(ctx context.Context, _ string, _ []any) (Row, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.row, nil
}

func (f *fakeStore) Query(ctx context.Context, _ string, _ []any) ([]Row, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.rows, nil
}

func (f *fakeStore) Close() error {
	f.closed = true
	return nil
}

func TestInstrument_PassesResults(t *testing.T) {
	fake := &fakeStore{row: Row{"action": int64(8)}, rows: []Row{{"action": int64(1)}, {"action": int64(2)}}}
	s := Instrument(fake, Options{})

	row, err := s.QueryRow(context.Background(), "SELECT", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(8), row["action"])

	rows, err := s.Query(context.Background(), "SELECT", nil)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	require.NoError(t, s.Exec(context.Background(), "UPDATE", nil))
	assert.Equal(t, querysql.SQLite, s.Dialect())

	require.NoError(t, s.Close())
	assert.True(t, fake.closed)
}

func TestInstrument_Timeout(t *testing.T) {
	s := Instrument(&fakeStore{block: true}, Options{Timeout: 10 * time.Millisecond})

	_, err := s.Query(context.Background(), "SELECT", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrUnavailable)
}

func TestInstrument_CallerDeadline(t *testing.T) {
	s := Instrument(&fakeStore{block: true}, Options{Timeout: -1})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := s.Exec(ctx, "UPDATE", nil)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestInstrument_Unavailable(t *testing.T) {
	cause := errors.New("connection refused")
	s := Instrument(&fakeStore{err: cause}, Options{})

	err := s.Exec(context.Background(), "INSERT", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "exec")
}

func TestInstrument_NoRowsPassesThrough(t *testing.T) {
	s := Instrument(&fakeStore{err: ErrNoRows}, Options{})

	_, err := s.QueryRow(context.Background(), "SELECT", nil)
	assert.Same(t, ErrNoRows, err)
	assert.Equal(t, uint64(0), s.Metrics().Snapshot().ErrorsNum)
}

func TestInstrument_Canceled(t *testing.T) {
	s := Instrument(&fakeStore{block: true}, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Query(ctx, "SELECT", nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrUnavailable)
}

func TestMetrics_Snapshot(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	s := Instrument(&fakeStore{rows: []Row{}}, Options{Metrics: m})
	_, _ = s.Query(context.Background(), "SELECT", nil)
	_ = s.Exec(context.Background(), "INSERT", nil)

	failing := Instrument(&fakeStore{err: errors.New("down")}, Options{Metrics: m})
	_, _ = failing.Query(context.Background(), "SELECT", nil)

	snap := m.Snapshot()
	assert.Equal(t, uint64(3), snap.QueriesNum)
	assert.Equal(t, uint64(1), snap.ErrorsNum)
	assert.Equal(t, uint64(2), snap.QueriesIterNum)
	assert.Equal(t, uint64(1), snap.ErrorsIterNum)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "logbase_rowstore_calls_total")
	assert.Contains(t, names, "logbase_rowstore_errors_total")
	assert.Contains(t, names, "logbase_rowstore_call_duration_seconds")
}

func TestPercentile(t *testing.T) {
	samples := make([]time.Duration, 100)
	for i := range samples {
		samples[i] = time.Duration(i+1) * time.Millisecond
	}
	assert.Equal(t, 90*time.Millisecond, percentile(samples, 90))
	assert.Equal(t, 99*time.Millisecond, percentile(samples, 99))
	assert.Equal(t, 5*time.Millisecond, percentile([]time.Duration{5 * time.Millisecond}, 99))
}

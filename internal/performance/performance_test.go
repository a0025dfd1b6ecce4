package performance

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"momentum-allocator/internal/backtest"
	"momentum-allocator/internal/strategy"
)

var base = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func sampleSnapshot(id string, cagr float64, expires time.Time) *Snapshot {
	return &Snapshot{
		StrategyID:         id,
		StrategyName:       id + " strategy",
		StrategyVersion:    "1",
		RebalanceFrequency: "monthly",
		Parameters:         strategy.Params{"top_n": float64(6)},
		Metrics: backtest.Metrics{
			AsOf:           "2024-05-31",
			MonthsTested:   12,
			CAGRAnnualized: cagr,
			MissingTickers: []string{},
			MonthlyReturns: []backtest.MonthlyReturn{{PeriodEnd: "2024-05-31", Return: 0.01}},
		},
		UpdatedAt: base,
		ExpiresAt: expires,
	}
}

// storeContract exercises behaviour every Store must share.
func storeContract(t *testing.T, s Store, setNow func(time.Time)) {
	t.Helper()
	ctx := context.Background()
	setNow(base)

	_, err := s.Get(ctx, Key("paa"))
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, Key("vaa"), sampleSnapshot("vaa", 0.05, base.Add(time.Hour))))
	require.NoError(t, s.Put(ctx, Key("paa"), sampleSnapshot("paa", 0.07, base.Add(time.Hour))))
	require.NoError(t, s.Put(ctx, Key("paa"), sampleSnapshot("paa", 0.09, base.Add(2*time.Hour))))

	got, err := s.Get(ctx, Key("paa"))
	require.NoError(t, err)
	assert.Equal(t, "paa", got.StrategyID)
	assert.Equal(t, 0.09, got.Metrics.CAGRAnnualized)
	assert.Equal(t, "2024-05-31", got.Metrics.MonthlyReturns[0].PeriodEnd)
	assert.Equal(t, float64(6), got.Parameters["top_n"])

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "paa", list[0].StrategyID)
	assert.Equal(t, "vaa", list[1].StrategyID)

	setNow(base.Add(90 * time.Minute))
	_, err = s.Get(ctx, Key("vaa"))
	assert.ErrorIs(t, err, ErrNotFound)
	list, err = s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "paa", list[0].StrategyID)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "paa|default", Key("paa"))
}

func TestMemoryStore(t *testing.T) {
	m := NewMemoryStore()
	storeContract(t, m, func(now time.Time) { m.now = func() time.Time { return now } })
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "perf.db"), "snapshots")
	require.NoError(t, err)
	defer s.Close()
	storeContract(t, s, func(now time.Time) { s.now = func() time.Time { return now } })
}

func TestJSONCompactKeepsHTML(t *testing.T) {
	out, err := jsonCompact(map[string]string{"note": "a<b"})
	require.NoError(t, err)
	assert.Equal(t, `{"note":"a<b"}`, out)
}

// fakeEngine returns canned results per strategy ID.
type fakeEngine struct {
	results map[string]*backtest.Result
	errs    map[string]error
	calls   []string
}

func (f *fakeEngine) Run(_ context.Context, spec strategy.Spec, _ strategy.Params) (*backtest.Result, error) {
	f.calls = append(f.calls, spec.ID())
	if err := f.errs[spec.ID()]; err != nil {
		return nil, err
	}
	return f.results[spec.ID()], nil
}

type failingStore struct{ *MemoryStore }

func (failingStore) Put(context.Context, string, *Snapshot) error { return errors.New("disk full") }

func newRunner(t *testing.T, eng Backtester, store Store) *Runner {
	t.Helper()
	r := NewRunner(strategy.DefaultRegistry(), eng, store, 24*time.Hour)
	r.now = func() time.Time { return base }
	return r
}

func TestComputeAndStore(t *testing.T) {
	eng := &fakeEngine{results: map[string]*backtest.Result{
		"paa": {Metrics: backtest.Metrics{CAGRAnnualized: 0.1}, Parameters: strategy.Params{"top_n": 6}},
	}}
	store := NewMemoryStore()
	store.now = func() time.Time { return base }
	r := newRunner(t, eng, store)

	out := r.ComputeAndStore(context.Background(), "paa")
	require.True(t, out.OK, out.Error)
	require.NotNil(t, out.Metrics)
	assert.Equal(t, 0.1, out.Metrics.CAGRAnnualized)

	snap, err := r.Get(context.Background(), "paa")
	require.NoError(t, err)
	assert.Equal(t, "PAA (Protective Asset Allocation)", snap.StrategyName)
	assert.Equal(t, base.Add(24*time.Hour), snap.ExpiresAt)
	assert.Equal(t, base, snap.UpdatedAt)
}

func TestComputeAndStoreFailures(t *testing.T) {
	eng := &fakeEngine{
		results: map[string]*backtest.Result{"vaa": {}},
		errs:    map[string]error{"paa": errors.New("No price data available")},
	}

	tests := []struct {
		name  string
		id    string
		store Store
		want  string
	}{
		{"unknown", "nope", NewMemoryStore(), "No performance spec registered for strategy 'nope'"},
		{"not tracked", "simple_momentum", NewMemoryStore(), "No performance spec registered for strategy 'simple_momentum'"},
		{"engine error", "paa", NewMemoryStore(), "No price data available"},
		{"store error", "vaa", failingStore{NewMemoryStore()}, "Failed to persist performance metrics: disk full"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := newRunner(t, eng, tt.store).ComputeAndStore(context.Background(), tt.id)
			assert.False(t, out.OK)
			assert.Equal(t, tt.id, out.StrategyID)
			assert.Equal(t, tt.want, out.Error)
			assert.Nil(t, out.Metrics)
		})
	}
}

func TestRefreshAll(t *testing.T) {
	eng := &fakeEngine{
		results: map[string]*backtest.Result{"vaa": {Metrics: backtest.Metrics{MonthsTested: 12}}},
		errs:    map[string]error{"paa": errors.New("boom")},
	}
	r := newRunner(t, eng, NewMemoryStore())

	var seen []string
	rep := r.RefreshAll(context.Background(), func(o Outcome) { seen = append(seen, o.StrategyID) })
	assert.False(t, rep.OK)
	assert.Equal(t, 2, rep.Total)
	assert.Equal(t, 1, rep.Updated)
	assert.Equal(t, []string{"paa", "vaa"}, seen)
	assert.Equal(t, []string{"paa", "vaa"}, eng.calls)
	assert.Equal(t, "boom", rep.Results[0].Error)
	assert.True(t, rep.Results[1].OK)
}

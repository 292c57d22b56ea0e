package navigator_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alejandrodnm/tradejournal/internal/application/navigator"
	"github.com/alejandrodnm/tradejournal/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 15 de marzo de 2026: mes 3, semana legacy 11.
var now = time.Date(2026, time.March, 15, 10, 30, 0, 0, time.UTC)

var cal = domain.Calendar{Mode: domain.WeekLegacy, Loc: time.UTC}

// fakeQuerier devuelve trades = índice del bucket, cuenta llamadas y puede
// fallar para buckets concretos.
type fakeQuerier struct {
	mu    sync.Mutex
	calls map[domain.BucketSpec]int
	fail  map[domain.BucketSpec]bool
	empty map[domain.BucketSpec]bool
}

func newFakeQuerier() *fakeQuerier {
	return &fakeQuerier{
		calls: make(map[domain.BucketSpec]int),
		fail:  make(map[domain.BucketSpec]bool),
		empty: make(map[domain.BucketSpec]bool),
	}
}

func (f *fakeQuerier) QueryBucket(_ context.Context, spec domain.BucketSpec) (*domain.BucketStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[spec]++
	if f.fail[spec] {
		return nil, errors.New("502 bad gateway")
	}
	if f.empty[spec] {
		return nil, nil
	}
	wins := spec.Index / 2
	return &domain.BucketStats{
		Trades:   spec.Index,
		Wins:     wins,
		Sessions: 1,
		Earnings: decimal.NewFromInt(int64(spec.Index * 10)),
		WinRate:  domain.WinRate(wins, spec.Index),
	}, nil
}

func (f *fakeQuerier) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func newNavigator(q *fakeQuerier) *navigator.Navigator {
	return navigator.New(q, cal, navigator.Config{Workers: 4, StepDelay: time.Millisecond}).
		WithClock(func() time.Time { return now })
}

func spec(year int, g domain.Granularity, index int) domain.BucketSpec {
	return domain.BucketSpec{Year: year, Granularity: g, Index: index}
}

func TestNavigator_SelectYearCentersOnCurrentPeriod(t *testing.T) {
	q := newFakeQuerier()
	nav := newNavigator(q)

	require.NoError(t, nav.Select(context.Background(), navigator.YearScope(2026), domain.GranularityMonth))
	assert.Equal(t, 12, q.totalCalls())

	win := nav.Window()
	require.Len(t, win, domain.WindowSize)
	// Marzo en el centro, envolviendo hacia diciembre por la izquierda.
	var months []int
	for _, s := range win {
		months = append(months, s.Index)
	}
	assert.Equal(t, []int{12, 1, 2, 3, 4, 5, 6}, months)

	centered, ok := nav.Centered()
	require.True(t, ok)
	assert.Equal(t, 3, centered.Index)
	assert.True(t, centered.Current)
	assert.False(t, centered.Disabled)

	// Abril en adelante es futuro dentro del año actual.
	assert.True(t, win[4].Disabled)
	assert.False(t, win[2].Disabled)
}

func TestNavigator_CacheAvoidsRefetch(t *testing.T) {
	q := newFakeQuerier()
	nav := newNavigator(q)
	ctx := context.Background()

	require.NoError(t, nav.Select(ctx, navigator.YearScope(2026), domain.GranularityMonth))
	require.NoError(t, nav.Select(ctx, navigator.YearScope(2025), domain.GranularityMonth))
	require.NoError(t, nav.Select(ctx, navigator.YearScope(2026), domain.GranularityMonth))
	require.NoError(t, nav.Select(ctx, navigator.YearScope(2025), domain.GranularityMonth))
	assert.Equal(t, 24, q.totalCalls())

	// Refresh reemplaza solo el scope seleccionado.
	require.NoError(t, nav.Refresh(ctx))
	assert.Equal(t, 36, q.totalCalls())
	assert.Equal(t, 2, q.calls[spec(2025, domain.GranularityMonth, 1)])
	assert.Equal(t, 1, q.calls[spec(2026, domain.GranularityMonth, 1)])
}

func TestNavigator_PartialFailuresAreIsolated(t *testing.T) {
	q := newFakeQuerier()
	q.fail[spec(2026, domain.GranularityWeek, 7)] = true
	q.fail[spec(2026, domain.GranularityWeek, 9)] = true
	nav := newNavigator(q)

	require.NoError(t, nav.Select(context.Background(), navigator.YearScope(2026), domain.GranularityWeek))
	assert.Equal(t, 52, q.totalCalls())

	st := nav.Status()
	assert.True(t, st.Cached)
	assert.Equal(t, 2, st.Failed)
	assert.NoError(t, st.Err)

	nav.Move(-2) // semana 9
	centered, ok := nav.Centered()
	require.True(t, ok)
	assert.Equal(t, 9, centered.Index)
	assert.True(t, centered.Placeholder)
	assert.Equal(t, 0, centered.Stats.Trades)
	assert.True(t, centered.Disabled)

	nav.Move(1) // semana 10 intacta
	centered, _ = nav.Centered()
	assert.Equal(t, 10, centered.Stats.Trades)
	assert.False(t, centered.Placeholder)
}

func TestNavigator_RateLimitPastDeadlineMarksPlaceholders(t *testing.T) {
	q := newFakeQuerier()
	// Un worker, burst 1, un token cada 200ms: con 300ms de deadline solo
	// caben dos llamadas y el resto no puede reservar token.
	nav := navigator.New(q, cal, navigator.Config{Workers: 1, RatePerSec: 5}).
		WithClock(func() time.Time { return now })

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	require.NoError(t, nav.Select(ctx, navigator.YearScope(2026), domain.GranularityMonth))

	assert.Equal(t, 2, q.totalCalls())
	st := nav.Status()
	assert.True(t, st.Cached)
	assert.Equal(t, 10, st.Failed)

	placeholders := 0
	for _, s := range nav.Window() {
		if s.Placeholder {
			placeholders++
		}
	}
	// Ventana [12,1..6]: solo enero y febrero llegaron a consultarse.
	assert.Equal(t, 5, placeholders)

	centered, ok := nav.Centered()
	require.True(t, ok)
	assert.True(t, centered.Placeholder)
	assert.True(t, centered.Disabled)
}

func TestNavigator_NoDataBecomesZeroPlaceholder(t *testing.T) {
	q := newFakeQuerier()
	q.empty[spec(2026, domain.GranularityMonth, 2)] = true
	nav := newNavigator(q)

	require.NoError(t, nav.Select(context.Background(), navigator.YearScope(2026), domain.GranularityMonth))
	nav.Move(-1)
	centered, ok := nav.Centered()
	require.True(t, ok)
	assert.Equal(t, 2, centered.Index)
	assert.Equal(t, 0, centered.Stats.Trades)
	assert.False(t, centered.Placeholder)
	assert.True(t, centered.Disabled)
}

func TestNavigator_RollingMonthsResolveAcrossYear(t *testing.T) {
	q := newFakeQuerier()
	nav := newNavigator(q)

	require.NoError(t, nav.Select(context.Background(), navigator.RollingScope(), domain.GranularityMonth))
	assert.Equal(t, 12, q.totalCalls())
	// Offset 11 desde marzo es abril del año anterior, no marzo.
	assert.Equal(t, 1, q.calls[spec(2025, domain.GranularityMonth, 4)])
	assert.Zero(t, q.calls[spec(2025, domain.GranularityMonth, 3)])
	assert.Equal(t, 1, q.calls[spec(2026, domain.GranularityMonth, 3)])

	centered, ok := nav.Centered()
	require.True(t, ok)
	assert.Equal(t, 2026, centered.Year)
	assert.Equal(t, 3, centered.Index)

	// Posición siguiente envuelve al más antiguo.
	nav.Move(1)
	centered, _ = nav.Centered()
	assert.Equal(t, 2025, centered.Year)
	assert.Equal(t, 4, centered.Index)
}

func TestNavigator_RollingWeeks(t *testing.T) {
	q := newFakeQuerier()
	nav := newNavigator(q)

	require.NoError(t, nav.Select(context.Background(), navigator.RollingScope(), domain.GranularityWeek))
	assert.Equal(t, 52, q.totalCalls())
	assert.Equal(t, 1, q.calls[spec(2026, domain.GranularityWeek, 11)])
	assert.Equal(t, 1, q.calls[spec(2025, domain.GranularityWeek, 12)])
}

func TestNavigator_ResetPathShortestArc(t *testing.T) {
	q := newFakeQuerier()
	nav := newNavigator(q)
	ctx := context.Background()
	require.NoError(t, nav.Select(ctx, navigator.YearScope(2026), domain.GranularityMonth))

	assert.Empty(t, nav.ResetPath())

	// Centro en noviembre (posición 10): marzo (2) queda más cerca hacia delante.
	nav.Move(8)
	assert.Equal(t, []int{11, 0, 1, 2}, nav.ResetPath())

	var visited []int
	require.NoError(t, nav.WalkReset(ctx, func(pos int) { visited = append(visited, pos) }))
	assert.Equal(t, []int{11, 0, 1, 2}, visited)
	assert.Equal(t, 2, nav.Status().Position)
}

func TestNavigator_WalkResetCancelled(t *testing.T) {
	q := newFakeQuerier()
	nav := navigator.New(q, cal, navigator.Config{Workers: 2, StepDelay: time.Hour}).
		WithClock(func() time.Time { return now })
	require.NoError(t, nav.Select(context.Background(), navigator.YearScope(2026), domain.GranularityMonth))
	nav.Move(3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := nav.WalkReset(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 5, nav.Status().Position)
}

func TestNavigator_ComparisonRule(t *testing.T) {
	q := newFakeQuerier()
	nav := newNavigator(q)
	ctx := context.Background()
	require.NoError(t, nav.Select(ctx, navigator.YearScope(2026), domain.GranularityMonth))

	// Centrado en el periodo actual → contra el anterior (febrero).
	cmp, ok := nav.Comparison()
	require.True(t, ok)
	require.True(t, cmp.HasBaseline)
	assert.Equal(t, 2, cmp.Baseline.Index)
	assert.Equal(t, 1, cmp.TradesDelta)
	assert.Equal(t, "10", cmp.EarningsDelta.String())

	// Centrado en enero → contra el actual (marzo).
	nav.Move(-2)
	cmp, ok = nav.Comparison()
	require.True(t, ok)
	require.True(t, cmp.HasBaseline)
	assert.Equal(t, 3, cmp.Baseline.Index)
	assert.Equal(t, 1, cmp.Centered.Index)
	assert.Equal(t, -2, cmp.TradesDelta)

	// Un bucket futuro está deshabilitado y no se compara.
	nav.Move(5)
	_, ok = nav.Comparison()
	assert.False(t, ok)
}

func TestNavigator_ComparisonAcrossCachedScopes(t *testing.T) {
	q := newFakeQuerier()
	nav := newNavigator(q)
	ctx := context.Background()

	// Enero de 2026 es el periodo "actual" para este test.
	jan := time.Date(2026, time.January, 20, 0, 0, 0, 0, time.UTC)
	nav.WithClock(func() time.Time { return jan })

	require.NoError(t, nav.Select(ctx, navigator.YearScope(2026), domain.GranularityMonth))
	cmp, ok := nav.Comparison()
	require.True(t, ok)
	// Diciembre de 2025 aún no está en caché.
	assert.False(t, cmp.HasBaseline)

	require.NoError(t, nav.Select(ctx, navigator.YearScope(2025), domain.GranularityMonth))
	require.NoError(t, nav.Select(ctx, navigator.YearScope(2026), domain.GranularityMonth))
	cmp, ok = nav.Comparison()
	require.True(t, ok)
	require.True(t, cmp.HasBaseline)
	assert.Equal(t, 2025, cmp.Baseline.Year)
	assert.Equal(t, 12, cmp.Baseline.Index)
}

func TestNavigator_CancelledLoadIsNotCached(t *testing.T) {
	q := newFakeQuerier()
	nav := newNavigator(q)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := nav.Select(ctx, navigator.YearScope(2026), domain.GranularityWeek)
	require.ErrorIs(t, err, context.Canceled)

	st := nav.Status()
	assert.False(t, st.Cached)
	assert.ErrorIs(t, st.Err, context.Canceled)
	assert.Nil(t, nav.Window())
}

func TestNavigator_InvalidGranularity(t *testing.T) {
	nav := newNavigator(newFakeQuerier())
	err := nav.Select(context.Background(), navigator.YearScope(2026), domain.Granularity("day"))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

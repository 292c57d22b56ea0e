package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowPositions_Wraps(t *testing.T) {
	assert.Equal(t, []int{9, 10, 11, 0, 1, 2, 3}, WindowPositions(0, 12, WindowSize))
	assert.Equal(t, []int{48, 49, 50, 51, 0, 1, 2}, WindowPositions(51, 52, WindowSize))
	assert.Equal(t, []int{2, 3, 4, 5, 6, 7, 8}, WindowPositions(5, 12, WindowSize))
}

func TestShortestPath(t *testing.T) {
	assert.Equal(t, []int{11, 0, 1, 2}, ShortestPath(10, 2, 12))
	assert.Equal(t, []int{1, 0, 11, 10}, ShortestPath(2, 10, 12))
	assert.Equal(t, []int{51, 0, 1}, ShortestPath(50, 1, 52))
	assert.Empty(t, ShortestPath(4, 4, 12))
	// Distancia exactamente n/2: se recorre hacia delante.
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, ShortestPath(0, 6, 12))
}

func TestShortestPath_AlwaysWithinHalfAndEndsAtTarget(t *testing.T) {
	for _, n := range []int{12, 52} {
		for from := 0; from < n; from++ {
			for to := 0; to < n; to++ {
				path := ShortestPath(from, to, n)
				require.LessOrEqual(t, len(path), n/2)
				if from == to {
					require.Empty(t, path)
					continue
				}
				require.Equal(t, to, path[len(path)-1])
				prev := from
				for _, p := range path {
					d := Wrap(p-prev, n)
					require.True(t, d == 1 || d == n-1, "non-adjacent step %d→%d", prev, p)
					prev = p
				}
			}
		}
	}
}

func TestCalendar_IsDisabled(t *testing.T) {
	cal := Calendar{}
	withTrades := BucketStats{Trades: 3}

	future := Bucket{BucketSpec: BucketSpec{Year: 2026, Granularity: GranularityMonth, Index: 5}, Stats: withTrades}
	assert.True(t, cal.IsDisabled(future, testNow))

	lastYear := Bucket{BucketSpec: BucketSpec{Year: 2025, Granularity: GranularityMonth, Index: 5}, Stats: withTrades}
	assert.False(t, cal.IsDisabled(lastYear, testNow))

	empty := Bucket{BucketSpec: BucketSpec{Year: 2026, Granularity: GranularityMonth, Index: 2}}
	assert.True(t, cal.IsDisabled(empty, testNow))
}

func TestCalendar_BaselineFor(t *testing.T) {
	cal := Calendar{}
	current := BucketSpec{Year: 2026, Granularity: GranularityMonth, Index: 3}
	assert.Equal(t, BucketSpec{Year: 2026, Granularity: GranularityMonth, Index: 2}, cal.BaselineFor(current, testNow))

	other := BucketSpec{Year: 2025, Granularity: GranularityMonth, Index: 7}
	assert.Equal(t, current, cal.BaselineFor(other, testNow))

	jan := time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC)
	assert.Equal(t,
		BucketSpec{Year: 2025, Granularity: GranularityMonth, Index: 12},
		cal.BaselineFor(BucketSpec{Year: 2026, Granularity: GranularityMonth, Index: 1}, jan))
}

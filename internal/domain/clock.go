package domain

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// IntervalSentinel se muestra cuando no hay intervalo medio definido.
const IntervalSentinel = "-"

// ElapsedSeconds devuelve los segundos enteros entre start y now, nunca negativo.
func ElapsedSeconds(start, now time.Time) int64 {
	d := now.Sub(start)
	if d < 0 {
		return 0
	}
	return int64(d / time.Second)
}

// AverageInterval devuelve la media en segundos de los deltas entre trades
// consecutivos. Ordena una copia: los timestamps llegan ordenados pero no
// se asume. ok es false con menos de 2 trades.
func AverageInterval(timestamps []time.Time) (float64, bool) {
	if len(timestamps) < 2 {
		return 0, false
	}
	ts := make([]time.Time, len(timestamps))
	copy(ts, timestamps)
	sort.Slice(ts, func(i, j int) bool { return ts[i].Before(ts[j]) })

	total := ts[len(ts)-1].Sub(ts[0]).Seconds()
	return total / float64(len(ts)-1), true
}

// FormatDuration formatea segundos como H:MM:SS (horas sin padding).
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}

// FormatInterval formatea el intervalo medio entre trades.
//
//	0 < s < 60 → "<1m"
//	s >= 60    → "{minutos}m" (floor)
//	resto      → "-"
func FormatInterval(seconds float64) string {
	switch {
	case math.IsNaN(seconds) || seconds <= 0:
		return IntervalSentinel
	case seconds < 60:
		return "<1m"
	default:
		return fmt.Sprintf("%dm", int64(math.Floor(seconds/60)))
	}
}

// FormatIntervalPtr es FormatInterval para valores persistidos opcionales.
func FormatIntervalPtr(seconds *float64) string {
	if seconds == nil {
		return IntervalSentinel
	}
	return FormatInterval(*seconds)
}

// ClockSnapshot es la lectura del reloj de una sesión en un instante.
type ClockSnapshot struct {
	SessionID       string
	Active          bool
	DurationSeconds int64
	IntervalSeconds float64 // 0 cuando no hay intervalo definido
	HasInterval     bool
}

// DurationLabel devuelve la duración como H:MM:SS.
func (s ClockSnapshot) DurationLabel() string {
	return FormatDuration(s.DurationSeconds)
}

// IntervalLabel devuelve el intervalo medio o el centinela.
func (s ClockSnapshot) IntervalLabel() string {
	if !s.HasInterval {
		return IntervalSentinel
	}
	return FormatInterval(s.IntervalSeconds)
}

// SnapshotSession calcula la lectura del reloj. Las sesiones activas miden
// contra now; las cerradas devuelven los valores persistidos sin recalcular.
func SnapshotSession(s Session, trades []Trade, now time.Time) ClockSnapshot {
	snap := ClockSnapshot{SessionID: s.ID, Active: s.IsActive()}
	if !snap.Active {
		if s.DurationSeconds != nil {
			snap.DurationSeconds = *s.DurationSeconds
		}
		if s.AvgTradeInterval != nil {
			snap.IntervalSeconds, snap.HasInterval = *s.AvgTradeInterval, true
		}
		return snap
	}
	snap.DurationSeconds = ElapsedSeconds(s.StartedAt, now)
	snap.IntervalSeconds, snap.HasInterval = AverageInterval(Timestamps(trades))
	return snap
}

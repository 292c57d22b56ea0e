package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Granularity es el tamaño de un bucket.
type Granularity string

const (
	GranularityWeek  Granularity = "week"
	GranularityMonth Granularity = "month"
)

// ParseGranularity valida la granularidad recibida del exterior.
func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(s); g {
	case GranularityWeek, GranularityMonth:
		return g, nil
	}
	return "", fmt.Errorf("%w: unknown granularity %q", ErrValidation, s)
}

// ScopeLen devuelve cuántos buckets tiene un año: 52 semanas o 12 meses.
func ScopeLen(g Granularity) int {
	if g == GranularityWeek {
		return 52
	}
	return 12
}

// BucketSpec identifica un bucket: (año, granularidad, índice 1-based).
type BucketSpec struct {
	Year        int
	Granularity Granularity
	Index       int
}

func (b BucketSpec) String() string {
	if b.Granularity == GranularityWeek {
		return fmt.Sprintf("%d-W%02d", b.Year, b.Index)
	}
	return fmt.Sprintf("%d-%02d", b.Year, b.Index)
}

// Validate comprueba que el índice esté dentro del año.
func (b BucketSpec) Validate() error {
	if _, err := ParseGranularity(string(b.Granularity)); err != nil {
		return err
	}
	if b.Index < 1 || b.Index > ScopeLen(b.Granularity) {
		return fmt.Errorf("%w: %s index %d out of range 1..%d",
			ErrValidation, b.Granularity, b.Index, ScopeLen(b.Granularity))
	}
	return nil
}

// BucketStats es el agregado de un bucket.
type BucketStats struct {
	Trades   int
	Wins     int
	Losses   int
	Sessions int             // solo sesiones con al menos un trade
	Earnings decimal.Decimal // Σ(closing - starting) de sesiones con ambos balances
	WinRate  int
}

// Add combina dos agregados. Es asociativa: sumar los 12 meses de un año
// da el mismo total que agregar el año directamente.
func (s BucketStats) Add(o BucketStats) BucketStats {
	out := BucketStats{
		Trades:   s.Trades + o.Trades,
		Wins:     s.Wins + o.Wins,
		Losses:   s.Losses + o.Losses,
		Sessions: s.Sessions + o.Sessions,
		Earnings: s.Earnings.Add(o.Earnings),
	}
	out.WinRate = WinRate(out.Wins, out.Trades)
	return out
}

// Bucket es un bucket resuelto con su agregado.
type Bucket struct {
	BucketSpec
	Stats BucketStats
}

// Aggregate calcula el agregado de las sesiones que caen en el bucket.
func (c Calendar) Aggregate(sessions []Session, spec BucketSpec) BucketStats {
	from, to := c.Range(spec)
	return AggregateRange(sessions, from, to)
}

// AggregateRange calcula el agregado de las sesiones iniciadas en [from, to).
func AggregateRange(sessions []Session, from, to time.Time) BucketStats {
	var out BucketStats
	for _, s := range sessions {
		if !inRange(s.StartedAt, from, to) {
			continue
		}
		out.Trades += s.Trades
		out.Wins += s.Wins
		out.Losses += s.Losses
		if s.Trades > 0 {
			out.Sessions++
		}
		if e, ok := s.Earnings(); ok {
			out.Earnings = out.Earnings.Add(e)
		}
	}
	out.WinRate = WinRate(out.Wins, out.Trades)
	return out
}

// CountInRange devuelve cuántas sesiones (con o sin trades) empiezan en [from, to).
// Sirve para distinguir "sin datos" de "bucket con cero trades".
func CountInRange(sessions []Session, from, to time.Time) int {
	n := 0
	for _, s := range sessions {
		if inRange(s.StartedAt, from, to) {
			n++
		}
	}
	return n
}

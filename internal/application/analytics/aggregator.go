package analytics

import (
	"context"
	"fmt"

	"github.com/alejandrodnm/tradejournal/internal/domain"
	"github.com/alejandrodnm/tradejournal/internal/ports"
)

// Aggregator implementa ports.BucketQuerier sobre la tabla plana de sesiones.
// Cada consulta lee un snapshot fresco: los buckets no se almacenan.
type Aggregator struct {
	source ports.SessionSource
	cal    domain.Calendar
}

// NewAggregator crea un Aggregator con las reglas de calendario dadas.
func NewAggregator(source ports.SessionSource, cal domain.Calendar) *Aggregator {
	return &Aggregator{source: source, cal: cal}
}

// QueryBucket devuelve el agregado del bucket, nil si ninguna sesión cae en
// él, o un error si falla la lectura. Nunca devuelve un bucket a cero por un
// fallo de fetch.
func (a *Aggregator) QueryBucket(ctx context.Context, spec domain.BucketSpec) (*domain.BucketStats, error) {
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("analytics.QueryBucket: %w", err)
	}
	sessions, err := a.source.FetchSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("analytics.QueryBucket: fetch sessions: %w", err)
	}

	from, to := a.cal.Range(spec)
	if domain.CountInRange(sessions, from, to) == 0 {
		return nil, nil
	}
	stats := domain.AggregateRange(sessions, from, to)
	return &stats, nil
}

// YearSummary agrega el año completo directamente desde las sesiones.
func (a *Aggregator) YearSummary(ctx context.Context, year int) (domain.BucketStats, error) {
	sessions, err := a.source.FetchSessions(ctx)
	if err != nil {
		return domain.BucketStats{}, fmt.Errorf("analytics.YearSummary: fetch sessions: %w", err)
	}
	from, to := a.cal.YearRange(year)
	return domain.AggregateRange(sessions, from, to), nil
}

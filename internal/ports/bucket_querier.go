package ports

import (
	"context"

	"github.com/alejandrodnm/tradejournal/internal/domain"
)

// BucketQuerier es la interfaz de consulta de buckets que usa el navegador.
type BucketQuerier interface {
	// QueryBucket devuelve nil (sin error) cuando no hay datos para el bucket,
	// distinto de un bucket con cero trades. Un fallo de fetch siempre es error,
	// nunca un bucket a cero.
	QueryBucket(ctx context.Context, spec domain.BucketSpec) (*domain.BucketStats, error)
}

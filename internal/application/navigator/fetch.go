package navigator

// fetch.go — carga concurrente de un scope completo de buckets.
//
// Cada bucket es independiente: un fallo degrada ese bucket a un placeholder
// a cero y el resto del lote sigue. Solo la cancelación del contexto aborta.

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alejandrodnm/tradejournal/internal/domain"
	"github.com/alejandrodnm/tradejournal/internal/metrics"
	"github.com/alejandrodnm/tradejournal/internal/ports"
	"golang.org/x/time/rate"
)

// entry es un scope cacheado.
type entry struct {
	buckets   []domain.Bucket
	failed    []bool // fetch fallido, placeholder a cero
	fetchedAt time.Time
}

func (e entry) failures() int {
	n := 0
	for _, f := range e.failed {
		if f {
			n++
		}
	}
	return n
}

// fetchScope pide todos los buckets de specs en paralelo con un worker pool
// limitado por limiter. Devuelve error solo si ctx se cancela.
func fetchScope(
	ctx context.Context,
	querier ports.BucketQuerier,
	limiter *rate.Limiter,
	specs []domain.BucketSpec,
	workers int,
) (entry, error) {
	if workers <= 0 {
		workers = 4
	}
	start := time.Now()

	type result struct {
		pos    int
		stats  *domain.BucketStats
		failed bool
	}

	workCh := make(chan int, len(specs))
	resultCh := make(chan result, len(specs))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for pos := range workCh {
				// Lote cancelado: se vacía la cola sin más llamadas.
				if ctx.Err() != nil {
					resultCh <- result{pos: pos, failed: true}
					continue
				}
				spec := specs[pos]
				// Wait falla antes de que venza el contexto si el siguiente
				// token llega después del deadline; cuenta como fallo del bucket.
				var stats *domain.BucketStats
				err := limiter.Wait(ctx)
				if err == nil {
					stats, err = querier.QueryBucket(ctx, spec)
				}
				if err != nil {
					if ctx.Err() == nil {
						slog.Warn("bucket fetch failed, using placeholder",
							"bucket", spec.String(),
							"err", err,
						)
						metrics.BucketFetchFailures.WithLabelValues(string(spec.Granularity)).Inc()
					}
					resultCh <- result{pos: pos, failed: true}
					continue
				}
				resultCh <- result{pos: pos, stats: stats}
			}
		}()
	}

	for pos := range specs {
		workCh <- pos
	}
	close(workCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	e := entry{
		buckets: make([]domain.Bucket, len(specs)),
		failed:  make([]bool, len(specs)),
	}
	for pos, spec := range specs {
		e.buckets[pos] = domain.Bucket{BucketSpec: spec}
	}
	for r := range resultCh {
		e.failed[r.pos] = r.failed
		// nil = sin datos: el placeholder a cero ya está en su sitio.
		if r.stats != nil {
			e.buckets[r.pos].Stats = *r.stats
		}
	}
	if err := ctx.Err(); err != nil {
		return entry{}, err
	}

	e.fetchedAt = time.Now()
	if len(specs) > 0 {
		metrics.BucketBatchDuration.WithLabelValues(string(specs[0].Granularity)).Observe(time.Since(start).Seconds())
	}
	slog.Debug("bucket batch complete",
		"buckets", len(specs),
		"failed", e.failures(),
		"workers", workers,
		"elapsed", time.Since(start),
	)
	return e, nil
}

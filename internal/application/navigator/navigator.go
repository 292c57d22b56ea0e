package navigator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/alejandrodnm/tradejournal/internal/domain"
	"github.com/alejandrodnm/tradejournal/internal/ports"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// Config son los parámetros del navegador.
type Config struct {
	Workers    int
	RatePerSec float64       // <= 0 → sin límite
	StepDelay  time.Duration // pausa entre pasos de WalkReset
}

// Navigator pagina sobre buckets (semana/mes, por año o ventana móvil),
// cachea cada scope por (scope, granularidad) y expone la ventana visible.
// Es seguro para uso concurrente.
type Navigator struct {
	querier   ports.BucketQuerier
	cal       domain.Calendar
	now       func() time.Time
	limiter   *rate.Limiter
	workers   int
	stepDelay time.Duration

	mu       sync.Mutex
	scope    Scope
	gran     domain.Granularity
	position int
	cache    map[cacheKey]entry
	loading  bool
	lastErr  error
}

// New crea un Navigator. Arranca en el scope móvil mensual sin datos;
// hay que llamar a Select para cargar.
func New(querier ports.BucketQuerier, cal domain.Calendar, cfg Config) *Navigator {
	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}
	burst := max(cfg.Workers, 1)
	return &Navigator{
		querier:   querier,
		cal:       cal,
		now:       time.Now,
		limiter:   rate.NewLimiter(limit, burst),
		workers:   cfg.Workers,
		stepDelay: cfg.StepDelay,
		scope:     RollingScope(),
		gran:      domain.GranularityMonth,
		cache:     make(map[cacheKey]entry),
	}
}

// WithClock sustituye el reloj (tests).
func (n *Navigator) WithClock(now func() time.Time) *Navigator {
	n.now = now
	return n
}

// Slot es una posición de la ventana visible.
type Slot struct {
	domain.Bucket
	Position    int
	Centered    bool
	Current     bool // periodo real actual
	Disabled    bool // sin trades o futuro: ocupa hueco, no se compara
	Placeholder bool // el fetch falló
}

// Status expone el estado de carga del scope seleccionado.
type Status struct {
	Scope       Scope
	Granularity domain.Granularity
	Position    int
	Loading     bool
	Cached      bool
	Failed      int // buckets degradados a placeholder
	FetchedAt   time.Time
	Err         error // último error de carga (solo cancelación)
}

// Select cambia de scope/granularidad. Si el par no está en caché carga el
// scope completo y lo añade sin descartar otros scopes. Centra la ventana
// en el periodo actual.
func (n *Navigator) Select(ctx context.Context, scope Scope, g domain.Granularity) error {
	if _, err := domain.ParseGranularity(string(g)); err != nil {
		return fmt.Errorf("navigator.Select: %w", err)
	}

	n.mu.Lock()
	n.scope, n.gran = scope, g
	n.position = currentPosition(n.cal, n.now(), scope, g)
	_, cached := n.cache[cacheKey{scope, g}]
	n.mu.Unlock()

	if cached {
		return nil
	}
	return n.load(ctx, scope, g)
}

// Refresh vuelve a cargar el scope seleccionado y reemplaza su entrada.
func (n *Navigator) Refresh(ctx context.Context) error {
	n.mu.Lock()
	scope, g := n.scope, n.gran
	n.mu.Unlock()
	return n.load(ctx, scope, g)
}

// Invalidate descarta toda la caché (p. ej. tras un cambio en el ledger).
func (n *Navigator) Invalidate() {
	n.mu.Lock()
	n.cache = make(map[cacheKey]entry)
	n.mu.Unlock()
}

func (n *Navigator) load(ctx context.Context, scope Scope, g domain.Granularity) error {
	n.mu.Lock()
	n.loading = true
	now := n.now()
	n.mu.Unlock()

	e, err := fetchScope(ctx, n.querier, n.limiter, specs(n.cal, now, scope, g), n.workers)

	n.mu.Lock()
	defer n.mu.Unlock()
	n.loading = false
	n.lastErr = err
	if err != nil {
		return fmt.Errorf("navigator.load: %s/%s: %w", scope, g, err)
	}
	n.cache[cacheKey{scope, g}] = e
	return nil
}

// Status devuelve el estado del scope seleccionado.
func (n *Navigator) Status() Status {
	n.mu.Lock()
	defer n.mu.Unlock()
	e, ok := n.cache[cacheKey{n.scope, n.gran}]
	return Status{
		Scope:       n.scope,
		Granularity: n.gran,
		Position:    n.position,
		Loading:     n.loading,
		Cached:      ok,
		Failed:      e.failures(),
		FetchedAt:   e.fetchedAt,
		Err:         n.lastErr,
	}
}

// Window devuelve las domain.WindowSize posiciones centradas en la
// seleccionada, envolviendo módulo la longitud del scope. Vacía si el scope
// aún no está cargado.
func (n *Navigator) Window() []Slot {
	n.mu.Lock()
	defer n.mu.Unlock()

	e, ok := n.cache[cacheKey{n.scope, n.gran}]
	if !ok {
		return nil
	}
	now := n.now()
	positions := domain.WindowPositions(n.position, len(e.buckets), domain.WindowSize)
	out := make([]Slot, len(positions))
	for i, pos := range positions {
		b := e.buckets[pos]
		out[i] = Slot{
			Bucket:      b,
			Position:    pos,
			Centered:    pos == n.position,
			Current:     n.cal.IsCurrent(b.BucketSpec, now),
			Disabled:    n.cal.IsDisabled(b, now),
			Placeholder: e.failed[pos],
		}
	}
	return out
}

// Centered devuelve el bucket centrado.
func (n *Navigator) Centered() (Slot, bool) {
	for _, s := range n.Window() {
		if s.Centered {
			return s, true
		}
	}
	return Slot{}, false
}

// Move desplaza el centro delta posiciones, envolviendo.
func (n *Navigator) Move(delta int) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.position = domain.Wrap(n.position+delta, domain.ScopeLen(n.gran))
	return n.position
}

// ResetPath devuelve las posiciones intermedias hasta el periodo actual por
// el arco más corto, terminando en él.
func (n *Navigator) ResetPath() []int {
	n.mu.Lock()
	defer n.mu.Unlock()
	target := currentPosition(n.cal, n.now(), n.scope, n.gran)
	return domain.ShortestPath(n.position, target, domain.ScopeLen(n.gran))
}

// WalkReset recorre ResetPath con una pausa fija entre pasos, llamando a
// onStep tras cada uno. Se detiene si ctx se cancela.
func (n *Navigator) WalkReset(ctx context.Context, onStep func(pos int)) error {
	path := n.ResetPath()
	if len(path) == 0 {
		return nil
	}
	ticker := time.NewTicker(max(n.stepDelay, time.Millisecond))
	defer ticker.Stop()

	for _, pos := range path {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		n.mu.Lock()
		n.position = pos
		n.mu.Unlock()
		if onStep != nil {
			onStep(pos)
		}
	}
	return nil
}

// Comparison enfrenta el bucket centrado con su baseline.
type Comparison struct {
	Centered domain.Bucket
	Baseline domain.Bucket

	// HasBaseline es false si el baseline no está en caché o está deshabilitado.
	HasBaseline   bool
	WinRateDelta  int
	TradesDelta   int
	EarningsDelta decimal.Decimal
}

// Comparison aplica la regla: si el centrado es el periodo actual se compara
// con el anterior; si no, con el actual. El baseline se busca en todos los
// scopes cacheados. ok es false si el centrado está deshabilitado.
func (n *Navigator) Comparison() (Comparison, bool) {
	centered, ok := n.Centered()
	if !ok || centered.Disabled {
		return Comparison{}, false
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	now := n.now()
	out := Comparison{Centered: centered.Bucket}

	want := n.cal.BaselineFor(centered.BucketSpec, now)
	baseline, found := n.lookup(want)
	if !found || n.cal.IsDisabled(baseline, now) {
		return out, true
	}
	out.Baseline = baseline
	out.HasBaseline = true
	out.WinRateDelta = centered.Stats.WinRate - baseline.Stats.WinRate
	out.TradesDelta = centered.Stats.Trades - baseline.Stats.Trades
	out.EarningsDelta = centered.Stats.Earnings.Sub(baseline.Stats.Earnings)
	return out, true
}

// lookup busca un bucket absoluto en cualquier scope cacheado. Debe
// llamarse con mu tomado.
func (n *Navigator) lookup(spec domain.BucketSpec) (domain.Bucket, bool) {
	for key, e := range n.cache {
		if key.gran != spec.Granularity {
			continue
		}
		for i, b := range e.buckets {
			if b.BucketSpec == spec && !e.failed[i] {
				return b, true
			}
		}
	}
	return domain.Bucket{}, false
}

package navigator

import (
	"strconv"
	"time"

	"github.com/alejandrodnm/tradejournal/internal/domain"
)

// Scope es el conjunto de buckets navegable: un año concreto o la ventana
// móvil "últimos 12 meses / últimas 52 semanas" anclada en la fecha real.
type Scope struct {
	Rolling bool
	Year    int
}

// YearScope devuelve el scope de un año concreto.
func YearScope(year int) Scope { return Scope{Year: year} }

// RollingScope devuelve el scope móvil.
func RollingScope() Scope { return Scope{Rolling: true} }

func (s Scope) String() string {
	if s.Rolling {
		return "rolling"
	}
	return strconv.Itoa(s.Year)
}

type cacheKey struct {
	scope Scope
	gran  domain.Granularity
}

// specs resuelve las posiciones del scope a buckets absolutos. En el scope
// móvil la posición n-1 es el periodo actual y la 0 el más antiguo.
func specs(cal domain.Calendar, now time.Time, scope Scope, g domain.Granularity) []domain.BucketSpec {
	n := domain.ScopeLen(g)
	out := make([]domain.BucketSpec, n)
	for pos := range out {
		if scope.Rolling {
			year, index := cal.ResolveRolling(now, g, n-1-pos)
			out[pos] = domain.BucketSpec{Year: year, Granularity: g, Index: index}
			continue
		}
		out[pos] = domain.BucketSpec{Year: scope.Year, Granularity: g, Index: pos + 1}
	}
	return out
}

// currentPosition devuelve la posición que ocupa el periodo real actual en
// el scope; en años distintos del actual se usa el mismo índice.
func currentPosition(cal domain.Calendar, now time.Time, scope Scope, g domain.Granularity) int {
	if scope.Rolling {
		return domain.ScopeLen(g) - 1
	}
	_, index := cal.CurrentPeriod(now, g)
	return index - 1
}

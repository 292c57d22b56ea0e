package domain

import "time"

// WindowSize es el número de buckets visibles alrededor del centro.
const WindowSize = 7

// Wrap devuelve i módulo n en [0, n).
func Wrap(i, n int) int {
	if n <= 0 {
		return 0
	}
	return ((i % n) + n) % n
}

// WindowPositions devuelve size posiciones centradas en center, envolviendo
// módulo n. Nunca indexa fuera de rango.
func WindowPositions(center, n, size int) []int {
	out := make([]int, size)
	half := size / 2
	for i := range out {
		out[i] = Wrap(center-half+i, n)
	}
	return out
}

// ShortestPath devuelve la secuencia de posiciones intermedias para ir de
// from a to por el arco circular más corto (distancia <= n/2), sin incluir
// from y terminando exactamente en to. Vacía si from == to.
func ShortestPath(from, to, n int) []int {
	if n <= 0 {
		return nil
	}
	from, to = Wrap(from, n), Wrap(to, n)
	forward := Wrap(to-from, n)
	if forward == 0 {
		return nil
	}
	step, dist := 1, forward
	if forward > n/2 {
		step, dist = -1, n-forward
	}
	path := make([]int, 0, dist)
	pos := from
	for range dist {
		pos = Wrap(pos+step, n)
		path = append(path, pos)
	}
	return path
}

// IsDisabled indica si un bucket se muestra deshabilitado: sin trades, o
// posterior al periodo actual dentro del año actual. Ocupa su hueco pero
// no participa en comparaciones.
func (c Calendar) IsDisabled(b Bucket, now time.Time) bool {
	if b.Stats.Trades == 0 {
		return true
	}
	year, index := c.CurrentPeriod(now, b.Granularity)
	return b.Year == year && b.Index > index
}

// IsCurrent indica si el bucket es el periodo real actual.
func (c Calendar) IsCurrent(spec BucketSpec, now time.Time) bool {
	year, index := c.CurrentPeriod(now, spec.Granularity)
	return spec.Year == year && spec.Index == index
}

// Previous devuelve el bucket inmediatamente anterior, cruzando de año.
func Previous(spec BucketSpec) BucketSpec {
	spec.Index--
	if spec.Index < 1 {
		spec.Index = ScopeLen(spec.Granularity)
		spec.Year--
	}
	return spec
}

// BaselineFor aplica la regla de comparación: si el bucket centrado es el
// actual se compara con el anterior; si no, con el actual.
func (c Calendar) BaselineFor(centered BucketSpec, now time.Time) BucketSpec {
	if c.IsCurrent(centered, now) {
		return Previous(centered)
	}
	year, index := c.CurrentPeriod(now, centered.Granularity)
	return BucketSpec{Year: year, Granularity: centered.Granularity, Index: index}
}

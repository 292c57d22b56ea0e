package domain

import (
	"fmt"
	"time"
)

// WeekMode decide cómo se calculan los límites de semana.
type WeekMode string

const (
	// WeekLegacy: la semana N empieza el 1 de enero + (N-1)*7 días.
	// No es ISO; el 31 de diciembre (y el 30 en bisiestos) queda fuera de
	// la semana 52. Se conserva para que los datos históricos cuadren.
	WeekLegacy WeekMode = "legacy"
	// WeekISO: semanas ISO 8601, empiezan en lunes.
	WeekISO WeekMode = "iso"
)

// ParseWeekMode valida el modo configurado. Vacío → legacy.
func ParseWeekMode(s string) (WeekMode, error) {
	switch m := WeekMode(s); m {
	case "", WeekLegacy:
		return WeekLegacy, nil
	case WeekISO:
		return m, nil
	}
	return "", fmt.Errorf("%w: unknown week mode %q", ErrValidation, s)
}

// Calendar agrupa las reglas de calendario: modo de semana y zona horaria
// en la que se interpreta la fecha de cada sesión.
type Calendar struct {
	Mode WeekMode
	Loc  *time.Location
}

func (c Calendar) loc() *time.Location {
	if c.Loc == nil {
		return time.UTC
	}
	return c.Loc
}

// WeekStart devuelve el inicio de la semana week del año year.
func (c Calendar) WeekStart(year, week int) time.Time {
	if c.Mode == WeekISO {
		jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, c.loc())
		offset := (int(jan4.Weekday()) + 6) % 7 // días desde el lunes
		return jan4.AddDate(0, 0, -offset+(week-1)*7)
	}
	return time.Date(year, time.January, 1, 0, 0, 0, 0, c.loc()).AddDate(0, 0, (week-1)*7)
}

// Range devuelve el intervalo [from, to) que cubre el bucket.
func (c Calendar) Range(spec BucketSpec) (from, to time.Time) {
	switch spec.Granularity {
	case GranularityWeek:
		return c.WeekStart(spec.Year, spec.Index), c.WeekStart(spec.Year, spec.Index+1)
	default:
		from = time.Date(spec.Year, time.Month(spec.Index), 1, 0, 0, 0, 0, c.loc())
		return from, from.AddDate(0, 1, 0)
	}
}

// YearRange devuelve [1 ene year, 1 ene year+1).
func (c Calendar) YearRange(year int) (from, to time.Time) {
	from = time.Date(year, time.January, 1, 0, 0, 0, 0, c.loc())
	return from, from.AddDate(1, 0, 0)
}

// CurrentPeriod devuelve el (año, índice) del periodo que contiene now.
// Las semanas que caen fuera de 1..52 se pliegan a la 52.
func (c Calendar) CurrentPeriod(now time.Time, g Granularity) (year, index int) {
	now = now.In(c.loc())
	if g != GranularityWeek {
		return now.Year(), int(now.Month())
	}
	if c.Mode == WeekISO {
		year, index = now.ISOWeek()
	} else {
		year, index = now.Year(), (now.YearDay()-1)/7+1
	}
	return year, min(index, ScopeLen(GranularityWeek))
}

// ResolveRolling resuelve el offset-ésimo periodo hacia atrás desde el
// periodo actual a un par absoluto (año, índice), cruzando de año cuando
// el índice baja de 1.
func (c Calendar) ResolveRolling(now time.Time, g Granularity, offset int) (year, index int) {
	n := ScopeLen(g)
	year, index = c.CurrentPeriod(now, g)
	index -= offset
	for index < 1 {
		index += n
		year--
	}
	return year, index
}

// Contains indica si t cae dentro del bucket.
func (c Calendar) Contains(spec BucketSpec, t time.Time) bool {
	from, to := c.Range(spec)
	return inRange(t, from, to)
}

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

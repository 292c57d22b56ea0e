package ports

import "github.com/alejandrodnm/tradejournal/internal/domain"

// ClockSink recibe los snapshots del reloj de sesión.
type ClockSink interface {
	ClockTick(snap domain.ClockSnapshot)
}

package domain

import "fmt"

// ApplyTradeLogged suma un trade a los contadores y recalcula el win rate.
func ApplyTradeLogged(c Counters, result TradeResult) Counters {
	c.Trades++
	switch result {
	case ResultWin:
		c.Wins++
	case ResultLoss:
		c.Losses++
	}
	c.WinRate = WinRate(c.Wins, c.Trades)
	return c
}

// DeleteOutcome es el resultado de revertir un trade.
type DeleteOutcome struct {
	Counters Counters
	// Emptied indica que se eliminó el último trade: la sesión vuelve a Empty.
	Emptied bool
	// Clamped indica que algún contador habría quedado negativo y se fijó a 0.
	Clamped bool
}

// ApplyTradeDeleted es la inversa de ApplyTradeLogged con suelo en cero.
// Deletes duplicados o fuera de orden nunca dejan contadores negativos.
func ApplyTradeDeleted(c Counters, result TradeResult) DeleteOutcome {
	hadTrades := c.Trades > 0
	out := DeleteOutcome{}

	c.Trades, out.Clamped = decFloor(c.Trades, out.Clamped)
	switch result {
	case ResultWin:
		c.Wins, out.Clamped = decFloor(c.Wins, out.Clamped)
	case ResultLoss:
		c.Losses, out.Clamped = decFloor(c.Losses, out.Clamped)
	}

	// Un delete duplicado puede dejar wins+losses por encima de trades.
	if c.Wins+c.Losses > c.Trades {
		out.Clamped = true
		c.Losses = min(c.Losses, c.Trades)
		c.Wins = min(c.Wins, c.Trades-c.Losses)
	}

	c.WinRate = WinRate(c.Wins, c.Trades)
	out.Counters = c
	out.Emptied = hadTrades && c.Trades == 0
	return out
}

func decFloor(v int, clamped bool) (int, bool) {
	if v <= 0 {
		return 0, true
	}
	return v - 1, clamped
}

// CanLog valida que la sesión acepte nuevos trades.
func CanLog(s Session) error {
	if !s.IsActive() {
		return fmt.Errorf("%w: session %s already ended", ErrValidation, s.ID)
	}
	return nil
}

// ValidateEnd aplica la regla de negocio de cierre: una sesión sin trades
// no se cierra, se elimina.
func ValidateEnd(s Session) error {
	if !s.IsActive() {
		return fmt.Errorf("%w: session %s already ended", ErrValidation, s.ID)
	}
	if s.Trades <= 0 {
		return fmt.Errorf("%w: session %s has no trades, delete it instead", ErrValidation, s.ID)
	}
	return nil
}

package domain

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Counters son los contadores incrementales de una sesión.
// Invariante: Wins + Losses <= Trades.
type Counters struct {
	Wins    int
	Losses  int
	Trades  int
	WinRate int // porcentaje entero, 0 si Trades == 0
}

// Draws devuelve los trades que no son ni win ni loss.
func (c Counters) Draws() int {
	if d := c.Trades - c.Wins - c.Losses; d > 0 {
		return d
	}
	return 0
}

// Session es una ventana de trading con balance inicial y (opcional) final.
type Session struct {
	ID               string
	StartedAt        time.Time
	StartingBalance  decimal.NullDecimal
	ClosingBalance   decimal.NullDecimal // ausente mientras la sesión está activa
	EndedAt          *time.Time
	Counters
	DurationSeconds  *int64   // solo al cerrar
	AvgTradeInterval *float64 // solo al cerrar y con >= 2 trades
}

// SessionState es el estado del ledger de una sesión.
type SessionState string

const (
	SessionEmpty  SessionState = "EMPTY"
	SessionActive SessionState = "ACTIVE"
	SessionEnded  SessionState = "ENDED"
)

// State deriva el estado a partir del balance de cierre y los contadores.
func (s Session) State() SessionState {
	switch {
	case s.ClosingBalance.Valid:
		return SessionEnded
	case s.Trades == 0:
		return SessionEmpty
	default:
		return SessionActive
	}
}

// IsActive es true mientras no hay balance de cierre.
func (s Session) IsActive() bool {
	return !s.ClosingBalance.Valid
}

// Earnings devuelve closing - starting redondeado a centavos.
// ok es false si falta alguno de los dos balances.
func (s Session) Earnings() (decimal.Decimal, bool) {
	if !s.StartingBalance.Valid || !s.ClosingBalance.Valid {
		return decimal.Zero, false
	}
	return s.ClosingBalance.Decimal.Sub(s.StartingBalance.Decimal).Round(2), true
}

// TradeResult es el resultado de un trade.
type TradeResult string

const (
	ResultWin  TradeResult = "win"
	ResultLoss TradeResult = "loss"
	ResultDraw TradeResult = "draw"
)

// ParseTradeResult valida un resultado recibido del exterior.
func ParseTradeResult(s string) (TradeResult, error) {
	switch r := TradeResult(s); r {
	case ResultWin, ResultLoss, ResultDraw:
		return r, nil
	}
	return "", fmt.Errorf("%w: unknown trade result %q", ErrValidation, s)
}

// WinRate devuelve round(wins/trades*100), 0 si no hay trades.
func WinRate(wins, trades int) int {
	if trades <= 0 {
		return 0
	}
	r := int(math.Round(float64(wins) / float64(trades) * 100))
	return max(0, min(100, r))
}

// ParseBalance convierte un balance introducido por el usuario.
// Cadena vacía → balance ausente.
func ParseBalance(s string) (decimal.NullDecimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("%w: balance %q is not numeric", ErrValidation, s)
	}
	return decimal.NewNullDecimal(d.Round(2)), nil
}

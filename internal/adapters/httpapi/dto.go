package httpapi

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/alejandrodnm/tradejournal/internal/domain"
)

// ErrorResponse es el formato de error de todos los endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// SessionResponse es la representación JSON de una sesión.
type SessionResponse struct {
	ID               string     `json:"id"`
	State            string     `json:"state"`
	StartedAt        time.Time  `json:"started_at"`
	EndedAt          *time.Time `json:"ended_at,omitempty"`
	StartingBalance  *string    `json:"starting_balance"`
	ClosingBalance   *string    `json:"closing_balance"`
	Earnings         *string    `json:"earnings"`
	WinCount         int        `json:"win_count"`
	LossCount        int        `json:"loss_count"`
	DrawCount        int        `json:"draw_count"`
	TradeCount       int        `json:"trade_count"`
	WinRate          int        `json:"win_rate"`
	DurationSeconds  *int64     `json:"duration_seconds"`
	AvgTradeInterval *float64   `json:"avg_trade_interval"`
}

func newSessionResponse(s domain.Session) SessionResponse {
	out := SessionResponse{
		ID:               s.ID,
		State:            string(s.State()),
		StartedAt:        s.StartedAt.UTC(),
		EndedAt:          s.EndedAt,
		WinCount:         s.Wins,
		LossCount:        s.Losses,
		DrawCount:        s.Draws(),
		TradeCount:       s.Trades,
		WinRate:          s.WinRate,
		DurationSeconds:  s.DurationSeconds,
		AvgTradeInterval: s.AvgTradeInterval,
	}
	if s.StartingBalance.Valid {
		v := s.StartingBalance.Decimal.StringFixed(2)
		out.StartingBalance = &v
	}
	if s.ClosingBalance.Valid {
		v := s.ClosingBalance.Decimal.StringFixed(2)
		out.ClosingBalance = &v
	}
	if e, ok := s.Earnings(); ok {
		v := e.StringFixed(2)
		out.Earnings = &v
	}
	return out
}

// TradeResponse es la representación JSON de un trade.
type TradeResponse struct {
	ID            int64     `json:"id"`
	SessionID     string    `json:"session_id"`
	Timestamp     time.Time `json:"timestamp"`
	Confirmations []string  `json:"confirmations"`
	Result        string    `json:"result"`
	LossReasons   []string  `json:"loss_reasons,omitempty"`
}

func newTradeResponse(t domain.Trade) TradeResponse {
	return TradeResponse{
		ID:            t.ID,
		SessionID:     t.SessionID,
		Timestamp:     t.Timestamp.UTC(),
		Confirmations: t.Confirmations,
		Result:        string(t.Result),
		LossReasons:   t.LossReasons,
	}
}

// LogTradeResponse devuelve el trade y los contadores ya confirmados.
type LogTradeResponse struct {
	Trade   TradeResponse   `json:"trade"`
	Session SessionResponse `json:"session"`
}

// DeleteTradeResponse devuelve la sesión tras revertir el trade. Emptied
// indica que era el último trade; el cliente debe tratarlo como fin
// implícito si la sesión era la suya.
type DeleteTradeResponse struct {
	Trade   TradeResponse   `json:"trade"`
	Session SessionResponse `json:"session"`
	Emptied bool            `json:"emptied"`
}

// ClockResponse es la lectura del reloj de una sesión.
type ClockResponse struct {
	SessionID       string   `json:"session_id"`
	Active          bool     `json:"active"`
	DurationSeconds int64    `json:"duration_seconds"`
	Duration        string   `json:"duration"`
	IntervalSeconds *float64 `json:"interval_seconds"`
	Interval        string   `json:"interval"`
}

func newClockResponse(s domain.ClockSnapshot) ClockResponse {
	out := ClockResponse{
		SessionID:       s.SessionID,
		Active:          s.Active,
		DurationSeconds: s.DurationSeconds,
		Duration:        s.DurationLabel(),
		Interval:        s.IntervalLabel(),
	}
	if s.HasInterval {
		v := s.IntervalSeconds
		out.IntervalSeconds = &v
	}
	return out
}

// BucketResponse es el agregado de un bucket.
type BucketResponse struct {
	Year        int    `json:"year"`
	Granularity string `json:"granularity"`
	Index       int    `json:"index"`
	Trades      int    `json:"trades"`
	Wins        int    `json:"wins"`
	Losses      int    `json:"losses"`
	Sessions    int    `json:"sessions"`
	Earnings    string `json:"earnings"`
	WinRate     int    `json:"win_rate"`
}

func newBucketResponse(spec domain.BucketSpec, s domain.BucketStats) BucketResponse {
	return BucketResponse{
		Year:        spec.Year,
		Granularity: string(spec.Granularity),
		Index:       spec.Index,
		Trades:      s.Trades,
		Wins:        s.Wins,
		Losses:      s.Losses,
		Sessions:    s.Sessions,
		Earnings:    s.Earnings.StringFixed(2),
		WinRate:     s.WinRate,
	}
}

// balanceInput acepta el balance como string JSON o como número; la
// validación numérica la hace domain.ParseBalance.
type balanceInput string

func (b *balanceInput) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*b = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*b = balanceInput(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*b = balanceInput(n.String())
	return nil
}

type startSessionRequest struct {
	StartingBalance balanceInput `json:"starting_balance"`
}

type logTradeRequest struct {
	Timestamp     *time.Time `json:"timestamp"`
	Confirmations []string   `json:"confirmations"`
	Result        string     `json:"result"`
	LossReasons   []string   `json:"loss_reasons"`
}

type endSessionRequest struct {
	ClosingBalance balanceInput `json:"closing_balance"`
}

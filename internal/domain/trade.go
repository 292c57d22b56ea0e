package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Trade es un resultado registrado dentro de una sesión.
type Trade struct {
	ID            int64 // secuencia asignada por el storage
	SessionID     string
	Timestamp     time.Time
	Confirmations []string // en el orden en que el usuario las marcó
	Result        TradeResult
	LossReasons   []string // solo cuando Result == loss
}

// NewTrade normaliza y valida un trade antes de persistirlo.
// Las razones de pérdida se descartan si el resultado no es loss.
func NewTrade(sessionID string, ts time.Time, confirmations []string, result TradeResult, lossReasons []string) (Trade, error) {
	if sessionID == "" {
		return Trade{}, fmt.Errorf("%w: empty session id", ErrValidation)
	}
	if _, err := ParseTradeResult(string(result)); err != nil {
		return Trade{}, err
	}
	confs := cleanTags(confirmations)
	if len(confs) == 0 {
		return Trade{}, fmt.Errorf("%w: a trade needs at least one confirmation", ErrValidation)
	}
	t := Trade{
		SessionID:     sessionID,
		Timestamp:     ts,
		Confirmations: confs,
		Result:        result,
	}
	if result == ResultLoss {
		t.LossReasons = cleanTags(lossReasons)
	}
	return t, nil
}

// SortByTimestamp ordena una copia ascendente por timestamp.
func SortByTimestamp(trades []Trade) []Trade {
	out := make([]Trade, len(trades))
	copy(out, trades)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// Timestamps extrae los timestamps de los trades.
func Timestamps(trades []Trade) []time.Time {
	ts := make([]time.Time, len(trades))
	for i, t := range trades {
		ts[i] = t.Timestamp
	}
	return ts
}

func cleanTags(tags []string) []string {
	var out []string
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

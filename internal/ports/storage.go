package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/tradejournal/internal/domain"
	"github.com/shopspring/decimal"
)

// SessionSource devuelve la tabla plana de sesiones que consume el agregador.
type SessionSource interface {
	// FetchSessions devuelve todas las sesiones, las más recientes primero.
	FetchSessions(ctx context.Context) ([]domain.Session, error)
}

// EndSessionRequest son los valores calculados al cerrar una sesión.
type EndSessionRequest struct {
	SessionID        string
	ClosingBalance   decimal.Decimal
	EndedAt          time.Time
	DurationSeconds  int64
	AvgTradeInterval *float64 // nil con menos de 2 trades
}

// JournalStorage persiste sesiones y trades. Las operaciones que tocan los
// contadores del ledger son atómicas respecto al insert/delete del trade.
type JournalStorage interface {
	SessionSource

	CreateSession(ctx context.Context, s domain.Session) error
	// GetSession devuelve domain.ErrNotFound si el id no existe.
	GetSession(ctx context.Context, id string) (domain.Session, error)
	// FetchSessionTrades devuelve los trades ascendentes por timestamp.
	FetchSessionTrades(ctx context.Context, sessionID string) ([]domain.Trade, error)

	// LogTrade inserta el trade y aplica domain.ApplyTradeLogged en la misma
	// transacción. Si el insert falla los contadores no cambian.
	LogTrade(ctx context.Context, t domain.Trade) (domain.Trade, domain.Session, error)
	// DeleteTrade borra el trade y revierte los contadores en la misma transacción.
	DeleteTrade(ctx context.Context, tradeID int64) (domain.Trade, domain.Session, domain.DeleteOutcome, error)

	// DeleteSession borra la sesión y sus trades.
	DeleteSession(ctx context.Context, id string) error
	EndSession(ctx context.Context, req EndSessionRequest) (domain.Session, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}

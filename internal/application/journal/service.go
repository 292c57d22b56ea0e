package journal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/tradejournal/internal/domain"
	"github.com/alejandrodnm/tradejournal/internal/metrics"
	"github.com/alejandrodnm/tradejournal/internal/ports"
	"github.com/google/uuid"
)

// Service orquesta las mutaciones del diario. Los contadores solo cambian
// cuando el storage confirma; no hay actualizaciones optimistas.
type Service struct {
	store ports.JournalStorage
	now   func() time.Time
}

// NewService crea un Service sobre el storage dado.
func NewService(store ports.JournalStorage) *Service {
	return &Service{store: store, now: time.Now}
}

// WithClock sustituye el reloj (tests).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// StartSession abre una sesión nueva y apunta el estado del cliente a ella.
// Falla con domain.ErrSessionActive si el cliente ya tiene una activa.
func (s *Service) StartSession(ctx context.Context, st *ClientState, startingBalance string) (domain.Session, error) {
	balance, err := domain.ParseBalance(startingBalance)
	if err != nil {
		return domain.Session{}, fmt.Errorf("journal.StartSession: %w", err)
	}
	if active := st.ActiveSessionID(); active != "" {
		return domain.Session{}, fmt.Errorf("journal.StartSession: %w: %s", domain.ErrSessionActive, active)
	}

	sess := domain.Session{
		ID:              uuid.New().String(),
		StartedAt:       s.now().UTC(),
		StartingBalance: balance,
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return domain.Session{}, fmt.Errorf("journal.StartSession: %w", err)
	}
	if err := st.Begin(sess.ID); err != nil {
		slog.Warn("could not persist client state", "err", err)
	}
	metrics.SessionTransitions.WithLabelValues("started").Inc()

	slog.Info("session started", "session_id", sess.ID, "starting_balance", balance.Decimal.StringFixed(2))
	return sess, nil
}

// LogTradeRequest es la entrada de LogTrade.
type LogTradeRequest struct {
	SessionID     string // vacío → sesión activa del cliente
	Timestamp     time.Time
	Confirmations []string // vacío → últimas confirmaciones usadas
	Result        domain.TradeResult
	LossReasons   []string
}

// LogTrade registra un trade y devuelve los contadores confirmados por el storage.
func (s *Service) LogTrade(ctx context.Context, st *ClientState, req LogTradeRequest) (domain.Trade, domain.Session, error) {
	sessionID, err := resolveSession(st, req.SessionID)
	if err != nil {
		return domain.Trade{}, domain.Session{}, fmt.Errorf("journal.LogTrade: %w", err)
	}
	confs := req.Confirmations
	if len(confs) == 0 {
		confs = st.LastConfirmations()
	}
	ts := req.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}

	trade, err := domain.NewTrade(sessionID, ts.UTC(), confs, req.Result, req.LossReasons)
	if err != nil {
		return domain.Trade{}, domain.Session{}, fmt.Errorf("journal.LogTrade: %w", err)
	}

	saved, sess, err := s.store.LogTrade(ctx, trade)
	if err != nil {
		return domain.Trade{}, domain.Session{}, fmt.Errorf("journal.LogTrade: %w", err)
	}
	if st.IsActive(sessionID) {
		if err := st.RememberConfirmations(saved.Confirmations); err != nil {
			slog.Warn("could not persist client state", "err", err)
		}
	}
	metrics.TradesLogged.WithLabelValues(string(saved.Result)).Inc()

	slog.Debug("trade logged",
		"session_id", sess.ID,
		"trade_id", saved.ID,
		"result", saved.Result,
		"trades", sess.Trades,
		"win_rate", sess.WinRate,
	)
	return saved, sess, nil
}

// DeleteTradeResult describe el efecto de borrar un trade.
type DeleteTradeResult struct {
	Trade   domain.Trade
	Session domain.Session

	// Emptied: se borró el último trade de la sesión.
	Emptied bool

	// ImplicitEnd: la sesión vaciada era la activa del cliente; el estado
	// del cliente ya fue limpiado y la UI debe tratarlo como fin de sesión.
	ImplicitEnd bool
}

// DeleteTrade borra un trade y revierte los contadores de su sesión.
func (s *Service) DeleteTrade(ctx context.Context, st *ClientState, tradeID int64) (DeleteTradeResult, error) {
	trade, sess, outcome, err := s.store.DeleteTrade(ctx, tradeID)
	if err != nil {
		return DeleteTradeResult{}, fmt.Errorf("journal.DeleteTrade: %w", err)
	}
	metrics.TradesDeleted.WithLabelValues(string(trade.Result)).Inc()
	if outcome.Clamped {
		metrics.LedgerClamps.Inc()
	}

	res := DeleteTradeResult{Trade: trade, Session: sess, Emptied: outcome.Emptied}
	if outcome.Emptied && sess.IsActive() && st.IsActive(sess.ID) {
		res.ImplicitEnd = true
		if err := st.Clear(); err != nil {
			slog.Warn("could not persist client state", "err", err)
		}
		metrics.SessionTransitions.WithLabelValues("emptied").Inc()
		slog.Info("last trade removed, session is empty", "session_id", sess.ID)
	}
	return res, nil
}

// EndSession cierra la sesión con el balance dado. Valida el balance y que
// la sesión tenga trades antes de escribir nada.
func (s *Service) EndSession(ctx context.Context, st *ClientState, sessionID, closingBalance string) (domain.Session, error) {
	closing, err := domain.ParseBalance(closingBalance)
	if err != nil {
		return domain.Session{}, fmt.Errorf("journal.EndSession: %w", err)
	}
	if !closing.Valid {
		return domain.Session{}, fmt.Errorf("journal.EndSession: %w: closing balance is required", domain.ErrValidation)
	}
	sessionID, err = resolveSession(st, sessionID)
	if err != nil {
		return domain.Session{}, fmt.Errorf("journal.EndSession: %w", err)
	}

	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return domain.Session{}, fmt.Errorf("journal.EndSession: %w", err)
	}
	if err := domain.ValidateEnd(sess); err != nil {
		return domain.Session{}, fmt.Errorf("journal.EndSession: %w", err)
	}
	trades, err := s.store.FetchSessionTrades(ctx, sessionID)
	if err != nil {
		return domain.Session{}, fmt.Errorf("journal.EndSession: %w", err)
	}

	endedAt := s.now().UTC()
	req := ports.EndSessionRequest{
		SessionID:       sessionID,
		ClosingBalance:  closing.Decimal,
		EndedAt:         endedAt,
		DurationSeconds: domain.ElapsedSeconds(sess.StartedAt, endedAt),
	}
	if avg, ok := domain.AverageInterval(domain.Timestamps(trades)); ok {
		req.AvgTradeInterval = &avg
	}

	ended, err := s.store.EndSession(ctx, req)
	if err != nil {
		return domain.Session{}, fmt.Errorf("journal.EndSession: %w", err)
	}
	if st.IsActive(sessionID) {
		if err := st.Clear(); err != nil {
			slog.Warn("could not persist client state", "err", err)
		}
	}
	metrics.SessionTransitions.WithLabelValues("ended").Inc()

	earnings, _ := ended.Earnings()
	slog.Info("session ended",
		"session_id", sessionID,
		"trades", ended.Trades,
		"win_rate", ended.WinRate,
		"earnings", earnings.StringFixed(2),
		"duration", domain.FormatDuration(req.DurationSeconds),
	)
	return ended, nil
}

// DeleteSession borra la sesión y sus trades.
func (s *Service) DeleteSession(ctx context.Context, st *ClientState, sessionID string) error {
	sessionID, err := resolveSession(st, sessionID)
	if err != nil {
		return fmt.Errorf("journal.DeleteSession: %w", err)
	}
	if err := s.store.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("journal.DeleteSession: %w", err)
	}
	if st.IsActive(sessionID) {
		if err := st.Clear(); err != nil {
			slog.Warn("could not persist client state", "err", err)
		}
	}
	metrics.SessionTransitions.WithLabelValues("deleted").Inc()
	slog.Info("session deleted", "session_id", sessionID)
	return nil
}

// Sessions devuelve todas las sesiones, las más recientes primero.
func (s *Service) Sessions(ctx context.Context) ([]domain.Session, error) {
	return s.store.FetchSessions(ctx)
}

// Session devuelve una sesión por id ("" → sesión activa).
func (s *Service) Session(ctx context.Context, st *ClientState, sessionID string) (domain.Session, error) {
	sessionID, err := resolveSession(st, sessionID)
	if err != nil {
		return domain.Session{}, fmt.Errorf("journal.Session: %w", err)
	}
	return s.store.GetSession(ctx, sessionID)
}

// SessionTrades devuelve los trades de una sesión ascendentes por timestamp.
func (s *Service) SessionTrades(ctx context.Context, st *ClientState, sessionID string) ([]domain.Trade, error) {
	sessionID, err := resolveSession(st, sessionID)
	if err != nil {
		return nil, fmt.Errorf("journal.SessionTrades: %w", err)
	}
	return s.store.FetchSessionTrades(ctx, sessionID)
}

func resolveSession(st *ClientState, sessionID string) (string, error) {
	if sessionID != "" {
		return sessionID, nil
	}
	if active := st.ActiveSessionID(); active != "" {
		return active, nil
	}
	return "", fmt.Errorf("%w: no session id given and no active session", domain.ErrValidation)
}

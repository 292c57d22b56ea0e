package storage

// sqlite.go — persistencia del diario.
//
// Estrategia:
//   - `sessions`: una fila por sesión con los contadores del ledger ya
//     calculados (win/loss/trade count, win rate). Los agregados por bucket
//     se calculan leyendo esta tabla, nunca recorriendo trades.
//   - `trades`: una fila por trade. Confirmaciones y razones de pérdida se
//     guardan como JSON.
//   - Cada insert/delete de trade y la actualización de contadores van en la
//     misma transacción: si el insert falla, los contadores no se tocan.
//   - Una sola conexión: SQLite es single-writer y así el read-modify-write
//     de los contadores queda serializado.

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/tradejournal/internal/domain"
	"github.com/alejandrodnm/tradejournal/internal/ports"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id                 TEXT PRIMARY KEY,
    started_at         TEXT    NOT NULL,
    starting_balance   TEXT,
    closing_balance    TEXT,
    ended_at           TEXT,
    win_count          INTEGER NOT NULL DEFAULT 0,
    loss_count         INTEGER NOT NULL DEFAULT 0,
    trade_count        INTEGER NOT NULL DEFAULT 0,
    win_rate           INTEGER NOT NULL DEFAULT 0,
    duration_seconds   INTEGER,
    avg_trade_interval REAL
);

CREATE TABLE IF NOT EXISTS trades (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id    TEXT NOT NULL,
    timestamp     TEXT NOT NULL,
    confirmations TEXT NOT NULL,
    result        TEXT NOT NULL CHECK (result IN ('win', 'loss', 'draw')),
    loss_reasons  TEXT
);

CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_trades_session   ON trades(session_id, timestamp);
`

// tsLayout tiene ancho fijo para que el orden lexicográfico sea cronológico.
const tsLayout = "2006-01-02T15:04:05.000000000Z"

const sessionColumns = `id, started_at, starting_balance, closing_balance, ended_at,
       win_count, loss_count, trade_count, win_rate, duration_seconds, avg_trade_interval`

// SQLiteStorage implementa ports.JournalStorage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

var _ ports.JournalStorage = (*SQLiteStorage)(nil)

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada y aplica el schema.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

// NewFromDB envuelve una conexión ya abierta sin aplicar el schema.
func NewFromDB(db *sql.DB) *SQLiteStorage {
	return &SQLiteStorage{db: db}
}

// CreateSession inserta una sesión nueva (contadores a cero).
func (s *SQLiteStorage) CreateSession(ctx context.Context, sess domain.Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, started_at, starting_balance, win_count, loss_count, trade_count, win_rate)
		VALUES (?, ?, ?, 0, 0, 0, 0)`,
		sess.ID, formatTS(sess.StartedAt), sess.StartingBalance,
	)
	if err != nil {
		return fmt.Errorf("storage.CreateSession: %w", err)
	}
	return nil
}

// FetchSessions devuelve todas las sesiones, las más recientes primero.
func (s *SQLiteStorage) FetchSessions(ctx context.Context) ([]domain.Session, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sessionColumns+` FROM sessions ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("storage.FetchSessions: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("storage.FetchSessions: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// GetSession devuelve la sesión o domain.ErrNotFound.
func (s *SQLiteStorage) GetSession(ctx context.Context, id string) (domain.Session, error) {
	sess, err := getSession(ctx, s.db, id)
	if err != nil {
		return domain.Session{}, fmt.Errorf("storage.GetSession: %w", err)
	}
	return sess, nil
}

// FetchSessionTrades devuelve los trades de la sesión ascendentes por timestamp.
func (s *SQLiteStorage) FetchSessionTrades(ctx context.Context, sessionID string) ([]domain.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, timestamp, confirmations, result, loss_reasons
		FROM trades WHERE session_id = ?
		ORDER BY timestamp ASC, id ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("storage.FetchSessionTrades: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("storage.FetchSessionTrades: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// LogTrade inserta el trade y actualiza los contadores en una transacción.
func (s *SQLiteStorage) LogTrade(ctx context.Context, t domain.Trade) (domain.Trade, domain.Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Trade{}, domain.Session{}, fmt.Errorf("storage.LogTrade: begin tx: %w", err)
	}
	defer tx.Rollback()

	sess, err := getSession(ctx, tx, t.SessionID)
	if err != nil {
		return domain.Trade{}, domain.Session{}, fmt.Errorf("storage.LogTrade: %w", err)
	}
	if err := domain.CanLog(sess); err != nil {
		return domain.Trade{}, domain.Session{}, fmt.Errorf("storage.LogTrade: %w", err)
	}

	confs, err := json.Marshal(t.Confirmations)
	if err != nil {
		return domain.Trade{}, domain.Session{}, fmt.Errorf("storage.LogTrade: marshal confirmations: %w", err)
	}
	var reasons *string
	if len(t.LossReasons) > 0 {
		b, err := json.Marshal(t.LossReasons)
		if err != nil {
			return domain.Trade{}, domain.Session{}, fmt.Errorf("storage.LogTrade: marshal loss reasons: %w", err)
		}
		r := string(b)
		reasons = &r
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO trades (session_id, timestamp, confirmations, result, loss_reasons)
		VALUES (?, ?, ?, ?, ?)`,
		t.SessionID, formatTS(t.Timestamp), string(confs), string(t.Result), reasons,
	)
	if err != nil {
		return domain.Trade{}, domain.Session{}, fmt.Errorf("storage.LogTrade: insert trade: %w", err)
	}
	if t.ID, err = res.LastInsertId(); err != nil {
		return domain.Trade{}, domain.Session{}, fmt.Errorf("storage.LogTrade: trade id: %w", err)
	}

	sess.Counters = domain.ApplyTradeLogged(sess.Counters, t.Result)
	if err := updateCounters(ctx, tx, sess); err != nil {
		return domain.Trade{}, domain.Session{}, fmt.Errorf("storage.LogTrade: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.Trade{}, domain.Session{}, fmt.Errorf("storage.LogTrade: commit: %w", err)
	}
	return t, sess, nil
}

// DeleteTrade borra el trade y revierte los contadores en una transacción.
func (s *SQLiteStorage) DeleteTrade(ctx context.Context, tradeID int64) (domain.Trade, domain.Session, domain.DeleteOutcome, error) {
	fail := func(err error) (domain.Trade, domain.Session, domain.DeleteOutcome, error) {
		return domain.Trade{}, domain.Session{}, domain.DeleteOutcome{}, fmt.Errorf("storage.DeleteTrade: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fail(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback()

	t, err := scanTrade(tx.QueryRowContext(ctx, `
		SELECT id, session_id, timestamp, confirmations, result, loss_reasons
		FROM trades WHERE id = ?`, tradeID))
	if errors.Is(err, sql.ErrNoRows) {
		return fail(fmt.Errorf("trade %d: %w", tradeID, domain.ErrNotFound))
	}
	if err != nil {
		return fail(err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM trades WHERE id = ?`, tradeID); err != nil {
		return fail(fmt.Errorf("delete trade: %w", err))
	}

	sess, err := getSession(ctx, tx, t.SessionID)
	if err != nil {
		return fail(err)
	}
	outcome := domain.ApplyTradeDeleted(sess.Counters, t.Result)
	if outcome.Clamped {
		slog.Warn("ledger counters clamped at zero",
			"session_id", sess.ID,
			"trade_id", tradeID,
			"result", t.Result,
		)
	}
	sess.Counters = outcome.Counters
	if err := updateCounters(ctx, tx, sess); err != nil {
		return fail(err)
	}

	if err := tx.Commit(); err != nil {
		return fail(fmt.Errorf("commit: %w", err))
	}
	return t, sess, outcome, nil
}

// DeleteSession borra la sesión y todos sus trades.
func (s *SQLiteStorage) DeleteSession(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.DeleteSession: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM trades WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("storage.DeleteSession: delete trades: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("storage.DeleteSession: delete session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("storage.DeleteSession: session %s: %w", id, domain.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.DeleteSession: commit: %w", err)
	}
	return nil
}

// EndSession fija el balance de cierre y los valores calculados al cerrar.
// Solo actúa sobre sesiones todavía activas.
func (s *SQLiteStorage) EndSession(ctx context.Context, req ports.EndSessionRequest) (domain.Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Session{}, fmt.Errorf("storage.EndSession: begin tx: %w", err)
	}
	defer tx.Rollback()

	sess, err := getSession(ctx, tx, req.SessionID)
	if err != nil {
		return domain.Session{}, fmt.Errorf("storage.EndSession: %w", err)
	}
	if err := domain.ValidateEnd(sess); err != nil {
		return domain.Session{}, fmt.Errorf("storage.EndSession: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE sessions
		SET closing_balance = ?, ended_at = ?, duration_seconds = ?, avg_trade_interval = ?
		WHERE id = ? AND closing_balance IS NULL`,
		req.ClosingBalance.String(), formatTS(req.EndedAt), req.DurationSeconds,
		req.AvgTradeInterval, req.SessionID,
	); err != nil {
		return domain.Session{}, fmt.Errorf("storage.EndSession: update: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.Session{}, fmt.Errorf("storage.EndSession: commit: %w", err)
	}

	ended := req.EndedAt
	dur := req.DurationSeconds
	sess.ClosingBalance = decimal.NewNullDecimal(req.ClosingBalance)
	sess.EndedAt = &ended
	sess.DurationSeconds = &dur
	sess.AvgTradeInterval = req.AvgTradeInterval
	return sess, nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

type rowScanner interface {
	Scan(dest ...any) error
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getSession(ctx context.Context, q queryer, id string) (domain.Session, error) {
	sess, err := scanSession(q.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Session{}, fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}
	return sess, err
}

func updateCounters(ctx context.Context, tx *sql.Tx, sess domain.Session) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE sessions SET win_count = ?, loss_count = ?, trade_count = ?, win_rate = ?
		WHERE id = ?`,
		sess.Wins, sess.Losses, sess.Trades, sess.WinRate, sess.ID,
	)
	if err != nil {
		return fmt.Errorf("update counters: %w", err)
	}
	return nil
}

func scanSession(r rowScanner) (domain.Session, error) {
	var sess domain.Session
	var startedAt string
	var endedAt sql.NullString
	var duration sql.NullInt64
	var interval sql.NullFloat64

	if err := r.Scan(
		&sess.ID, &startedAt, &sess.StartingBalance, &sess.ClosingBalance, &endedAt,
		&sess.Wins, &sess.Losses, &sess.Trades, &sess.WinRate, &duration, &interval,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Session{}, err
		}
		return domain.Session{}, fmt.Errorf("scan session: %w", err)
	}

	sess.StartedAt = parseTS(startedAt)
	if endedAt.Valid {
		t := parseTS(endedAt.String)
		sess.EndedAt = &t
	}
	if duration.Valid {
		d := duration.Int64
		sess.DurationSeconds = &d
	}
	if interval.Valid {
		v := interval.Float64
		sess.AvgTradeInterval = &v
	}
	return sess, nil
}

func scanTrade(r rowScanner) (domain.Trade, error) {
	var t domain.Trade
	var ts, confs, result string
	var reasons sql.NullString

	if err := r.Scan(&t.ID, &t.SessionID, &ts, &confs, &result, &reasons); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Trade{}, err
		}
		return domain.Trade{}, fmt.Errorf("scan trade: %w", err)
	}

	t.Timestamp = parseTS(ts)
	t.Result = domain.TradeResult(result)
	if err := json.Unmarshal([]byte(confs), &t.Confirmations); err != nil {
		return domain.Trade{}, fmt.Errorf("decode confirmations of trade %d: %w", t.ID, err)
	}
	if reasons.Valid && reasons.String != "" {
		if err := json.Unmarshal([]byte(reasons.String), &t.LossReasons); err != nil {
			return domain.Trade{}, fmt.Errorf("decode loss reasons of trade %d: %w", t.ID, err)
		}
	}
	return t, nil
}

func formatTS(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

func parseTS(s string) time.Time {
	t, err := time.Parse(tsLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t
}

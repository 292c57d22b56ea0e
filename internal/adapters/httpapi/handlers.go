package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/alejandrodnm/tradejournal/internal/application/journal"
	"github.com/alejandrodnm/tradejournal/internal/domain"
	"github.com/alejandrodnm/tradejournal/internal/ports"
	"github.com/gorilla/mux"
)

// Handler sirve la API del diario. El servidor no guarda estado de cliente:
// el puntero a la sesión activa vive en cada cliente.
type Handler struct {
	journal *journal.Service
	buckets ports.BucketQuerier
	now     func() time.Time
}

// NewHandler crea un Handler.
func NewHandler(svc *journal.Service, buckets ports.BucketQuerier) *Handler {
	return &Handler{journal: svc, buckets: buckets, now: time.Now}
}

// ListSessions GET /sessions
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.journal.Sessions(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, newSessionResponse(s))
	}
	writeJSON(w, http.StatusOK, out)
}

// StartSession POST /sessions
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	sess, err := h.journal.StartSession(r.Context(), nil, string(req.StartingBalance))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newSessionResponse(sess))
}

// GetSession GET /sessions/{id}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.journal.Session(r.Context(), nil, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(sess))
}

// GetSessionClock GET /sessions/{id}/clock
func (h *Handler) GetSessionClock(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sess, err := h.journal.Session(r.Context(), nil, id)
	if err != nil {
		writeError(w, err)
		return
	}
	trades, err := h.journal.SessionTrades(r.Context(), nil, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newClockResponse(domain.SnapshotSession(sess, trades, h.now())))
}

// ListTrades GET /sessions/{id}/trades
func (h *Handler) ListTrades(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	// Distinguir sesión inexistente de sesión sin trades.
	if _, err := h.journal.Session(r.Context(), nil, id); err != nil {
		writeError(w, err)
		return
	}
	trades, err := h.journal.SessionTrades(r.Context(), nil, id)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]TradeResponse, 0, len(trades))
	for _, t := range trades {
		out = append(out, newTradeResponse(t))
	}
	writeJSON(w, http.StatusOK, out)
}

// LogTrade POST /sessions/{id}/trades
func (h *Handler) LogTrade(w http.ResponseWriter, r *http.Request) {
	var req logTradeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := domain.ParseTradeResult(req.Result)
	if err != nil {
		writeError(w, err)
		return
	}
	in := journal.LogTradeRequest{
		SessionID:     mux.Vars(r)["id"],
		Confirmations: req.Confirmations,
		Result:        result,
		LossReasons:   req.LossReasons,
	}
	if req.Timestamp != nil {
		in.Timestamp = *req.Timestamp
	}

	trade, sess, err := h.journal.LogTrade(r.Context(), nil, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, LogTradeResponse{
		Trade:   newTradeResponse(trade),
		Session: newSessionResponse(sess),
	})
}

// EndSession POST /sessions/{id}/end
func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	var req endSessionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	sess, err := h.journal.EndSession(r.Context(), nil, mux.Vars(r)["id"], string(req.ClosingBalance))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(sess))
}

// DeleteSession DELETE /sessions/{id}
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.journal.DeleteSession(r.Context(), nil, mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteTrade DELETE /trades/{id}
func (h *Handler) DeleteTrade(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, errors.Join(domain.ErrValidation, err))
		return
	}
	res, err := h.journal.DeleteTrade(r.Context(), nil, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteTradeResponse{
		Trade:   newTradeResponse(res.Trade),
		Session: newSessionResponse(res.Session),
		Emptied: res.Emptied,
	})
}

// GetBucket GET /buckets/{granularity}/{year}/{index}
// Responde null cuando no hay datos para el bucket.
func (h *Handler) GetBucket(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	g, err := domain.ParseGranularity(vars["granularity"])
	if err != nil {
		writeError(w, err)
		return
	}
	year, errYear := strconv.Atoi(vars["year"])
	index, errIndex := strconv.Atoi(vars["index"])
	if err := errors.Join(errYear, errIndex); err != nil {
		writeError(w, errors.Join(domain.ErrValidation, err))
		return
	}

	spec := domain.BucketSpec{Year: year, Granularity: g, Index: index}
	stats, err := h.buckets.QueryBucket(r.Context(), spec)
	if err != nil {
		writeError(w, err)
		return
	}
	if stats == nil {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, newBucketResponse(spec, *stats))
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body", Details: err.Error()})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write response failed", "err", err)
	}
}

// writeError traduce la taxonomía de errores del dominio a códigos HTTP.
func writeError(w http.ResponseWriter, err error) {
	status, msg := http.StatusInternalServerError, "internal error"
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status, msg = http.StatusNotFound, "not found"
	case errors.Is(err, domain.ErrValidation):
		status, msg = http.StatusBadRequest, "validation failed"
	case errors.Is(err, domain.ErrSessionActive):
		status, msg = http.StatusConflict, "session already active"
	default:
		slog.Error("request failed", "err", err)
	}
	writeJSON(w, status, ErrorResponse{Error: msg, Details: err.Error()})
}

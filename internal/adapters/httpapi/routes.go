package httpapi

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter registra las rutas de la API.
//
//	/api/v1/
//	  ├── GET    /sessions
//	  ├── POST   /sessions
//	  ├── GET    /sessions/{id}
//	  ├── DELETE /sessions/{id}
//	  ├── GET    /sessions/{id}/clock
//	  ├── GET    /sessions/{id}/trades
//	  ├── POST   /sessions/{id}/trades
//	  ├── POST   /sessions/{id}/end
//	  ├── DELETE /trades/{id}
//	  └── GET    /buckets/{granularity}/{year}/{index}
//	/metrics
//	/health
func NewRouter(h *Handler) *mux.Router {
	router := mux.NewRouter()
	router.Use(recovery)
	router.Use(logging)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/sessions", h.ListSessions).Methods(http.MethodGet)
	api.HandleFunc("/sessions", h.StartSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}", h.GetSession).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", h.DeleteSession).Methods(http.MethodDelete)
	api.HandleFunc("/sessions/{id}/clock", h.GetSessionClock).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/trades", h.ListTrades).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/trades", h.LogTrade).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/end", h.EndSession).Methods(http.MethodPost)
	api.HandleFunc("/trades/{id:[0-9]+}", h.DeleteTrade).Methods(http.MethodDelete)
	api.HandleFunc("/buckets/{granularity}/{year:[0-9]+}/{index:[0-9]+}", h.GetBucket).Methods(http.MethodGet)

	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	return router
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"elapsed", time.Since(start),
		)
	})
}

func recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("panic in handler", "panic", rec, "stack", string(debug.Stack()))
				writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

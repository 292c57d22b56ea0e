package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/alejandrodnm/tradejournal/internal/adapters/httpapi"
	"github.com/alejandrodnm/tradejournal/internal/application/analytics"
)

func (a *app) cmdServe(ctx context.Context) error {
	handler := httpapi.NewHandler(a.journal, analytics.NewAggregator(a.store, a.cal))
	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           httpapi.NewRouter(handler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("journal API listening", "addr", srv.Addr, "week_mode", a.cal.Mode, "timezone", a.cal.Loc.String())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	slog.Info("journal API stopped cleanly")
	return nil
}

package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/alejandrodnm/tradejournal/internal/application/display"
)

// tradePollInterval es cada cuánto watch relee los trades de la sesión.
const tradePollInterval = 5 * time.Second

func (a *app) cmdWatch(ctx context.Context, args []string) error {
	sess, err := a.journal.Session(ctx, a.state, firstArg(args))
	if err != nil {
		return err
	}
	trades, err := a.journal.SessionTrades(ctx, a.state, sess.ID)
	if err != nil {
		return err
	}

	clock := display.NewClock(a.console, a.cfg.ClockTick())
	clock.Watch(sess, trades)
	defer clock.Stop()

	if !sess.IsActive() {
		a.console.Println()
		return nil
	}

	poll := time.NewTicker(tradePollInterval)
	defer poll.Stop()
	for {
		select {
		case <-ctx.Done():
			a.console.Println()
			return nil
		case <-poll.C:
			current, err := a.journal.Session(ctx, a.state, sess.ID)
			if err != nil {
				slog.Warn("session refresh failed", "session_id", sess.ID, "err", err)
				continue
			}
			if !current.IsActive() {
				// Cerrada desde otro proceso: mostrar los valores persistidos.
				clock.Watch(current, nil)
				a.console.Println()
				return nil
			}
			trades, err := a.journal.SessionTrades(ctx, a.state, sess.ID)
			if err != nil {
				slog.Warn("trade refresh failed", "session_id", sess.ID, "err", err)
				continue
			}
			clock.TradesChanged(sess.ID, trades)
		}
	}
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/alejandrodnm/tradejournal/internal/application/journal"
	"github.com/alejandrodnm/tradejournal/internal/domain"
)

func (a *app) cmdStart(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("start", flag.ContinueOnError)
	balance := fs.String("balance", "", "starting balance (optional)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sess, err := a.journal.StartSession(ctx, a.state, *balance)
	if err != nil {
		return err
	}
	a.console.PrintSession(sess)
	return nil
}

func (a *app) cmdLog(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("log", flag.ContinueOnError)
	result := fs.String("result", "", "win | loss | draw")
	confirm := fs.String("confirm", "", "comma-separated confirmations (default: last used)")
	reasons := fs.String("reasons", "", "comma-separated loss reasons")
	session := fs.String("session", "", "session id (default: active session)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	r, err := domain.ParseTradeResult(*result)
	if err != nil {
		return err
	}
	trade, sess, err := a.journal.LogTrade(ctx, a.state, journal.LogTradeRequest{
		SessionID:     *session,
		Confirmations: splitTags(*confirm),
		Result:        r,
		LossReasons:   splitTags(*reasons),
	})
	if err != nil {
		return err
	}
	a.console.Println(fmt.Sprintf("trade #%d logged (%s) · %d trades · win rate %d%%",
		trade.ID, trade.Result, sess.Trades, sess.WinRate))
	return nil
}

func (a *app) cmdUndo(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: undo needs exactly one trade id", domain.ErrValidation)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("%w: trade id %q", domain.ErrValidation, args[0])
	}

	res, err := a.journal.DeleteTrade(ctx, a.state, id)
	if errors.Is(err, domain.ErrNotFound) {
		// Borrar algo que ya no existe es un no-op visible, no un fallo.
		a.console.Println(fmt.Sprintf("trade #%d not found, nothing to undo", id))
		return nil
	}
	if err != nil {
		return err
	}
	a.console.Println(fmt.Sprintf("trade #%d removed · %d trades · win rate %d%%",
		id, res.Session.Trades, res.Session.WinRate))
	if res.ImplicitEnd {
		a.console.Println("session has no trades left; it is no longer the active session")
	}
	return nil
}

func (a *app) cmdEnd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("end", flag.ContinueOnError)
	balance := fs.String("balance", "", "closing balance (required)")
	session := fs.String("session", "", "session id (default: active session)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sess, err := a.journal.EndSession(ctx, a.state, *session, *balance)
	if err != nil {
		return err
	}
	a.console.PrintSession(sess)
	return nil
}

func (a *app) cmdDelete(ctx context.Context, args []string) error {
	id := firstArg(args)
	err := a.journal.DeleteSession(ctx, a.state, id)
	if errors.Is(err, domain.ErrNotFound) {
		a.console.Println(fmt.Sprintf("session %q not found, nothing to delete", id))
		return nil
	}
	if err != nil {
		return err
	}
	a.console.Println("session deleted")
	return nil
}

func (a *app) cmdShow(ctx context.Context, args []string) error {
	sess, err := a.journal.Session(ctx, a.state, firstArg(args))
	if err != nil {
		return err
	}
	a.console.PrintSession(sess)
	return nil
}

func (a *app) cmdSessions(ctx context.Context) error {
	sessions, err := a.journal.Sessions(ctx)
	if err != nil {
		return err
	}
	a.console.PrintSessions(sessions)
	return nil
}

func (a *app) cmdTrades(ctx context.Context, args []string) error {
	trades, err := a.journal.SessionTrades(ctx, a.state, firstArg(args))
	if err != nil {
		return err
	}
	a.console.PrintTrades(trades)
	return nil
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func splitTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Split(s, ",")
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/tradejournal/config"
	"github.com/alejandrodnm/tradejournal/internal/adapters/notify"
	"github.com/alejandrodnm/tradejournal/internal/adapters/storage"
	"github.com/alejandrodnm/tradejournal/internal/application/journal"
	"github.com/alejandrodnm/tradejournal/internal/domain"
)

const usage = `usage: journal [-config path] [-verbose] [-format text|json] <command> [args]

commands:
  start   [-balance N]                        open a session
  log     -result win|loss|draw [-confirm a,b] [-reasons x,y] [-session ID]
  undo    <tradeID>                           delete a trade
  end     -balance N [-session ID]            close a session
  delete  [sessionID]                         delete a session and its trades
  show    [sessionID]                         session summary
  sessions                                    list sessions
  trades  [sessionID]                         list trades
  report  [-granularity month|week] [-year Y | -rolling] [-move N] [-reset] [-remote URL] [-animate]
  watch   [sessionID]                         live session clock
  serve                                       run the HTTP API
`

// app agrupa las dependencias compartidas por los comandos.
type app struct {
	cfg     *config.Config
	cal     domain.Calendar
	store   *storage.SQLiteStorage
	journal *journal.Service
	state   *journal.ClientState
	console *notify.Console
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	cal, err := cfg.Calendar()
	if err != nil {
		slog.Error("invalid calendar config", "err", err)
		os.Exit(1)
	}

	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	state, err := journal.LoadClientState(cfg.Client.StateFile)
	if err != nil {
		slog.Error("failed to load client state", "err", err, "path", cfg.Client.StateFile)
		os.Exit(1)
	}

	a := &app{
		cfg:     cfg,
		cal:     cal,
		store:   store,
		journal: journal.NewService(store),
		state:   state,
		console: notify.NewConsole(cal.Loc),
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := a.run(ctx, flag.Arg(0), flag.Args()[1:]); err != nil {
		slog.Error("command failed", "command", flag.Arg(0), "err", err)
		cancel()
		store.Close()
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "start":
		return a.cmdStart(ctx, args)
	case "log":
		return a.cmdLog(ctx, args)
	case "undo":
		return a.cmdUndo(ctx, args)
	case "end":
		return a.cmdEnd(ctx, args)
	case "delete":
		return a.cmdDelete(ctx, args)
	case "show":
		return a.cmdShow(ctx, args)
	case "sessions":
		return a.cmdSessions(ctx)
	case "trades":
		return a.cmdTrades(ctx, args)
	case "report":
		return a.cmdReport(ctx, args)
	case "watch":
		return a.cmdWatch(ctx, args)
	case "serve":
		return a.cmdServe(ctx)
	}
	fmt.Fprint(os.Stderr, usage)
	return fmt.Errorf("unknown command %q", cmd)
}

// setupLogger escribe a stderr: stdout queda para tablas y el reloj.
func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

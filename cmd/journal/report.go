package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/alejandrodnm/tradejournal/internal/adapters/remote"
	"github.com/alejandrodnm/tradejournal/internal/application/analytics"
	"github.com/alejandrodnm/tradejournal/internal/application/display"
	"github.com/alejandrodnm/tradejournal/internal/application/navigator"
	"github.com/alejandrodnm/tradejournal/internal/domain"
	"github.com/alejandrodnm/tradejournal/internal/ports"
)

func (a *app) cmdReport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	gran := fs.String("granularity", "month", "month | week")
	year := fs.Int("year", 0, "calendar year (default: rolling window)")
	rolling := fs.Bool("rolling", false, "last 12 months / 52 weeks")
	move := fs.Int("move", 0, "shift the centered bucket by N positions")
	reset := fs.Bool("reset", false, "walk back to the current period after moving")
	remoteURL := fs.String("remote", a.cfg.Remote.BaseURL, "query buckets from a remote journal API")
	animate := fs.Bool("animate", false, "animate the centered win rate from its baseline")
	if err := fs.Parse(args); err != nil {
		return err
	}

	g, err := domain.ParseGranularity(*gran)
	if err != nil {
		return err
	}
	scope := navigator.RollingScope()
	if *year > 0 && !*rolling {
		scope = navigator.YearScope(*year)
	}

	var querier ports.BucketQuerier = analytics.NewAggregator(a.store, a.cal)
	if *remoteURL != "" {
		querier = remote.NewClient(*remoteURL, a.cfg.Navigator.FetchRatePerSec)
	}
	nav := navigator.New(querier, a.cal, navigator.Config{
		Workers:    a.cfg.Navigator.FetchWorkers,
		RatePerSec: a.cfg.Navigator.FetchRatePerSec,
		StepDelay:  a.cfg.StepDelay(),
	})

	if err := nav.Select(ctx, scope, g); err != nil {
		return err
	}
	// La comparación usa el periodo actual; con un año pasado hace falta
	// tenerlo en caché también.
	if !scope.Rolling {
		if y, _ := a.cal.CurrentPeriod(time.Now(), g); y != scope.Year {
			if err := nav.Select(ctx, navigator.YearScope(y), g); err != nil {
				return err
			}
			if err := nav.Select(ctx, scope, g); err != nil {
				return err
			}
		}
	}

	if *move != 0 {
		nav.Move(*move)
	}
	a.console.PrintWindow(nav.Status(), nav.Window())
	cmp, ok := nav.Comparison()
	a.console.PrintComparison(cmp, ok)

	if *animate && ok {
		from := float64(cmp.Centered.Stats.WinRate)
		if cmp.HasBaseline {
			from = float64(cmp.Baseline.Stats.WinRate)
		}
		counter := display.NewCounter(from, display.DefaultFrame, a.console.CounterFrame("win rate", "%.0f%%"))
		counter.Set(float64(cmp.Centered.Stats.WinRate))
		select {
		case <-counter.Done():
		case <-ctx.Done():
			counter.Stop()
		}
		a.console.Println()
	}

	if *reset && len(nav.ResetPath()) > 0 {
		err := nav.WalkReset(ctx, func(pos int) {
			a.console.Println(fmt.Sprintf("→ position %d", pos))
		})
		if err != nil {
			return err
		}
		a.console.PrintWindow(nav.Status(), nav.Window())
	}
	return nil
}

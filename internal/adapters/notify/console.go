package notify

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/alejandrodnm/tradejournal/internal/application/navigator"
	"github.com/alejandrodnm/tradejournal/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// Console pinta sesiones, trades, la ventana de buckets y el reloj en un
// terminal. Implementa ports.ClockSink.
type Console struct {
	mu  sync.Mutex
	out io.Writer
	loc *time.Location
}

// NewConsole crea un renderer que escribe a stdout en la zona dada.
func NewConsole(loc *time.Location) *Console {
	return NewConsoleWriter(os.Stdout, loc)
}

// NewConsoleWriter crea un renderer sobre w (tests).
func NewConsoleWriter(w io.Writer, loc *time.Location) *Console {
	if loc == nil {
		loc = time.UTC
	}
	return &Console{out: w, loc: loc}
}

// PrintSessions imprime la lista de sesiones, las más recientes primero.
func (c *Console) PrintSessions(sessions []domain.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(sessions) == 0 {
		fmt.Fprintln(c.out, "no sessions yet")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Session", "Started", "State", "Trades", "W/L/D", "Win%", "Earnings", "Duration", "Interval")
	for _, s := range sessions {
		snap := domain.SnapshotSession(s, nil, time.Now())
		duration, interval := snap.DurationLabel(), domain.FormatIntervalPtr(s.AvgTradeInterval)
		if s.IsActive() {
			// El intervalo de una sesión activa requiere sus trades: ver "watch".
			interval = domain.IntervalSentinel
		}
		table.Append(
			shortID(s.ID),
			s.StartedAt.In(c.loc).Format("2006-01-02 15:04"),
			string(s.State()),
			strconv.Itoa(s.Trades),
			fmt.Sprintf("%d/%d/%d", s.Wins, s.Losses, s.Draws()),
			fmt.Sprintf("%d%%", s.WinRate),
			earningsLabel(s),
			duration,
			interval,
		)
	}
	table.Render()
}

// PrintSession imprime el resumen de una sesión.
func (c *Console) PrintSession(s domain.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, "session %s [%s]\n", s.ID, s.State())
	fmt.Fprintf(c.out, "  started   %s\n", s.StartedAt.In(c.loc).Format("2006-01-02 15:04:05"))
	fmt.Fprintf(c.out, "  trades    %d (W %d / L %d / D %d)  win rate %d%%\n",
		s.Trades, s.Wins, s.Losses, s.Draws(), s.WinRate)
	if s.StartingBalance.Valid {
		fmt.Fprintf(c.out, "  starting  %s\n", s.StartingBalance.Decimal.StringFixed(2))
	}
	if !s.IsActive() {
		fmt.Fprintf(c.out, "  closing   %s  earnings %s\n", s.ClosingBalance.Decimal.StringFixed(2), earningsLabel(s))
		dur := int64(0)
		if s.DurationSeconds != nil {
			dur = *s.DurationSeconds
		}
		fmt.Fprintf(c.out, "  duration  %s  avg interval %s\n",
			domain.FormatDuration(dur), domain.FormatIntervalPtr(s.AvgTradeInterval))
	}
}

// PrintTrades imprime los trades de una sesión en orden cronológico.
func (c *Console) PrintTrades(trades []domain.Trade) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(trades) == 0 {
		fmt.Fprintln(c.out, "no trades in this session")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Time", "Result", "Confirmations", "Loss reasons")
	for _, t := range domain.SortByTimestamp(trades) {
		table.Append(
			strconv.FormatInt(t.ID, 10),
			t.Timestamp.In(c.loc).Format("15:04:05"),
			strings.ToUpper(string(t.Result)),
			strings.Join(t.Confirmations, ", "),
			strings.Join(t.LossReasons, ", "),
		)
	}
	table.Render()
}

// PrintWindow imprime la ventana visible de buckets. El centrado va
// marcado con ">", el periodo actual con "*" y los deshabilitados sin cifras.
func (c *Console) PrintWindow(status navigator.Status, slots []navigator.Slot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, "%s · %s", status.Scope, status.Granularity)
	if status.Failed > 0 {
		fmt.Fprintf(c.out, " · %d bucket(s) unavailable", status.Failed)
	}
	fmt.Fprintln(c.out)
	if len(slots) == 0 {
		fmt.Fprintln(c.out, "no data loaded")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("", "Bucket", "Trades", "Win%", "Sessions", "Earnings")
	for _, s := range slots {
		mark := ""
		if s.Centered {
			mark = ">"
		}
		if s.Current {
			mark += "*"
		}
		if s.Disabled {
			note := "-"
			if s.Placeholder {
				note = "n/a"
			}
			table.Append(mark, s.BucketSpec.String(), note, note, note, note)
			continue
		}
		table.Append(
			mark,
			s.BucketSpec.String(),
			strconv.Itoa(s.Stats.Trades),
			fmt.Sprintf("%d%%", s.Stats.WinRate),
			strconv.Itoa(s.Stats.Sessions),
			s.Stats.Earnings.StringFixed(2),
		)
	}
	table.Render()
}

// PrintComparison imprime la comparación del bucket centrado.
func (c *Console) PrintComparison(cmp navigator.Comparison, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !ok {
		fmt.Fprintln(c.out, "centered bucket has no trades to compare")
		return
	}
	if !cmp.HasBaseline {
		fmt.Fprintf(c.out, "%s: no baseline available\n", cmp.Centered.BucketSpec)
		return
	}
	fmt.Fprintf(c.out, "%s vs %s: win rate %s pts, trades %s, earnings %s\n",
		cmp.Centered.BucketSpec, cmp.Baseline.BucketSpec,
		signed(cmp.WinRateDelta), signed(cmp.TradesDelta), signedDecimal(cmp.EarningsDelta.StringFixed(2)))
}

// ClockTick reescribe la línea del reloj de sesión.
func (c *Console) ClockTick(snap domain.ClockSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	state := "ended"
	if snap.Active {
		state = "live"
	}
	fmt.Fprintf(c.out, "\r[%s %s] duration %s · avg interval %s   ",
		shortID(snap.SessionID), state, snap.DurationLabel(), snap.IntervalLabel())
}

// CounterFrame devuelve un callback para display.Counter que reescribe
// una línea "label value".
func (c *Console) CounterFrame(label, format string) func(v float64) {
	return func(v float64) {
		c.mu.Lock()
		defer c.mu.Unlock()
		fmt.Fprintf(c.out, "\r%s "+format+"   ", label, v)
	}
}

// Println imprime una línea suelta sincronizada con el resto de la salida.
func (c *Console) Println(a ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, a...)
}

func earningsLabel(s domain.Session) string {
	e, ok := s.Earnings()
	if !ok {
		return "-"
	}
	return signedDecimal(e.StringFixed(2))
}

func signed(v int) string {
	if v > 0 {
		return "+" + strconv.Itoa(v)
	}
	return strconv.Itoa(v)
}

func signedDecimal(s string) string {
	if strings.HasPrefix(s, "-") || strings.Trim(s, "0.") == "" {
		return s
	}
	return "+" + s
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

package display

import (
	"context"
	"sync"
	"time"

	"github.com/alejandrodnm/tradejournal/internal/domain"
	"github.com/alejandrodnm/tradejournal/internal/ports"
)

// DefaultTick es el periodo del reloj de sesión activa.
const DefaultTick = time.Second

// Clock emite lecturas de duración e intervalo medio de la sesión vigilada.
// Con sesión activa emite una por tick; con sesión cerrada emite una sola
// con los valores persistidos. Cambiar de sesión cancela el tick anterior.
type Clock struct {
	sink ports.ClockSink
	tick time.Duration
	now  func() time.Time

	mu      sync.Mutex
	session domain.Session
	trades  []domain.Trade
	last    domain.ClockSnapshot
	watched bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewClock crea un reloj que publica en sink. tick <= 0 usa DefaultTick.
// sink.ClockTick se llama sin locks tomados y puede leer Snapshot, pero no
// debe llamar a Watch ni Stop: ambos esperan a la goroutine del tick.
func NewClock(sink ports.ClockSink, tick time.Duration) *Clock {
	if tick <= 0 {
		tick = DefaultTick
	}
	return &Clock{sink: sink, tick: tick, now: time.Now}
}

// WithClock sustituye la fuente de tiempo (tests).
func (c *Clock) WithClock(now func() time.Time) *Clock {
	c.now = now
	return c
}

// Watch empieza a vigilar la sesión. Cancela cualquier tick previo antes de
// tocar el estado, así nunca se opera sobre una sesión obsoleta.
func (c *Clock) Watch(s domain.Session, trades []domain.Trade) {
	c.Stop()

	c.mu.Lock()
	c.session = s
	c.trades = append([]domain.Trade(nil), trades...)
	c.last = domain.ClockSnapshot{}
	c.watched = true
	snap := c.snapshotLocked()
	var ctx context.Context
	if s.IsActive() {
		ctx, c.cancel = context.WithCancel(context.Background())
		c.done = make(chan struct{})
	}
	done := c.done
	c.mu.Unlock()

	c.emit(snap)
	if ctx != nil {
		go c.run(ctx, done)
	}
}

// TradesChanged recalcula el intervalo con la nueva lista de trades. Se
// ignora si sessionID no es la sesión vigilada.
func (c *Clock) TradesChanged(sessionID string, trades []domain.Trade) {
	c.mu.Lock()
	if !c.watched || c.session.ID != sessionID {
		c.mu.Unlock()
		return
	}
	c.trades = append([]domain.Trade(nil), trades...)
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.emit(snap)
}

// Stop cancela el tick y espera a que la goroutine termine.
func (c *Clock) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Snapshot devuelve la lectura actual sin esperar al siguiente tick.
func (c *Clock) Snapshot() domain.ClockSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Clock) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			snap := c.snapshotLocked()
			c.mu.Unlock()
			// Un Stop pudo llegar mientras se calculaba.
			if ctx.Err() != nil {
				return
			}
			c.emit(snap)
		}
	}
}

// snapshotLocked calcula la lectura garantizando que la duración no
// retrocede entre ticks de la misma sesión.
func (c *Clock) snapshotLocked() domain.ClockSnapshot {
	if !c.watched {
		return domain.ClockSnapshot{}
	}
	snap := domain.SnapshotSession(c.session, c.trades, c.now())
	if snap.Active && snap.SessionID == c.last.SessionID && snap.DurationSeconds < c.last.DurationSeconds {
		snap.DurationSeconds = c.last.DurationSeconds
	}
	c.last = snap
	return snap
}

func (c *Clock) emit(snap domain.ClockSnapshot) {
	if c.sink != nil {
		c.sink.ClockTick(snap)
	}
}

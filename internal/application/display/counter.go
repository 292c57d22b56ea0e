package display

import (
	"context"
	"sync"
	"time"

	"github.com/alejandrodnm/tradejournal/internal/domain"
)

// DefaultFrame es el periodo de frame de las animaciones (~60 fps).
const DefaultFrame = 16 * time.Millisecond

// Counter anima un valor numérico (win rate, earnings) hacia su objetivo.
// Un objetivo nuevo a mitad de animación cancela la actual y reanuda desde
// el valor mostrado, sin saltos.
type Counter struct {
	frame    time.Duration
	duration time.Duration
	onFrame  func(v float64)

	setMu  sync.Mutex // serializa Set/Stop
	mu     sync.Mutex
	value  float64
	cancel context.CancelFunc
	done   chan struct{}
}

// NewCounter crea un contador en initial. onFrame recibe cada valor
// intermedio; puede ser nil. Se invoca desde la goroutine de animación sin
// locks tomados: puede leer Value, pero no debe llamar a Set ni Stop, que
// esperan a que esa goroutine termine.
func NewCounter(initial float64, frame time.Duration, onFrame func(v float64)) *Counter {
	if frame <= 0 {
		frame = DefaultFrame
	}
	return &Counter{
		frame:    frame,
		duration: domain.CounterDuration,
		onFrame:  onFrame,
		value:    initial,
	}
}

// Value devuelve el valor mostrado ahora mismo.
func (c *Counter) Value() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Set anima hacia target y devuelve el valor desde el que arranca.
func (c *Counter) Set(target float64) float64 {
	c.setMu.Lock()
	defer c.setMu.Unlock()

	c.stopLocked()

	c.mu.Lock()
	from := c.value
	frames := domain.TweenFrames(from, target, c.duration, c.frame)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.cancel, c.done = cancel, done
	c.mu.Unlock()

	go c.run(ctx, frames, done)
	return from
}

// Stop cancela la animación en curso y deja el valor donde esté.
func (c *Counter) Stop() {
	c.setMu.Lock()
	defer c.setMu.Unlock()
	c.stopLocked()
}

// Done devuelve un canal que se cierra al terminar la animación actual.
func (c *Counter) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return c.done
}

func (c *Counter) stopLocked() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

func (c *Counter) run(ctx context.Context, frames []float64, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(c.frame)
	defer ticker.Stop()

	for _, v := range frames {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		c.mu.Lock()
		c.value = v
		c.mu.Unlock()
		if c.onFrame != nil {
			c.onFrame(v)
		}
	}
}

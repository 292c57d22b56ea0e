package domain

import (
	"math"
	"time"
)

// CounterDuration es la duración fija de la animación de contadores.
const CounterDuration = 1000 * time.Millisecond

// TweenFrames devuelve los valores ease-out-cubic de una transición de from
// a to, uno por frame. El último valor es exactamente to.
func TweenFrames(from, to float64, duration, frame time.Duration) []float64 {
	if frame <= 0 || duration <= frame {
		return []float64{to}
	}
	n := int(math.Ceil(float64(duration) / float64(frame)))
	out := make([]float64, n)
	for i := range n {
		p := float64(i+1) / float64(n)
		out[i] = from + (to-from)*easeOutCubic(p)
	}
	out[n-1] = to
	return out
}

func easeOutCubic(p float64) float64 {
	q := 1 - p
	return 1 - q*q*q
}

package raster

import (
	"errors"
	"fmt"
	"math"

	"terragen/internal/config"
)

var (
	ErrEmptyGradient     = errors.New("gradient needs at least one stop")
	ErrStopOutOfRange    = errors.New("gradient stop threshold outside [0,1]")
	ErrNonAscendingStops = errors.New("gradient stops not in ascending order")
)

// Stop is a gradient color anchored at a threshold in [0, 1].
type Stop struct {
	Threshold float64
	Color     Pixel
}

// Gradient maps a normalised value to a color by interpolating between
// stops. It is immutable once built.
type Gradient struct {
	stops []Stop
}

// NewGradient validates stops and builds a gradient. Stops must already be in
// non-decreasing threshold order; they are never re-sorted.
func NewGradient(stops ...Stop) (*Gradient, error) {
	if len(stops) == 0 {
		return nil, ErrEmptyGradient
	}
	for i, s := range stops {
		if s.Threshold < 0 || s.Threshold > 1 || math.IsNaN(s.Threshold) {
			return nil, fmt.Errorf("%w: stop %d has threshold %v", ErrStopOutOfRange, i, s.Threshold)
		}
		if i > 0 && s.Threshold < stops[i-1].Threshold {
			return nil, fmt.Errorf("%w: stop %d (%v) follows %v", ErrNonAscendingStops, i, s.Threshold, stops[i-1].Threshold)
		}
	}
	return &Gradient{stops: append([]Stop(nil), stops...)}, nil
}

// GradientFromConfig converts a config stop table.
func GradientFromConfig(stops []config.Stop) (*Gradient, error) {
	out := make([]Stop, len(stops))
	for i, s := range stops {
		out[i] = Stop{Threshold: s.Threshold, Color: Pixel(s.Color)}
	}
	return NewGradient(out...)
}

// DefaultGradient returns the terrain ramp from config.DefaultGradient.
func DefaultGradient() *Gradient {
	g, err := GradientFromConfig(config.DefaultGradient())
	if err != nil {
		panic(err)
	}
	return g
}

// At evaluates the gradient. Values below the first stop or at/above the
// last clamp to that stop's color.
func (g *Gradient) At(t float64) Pixel {
	first := g.stops[0]
	last := g.stops[len(g.stops)-1]
	if t < first.Threshold {
		return first.Color
	}
	if t >= last.Threshold {
		return last.Color
	}
	for i := 0; i < len(g.stops)-1; i++ {
		s0, s1 := g.stops[i], g.stops[i+1]
		if t >= s0.Threshold && t < s1.Threshold {
			ratio := (t - s0.Threshold) / (s1.Threshold - s0.Threshold)
			return lerpPixel(s0.Color, s1.Color, ratio)
		}
	}
	return last.Color
}

func lerpPixel(a, b Pixel, ratio float64) Pixel {
	var out Pixel
	for c := range out {
		out[c] = toByte(float64(a[c]) + (float64(b[c])-float64(a[c]))*ratio)
	}
	return out
}

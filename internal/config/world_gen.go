package config

import (
	"fmt"
	"time"
)

// Noise source names.
const (
	SourcePerlin  = "perlin"
	SourceSimplex = "simplex"
)

// Noise holds the fractal noise parameters.
type Noise struct {
	Source      string  `json:"source"`
	Frequency   float64 `json:"frequency"`
	Octaves     int     `json:"octaves"`
	Persistence float64 `json:"persistence"`
	Lacunarity  float64 `json:"lacunarity"`
	Seed        int64   `json:"seed"`
	// RandomSeed replaces Seed with a time-derived value when the seed is
	// resolved, so terrain differs between runs.
	RandomSeed bool `json:"random_seed"`
}

// DefaultNoise returns the default fractal settings.
func DefaultNoise() Noise {
	return Noise{
		Source:      SourceSimplex,
		Frequency:   0.05,
		Octaves:     4,
		Persistence: 0.5,
		Lacunarity:  2.0,
	}
}

// Validate checks the noise parameters.
func (n Noise) Validate() error {
	switch n.Source {
	case SourcePerlin, SourceSimplex:
	default:
		return fmt.Errorf("%w: unknown noise source %q", ErrInvalid, n.Source)
	}
	if n.Octaves < 1 {
		return fmt.Errorf("%w: octaves %d must be at least 1", ErrInvalid, n.Octaves)
	}
	if n.Frequency <= 0 || n.Lacunarity <= 0 || n.Persistence <= 0 {
		return fmt.Errorf("%w: frequency, lacunarity and persistence must be positive", ErrInvalid)
	}
	return nil
}

// ResolveSeed fixes the seed for this process. With RandomSeed set the seed is
// taken from now and RandomSeed is cleared, so the returned config is fully
// reproducible. The second return reports whether a new seed was drawn.
func (n Noise) ResolveSeed(now func() time.Time) (Noise, bool) {
	if !n.RandomSeed {
		return n, false
	}
	n.Seed = now().UnixNano()
	n.RandomSeed = false
	return n, true
}

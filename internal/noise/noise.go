package noise

import (
	"fmt"
	"math"

	"terragen/internal/config"

	"github.com/aquilax/go-perlin"
	"github.com/ojrac/opensimplex-go"
)

// Source is a single octave of 2D gradient noise, roughly in [-1, 1].
type Source interface {
	Eval2(x, y float64) float64
}

// perlinPeriod is the repeat length of go-perlin's 256-entry lattice.
const perlinPeriod = 256

// PerlinSource is classic Perlin noise over a seeded permutation table.
// The pattern tiles every perlinPeriod units on both axes.
type PerlinSource struct {
	p *perlin.Perlin
}

// NewPerlinSource builds a single-octave Perlin source. Octaves are layered
// by Field, not by the library.
func NewPerlinSource(seed int64) *PerlinSource {
	return &PerlinSource{p: perlin.NewPerlin(2, 2, 1, seed)}
}

// Eval2 wraps coordinates into one lattice period before sampling. The
// library's integer lattice breaks down below -4096, and the wrap keeps every
// finite input inside its valid range without changing the pattern.
func (s *PerlinSource) Eval2(x, y float64) float64 {
	return s.p.Noise2D(wrapPeriod(x), wrapPeriod(y))
}

func wrapPeriod(v float64) float64 {
	v = math.Mod(v, perlinPeriod)
	if v < 0 {
		v += perlinPeriod
	}
	return v
}

// SimplexSource is OpenSimplex noise; valid over the whole plane.
type SimplexSource struct {
	n opensimplex.Noise
}

func NewSimplexSource(seed int64) *SimplexSource {
	return &SimplexSource{n: opensimplex.New(seed)}
}

func (s *SimplexSource) Eval2(x, y float64) float64 {
	return s.n.Eval2(x, y)
}

// Field is a deterministic fractal noise function of (x, y). It holds no
// mutable state and is safe for concurrent use.
type Field struct {
	src         Source
	frequency   float64
	octaves     int
	persistence float64
	lacunarity  float64
	maxAmp      float64
}

// New builds a Field from config. The seed must already be resolved.
func New(cfg config.Noise) (*Field, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var src Source
	switch cfg.Source {
	case config.SourcePerlin:
		src = NewPerlinSource(cfg.Seed)
	case config.SourceSimplex:
		src = NewSimplexSource(cfg.Seed)
	default:
		return nil, fmt.Errorf("unknown noise source %q", cfg.Source)
	}
	return NewField(src, cfg.Frequency, cfg.Octaves, cfg.Persistence, cfg.Lacunarity), nil
}

// NewField layers octaves of src. octaves below 1 are treated as 1. The sum
// is normalised by the largest possible amplitude, Σ|persistence^i|.
func NewField(src Source, frequency float64, octaves int, persistence, lacunarity float64) *Field {
	octaves = max(octaves, 1)
	maxAmp := 0.0
	amplitude := 1.0
	for range octaves {
		maxAmp += math.Abs(amplitude)
		amplitude *= persistence
	}
	return &Field{
		src:         src,
		frequency:   frequency,
		octaves:     octaves,
		persistence: persistence,
		lacunarity:  lacunarity,
		maxAmp:      maxAmp,
	}
}

// Noise2D samples the base source once, without frequency scaling.
func (f *Field) Noise2D(x, y float64) float64 {
	return f.src.Eval2(x, y)
}

// Fractal sums the configured octaves of the source. Layer i samples at
// frequency*lacunarity^i with weight persistence^i, and the sum is divided by
// the largest possible amplitude so the result stays within the source's range.
func (f *Field) Fractal(x, y float64) float64 {
	amplitude := 1.0
	frequency := f.frequency
	sum := 0.0
	for range f.octaves {
		sum += f.src.Eval2(x*frequency, y*frequency) * amplitude
		amplitude *= f.persistence
		frequency *= f.lacunarity
	}
	return sum / f.maxAmp
}

package noise

import (
	"math"
	"math/rand"
	"testing"

	"terragen/internal/config"
)

func newTestField(t *testing.T, source string, seed int64) *Field {
	t.Helper()
	cfg := config.DefaultNoise()
	cfg.Source = source
	cfg.Seed = seed
	f, err := New(cfg)
	if err != nil {
		t.Fatalf("New(%q): %v", source, err)
	}
	return f
}

// TestFractalDeterministic verifies identical inputs give bit-identical output,
// also across independently constructed fields with the same seed.
func TestFractalDeterministic(t *testing.T) {
	for _, source := range []string{config.SourcePerlin, config.SourceSimplex} {
		f1 := newTestField(t, source, 42)
		f2 := newTestField(t, source, 42)
		for i := 0; i < 200; i++ {
			x := float64(i)*0.73 - 40
			y := float64(i)*1.37 - 90
			a := f1.Fractal(x, y)
			b := f1.Fractal(x, y)
			c := f2.Fractal(x, y)
			if math.Float64bits(a) != math.Float64bits(b) || math.Float64bits(a) != math.Float64bits(c) {
				t.Fatalf("%s: Fractal(%f, %f) not deterministic: %v %v %v", source, x, y, a, b, c)
			}
		}
	}
}

func TestFractalRange(t *testing.T) {
	rng := rand.New(rand.NewSource(12345))
	for _, source := range []string{config.SourcePerlin, config.SourceSimplex} {
		f := newTestField(t, source, 7)
		for i := 0; i < 2000; i++ {
			x := rng.Float64()*2000 - 1000
			y := rng.Float64()*2000 - 1000
			v := f.Fractal(x, y)
			if v < -1 || v > 1 {
				t.Fatalf("%s: Fractal(%f, %f) = %f, out of [-1,1]", source, x, y, v)
			}
		}
	}
}

func TestSeedChangesField(t *testing.T) {
	f1 := newTestField(t, config.SourceSimplex, 1)
	f2 := newTestField(t, config.SourceSimplex, 2)
	same := 0
	for i := 0; i < 50; i++ {
		x, y := float64(i)*3.1, float64(i)*1.7
		if f1.Fractal(x, y) == f2.Fractal(x, y) {
			same++
		}
	}
	if same == 50 {
		t.Fatal("different seeds produced identical fields")
	}
}

// constSource returns the same value everywhere, which makes the octave
// normalisation observable.
type constSource float64

func (c constSource) Eval2(x, y float64) float64 { return float64(c) }

func TestFractalNormalisedByMaxAmplitude(t *testing.T) {
	f := NewField(constSource(1), 0.1, 5, 0.5, 2)
	if v := f.Fractal(3, 4); math.Abs(v-1) > 1e-12 {
		t.Errorf("Fractal of constant 1 = %v, want 1", v)
	}
	f = NewField(constSource(-0.5), 0.1, 3, 0.7, 3)
	if v := f.Fractal(-3, 4); math.Abs(v+0.5) > 1e-12 {
		t.Errorf("Fractal of constant -0.5 = %v, want -0.5", v)
	}
}

// recordingSource captures the coordinates each octave samples.
type recordingSource struct {
	xs []float64
}

func (r *recordingSource) Eval2(x, y float64) float64 {
	r.xs = append(r.xs, x)
	return 0
}

func TestFractalOctaveFrequencies(t *testing.T) {
	src := &recordingSource{}
	f := NewField(src, 0.25, 3, 0.5, 2)
	f.Fractal(8, 0)
	want := []float64{2, 4, 8}
	if len(src.xs) != len(want) {
		t.Fatalf("sampled %d octaves, want %d", len(src.xs), len(want))
	}
	for i := range want {
		if src.xs[i] != want[i] {
			t.Errorf("octave %d sampled x=%v, want %v", i, src.xs[i], want[i])
		}
	}
}

func TestNewRejectsUnknownSource(t *testing.T) {
	cfg := config.DefaultNoise()
	cfg.Source = "worley"
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for unknown source")
	}
}

func TestNoiseContinuity(t *testing.T) {
	f := newTestField(t, config.SourceSimplex, 42)
	v1 := f.Fractal(10.0, 10.0)
	v2 := f.Fractal(10.01, 10.0)
	if diff := math.Abs(v1 - v2); diff >= 0.05 {
		t.Errorf("Fractal not continuous: diff=%f", diff)
	}
}

func TestPerlinContinuousFarFromOrigin(t *testing.T) {
	f := NewField(NewPerlinSource(42), 1, 1, 0.5, 2)
	for _, start := range []float64{-5000, 4000} {
		worst := 0.0
		prev := f.Fractal(start, 0.5)
		for i := 1; i < 100000; i++ {
			x := start + float64(i)*0.01
			v := f.Fractal(x, 0.5)
			if v < -1 || v > 1 {
				t.Fatalf("Fractal(%v, 0.5) = %v, out of [-1,1]", x, v)
			}
			worst = max(worst, math.Abs(v-prev))
			prev = v
		}
		if worst > 0.1 {
			t.Errorf("from x=%v: largest step between neighbours %v, want < 0.1", start, worst)
		}
	}
}

func TestPerlinTilesEveryPeriod(t *testing.T) {
	src := NewPerlinSource(3)
	for _, x := range []float64{0.3, 17.25, -4100.6, -9000.1} {
		a := src.Eval2(x, 2.5)
		b := src.Eval2(x+perlinPeriod, 2.5)
		if math.Abs(a-b) > 1e-9 {
			t.Errorf("Eval2(%v) = %v, Eval2(%v) = %v", x, a, x+perlinPeriod, b)
		}
	}
}

func TestFractalNegativePersistenceFinite(t *testing.T) {
	f := NewField(constSource(1), 0.1, 2, -1, 2)
	v := f.Fractal(1, 1)
	if math.IsInf(v, 0) || math.IsNaN(v) {
		t.Fatalf("Fractal = %v, want finite", v)
	}
	if v != 0 {
		t.Errorf("Fractal = %v, want (1-1)/2 = 0", v)
	}
	f = NewField(constSource(1), 0.1, 3, -0.5, 2)
	if v := f.Fractal(1, 1); v < -1 || v > 1 {
		t.Errorf("Fractal = %v, out of [-1,1]", v)
	}
}

func BenchmarkFractal(b *testing.B) {
	f := NewField(NewSimplexSource(1), 0.05, 4, 0.5, 2)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = f.Fractal(float64(i%1024), float64((i*31)%1024))
	}
}

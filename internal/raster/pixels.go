package raster

import (
	"errors"
	"fmt"
	"math"

	"terragen/internal/noise"
	"terragen/internal/world"
)

// ErrQuantizeSteps is returned by Quantize for fewer than two levels.
var ErrQuantizeSteps = errors.New("quantize needs at least 2 steps")

// Pixel is one RGBA8 sample.
type Pixel [4]uint8

// PixelBuffer is a row-major width×height grid of RGBA8 pixels.
type PixelBuffer struct {
	pixels []Pixel
	width  int
	height int
}

// gray maps a height in roughly [-1, 1] to an opaque gray pixel.
func gray(h float64) Pixel {
	v := toByte(((h + 1) / 2) * 255)
	return Pixel{v, v, v, 255}
}

func toByte(v float64) uint8 {
	return uint8(math.Round(max(0, min(255, v))))
}

// FromHeightMap encodes normalised heights as grayscale; pixel (x, y) is
// the sample at local (x, z=y).
func FromHeightMap(hm *world.HeightMap) *PixelBuffer {
	n := hm.Size()
	b := &PixelBuffer{pixels: make([]Pixel, 0, n*n), width: n, height: n}
	for z := range n {
		for x := range n {
			b.pixels = append(b.pixels, gray(float64(hm.At(x, z))))
		}
	}
	return b
}

// FromField renders raw fractal noise sampled at integer pixel coordinates.
func FromField(f *noise.Field, width, height int) *PixelBuffer {
	b := &PixelBuffer{pixels: make([]Pixel, 0, width*height), width: width, height: height}
	for y := range height {
		for x := range width {
			b.pixels = append(b.pixels, gray(f.Fractal(float64(x), float64(y))))
		}
	}
	return b
}

// ForCoord rasterizes the stored chunk at coord.
func ForCoord(store *world.Store, coord world.ChunkCoord) (*PixelBuffer, error) {
	c, err := store.Lookup(coord)
	if err != nil {
		return nil, err
	}
	return FromHeightMap(c.HeightMap()), nil
}

// Empty builds a diagnostic ramp: pixel i has gray level 255*i/(width*height).
func Empty(width, height int) *PixelBuffer {
	total := width * height
	b := &PixelBuffer{pixels: make([]Pixel, total), width: width, height: height}
	for i := range b.pixels {
		v := uint8(255 * float64(i) / float64(total))
		b.pixels[i] = Pixel{v, v, v, 255}
	}
	return b
}

// Splat builds a buffer filled with p.
func Splat(width, height int, p Pixel) *PixelBuffer {
	b := &PixelBuffer{pixels: make([]Pixel, width*height), width: width, height: height}
	for i := range b.pixels {
		b.pixels[i] = p
	}
	return b
}

func (b *PixelBuffer) Width() int  { return b.width }
func (b *PixelBuffer) Height() int { return b.height }

func (b *PixelBuffer) index(x, y int) int {
	if x < 0 || x >= b.width || y < 0 || y >= b.height {
		panic(fmt.Sprintf("raster: pixel (%d,%d) out of range %dx%d", x, y, b.width, b.height))
	}
	return y*b.width + x
}

// At returns the pixel at (x, y).
func (b *PixelBuffer) At(x, y int) Pixel {
	return b.pixels[b.index(x, y)]
}

// Set replaces the pixel at (x, y).
func (b *PixelBuffer) Set(x, y int, p Pixel) {
	b.pixels[b.index(x, y)] = p
}

// Flatten serializes the buffer as row-major RGBA bytes.
func (b *PixelBuffer) Flatten() []byte {
	out := make([]byte, 0, len(b.pixels)*4)
	for _, p := range b.pixels {
		out = append(out, p[:]...)
	}
	return out
}

// ApplyGradient replaces every pixel with g evaluated at red/255.
func (b *PixelBuffer) ApplyGradient(g *Gradient) {
	for i, p := range b.pixels {
		b.pixels[i] = g.At(float64(p[0]) / 255)
	}
}

// Quantize posterizes R, G and B independently to steps evenly spaced
// levels. Alpha is left untouched.
func (b *PixelBuffer) Quantize(steps int) error {
	if steps < 2 {
		return fmt.Errorf("%w: got %d", ErrQuantizeSteps, steps)
	}
	stepSize := 255 / float64(steps-1)
	for i, p := range b.pixels {
		for c := range 3 {
			p[c] = toByte(math.Round(float64(p[c])/stepSize) * stepSize)
		}
		b.pixels[i] = p
	}
	return nil
}

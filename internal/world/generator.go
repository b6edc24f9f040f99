package world

import (
	"terragen/internal/config"
	"terragen/internal/noise"
	"terragen/internal/profiling"

	"github.com/go-gl/mathgl/mgl32"
)

// Synthesizer builds the height map for a chunk.
type Synthesizer interface {
	Synthesize(coord ChunkCoord) *HeightMap
}

// Generator samples a noise field on a per-chunk grid.
type Generator struct {
	field          *noise.Field
	resolution     int
	chunkWorldSize float32
	normalStep     float64
}

// NewGenerator creates a generator. resolution is N, the number of samples
// per chunk side; normalStep is the finite difference distance in sample units.
func NewGenerator(field *noise.Field, resolution int, chunkWorldSize float32, normalStep float64) *Generator {
	return &Generator{
		field:          field,
		resolution:     resolution,
		chunkWorldSize: chunkWorldSize,
		normalStep:     normalStep,
	}
}

// NewGeneratorFromConfig is NewGenerator with the grid settings taken from cfg.
func NewGeneratorFromConfig(field *noise.Field, cfg *config.Config) *Generator {
	return NewGenerator(field, cfg.Resolution, cfg.ChunkWorldSize, cfg.NormalStep)
}

// Resolution returns N.
func (g *Generator) Resolution() int { return g.resolution }

// GlobalSample converts a local index of chunk coord to a global sample
// coordinate. Chunks overlap by one sample so adjacent chunks share their
// border row exactly.
func (g *Generator) GlobalSample(coord ChunkCoord, x, z int) (float64, float64) {
	stride := g.resolution - 1
	return float64(x + coord.X*stride), float64(z + coord.Z*stride)
}

// HeightAt samples the fractal field at a global sample coordinate.
func (g *Generator) HeightAt(gx, gz float64) float32 {
	return float32(g.field.Fractal(gx, gz))
}

// NormalAt estimates the surface normal at a global sample coordinate by
// central differences on the continuous field.
func (g *Generator) NormalAt(gx, gz float64) mgl32.Vec3 {
	d := g.normalStep
	top := g.field.Fractal(gx, gz+d)
	bottom := g.field.Fractal(gx, gz-d)
	left := g.field.Fractal(gx+d, gz)
	right := g.field.Fractal(gx-d, gz)

	step := float32(2 * d * float64(g.chunkWorldSize) / float64(g.resolution))
	xDir := mgl32.Vec3{step, float32(left - right), 0}
	zDir := mgl32.Vec3{0, float32(top - bottom), step}
	return zDir.Cross(xDir).Normalize()
}

// Synthesize builds the height map for coord. Every sample depends only on
// its global coordinate.
func (g *Generator) Synthesize(coord ChunkCoord) *HeightMap {
	defer profiling.Track("world.Synthesize")()
	n := g.resolution
	hm := newHeightMap(n)
	for z := range n {
		for x := range n {
			gx, gz := g.GlobalSample(coord, x, z)
			i := z*n + x
			hm.heights[i] = g.HeightAt(gx, gz)
			hm.normals[i] = g.NormalAt(gx, gz)
		}
	}
	return hm
}

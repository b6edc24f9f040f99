package world

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// ChunkCoord identifies a chunk on the infinite chunk grid.
type ChunkCoord struct {
	X, Z int
}

func (c ChunkCoord) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Z)
}

// Add offsets the coordinate by (dx, dz).
func (c ChunkCoord) Add(dx, dz int) ChunkCoord {
	return ChunkCoord{X: c.X + dx, Z: c.Z + dz}
}

// DistSq is the squared chunk-grid distance to o.
func (c ChunkCoord) DistSq(o ChunkCoord) int {
	dx := c.X - o.X
	dz := c.Z - o.Z
	return dx*dx + dz*dz
}

// WorldOffset is where the renderer places the chunk's mesh origin.
func (c ChunkCoord) WorldOffset(chunkWorldSize float32) mgl32.Vec3 {
	return mgl32.Vec3{float32(c.X) * chunkWorldSize, 0, float32(c.Z) * chunkWorldSize}
}

// HeightMap is a square grid of heights and unit normals. It is never
// modified after construction, so it may be shared between goroutines.
type HeightMap struct {
	size    int
	heights []float32
	normals []mgl32.Vec3
}

func newHeightMap(size int) *HeightMap {
	return &HeightMap{
		size:    size,
		heights: make([]float32, size*size),
		normals: make([]mgl32.Vec3, size*size),
	}
}

// NewHeightMap wraps precomputed data laid out row-major (z*size + x).
// The slices are copied.
func NewHeightMap(size int, heights []float32, normals []mgl32.Vec3) (*HeightMap, error) {
	if size < 2 {
		return nil, fmt.Errorf("height map size %d must be at least 2", size)
	}
	if len(heights) != size*size || len(normals) != size*size {
		return nil, fmt.Errorf("height map of size %d needs %d samples, got %d heights and %d normals",
			size, size*size, len(heights), len(normals))
	}
	hm := newHeightMap(size)
	copy(hm.heights, heights)
	copy(hm.normals, normals)
	return hm, nil
}

// index converts local (x, z) to a flat index. Out of range indices are a
// caller bug and panic.
func (h *HeightMap) index(x, z int) int {
	if x < 0 || x >= h.size || z < 0 || z >= h.size {
		panic(fmt.Sprintf("world: local index (%d,%d) out of range [0,%d)", x, z, h.size))
	}
	return z*h.size + x
}

// Size returns N for an N×N map.
func (h *HeightMap) Size() int { return h.size }

// At returns the height at local (x, z).
func (h *HeightMap) At(x, z int) float32 {
	return h.heights[h.index(x, z)]
}

// NormalAt returns the unit normal at local (x, z).
func (h *HeightMap) NormalAt(x, z int) mgl32.Vec3 {
	return h.normals[h.index(x, z)]
}

// Heights returns a copy of the height samples in row-major order.
func (h *HeightMap) Heights() []float32 {
	out := make([]float32, len(h.heights))
	copy(out, h.heights)
	return out
}

// MinMax returns the lowest and highest sample.
func (h *HeightMap) MinMax() (lo, hi float32) {
	lo, hi = h.heights[0], h.heights[0]
	for _, v := range h.heights[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return lo, hi
}

// Chunk pairs a height map with its grid position.
type Chunk struct {
	coord     ChunkCoord
	heightMap *HeightMap
}

// NewChunk wraps hm as the chunk at coord.
func NewChunk(coord ChunkCoord, hm *HeightMap) *Chunk {
	return &Chunk{coord: coord, heightMap: hm}
}

// Coord returns the chunk's grid position.
func (c *Chunk) Coord() ChunkCoord { return c.coord }

// HeightMap returns the chunk's immutable height data.
func (c *Chunk) HeightMap() *HeightMap { return c.heightMap }

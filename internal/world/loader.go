package world

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

// LoaderState is the streaming focus in chunk-grid units plus the load
// radius. The caller owns and mutates it; the world package only reads the
// value passed in.
type LoaderState struct {
	Focus  mgl32.Vec2
	Radius int
	// Square selects the [-r, r]² footprint instead of the circle.
	Square bool
}

// Center returns the chunk containing the focus.
func (s LoaderState) Center() ChunkCoord {
	return ChunkCoord{
		X: int(math.Floor(float64(s.Focus.X()))),
		Z: int(math.Floor(float64(s.Focus.Y()))),
	}
}

// Required returns the coordinates that must be resident for this state.
func (s LoaderState) Required() []ChunkCoord {
	if s.Square {
		return SquareRange(s.Center(), s.Radius)
	}
	return ChunksInRange(s.Focus, s.Radius)
}

// ChunksInRange returns every coordinate floor(focus)+(dx,dz) with
// dx²+dz² < radius², nearest first.
func ChunksInRange(focus mgl32.Vec2, radius int) []ChunkCoord {
	center := LoaderState{Focus: focus}.Center()
	if radius <= 0 {
		return nil
	}
	r2 := radius * radius
	out := make([]ChunkCoord, 0, 4*r2)
	for dz := -radius; dz <= radius; dz++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dz*dz < r2 {
				out = append(out, center.Add(dx, dz))
			}
		}
	}
	sortNearest(out, center)
	return out
}

// SquareRange returns the (2r+1)² block of coordinates around center,
// nearest first.
func SquareRange(center ChunkCoord, radius int) []ChunkCoord {
	if radius < 0 {
		return nil
	}
	side := 2*radius + 1
	out := make([]ChunkCoord, 0, side*side)
	for dz := -radius; dz <= radius; dz++ {
		for dx := -radius; dx <= radius; dx++ {
			out = append(out, center.Add(dx, dz))
		}
	}
	sortNearest(out, center)
	return out
}

func sortNearest(coords []ChunkCoord, center ChunkCoord) {
	sort.Slice(coords, func(i, j int) bool {
		di, dj := coords[i].DistSq(center), coords[j].DistSq(center)
		if di != dj {
			return di < dj
		}
		if coords[i].X != coords[j].X {
			return coords[i].X < coords[j].X
		}
		return coords[i].Z < coords[j].Z
	})
}

package meshing

import (
	"terragen/internal/profiling"
	"terragen/internal/world"

	"github.com/go-gl/mathgl/mgl32"
)

// VertexStride is number of float32 per vertex (pos.xyz + normal.xyz)
const VertexStride = 6

// Mesh is an indexed triangle mesh in chunk-local space. Positions and
// Normals are parallel; Indices holds three entries per triangle.
type Mesh struct {
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	Indices   []uint32
}

// BuildMesh converts a height map into a grid mesh centred on the chunk
// origin. x and z span [-chunkWorldSize/2, +chunkWorldSize/2] and y is
// heightScale*height. Normals are taken from the height map unchanged so
// that lighting stays continuous across chunk borders.
func BuildMesh(hm *world.HeightMap, chunkWorldSize, heightScale float32) Mesh {
	defer profiling.Track("meshing.BuildMesh")()

	n := hm.Size()
	m := Mesh{
		Positions: make([]mgl32.Vec3, 0, n*n),
		Normals:   make([]mgl32.Vec3, 0, n*n),
	}
	if n < 2 {
		return m
	}
	m.Indices = make([]uint32, 0, (n-1)*(n-1)*6)

	half := chunkWorldSize / 2
	step := chunkWorldSize / float32(n-1)
	for z := 0; z < n; z++ {
		for x := 0; x < n; x++ {
			m.Positions = append(m.Positions, mgl32.Vec3{
				-half + float32(x)*step,
				heightScale * hm.At(x, z),
				-half + float32(z)*step,
			})
			m.Normals = append(m.Normals, hm.NormalAt(x, z))
		}
	}

	// Two triangles per cell. With +x right and +z down the grid, this
	// winding faces +Y.
	stride := uint32(n)
	for z := 0; z < n-1; z++ {
		for x := 0; x < n-1; x++ {
			i := uint32(z*n + x)
			m.Indices = append(m.Indices,
				i, i+stride, i+1,
				i+stride, i+stride+1, i+1,
			)
		}
	}
	return m
}

// BuildForCoord builds the mesh of a stored chunk. It returns
// world.ErrChunkNotFound when the chunk has not been created yet.
func BuildForCoord(store *world.Store, coord world.ChunkCoord, chunkWorldSize, heightScale float32) (Mesh, error) {
	c, err := store.Lookup(coord)
	if err != nil {
		return Mesh{}, err
	}
	return BuildMesh(c.HeightMap(), chunkWorldSize, heightScale), nil
}

// VertexCount returns the number of vertices.
func (m Mesh) VertexCount() int { return len(m.Positions) }

// TriangleCount returns the number of triangles.
func (m Mesh) TriangleCount() int { return len(m.Indices) / 3 }

// Interleaved packs positions and normals into one float32 slice with
// VertexStride floats per vertex, ready for a single vertex buffer.
func (m Mesh) Interleaved() []float32 {
	out := make([]float32, 0, len(m.Positions)*VertexStride)
	for i, p := range m.Positions {
		nrm := m.Normals[i]
		out = append(out, p[0], p[1], p[2], nrm[0], nrm[1], nrm[2])
	}
	return out
}

// Translate returns a copy of the mesh with every position moved by offset.
// Indices and normals are shared with m.
func (m Mesh) Translate(offset mgl32.Vec3) Mesh {
	out := Mesh{
		Positions: make([]mgl32.Vec3, len(m.Positions)),
		Normals:   m.Normals,
		Indices:   m.Indices,
	}
	for i, p := range m.Positions {
		out.Positions[i] = p.Add(offset)
	}
	return out
}

// BuildNormalLines returns one segment per vertex from the surface point
// along its normal, for debug overlays. Positions match BuildMesh.
func BuildNormalLines(hm *world.HeightMap, chunkWorldSize, heightScale, length float32) [][2]mgl32.Vec3 {
	m := BuildMesh(hm, chunkWorldSize, heightScale)
	lines := make([][2]mgl32.Vec3, len(m.Positions))
	for i, p := range m.Positions {
		lines[i] = [2]mgl32.Vec3{p, p.Add(m.Normals[i].Mul(length))}
	}
	return lines
}

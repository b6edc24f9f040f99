package world

import (
	"errors"
	"fmt"
	"sync"

	"terragen/internal/profiling"

	"golang.org/x/sync/singleflight"
)

// ErrChunkNotFound is returned when data is requested for a chunk that has
// not been created yet.
var ErrChunkNotFound = errors.New("chunk not found")

// Store owns all live chunks keyed by coordinate. Entries are inserted at most
// once and never overwritten.
type Store struct {
	chunks   map[ChunkCoord]*Chunk
	mu       sync.RWMutex
	modCount uint64 // Increases on any chunk add/remove

	synth  Synthesizer
	flight singleflight.Group
}

// NewStore creates an empty store that builds missing chunks with synth.
func NewStore(synth Synthesizer) *Store {
	return &Store{
		chunks: make(map[ChunkCoord]*Chunk),
		synth:  synth,
	}
}

// Get returns the chunk at coord if it exists.
func (s *Store) Get(coord ChunkCoord) (*Chunk, bool) {
	s.mu.RLock()
	c, ok := s.chunks[coord]
	s.mu.RUnlock()
	return c, ok
}

// Lookup is Get with a not-found error that names the coordinate.
func (s *Store) Lookup(coord ChunkCoord) (*Chunk, error) {
	c, ok := s.Get(coord)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrChunkNotFound, coord)
	}
	return c, nil
}

// Has checks if a chunk exists without creating it.
func (s *Store) Has(coord ChunkCoord) bool {
	_, ok := s.Get(coord)
	return ok
}

// GetOrCreate returns the chunk at coord, synthesizing and inserting it if it
// is missing. Concurrent calls for the same coordinate share one synthesis.
// created is true only for the call that inserted the chunk.
func (s *Store) GetOrCreate(coord ChunkCoord) (chunk *Chunk, created bool) {
	defer profiling.Track("world.GetOrCreate")()
	if c, ok := s.Get(coord); ok {
		return c, false
	}
	v, _, _ := s.flight.Do(coord.String(), func() (any, error) {
		// Another flight may have finished between our Get and Do.
		if c, ok := s.Get(coord); ok {
			return c, nil
		}
		c, inserted := s.Insert(NewChunk(coord, s.synth.Synthesize(coord)))
		created = inserted
		return c, nil
	})
	return v.(*Chunk), created
}

// Insert adds a pre-built chunk unless one already exists at its coordinate,
// in which case the existing chunk is returned and inserted is false.
func (s *Store) Insert(c *Chunk) (stored *Chunk, inserted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.chunks[c.coord]; ok {
		return existing, false
	}
	s.chunks[c.coord] = c
	s.modCount++
	return c, true
}

// Len returns the number of live chunks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// ModCount returns the current modification count of the chunk map.
func (s *Store) ModCount() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modCount
}

// Chunks returns a snapshot of all live chunks in no particular order.
func (s *Store) Chunks() []*Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Chunk, 0, len(s.chunks))
	for _, c := range s.chunks {
		out = append(out, c)
	}
	return out
}

// EvictOutside removes chunks farther than radius (in chunks) from center.
// Returns number of removed chunks.
func (s *Store) EvictOutside(center ChunkCoord, radius float64) int {
	defer profiling.Track("world.EvictOutside")()
	limit := radius * radius
	removed := 0
	s.mu.Lock()
	for coord := range s.chunks {
		if float64(coord.DistSq(center)) > limit {
			delete(s.chunks, coord)
			s.modCount++
			removed++
		}
	}
	s.mu.Unlock()
	return removed
}

package world

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

type publishRecorder struct {
	mu     sync.Mutex
	counts map[ChunkCoord]int
}

func (p *publishRecorder) publish(c *Chunk) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.counts == nil {
		p.counts = make(map[ChunkCoord]int)
	}
	p.counts[c.Coord()]++
}

func TestStreamerTickLoadsRange(t *testing.T) {
	synth := newCountingSynth(newTestGenerator(t, 1))
	store := NewStore(synth)
	rec := &publishRecorder{}
	s := NewStreamer(store, StreamerOptions{Workers: 4, QueueSize: 64, Publish: rec.publish})

	state := LoaderState{Focus: mgl32.Vec2{0.5, 0.5}, Radius: 3}
	want := state.Required()
	// Re-requesting on consecutive ticks must not duplicate work.
	queued := s.Tick(state)
	s.Tick(state)
	s.Tick(state)
	s.Close()

	if queued == 0 {
		t.Fatal("first tick queued nothing")
	}
	if store.Len() != len(want) {
		t.Fatalf("store has %d chunks, want %d", store.Len(), len(want))
	}
	for _, c := range want {
		if synth.calls[c] != 1 {
			t.Errorf("chunk %v synthesized %d times", c, synth.calls[c])
		}
		if rec.counts[c] != 1 {
			t.Errorf("chunk %v published %d times", c, rec.counts[c])
		}
	}
	if s.Pending() != 0 {
		t.Errorf("pending = %d after Close", s.Pending())
	}
}

func TestStreamerRequestRejectsExisting(t *testing.T) {
	store := NewStore(newTestGenerator(t, 1))
	store.GetOrCreate(ChunkCoord{})
	s := NewStreamer(store, StreamerOptions{Workers: 1, QueueSize: 4})
	defer s.Close()
	if s.Request(ChunkCoord{}) {
		t.Error("existing chunk was queued")
	}
}

func TestStreamerRequestAfterClose(t *testing.T) {
	s := NewStreamer(NewStore(newTestGenerator(t, 1)), StreamerOptions{Workers: 1, QueueSize: 4})
	s.Close()
	s.Close()
	if s.Request(ChunkCoord{X: 1}) {
		t.Error("closed streamer accepted a request")
	}
}

// blockingSynth holds every synthesis until release is closed.
type blockingSynth struct {
	inner   Synthesizer
	release chan struct{}
}

func (b *blockingSynth) Synthesize(coord ChunkCoord) *HeightMap {
	<-b.release
	return b.inner.Synthesize(coord)
}

func TestStreamerPendingDeduplicates(t *testing.T) {
	synth := &blockingSynth{inner: newTestGenerator(t, 1), release: make(chan struct{})}
	s := NewStreamer(NewStore(synth), StreamerOptions{Workers: 1, QueueSize: 8})

	if !s.Request(ChunkCoord{}) {
		t.Fatal("first request rejected")
	}
	if s.Request(ChunkCoord{}) {
		t.Error("in-flight coordinate queued twice")
	}
	if s.Pending() != 1 {
		t.Errorf("pending = %d, want 1", s.Pending())
	}
	close(synth.release)
	s.Close()
}

func TestStreamerCaps(t *testing.T) {
	synth := &blockingSynth{inner: newTestGenerator(t, 1), release: make(chan struct{})}
	s := NewStreamer(NewStore(synth), StreamerOptions{Workers: 1, QueueSize: 64, MaxPending: 3})

	queued := s.Tick(LoaderState{Radius: 3})
	if queued != 3 || s.Pending() != 3 {
		t.Errorf("queued=%d pending=%d, want 3,3", queued, s.Pending())
	}
	close(synth.release)
	s.Close()

	s2 := NewStreamer(NewStore(newTestGenerator(t, 1)), StreamerOptions{Workers: 2, QueueSize: 64, MaxJobsPerTick: 2})
	if queued := s2.Tick(LoaderState{Radius: 3}); queued != 2 {
		t.Errorf("MaxJobsPerTick ignored: queued %d", queued)
	}
	s2.Close()
}

func TestStreamSyncWithEviction(t *testing.T) {
	store := NewStore(newTestGenerator(t, 1))
	rec := &publishRecorder{}
	s := NewStreamer(store, StreamerOptions{Workers: 4, QueueSize: 8, EvictFactor: 2, Publish: rec.publish})
	defer s.Close()

	ctx := context.Background()
	if err := s.StreamSync(ctx, LoaderState{Radius: 2}); err != nil {
		t.Fatalf("StreamSync: %v", err)
	}
	if store.Len() != 9 {
		t.Fatalf("store has %d chunks, want 9", store.Len())
	}

	// Moving 10 chunks away evicts everything beyond radius 2*2 of the new center.
	if err := s.StreamSync(ctx, LoaderState{Focus: mgl32.Vec2{10, 0}, Radius: 2}); err != nil {
		t.Fatalf("StreamSync: %v", err)
	}
	for _, c := range store.Chunks() {
		if c.Coord().DistSq(ChunkCoord{X: 10}) > 16 {
			t.Errorf("chunk %v should have been evicted", c.Coord())
		}
	}
	if store.Len() != 9 {
		t.Errorf("store has %d chunks after move, want 9", store.Len())
	}
	if len(rec.counts) != 18 {
		t.Errorf("published %d distinct chunks, want 18", len(rec.counts))
	}
}

func TestStreamSyncCancelled(t *testing.T) {
	s := NewStreamer(NewStore(newTestGenerator(t, 1)), StreamerOptions{Workers: 1, QueueSize: 1})
	defer s.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.StreamSync(ctx, LoaderState{Radius: 4})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("StreamSync error = %v, want context.Canceled", err)
	}
}

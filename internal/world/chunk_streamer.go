package world

import (
	"context"
	"log/slog"
	"sync"

	"terragen/internal/config"
	"terragen/internal/profiling"

	"golang.org/x/sync/errgroup"
)

// StreamerOptions configures a Streamer.
type StreamerOptions struct {
	Workers        int
	QueueSize      int
	MaxPending     int // 0 means unlimited
	MaxJobsPerTick int // 0 means unlimited
	EvictFactor    float64

	// Publish is called once for every chunk this streamer creates, after the
	// chunk is visible in the store. It runs on worker goroutines.
	Publish func(*Chunk)
	Logger  *slog.Logger
}

// StreamerOptionsFromConfig copies the streaming limits from cfg.
func StreamerOptionsFromConfig(cfg *config.Config) StreamerOptions {
	return StreamerOptions{
		Workers:        cfg.WorkerCount(),
		QueueSize:      cfg.QueueSize,
		MaxPending:     cfg.MaxPending,
		MaxJobsPerTick: cfg.MaxJobsPerTick,
		EvictFactor:    cfg.EvictFactor,
	}
}

// Streamer manages asynchronous chunk generation and loading.
type Streamer struct {
	jobs       chan ChunkCoord
	pending    map[ChunkCoord]struct{}
	pendingMu  sync.Mutex
	closed     bool
	maxPending int

	maxJobsPerTick int
	workers        int
	evictFactor    float64

	store   *Store
	publish func(*Chunk)
	log     *slog.Logger

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewStreamer creates a streamer and starts its workers.
func NewStreamer(store *Store, opts StreamerOptions) *Streamer {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.QueueSize < 1 {
		opts.QueueSize = 1
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Publish == nil {
		opts.Publish = func(*Chunk) {}
	}
	s := &Streamer{
		jobs:           make(chan ChunkCoord, opts.QueueSize),
		pending:        make(map[ChunkCoord]struct{}),
		maxPending:     opts.MaxPending,
		maxJobsPerTick: opts.MaxJobsPerTick,
		workers:        opts.Workers,
		evictFactor:    opts.EvictFactor,
		store:          store,
		publish:        opts.Publish,
		log:            opts.Logger,
	}

	for range opts.Workers {
		s.wg.Add(1)
		go s.worker()
	}
	return s
}

// Close stops accepting requests, finishes every queued job and waits for
// the workers to exit.
func (s *Streamer) Close() {
	s.closeOnce.Do(func() {
		s.pendingMu.Lock()
		s.closed = true
		close(s.jobs)
		s.pendingMu.Unlock()
		s.wg.Wait()
	})
}

func (s *Streamer) worker() {
	defer s.wg.Done()
	for coord := range s.jobs {
		s.load(coord)
		s.pendingMu.Lock()
		delete(s.pending, coord)
		s.pendingMu.Unlock()
	}
}

// load builds and installs a chunk if missing, publishing it when this call
// created it.
func (s *Streamer) load(coord ChunkCoord) {
	chunk, created := s.store.GetOrCreate(coord)
	if !created {
		return
	}
	s.log.Debug("chunk created", "coord", coord.String())
	s.publish(chunk)
}

// Request queues coord for generation. It returns false when the chunk
// already exists, is already pending, or the pending cap or queue is full.
func (s *Streamer) Request(coord ChunkCoord) bool {
	if s.store.Has(coord) {
		return false
	}

	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	if s.closed {
		return false
	}
	if _, ok := s.pending[coord]; ok {
		return false
	}
	if s.maxPending > 0 && len(s.pending) >= s.maxPending {
		s.log.Debug("pending cap reached", "pending", len(s.pending))
		return false
	}

	select {
	case s.jobs <- coord:
		s.pending[coord] = struct{}{}
		return true
	default:
		s.log.Debug("job queue full", "coord", coord.String())
		return false
	}
}

// Tick queues every missing chunk required by state, nearest first, then
// evicts chunks beyond the hysteresis radius when eviction is enabled.
// Returns the number of newly queued chunks.
func (s *Streamer) Tick(state LoaderState) int {
	defer profiling.Track("world.Tick")()
	queued := 0
	for _, coord := range state.Required() {
		if s.maxJobsPerTick > 0 && queued >= s.maxJobsPerTick {
			break
		}
		if s.Request(coord) {
			queued++
		}
	}
	s.evict(state)
	return queued
}

func (s *Streamer) evict(state LoaderState) {
	if s.evictFactor <= 1 {
		return
	}
	radius := float64(state.Radius) * s.evictFactor
	if removed := s.store.EvictOutside(state.Center(), radius); removed > 0 {
		s.log.Info("evicted chunks", "removed", removed, "center", state.Center().String(), "radius", radius)
	}
}

// StreamSync loads every chunk required by state before returning, using up
// to Workers goroutines. It stops early when ctx is cancelled.
func (s *Streamer) StreamSync(ctx context.Context, state LoaderState) error {
	defer profiling.Track("world.StreamSync")()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, coord := range state.Required() {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			s.load(coord)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	s.evict(state)
	return ctx.Err()
}

// Pending returns the number of queued or in-flight requests.
func (s *Streamer) Pending() int {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	return len(s.pending)
}

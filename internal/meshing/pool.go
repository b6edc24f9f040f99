package meshing

import (
	"context"
	"log/slog"
	"sync"

	"terragen/internal/config"
	"terragen/internal/raster"
	"terragen/internal/world"

	"github.com/go-gl/mathgl/mgl32"
)

// ChunkArtifacts is everything a renderer needs for one chunk: the mesh in
// chunk-local space, the world-space offset to place it at and its
// color-mapped raster.
type ChunkArtifacts struct {
	Coord  world.ChunkCoord
	Offset mgl32.Vec3
	Mesh   Mesh
	Pixels *raster.PixelBuffer
	Err    error
}

// PoolOptions configures a WorkerPool and BuildArtifacts.
type PoolOptions struct {
	Workers        int
	QueueSize      int
	ChunkWorldSize float32
	HeightScale    float32
	Gradient       *raster.Gradient // nil keeps grayscale
	QuantizeSteps  int              // 0 disables posterization
	Logger         *slog.Logger
}

// PoolOptionsFromConfig fills the geometry and queue settings from cfg.
// The gradient is left to the caller.
func PoolOptionsFromConfig(cfg *config.Config) PoolOptions {
	return PoolOptions{
		Workers:        cfg.WorkerCount(),
		QueueSize:      cfg.QueueSize,
		ChunkWorldSize: cfg.ChunkWorldSize,
		HeightScale:    cfg.HeightScale,
		QuantizeSteps:  cfg.QuantizeSteps,
	}
}

// BuildArtifacts meshes and rasterizes c.
func BuildArtifacts(c *world.Chunk, opts PoolOptions) ChunkArtifacts {
	hm := c.HeightMap()
	art := ChunkArtifacts{
		Coord:  c.Coord(),
		Offset: c.Coord().WorldOffset(opts.ChunkWorldSize),
		Mesh:   BuildMesh(hm, opts.ChunkWorldSize, opts.HeightScale),
		Pixels: raster.FromHeightMap(hm),
	}
	if opts.Gradient != nil {
		art.Pixels.ApplyGradient(opts.Gradient)
	}
	if opts.QuantizeSteps != 0 {
		art.Err = art.Pixels.Quantize(opts.QuantizeSteps)
	}
	return art
}

// WorkerPool builds ChunkArtifacts on a fixed set of goroutines. Results
// must be drained from Results until it is closed.
type WorkerPool struct {
	jobQueue chan *world.Chunk
	results  chan ChunkArtifacts
	opts     PoolOptions
	log      *slog.Logger

	mu     sync.RWMutex
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewWorkerPool creates a pool and starts its workers.
func NewWorkerPool(opts PoolOptions) *WorkerPool {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.QueueSize < 1 {
		opts.QueueSize = 1
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	pool := &WorkerPool{
		jobQueue: make(chan *world.Chunk, opts.QueueSize),
		results:  make(chan ChunkArtifacts, opts.QueueSize),
		opts:     opts,
		log:      opts.Logger,
		ctx:      ctx,
		cancel:   cancel,
	}

	for i := range opts.Workers {
		pool.wg.Add(1)
		go pool.worker(i)
	}
	return pool
}

// Submit queues c without blocking. Returns false if the queue is full or
// the pool is closed.
func (p *WorkerPool) Submit(c *world.Chunk) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.jobQueue <- c:
		return true
	default:
		p.log.Debug("mesh queue full", "coord", c.Coord().String())
		return false
	}
}

// SubmitBlocking queues c, waiting for room. Returns false if the pool is
// closed or shut down first.
func (p *WorkerPool) SubmitBlocking(c *world.Chunk) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.jobQueue <- c:
		return true
	case <-p.ctx.Done():
		return false
	}
}

// Results delivers one ChunkArtifacts per accepted job. It is closed once
// the pool has stopped.
func (p *WorkerPool) Results() <-chan ChunkArtifacts {
	return p.results
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	for c := range p.jobQueue {
		if p.ctx.Err() != nil {
			return
		}
		art := BuildArtifacts(c, p.opts)
		if art.Err != nil {
			p.log.Error("chunk artifacts failed", "coord", art.Coord.String(), "err", art.Err)
		} else {
			p.log.Debug("chunk meshed", "worker", id, "coord", art.Coord.String(),
				"vertices", art.Mesh.VertexCount(), "triangles", art.Mesh.TriangleCount())
		}

		select {
		case p.results <- art:
		case <-p.ctx.Done():
			return
		}
	}
}

// Close stops accepting jobs, finishes the queued ones and closes Results.
func (p *WorkerPool) Close() {
	p.stop(false)
}

// Shutdown abandons queued jobs and stops the workers as soon as possible.
func (p *WorkerPool) Shutdown() {
	p.stop(true)
}

func (p *WorkerPool) stop(abandon bool) {
	p.once.Do(func() {
		if abandon {
			p.cancel()
		}
		p.mu.Lock()
		p.closed = true
		close(p.jobQueue)
		p.mu.Unlock()
		p.wg.Wait()
		p.cancel()
		close(p.results)
	})
}

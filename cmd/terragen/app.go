package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"terragen/internal/config"
	"terragen/internal/meshing"
	"terragen/internal/noise"
	"terragen/internal/raster"
	"terragen/internal/world"

	"github.com/go-gl/mathgl/mgl32"
)

const tickInterval = 16 * time.Millisecond

var errNoChunks = errors.New("no chunks in range")

// app wires the terrain core together the way an interactive shell would:
// the streamer publishes new chunks into the mesh pool and a collector
// gathers the finished artifacts.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	store    *world.Store
	streamer *world.Streamer
	pool     *meshing.WorkerPool

	tiles     map[world.ChunkCoord]*raster.PixelBuffer
	triangles int
	failed    int
	done      chan struct{}
}

func newApp(cfg *config.Config, log *slog.Logger) (*app, error) {
	field, err := noise.New(cfg.Noise)
	if err != nil {
		return nil, err
	}
	gradient, err := raster.GradientFromConfig(cfg.Gradient)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:   cfg,
		log:   log,
		store: world.NewStore(world.NewGeneratorFromConfig(field, cfg)),
		tiles: make(map[world.ChunkCoord]*raster.PixelBuffer),
		done:  make(chan struct{}),
	}

	poolOpts := meshing.PoolOptionsFromConfig(cfg)
	poolOpts.Gradient = gradient
	poolOpts.Logger = log
	a.pool = meshing.NewWorkerPool(poolOpts)

	streamOpts := world.StreamerOptionsFromConfig(cfg)
	streamOpts.Logger = log
	streamOpts.Publish = func(c *world.Chunk) { a.pool.SubmitBlocking(c) }
	a.streamer = world.NewStreamer(a.store, streamOpts)

	go a.collect()
	return a, nil
}

func (a *app) collect() {
	defer close(a.done)
	for art := range a.pool.Results() {
		if art.Err != nil {
			a.failed++
			continue
		}
		a.tiles[art.Coord] = art.Pixels
		a.triangles += art.Mesh.TriangleCount()
	}
}

func (a *app) run(ctx context.Context, opts options) error {
	state := world.LoaderState{
		Focus:  mgl32.Vec2{float32(opts.focusX), float32(opts.focusZ)},
		Radius: a.cfg.LoadRadius,
		Square: opts.square,
	}
	required := state.Required()
	a.log.Info("streaming", "center", state.Center().String(), "radius", state.Radius,
		"chunks", len(required), "seed", a.cfg.Noise.Seed, "source", a.cfg.Noise.Source)

	start := time.Now()
	if opts.sync {
		if err := a.streamer.StreamSync(ctx, state); err != nil {
			return err
		}
	} else if err := a.tickUntilLoaded(ctx, state, required); err != nil {
		return err
	}
	a.streamer.Close()
	a.pool.Close()
	<-a.done

	a.log.Info("chunks ready", "stored", a.store.Len(), "meshed", len(a.tiles),
		"triangles", a.triangles, "failed", a.failed, "elapsed", time.Since(start))
	if a.failed > 0 {
		return fmt.Errorf("%d chunks failed to rasterize", a.failed)
	}
	return a.writeAtlas(opts)
}

// tickUntilLoaded drives the async streamer like a frame loop until every
// required chunk is in the store.
func (a *app) tickUntilLoaded(ctx context.Context, state world.LoaderState, required []world.ChunkCoord) error {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for ticks := 1; ; ticks++ {
		queued := a.streamer.Tick(state)
		if queued > 0 {
			a.log.Debug("tick", "n", ticks, "queued", queued, "pending", a.streamer.Pending())
		}
		missing := 0
		for _, c := range required {
			if !a.store.Has(c) {
				missing++
			}
		}
		if missing == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (a *app) writeAtlas(opts options) error {
	if len(a.tiles) == 0 {
		return errNoChunks
	}
	img := raster.ScaleImage(raster.Atlas(a.tiles), opts.scale)
	f, err := os.Create(opts.out)
	if err != nil {
		return err
	}
	if err := raster.Encode(f, img, opts.format); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	a.log.Info("atlas written", "path", opts.out, "width", img.Bounds().Dx(), "height", img.Bounds().Dy())
	return nil
}

func (a *app) shutdown() {
	a.streamer.Close()
	a.pool.Shutdown()
}

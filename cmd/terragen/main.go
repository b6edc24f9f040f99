package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"time"

	"terragen/internal/config"
	"terragen/internal/profiling"

	"github.com/xlab/closer"
)

type options struct {
	configPath string
	focusX     float64
	focusZ     float64
	scale      int
	out        string
	format     string
	square     bool
	sync       bool
	verbose    bool
}

// parseArgs reads flags into a default config. With -config, values from the
// file apply to every flag not set explicitly on the command line.
func parseArgs(args []string) (*config.Config, options, error) {
	cfg := config.DefaultConfig()
	var opts options

	fs := flag.NewFlagSet("terragen", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "", "path to a JSON config file")
	fs.Float64Var(&opts.focusX, "x", 0, "focus x in chunk units")
	fs.Float64Var(&opts.focusZ, "z", 0, "focus z in chunk units")
	fs.IntVar(&cfg.LoadRadius, "radius", cfg.LoadRadius, "load radius in chunks")
	fs.Int64Var(&cfg.Noise.Seed, "seed", cfg.Noise.Seed, "noise seed")
	fs.BoolVar(&cfg.Noise.RandomSeed, "random-seed", cfg.Noise.RandomSeed, "draw a fresh seed from the clock")
	fs.StringVar(&cfg.Noise.Source, "source", cfg.Noise.Source, "noise source: perlin or simplex")
	fs.IntVar(&cfg.QuantizeSteps, "quantize", cfg.QuantizeSteps, "posterize to this many levels per channel (0 = off)")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "worker goroutines (0 = NumCPU)")
	fs.Float64Var(&cfg.EvictFactor, "evict", cfg.EvictFactor, "evict chunks beyond radius*factor (0 = never)")
	fs.IntVar(&opts.scale, "scale", 1, "integer upscale factor for the atlas")
	fs.StringVar(&opts.out, "out", "terrain.png", "atlas output path")
	fs.StringVar(&opts.format, "format", "png", "atlas format: png or bmp")
	fs.BoolVar(&opts.square, "square", false, "load the full square around the focus instead of the circle")
	fs.BoolVar(&opts.sync, "sync", false, "load synchronously instead of ticking the async streamer")
	fs.BoolVar(&opts.verbose, "v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return nil, opts, err
	}

	if opts.configPath != "" {
		fromFile, err := config.Load(opts.configPath)
		if err != nil {
			return nil, opts, err
		}
		explicit := make(map[string]bool)
		fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })
		config.Merge(cfg, fromFile, explicit)
	}
	if err := cfg.Validate(); err != nil {
		return nil, opts, err
	}
	return cfg, opts, nil
}

func main() {
	cfg, opts, err := parseArgs(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		slog.Error("configuration", "error", err)
		os.Exit(2)
	}

	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	var seeded bool
	cfg.Noise, seeded = cfg.Noise.ResolveSeed(time.Now)
	if seeded {
		log.Info("random seed chosen", "seed", cfg.Noise.Seed)
	}

	app, err := newApp(cfg, log)
	if err != nil {
		log.Error("setup", "error", err)
		os.Exit(1)
	}
	ctx, cancel := context.WithCancel(context.Background())
	closer.Bind(func() {
		cancel()
		app.shutdown()
		log.Info("profile", "top", profiling.TopN(5))
	})

	go func() {
		if err := app.run(ctx, opts); err != nil {
			closer.Fatalln("terragen:", err)
		}
		closer.Close()
	}()
	closer.Hold()
}

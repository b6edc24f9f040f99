package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"runtime"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid config")

// Stop is one entry of the gradient table as it appears in config files.
type Stop struct {
	Threshold float64  `json:"threshold"`
	Color     [4]uint8 `json:"color"`
}

// Config holds every tunable of the terrain core. It is passed explicitly to
// constructors; nothing reads it from package state.
type Config struct {
	Resolution     int     `json:"resolution"`       // height samples per chunk side (N)
	ChunkWorldSize float32 `json:"chunk_world_size"` // world units per chunk side
	HeightScale    float32 `json:"height_scale"`
	NormalStep     float64 `json:"normal_step"` // finite difference step in sample units

	Noise Noise `json:"noise"`

	LoadRadius  int     `json:"load_radius"`  // in chunks
	EvictFactor float64 `json:"evict_factor"` // 0 disables eviction

	Gradient      []Stop `json:"gradient"`
	QuantizeSteps int    `json:"quantize_steps"` // 0 disables posterization

	Workers        int `json:"workers"` // 0 means runtime.NumCPU()
	QueueSize      int `json:"queue_size"`
	MaxPending     int `json:"max_pending"`
	MaxJobsPerTick int `json:"max_jobs_per_tick"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Resolution:     50,
		ChunkWorldSize: 5.0,
		HeightScale:    2.0,
		NormalStep:     0.1,
		Noise:          DefaultNoise(),
		LoadRadius:     2,
		Gradient:       DefaultGradient(),
		QueueSize:      4096,
		MaxPending:     16384,
		MaxJobsPerTick: 2048,
	}
}

// DefaultGradient is a water, sand, grass, rock, snow ramp.
func DefaultGradient() []Stop {
	return []Stop{
		{Threshold: 0.0, Color: [4]uint8{16, 40, 110, 255}},
		{Threshold: 0.42, Color: [4]uint8{40, 100, 180, 255}},
		{Threshold: 0.48, Color: [4]uint8{210, 195, 140, 255}},
		{Threshold: 0.55, Color: [4]uint8{70, 140, 60, 255}},
		{Threshold: 0.72, Color: [4]uint8{110, 100, 90, 255}},
		{Threshold: 0.88, Color: [4]uint8{245, 245, 250, 255}},
	}
}

// WorkerCount resolves the worker setting against the host.
func (c *Config) WorkerCount() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return max(runtime.NumCPU(), 1)
}

// Validate checks ranges that would otherwise surface as panics deep inside
// synthesis or rasterization.
func (c *Config) Validate() error {
	if c.Resolution < 2 {
		return fmt.Errorf("%w: resolution %d must be at least 2", ErrInvalid, c.Resolution)
	}
	if c.ChunkWorldSize <= 0 {
		return fmt.Errorf("%w: chunk_world_size %v must be positive", ErrInvalid, c.ChunkWorldSize)
	}
	if c.NormalStep <= 0 {
		return fmt.Errorf("%w: normal_step %v must be positive", ErrInvalid, c.NormalStep)
	}
	if c.LoadRadius < 1 {
		return fmt.Errorf("%w: load_radius %d must be at least 1", ErrInvalid, c.LoadRadius)
	}
	if c.EvictFactor != 0 && c.EvictFactor <= 1 {
		return fmt.Errorf("%w: evict_factor %v must be 0 or greater than 1", ErrInvalid, c.EvictFactor)
	}
	if c.QuantizeSteps != 0 && c.QuantizeSteps < 2 {
		return fmt.Errorf("%w: quantize_steps %d must be 0 or at least 2", ErrInvalid, c.QuantizeSteps)
	}
	if c.Workers < 0 || c.QueueSize < 1 || c.MaxPending < 0 || c.MaxJobsPerTick < 0 {
		return fmt.Errorf("%w: worker limits must not be negative and queue_size must be positive", ErrInvalid)
	}
	if err := c.Noise.Validate(); err != nil {
		return err
	}
	return nil
}

// Load reads a JSON config file. Fields missing from the file keep their
// default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config json: %w", err)
	}
	return cfg, nil
}

// Merge applies file-loaded values into cfg, but only for fields whose flags
// were not explicitly set on the command line.
func Merge(cfg *Config, fromFile *Config, explicitFlags map[string]bool) {
	*cfg = mergeInto(*fromFile, *cfg, explicitFlags)
}

func mergeInto(base, flags Config, explicit map[string]bool) Config {
	if explicit["radius"] {
		base.LoadRadius = flags.LoadRadius
	}
	if explicit["seed"] {
		base.Noise.Seed = flags.Noise.Seed
	}
	if explicit["random-seed"] {
		base.Noise.RandomSeed = flags.Noise.RandomSeed
	}
	if explicit["source"] {
		base.Noise.Source = flags.Noise.Source
	}
	if explicit["quantize"] {
		base.QuantizeSteps = flags.QuantizeSteps
	}
	if explicit["workers"] {
		base.Workers = flags.Workers
	}
	if explicit["evict"] {
		base.EvictFactor = flags.EvictFactor
	}
	return base
}

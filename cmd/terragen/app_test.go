package main

import (
	"context"
	"errors"
	"image"
	_ "image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"terragen/internal/config"

	"golang.org/x/image/bmp"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func smallConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Resolution = 8
	cfg.Workers = 2
	cfg.Noise.Seed = 5
	return cfg
}

func TestParseArgsFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terragen.json")
	data := []byte(`{"load_radius": 3, "resolution": 16, "noise": {"source": "perlin", "seed": 9, "frequency": 0.1, "octaves": 2, "persistence": 0.5, "lacunarity": 2}}`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, opts, err := parseArgs([]string{"-config", path, "-radius", "1", "-format", "bmp"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if cfg.LoadRadius != 1 {
		t.Errorf("explicit -radius lost: %d", cfg.LoadRadius)
	}
	if cfg.Resolution != 16 || cfg.Noise.Seed != 9 || cfg.Noise.Source != config.SourcePerlin {
		t.Errorf("file values not applied: resolution=%d seed=%d source=%q", cfg.Resolution, cfg.Noise.Seed, cfg.Noise.Source)
	}
	if opts.format != "bmp" || opts.out != "terrain.png" {
		t.Errorf("options = %+v", opts)
	}
}

func TestParseArgsRejectsInvalid(t *testing.T) {
	if _, _, err := parseArgs([]string{"-radius", "0"}); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("radius 0: err = %v, want ErrInvalid", err)
	}
	if _, _, err := parseArgs([]string{"-config", filepath.Join(t.TempDir(), "missing.json")}); err == nil {
		t.Error("missing config file accepted")
	}
}

func decodeAtlas(t *testing.T, path string, format string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if format == "bmp" {
		img, err := bmp.Decode(f)
		if err != nil {
			t.Fatalf("decode bmp: %v", err)
		}
		return img
	}
	img, _, err := image.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return img
}

func TestRunWritesAtlas(t *testing.T) {
	tests := []struct {
		name   string
		sync   bool
		format string
	}{
		{"ticked", false, "png"},
		{"sync", true, "bmp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := smallConfig()
			a, err := newApp(cfg, quietLogger())
			if err != nil {
				t.Fatalf("newApp: %v", err)
			}
			defer a.shutdown()

			out := filepath.Join(t.TempDir(), "atlas."+tt.format)
			opts := options{scale: 2, out: out, format: tt.format, sync: tt.sync}
			if err := a.run(context.Background(), opts); err != nil {
				t.Fatalf("run: %v", err)
			}

			// Radius 2 around the origin covers a 3x3 block of chunks.
			if a.store.Len() != 9 || len(a.tiles) != 9 {
				t.Fatalf("stored %d, meshed %d, want 9", a.store.Len(), len(a.tiles))
			}
			if want := 9 * 2 * (cfg.Resolution - 1) * (cfg.Resolution - 1); a.triangles != want {
				t.Errorf("triangles = %d, want %d", a.triangles, want)
			}
			b := decodeAtlas(t, out, tt.format).Bounds()
			if side := 3 * cfg.Resolution * 2; b.Dx() != side || b.Dy() != side {
				t.Errorf("atlas is %dx%d, want %dx%d", b.Dx(), b.Dy(), side, side)
			}
		})
	}
}

func TestRunCancelled(t *testing.T) {
	a, err := newApp(smallConfig(), quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer a.shutdown()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	opts := options{out: filepath.Join(t.TempDir(), "atlas.png"), format: "png", sync: true}
	if err := a.run(ctx, opts); !errors.Is(err, context.Canceled) {
		t.Errorf("run = %v, want context.Canceled", err)
	}
}

func TestWriteAtlasWithoutChunks(t *testing.T) {
	a, err := newApp(smallConfig(), quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	a.shutdown()
	<-a.done

	out := filepath.Join(t.TempDir(), "atlas.png")
	if err := a.writeAtlas(options{out: out, format: "png"}); !errors.Is(err, errNoChunks) {
		t.Fatalf("writeAtlas = %v, want errNoChunks", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("empty atlas file was created")
	}
}

package main

import (
	"context"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/kikiluvv/regionswap/internal/ai"
	"github.com/kikiluvv/regionswap/internal/config"
	"github.com/kikiluvv/regionswap/internal/geom"
	"github.com/kikiluvv/regionswap/internal/pipeline"
	"github.com/kikiluvv/regionswap/internal/variants"
)

func TestParseSize(t *testing.T) {
	cases := map[string]geom.Size{
		"":        {Width: 64, Height: 64},
		"128":     {Width: 128, Height: 128},
		"320x200": {Width: 320, Height: 200},
		"40X30":   {Width: 40, Height: 30},
	}
	for in, want := range cases {
		got, err := parseSize(in, 64)
		if err != nil {
			t.Errorf("%q: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("%q: expected %s, got %s", in, want, got)
		}
	}
	for _, bad := range []string{"x", "10x", "0", "-3x4", "ax5"} {
		if _, err := parseSize(bad, 64); err == nil {
			t.Errorf("%q: expected an error", bad)
		}
	}
}

func TestDefaultPattern(t *testing.T) {
	got := defaultPattern(filepath.Join("media", "clip.mp4"), "{name}")
	if want := filepath.Join("media", "clip-{name}.mp4"); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestNewDetectorKinds(t *testing.T) {
	cfg := config.Default()
	det, err := newDetector(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := det.(*ai.QRDetector); !ok {
		t.Errorf("expected a QR detector, got %T", det)
	}

	cfg.Detector.Kind = "template"
	if _, err := newDetector(cfg); err == nil {
		t.Error("expected an error for a template detector without a reference image")
	}

	cfg.Detector.Kind = "any"
	if det, err := newDetector(cfg); err != nil || det == nil {
		t.Errorf("any without a template should fall back to QR: %v", err)
	}
}

func TestNewGeneratorKinds(t *testing.T) {
	cfg := config.Default()
	gen, err := newGenerator(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := gen.(*variants.QRGenerator); !ok {
		t.Errorf("expected a QR generator, got %T", gen)
	}

	cfg.Generator.Kind = "text"
	if gen, err = newGenerator(cfg); err != nil {
		t.Fatal(err)
	}
	if _, ok := gen.(*variants.TextGenerator); !ok {
		t.Errorf("expected a text generator, got %T", gen)
	}

	cfg.Generator.Foreground = "not-a-color"
	if _, err := newGenerator(cfg); err == nil {
		t.Error("expected an error for an invalid color")
	}
}

func TestImgReplaceWithoutDetectionFails(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "blank.png")
	if err := imaging.Save(imaging.New(80, 60, color.White), input); err != nil {
		t.Fatal(err)
	}
	cfgPath := filepath.Join(dir, "regionswap.yaml")
	if err := config.Default().Save(cfgPath); err != nil {
		t.Fatal(err)
	}
	outDir := filepath.Join(dir, "out")

	rootCmd.SetArgs([]string{
		"img-replace", input, "https://example.com/a",
		"--config", cfgPath,
		"-o", filepath.Join(outDir, "{name}.png"),
	})
	err := rootCmd.ExecuteContext(context.Background())
	if logCloser != nil {
		logCloser.Close()
	}

	if !errors.Is(err, pipeline.ErrDetectionNotFound) {
		t.Fatalf("expected detection failure, got %v", err)
	}
	entries, _ := os.ReadDir(outDir)
	if len(entries) != 0 {
		t.Errorf("expected no output files, found %d", len(entries))
	}
	if _, err := os.Stat(filepath.Join(outDir, "default.png")); !os.IsNotExist(err) {
		t.Error("output image was written despite the missing region")
	}
}

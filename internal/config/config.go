package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

// Config holds all application configuration
type Config struct {
	// LogFile, when set, receives a rotated JSON copy of the log.
	LogFile string `yaml:"log_file"`

	FFmpeg    FFmpegConfig    `yaml:"ffmpeg"`
	Tracking  TrackingConfig  `yaml:"tracking"`
	Detector  DetectorConfig  `yaml:"detector"`
	Generator GeneratorConfig `yaml:"generator"`
	Output    OutputConfig    `yaml:"output"`
}

type FFmpegConfig struct {
	BinaryPath   string `yaml:"binary_path"`
	ProbePath    string `yaml:"probe_path"`
	Threads      int    `yaml:"threads"`
	VideoCodec   string `yaml:"video_codec"`
	Preset       string `yaml:"preset"`
	CRF          int    `yaml:"crf"`
	PixelFormat  string `yaml:"pixel_format"`
	KeepAudio    bool   `yaml:"keep_audio"`
	DecodeWindow int    `yaml:"decode_window"` // 0 = one second of frames
}

type TrackingConfig struct {
	Mode    string `yaml:"mode"` // stream | interval
	Sticky  bool   `yaml:"sticky"`
	Padding int    `yaml:"padding"`
	MaxMiss int    `yaml:"max_miss"` // 0 = half a second of frames
	Margin  int    `yaml:"margin"`   // negative = a fifth of a second of frames
}

type DetectorConfig struct {
	Kind      string  `yaml:"kind"` // qr | template | any
	Template  string  `yaml:"template"`
	Threshold float64 `yaml:"threshold"`
	Stride    int     `yaml:"stride"`
	TryHarder bool    `yaml:"try_harder"`
}

type GeneratorConfig struct {
	Kind       string `yaml:"kind"` // qr | text
	Recovery   string `yaml:"recovery"`
	Foreground string `yaml:"foreground"`
	Background string `yaml:"background"`
	QuietZone  bool   `yaml:"quiet_zone"`
	CacheSize  int    `yaml:"cache_size"`
}

type OutputConfig struct {
	Token string `yaml:"token"`
	// Size is the side of the square images written by generate.
	Size int `yaml:"size"`
}

// Load reads configuration from file or returns defaults
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = findConfigFile()
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	switch c.Tracking.Mode {
	case "stream", "interval":
	default:
		return fmt.Errorf("tracking.mode must be stream or interval, got %q", c.Tracking.Mode)
	}
	switch c.Detector.Kind {
	case "qr", "template", "any":
	default:
		return fmt.Errorf("detector.kind must be qr, template or any, got %q", c.Detector.Kind)
	}
	switch c.Generator.Kind {
	case "qr", "text":
	default:
		return fmt.Errorf("generator.kind must be qr or text, got %q", c.Generator.Kind)
	}
	if c.Tracking.Padding < 0 {
		return fmt.Errorf("tracking.padding must not be negative")
	}
	if c.Tracking.MaxMiss < 0 {
		return fmt.Errorf("tracking.max_miss must not be negative, use 0 for half a second of frames")
	}
	if c.Detector.Threshold <= 0 || c.Detector.Threshold > 1 {
		return fmt.Errorf("detector.threshold must be in (0, 1], got %v", c.Detector.Threshold)
	}
	if c.FFmpeg.CRF < 0 || c.FFmpeg.CRF > 51 {
		return fmt.Errorf("ffmpeg.crf must be in [0, 51], got %d", c.FFmpeg.CRF)
	}
	if c.Output.Token == "" {
		return fmt.Errorf("output.token must not be empty")
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		FFmpeg: FFmpegConfig{
			BinaryPath:  "ffmpeg",
			ProbePath:   "ffprobe",
			Threads:     0,
			VideoCodec:  "libx264",
			Preset:      "medium",
			CRF:         23,
			PixelFormat: "yuv420p",
			KeepAudio:   true,
		},
		Tracking: TrackingConfig{
			Mode:    "stream",
			Padding: 10,
			Margin:  -1,
		},
		Detector: DetectorConfig{
			Kind:      "qr",
			Threshold: 0.8,
			Stride:    2,
		},
		Generator: GeneratorConfig{
			Kind:       "qr",
			Recovery:   "medium",
			Foreground: "#000000",
			Background: "#ffffff",
			CacheSize:  16,
		},
		Output: OutputConfig{
			Token: "{name}",
			Size:  512,
		},
	}
}

// Default returns the built-in configuration.
func Default() *Config { return defaultConfig() }

func findConfigFile() string {
	candidates := []string{
		"./regionswap.yaml",
		"./regionswap.yml",
		filepath.Join(os.Getenv("HOME"), ".regionswap", "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return defaultConfig()
}

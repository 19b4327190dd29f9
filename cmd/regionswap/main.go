package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kikiluvv/regionswap/internal/config"
	"github.com/kikiluvv/regionswap/internal/frames"
	"github.com/kikiluvv/regionswap/internal/logging"
	"github.com/kikiluvv/regionswap/internal/pipeline"
	"github.com/kikiluvv/regionswap/internal/variants"
)

var (
	cfgFile   string
	verbose   bool
	logCloser io.Closer
)

// per-command flags
var (
	outputPattern string
	padding       int
	mode          string
	sticky        bool
	size          string
	detectorKind  string
	templatePath  string
	generatorKind string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if logCloser != nil {
		logCloser.Close()
	}
	if err != nil {
		logger := logging.WithComponent("cli")
		logger.Error().Err(err).Msg("regionswap failed")
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "regionswap",
	Short:         "regionswap - track a region in video and swap in generated content",
	Long:          "Locates a region (a QR code or a reference image) in every frame of a video or image and replaces it with one generated variant per payload, writing one output per variant.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Logging needs the config for its file output, so it comes second.
		cfg, err := config.Load(cfgFile)
		if err != nil {
			logging.Init(verbose, "")
			return err
		}
		if err := applyFlags(cmd, cfg); err != nil {
			logging.Init(verbose, "")
			return err
		}
		logCloser = logging.Init(verbose, cfg.LogFile)

		cmd.SetContext(config.WithConfig(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./regionswap.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	for _, c := range []*cobra.Command{generateCmd, replaceCmd, imgReplaceCmd} {
		c.Flags().StringVarP(&outputPattern, "output", "o", "", "output pattern; {name} is replaced by the variant name")
		c.Flags().StringVar(&generatorKind, "kind", "", "variant generator: qr or text")
	}
	for _, c := range []*cobra.Command{replaceCmd, imgReplaceCmd} {
		c.Flags().IntVarP(&padding, "padding", "p", 0, "pixels added around the detected region")
		c.Flags().StringVar(&detectorKind, "detector", "", "region detector: qr, template or any")
		c.Flags().StringVar(&templatePath, "template", "", "reference image for the template detector")
	}
	replaceCmd.Flags().StringVar(&mode, "mode", "", "tracking mode: stream or interval")
	replaceCmd.Flags().BoolVar(&sticky, "sticky", false, "lock the first detected rectangle")
	generateCmd.Flags().StringVar(&size, "size", "", "output size, WxH or a single side")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(replaceCmd)
	rootCmd.AddCommand(imgReplaceCmd)
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

// applyFlags overrides config values with flags set on the command line.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("padding") {
		cfg.Tracking.Padding = padding
	}
	if flags.Changed("mode") {
		cfg.Tracking.Mode = mode
	}
	if flags.Changed("sticky") {
		cfg.Tracking.Sticky = sticky
	}
	if flags.Changed("detector") {
		cfg.Detector.Kind = detectorKind
	}
	if flags.Changed("template") {
		cfg.Detector.Template = templatePath
		if !flags.Changed("detector") {
			cfg.Detector.Kind = "template"
		}
	}
	if flags.Changed("kind") {
		cfg.Generator.Kind = generatorKind
	}
	return cfg.Validate()
}

var generateCmd = &cobra.Command{
	Use:   "generate [url or csv]",
	Short: "Render the variants of a payload list as images",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		payloads, err := variants.Load(args[0])
		if err != nil {
			return err
		}
		sz, err := parseSize(size, cfg.Output.Size)
		if err != nil {
			return err
		}
		gen, err := newGenerator(cfg)
		if err != nil {
			return err
		}

		pipe := pipeline.New(log.Logger, nil, gen, pipelineConfig(cfg))
		opts := pipeline.Options{
			Pattern: patternOr(cfg.Output.Token + ".png"),
			Token:   cfg.Output.Token,
		}
		_, err = pipe.Generate(cmd.Context(), payloads, sz, opts, imageSinks)
		return err
	},
}

var replaceCmd = &cobra.Command{
	Use:   "replace [input video] [url or csv]",
	Short: "Replace the tracked region of a video, one output video per variant",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := config.FromContext(ctx)
		input := args[0]

		payloads, err := variants.Load(args[1])
		if err != nil {
			return err
		}
		exec, err := newExecutor(cfg)
		if err != nil {
			return err
		}
		seq, err := exec.OpenDecoder(ctx, input, cfg.FFmpeg.DecodeWindow)
		if err != nil {
			return err
		}
		defer seq.Close()

		det, err := newDetector(cfg)
		if err != nil {
			return err
		}
		gen, err := newGenerator(cfg)
		if err != nil {
			det.Close()
			return err
		}
		pipe := pipeline.New(log.Logger, det, gen, pipelineConfig(cfg))
		defer pipe.Close()

		opts := pipeline.Options{
			Mode:    pipeline.Mode(cfg.Tracking.Mode),
			Padding: cfg.Tracking.Padding,
			Sticky:  cfg.Tracking.Sticky,
			MaxMiss: cfg.Tracking.MaxMiss,
			Margin:  cfg.Tracking.Margin,
			Pattern: patternOr(defaultPattern(input, cfg.Output.Token)),
			Token:   cfg.Output.Token,
		}
		_, err = pipe.Run(ctx, seq, payloads, opts, videoSinks(exec, cfg, input, seq))
		return err
	},
}

var imgReplaceCmd = &cobra.Command{
	Use:   "img-replace [input image] [url or csv]",
	Short: "Replace the region of a single image, one output image per variant",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		input := args[0]

		payloads, err := variants.Load(args[1])
		if err != nil {
			return err
		}
		f, err := frames.OpenImage(input)
		if err != nil {
			return err
		}
		det, err := newDetector(cfg)
		if err != nil {
			return err
		}
		gen, err := newGenerator(cfg)
		if err != nil {
			det.Close()
			return err
		}
		pipe := pipeline.New(log.Logger, det, gen, pipelineConfig(cfg))
		defer pipe.Close()

		opts := pipeline.Options{
			Padding: cfg.Tracking.Padding,
			Pattern: patternOr(defaultPattern(input, cfg.Output.Token)),
			Token:   cfg.Output.Token,
		}
		_, err = pipe.Image(cmd.Context(), f, payloads, opts, imageSinks)
		return err
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Config management commands",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := yaml.Marshal(config.FromContext(cmd.Context()))
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "./regionswap.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
		if err := config.Default().Save(path); err != nil {
			return err
		}
		logger := logging.WithComponent("cli")
		logger.Info().Str("path", path).Msg("config written")
		return nil
	},
}

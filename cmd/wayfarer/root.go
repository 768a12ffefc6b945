package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"wayfarer/internal/adaptation"
	"wayfarer/internal/config"
	"wayfarer/internal/httpclient"
	"wayfarer/internal/library"
	"wayfarer/internal/logging"
	"wayfarer/internal/observability"
	"wayfarer/internal/weather"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// CLI holds state shared by every subcommand.
type CLI struct {
	configPath  string
	libraryPath string
	verbose     bool
	jsonOutput  bool

	env config.EnvLookup
	now func() time.Time

	cfg      config.Config
	obs      *observability.Observability
	registry *prometheus.Registry
	store    *library.Store
	engine   *adaptation.Engine
	logger   logging.Logger
}

// NewRootCommand builds the wayfarer command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&CLI{})
}

func newRootCommand(cli *CLI) *cobra.Command {
	root := &cobra.Command{
		Use:   "wayfarer",
		Short: "Context-adaptive stories for people on the move",
		Long: bold("wayfarer") + ` reads where you are, how you are moving and what the weather is doing,
then reshapes stories from its library to fit: short audio while driving,
richer interactive text when you stop.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return cli.shutdown(cmd.Context())
		},
	}

	root.PersistentFlags().StringVarP(&cli.configPath, "config", "c", "", "config file (default ./wayfarer.yaml or ~/.wayfarer/wayfarer.yaml)")
	root.PersistentFlags().StringVarP(&cli.libraryPath, "library", "l", "", "story file or directory")
	root.PersistentFlags().BoolVarP(&cli.verbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().BoolVar(&cli.jsonOutput, "json", false, "print JSON instead of text")

	root.AddCommand(
		newAnalyzeCommand(cli),
		newAdaptCommand(cli),
		newRecommendCommand(cli),
		newServeCommand(cli),
	)
	return root
}

// initialize loads configuration, the story library and the engine.
func (c *CLI) initialize(cmd *cobra.Command) error {
	if c.engine != nil {
		return nil
	}
	if c.now == nil {
		c.now = time.Now
	}
	if !isTTY(cmd.OutOrStdout()) {
		color.NoColor = true
	}

	opts := []config.Option{}
	if c.env != nil {
		opts = append(opts, config.WithEnv(c.env))
	}
	if c.configPath != "" {
		opts = append(opts, config.WithConfigPath(c.configPath))
	}
	if c.libraryPath != "" {
		opts = append(opts, config.WithOverrides(map[string]any{"library.path": c.libraryPath}))
	}
	cfg, meta, err := config.Load(opts...)
	if err != nil {
		return err
	}
	c.cfg = cfg

	obsCfg, err := observability.LoadConfig(cfg.Observability)
	if err != nil {
		return err
	}
	if c.verbose {
		obsCfg.Logging.Level = "debug"
	}
	c.registry = prometheus.NewRegistry()
	obsCfg.Metrics.Registry = c.registry
	c.obs = observability.NewFromConfig(obsCfg, cmd.ErrOrStderr())
	c.logger = logging.FromObservabilityWithComponent(c.obs.Logger, "cli")
	if meta.File != "" {
		c.logger.Debug("config loaded from %s", meta.File)
	}

	c.store = library.NewStore(logging.FromObservabilityWithComponent(c.obs.Logger, "library"))
	n, err := c.store.LoadPath(cfg.Library.Path)
	switch {
	case errors.Is(err, fs.ErrNotExist) && meta.Source("library.path") == config.SourceDefault:
		c.logger.Warn("no story library at %s", cfg.Library.Path)
	case err != nil:
		return fmt.Errorf("load library: %w", err)
	default:
		c.logger.Debug("loaded %d stories from %s", n, cfg.Library.Path)
	}

	c.engine, err = adaptation.New(c.store, c.weatherProvider(), c.store,
		adaptation.WithConfig(cfg.AdaptationConfig()),
		adaptation.WithClock(c.now),
		adaptation.WithLogger(logging.FromObservabilityWithComponent(c.obs.Logger, "engine")),
		adaptation.WithTracer(c.obs.Tracer),
		adaptation.WithCollector(c.obs.Metrics),
		adaptation.WithRegisterer(c.registry),
	)
	return err
}

func (c *CLI) weatherProvider() weather.Provider {
	logger := logging.FromObservabilityWithComponent(c.obs.Logger, "weather")
	switch c.cfg.Weather.Provider {
	case config.ProviderOpenMeteo:
		return weather.NewOpenMeteoProvider(c.cfg.Weather.BaseURL, logger,
			weather.WithHTTPClient(httpclient.New(c.cfg.Weather.Timeout, logger)))
	case config.ProviderNone:
		return nil
	default:
		return weather.SimulatedProvider{Now: c.now}
	}
}

func (c *CLI) shutdown(ctx context.Context) error {
	if c.obs == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return c.obs.Shutdown(ctx)
}

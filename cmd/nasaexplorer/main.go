package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/apod"
	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/config"
	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/engine"
	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/nasaapi"
	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/neo"
	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/ratelimit"
	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/rover"
)

var (
	flagConfig   string
	flagLogLevel string
)

func main() {
	root := &cobra.Command{
		Use:           "nasaexplorer",
		Short:         "Rate-limited access and cross-source correlation for NASA's open APIs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "path to YAML config file")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(newServeCmd(), newSummarizeCmd(), newDiagCmd())

	if err := root.Execute(); err != nil {
		newLogger().Error("command failed", "error", err)
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(flagLogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// stack is everything built from one configuration.
type stack struct {
	cfg      config.Config
	registry *rover.Registry
	apod     *apod.Adapter
	neo      *neo.Adapter
	rovers   *rover.Adapter
	engine   *engine.Engine
}

func buildStack(logger *slog.Logger) (*stack, error) {
	cfg, err := config.Load(flagConfig, logger)
	if err != nil {
		return nil, err
	}

	budgets, fallback := cfg.RateBudgets()
	limiter := ratelimit.NewLimiter(budgets, fallback, logger)
	client := nasaapi.NewClient(cfg.ClientConfig(), limiter, logger)

	registry := rover.NewRegistry(cfg.RoverDimensions)
	apodAd := apod.NewAdapter(client, cfg.APODMaxSpanDays, logger)
	neoAd := neo.NewAdapter(client, cfg.NEOMaxSpanDays, logger)
	roverAd := rover.NewAdapter(client, registry, logger)
	eng := engine.New(apodAd, neoAd, roverAd, registry, cfg.EngineConfig(), logger)

	return &stack{
		cfg:      cfg,
		registry: registry,
		apod:     apodAd,
		neo:      neoAd,
		rovers:   roverAd,
		engine:   eng,
	}, nil
}

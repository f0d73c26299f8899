package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/rhuss/ollabridge/pkg/config"
	"github.com/rhuss/ollabridge/pkg/debug"
)

var serveFlags struct {
	port     int
	host     string
	logLevel string
	dryRun   bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gateway",
	Long: `Start the Ollama-compatible HTTP server.

Examples:
  # Listen on the default port 11434
  ollabridge serve

  # Override the port and validate configuration only
  ollabridge serve --port 8080 --dry-run`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addServeFlags(serveCmd)
}

func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&serveFlags.port, "port", "p", 0, "override listen port")
	cmd.Flags().StringVar(&serveFlags.host, "host", "", "override listen host")
	cmd.Flags().StringVar(&serveFlags.logLevel, "log-level", "", "override log level (trace, debug, info, warn, error)")
	cmd.Flags().BoolVar(&serveFlags.dryRun, "dry-run", false, "validate configuration without starting the server")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveFlags.port != 0 {
		cfg.Server.Port = serveFlags.port
	}
	if serveFlags.host != "" {
		cfg.Server.Host = serveFlags.host
	}
	if serveFlags.logLevel != "" {
		cfg.Logging.Level = serveFlags.logLevel
	}

	debug.Init(cfg.Logging.Debug, cfg.Logging.Level, cfg.Logging.Format)
	logger := slog.Default()
	debug.Log("config", "effective configuration",
		"port", cfg.Server.Port,
		"embed_concurrency", cfg.Engine.EmbedConcurrency,
		"models", len(cfg.Models),
		"models_file", cfg.ModelsFile,
		"auth", cfg.Auth.Type,
	)

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if serveFlags.dryRun {
		fmt.Fprintf(cmd.OutOrStdout(), "configuration valid: %d providers, %d models\n",
			len(a.providers.Names()), a.models.Len())
		return nil
	}

	logger.Info("ollabridge starting",
		"version", Version,
		"addr", a.addr,
		"providers", a.providers.Names(),
		"models", a.models.Len(),
		"auth", cfg.Auth.Type,
	)
	return a.server.ListenAndServe()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

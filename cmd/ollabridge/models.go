package main

import (
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rhuss/ollabridge/pkg/registry"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List configured models and whether they are served",
	Long: `Print every configured model with its kind, provider and upstream
model. Models whose provider has no credentials are listed as unavailable
and are not served.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		providers, err := buildProviders(cfg.Providers, slog.New(slog.DiscardHandler))
		if err != nil {
			return err
		}
		defer providers.Close()
		return printModels(cmd.OutOrStdout(), cfg.Models, providers.Available)
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func printModels(out io.Writer, models []registry.ModelConfig, available func(string) bool) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tPROVIDER\tUPSTREAM\tSTATUS")
	for _, m := range models {
		kind := m.Kind
		if kind == "" {
			kind = registry.KindChat
		}
		status := "available"
		if !available(m.Provider) {
			status = "unavailable (no credentials)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", m.Name, kind, m.Provider, m.UpstreamModel, status)
	}
	return tw.Flush()
}

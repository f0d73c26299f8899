package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	envFile string
)

var rootCmd = &cobra.Command{
	Use:   "ollabridge",
	Short: "Ollama-compatible gateway for hosted LLM providers",
	Long: `ollabridge exposes the Ollama HTTP API (/api/chat, /api/generate,
/api/embeddings, /api/tags) and translates each call to Gemini, OpenAI,
Qwen (DashScope) or Anthropic. Any Ollama client can point at it unchanged.

Running ollabridge without a subcommand starts the server.`,
	Version:      Version,
	SilenceUsage: true,
	RunE:         runServe,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadDotEnv(envFile)
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: OLLABRIDGE_CONFIG, ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before configuration")
	addServeFlags(rootCmd)
}

// loadDotEnv populates the environment from path. Variables already set in
// the process environment win. A missing default file is not an error.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if path == ".env" {
			return nil
		}
		return fmt.Errorf("env file %s not found", path)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

// Package main is the entry point for the mailrag CLI: the drafting API server,
// one-shot drafting, and the chunk indexer.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/mailrag/internal/config"
	logpkg "github.com/kailas-cloud/mailrag/internal/logger"
)

// Populated by the root command before any subcommand runs.
var (
	cfg    config.Config
	env    string
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "mailrag",
	Short: "Retrieval-augmented email reply drafting",
	Long: `mailrag drafts replies to incoming mail grounded on an indexed document
corpus. It embeds the message, runs vector and keyword search against the
document store, fuses both rankings, and asks a chat model for a reply that
cites the evidence it used.

Subcommands: serve runs the HTTP API, draft produces one reply from the
command line, index loads chunk files into the document store.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		// .env is optional; real environment variables win.
		_ = godotenv.Load()

		env = config.GetEnv()
		if e, _ := cmd.Flags().GetString("env"); e != "" {
			env = e
		}

		var err error
		if path, _ := cmd.Flags().GetString("config"); path != "" {
			cfg, err = config.LoadFile(path)
		} else {
			cfg, err = config.Load(env)
		}
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logger, err = logpkg.NewLogger(env, cfg.Logging.Level)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().String("env", "", "environment name selecting config/<env>.yaml (default: $ENV or local)")
	rootCmd.PersistentFlags().String("config", "", "explicit config file path (overrides --env)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

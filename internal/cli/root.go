// Package cli implements the papereval command line: local evaluation,
// passage queries, classification and an MCP tool server over one paper.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"papereval/internal/config"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	cachePath string
	verbose   bool
	cfg       config.Config
	logger    *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "papereval",
	Short: "Evaluate academic papers against a semantic index of their own text",
	Long: `papereval fetches a paper (URL or local path), splits it into chunks,
embeds them and answers evaluation questions from the most relevant passages.

Example usage:
  papereval evaluate https://arxiv.org/pdf/2101.00001 -e methodology
  papereval query paper.pdf -q "how was the sample collected" -t methodology
  papereval classify paper.pdf`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load(".env")
		if cfgFile != "" {
			os.Setenv("PAPEREVAL_RETRIEVAL_CONFIG", cfgFile)
		}
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if cachePath != "" {
			cfg.EmbedCachePath = cachePath
		}
		logger = newLogger(cmd.ErrOrStderr(), verbose, cfg.SlogLevel())
		return nil
	},
}

func newLogger(w io.Writer, verbose bool, level slog.Level) *slog.Logger {
	if verbose {
		level = slog.LevelDebug
	} else if level < slog.LevelWarn {
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "retrieval tuning file (default ./papereval.yaml)")
	rootCmd.PersistentFlags().StringVar(&cachePath, "cache", "", "embedding cache file (bbolt)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
}

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/playperu/scoreboard/internal/config"
)

const releaseVersion = "0.1.0"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "scoreboard",
		Short:         "Live competition scoreboard with an animated display page.",
		Long:          "Configuration is read from the environment (HTTP_ADDR, STORE_BACKEND, SCORE_MODE, DISPLAY_*, ...).",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		Version:       releaseVersion,
	}
	cmd.AddCommand(
		newServeCmd(stdout),
		newMigrateCmd(stdout),
		newExportCmd(stdout),
	)
	return cmd
}

// setup loads the configuration and builds the JSON logger shared by every
// subcommand.
func setup(stdout io.Writer) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	return cfg, logger, nil
}

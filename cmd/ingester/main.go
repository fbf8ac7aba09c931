// Package main provides the ingester service: it consumes captured analytics
// events from Kafka, resolves the owning team, and republishes session
// recording and performance records to the downstream topics.
//
// Usage:
//
//	ingester run --config configs/config.yaml
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/replaylab/replay-ingest/internal/metrics"
	"github.com/replaylab/replay-ingest/internal/pipeline"
	"github.com/replaylab/replay-ingest/internal/tenant"
	"github.com/replaylab/replay-ingest/pkg/core/config"
	"github.com/replaylab/replay-ingest/pkg/core/logger"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "ingester",
		Short:   "Session replay ingestion pipeline",
		Version: version,
	}

	rootCmd.AddCommand(newRunCmd())

	return rootCmd
}

func newRunCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the batch consumer until signalled or a fatal error",
		RunE: func(cmd *cobra.Command, args []string) error {
			newApp(configPath).Run()
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to the config file (defaults to CONFIG_FILE, then configs/config.yaml)")

	return cmd
}

func newApp(configPath string) *fx.App {
	return fx.New(
		config.NewModule(configPath),
		logger.NewModule(),
		metrics.NewModule(),
		tenant.NewModule(),
		pipeline.NewModule(),
	)
}

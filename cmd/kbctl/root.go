package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"bodymind-ai/internal/bootstrap"
	"bodymind-ai/internal/config"
	"bodymind-ai/internal/logger"
)

type engineOpener func(ctx context.Context) (*bootstrap.App, error)

func openEngine(ctx context.Context) (*bootstrap.App, error) {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	// Workers and the watcher are never started from the CLI.
	cfg.RabbitMQ.Enabled = false
	cfg.Watcher.Dir = ""
	return bootstrap.New(ctx, cfg, logger.New(cfg.Log))
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(openEngine)
}

func newRootCmdWith(open engineOpener) *cobra.Command {
	root := &cobra.Command{
		Use:          "kbctl",
		Short:        "Manage the bodymind knowledge base",
		SilenceUsage: true,
	}
	root.AddCommand(
		newIngestCmd(open),
		newSearchCmd(open),
		newStatsCmd(open),
		newClearCmd(open),
		newSeedCmd(open),
	)
	return root
}

// withEngine opens the engine for one command and closes it afterwards.
func withEngine(cmd *cobra.Command, open engineOpener, fn func(ctx context.Context, a *bootstrap.App) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := open(ctx)
	if err != nil {
		return fmt.Errorf("open knowledge engine failed: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return fn(ctx, a)
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

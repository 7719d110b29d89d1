package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"sanctum/internal/app"
	"sanctum/internal/platform/config"
	"sanctum/internal/platform/logger"
)

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides SANCTUM_ADDR)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: "Reads SANCTUM_* environment variables, connects the configured stores\n" +
		"and serves until SIGINT or SIGTERM.",
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Addr = serveAddr
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("startup failed: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error("shutdown cleanup failed", "error", err)
		}
	}()

	log.Info("sanctum starting", "env", cfg.Env, "addr", cfg.Addr, "record_store", cfg.Storage.RecordStore)
	if err := a.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	log.Info("sanctum stopped")
	return nil
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/parceldesk/courierhub/internal/reconciler"
	"github.com/parceldesk/courierhub/internal/server"
)

var version = "0.0.1"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "courierhub",
	Short:   "Courier aggregation and status normalization service",
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the scheduled tracking reconciler",
	RunE:  runServe,
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Run one tracking reconciliation batch and exit",
	RunE:  runReconcile,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(reconcileCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	app, err := initApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	app.logger.Info("Starting courierhub",
		zap.Int("port", app.cfg.Port),
		zap.String("version", app.cfg.Version),
		zap.Int("vendors", app.registry.Count()),
	)

	runner, err := reconciler.NewRunner(app.cfg.ReconcilerSchedule, app.reconciler, app.logger)
	if err != nil {
		return err
	}
	runner.Start()
	defer runner.Stop()

	srv := server.New(server.Config{Port: app.cfg.Port},
		app.orchestrator, app.mappings, app.reconciler, app.metrics, app.logger)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	app, err := initApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	res, err := app.reconciler.Run(ctx)
	if err != nil {
		return fmt.Errorf("reconciliation error: %w", err)
	}
	return json.NewEncoder(os.Stdout).Encode(res)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/docbench/internal/accel"
	"github.com/pdiddy/docbench/internal/container"
	"github.com/pdiddy/docbench/internal/convert"
	"github.com/pdiddy/docbench/internal/history"
	"github.com/pdiddy/docbench/internal/models"
	"github.com/pdiddy/docbench/internal/web"
	"github.com/pdiddy/docbench/pkg/types"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the browser UI for document conversion",
	Long: `Serve starts the local web UI: upload a document, pick the OCR engine
and enrichments, parse it through the conversion engine, and export the
result as HTML, markdown, JSON or plain text.

When the engine is not answering and autostart is enabled, serve launches
the engine container with docker or podman and stops it on shutdown. In
hosted mode model assets are downloaded before the UI opens.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("host", "", "listen address (default 127.0.0.1)")
	serveCmd.Flags().Int("port", 0, "listen port (default 8080)")
	serveCmd.Flags().String("engine-url", "", "conversion engine base URL (default http://127.0.0.1:5001)")
	serveCmd.Flags().String("engine-api-key", "", "bearer token for the engine (default: .secrets/engine-api-key)")
	serveCmd.Flags().Bool("autostart", false, "start the engine container when the engine is not answering")
	serveCmd.Flags().String("output-dir", "", "directory for saved doc.<format> files (default output)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if host, _ := cmd.Flags().GetString("host"); host != "" {
		cfg.Server.Host = host
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		cfg.Server.Port = port
	}
	if u, _ := cmd.Flags().GetString("engine-url"); u != "" {
		cfg.Engine.URL = u
	}
	if auto, _ := cmd.Flags().GetBool("autostart"); auto {
		cfg.Engine.Autostart = true
	}
	if dir, _ := cmd.Flags().GetString("output-dir"); dir != "" {
		cfg.Server.OutputDir = dir
	}

	log, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	acc := accel.Detect()
	log.Info("accelerator detected",
		zap.String("device", string(acc.Device)),
		zap.Bool("flash_attention", acc.FlashAttention))

	apiKey, _ := cmd.Flags().GetString("engine-api-key")
	conv := convert.NewServeConverter(cfg.Engine, secretDefault("engine-api-key", apiKey))

	stopEngine, err := ensureEngine(ctx, cfg.Engine, conv, acc, log)
	if err != nil {
		return err
	}
	if stopEngine != nil {
		defer stopEngine()
	}

	if cfg.Hosted {
		dl := models.NewDownloader(cfg.Models, secretDefault("hf-token", ""))
		log.Info("hosted mode: fetching model assets", zap.String("dir", cfg.Models.Dir))
		summary, err := dl.Download(ctx, models.Manifest(), os.Stdout)
		if err != nil {
			return err
		}
		if summary.HasFailures() {
			return fmt.Errorf("%d model file(s) failed to download", summary.Failed)
		}
	}

	var hist *history.Store
	if cfg.History.Path != "" {
		hist, err = history.NewStore(cfg.History)
		if err != nil {
			return fmt.Errorf("opening history store: %w", err)
		}
		defer hist.Close()
	}

	srv, err := web.NewServer(cfg.Server, conv, acc, hist, log)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}

// ensureEngine probes the engine and, when autostart is enabled, brings
// up its container. The returned stop function is non-nil only when a
// container was started.
func ensureEngine(ctx context.Context, cfg types.EngineConfig, conv *convert.ServeConverter, acc accel.Accelerator, log *zap.Logger) (func(), error) {
	if probeEngine(ctx, conv) == nil {
		log.Info("engine answering", zap.String("url", cfg.URL))
		return nil, nil
	}
	if !cfg.Autostart {
		log.Warn("engine not answering; parses will fail until it is up",
			zap.String("url", cfg.URL))
		return nil, nil
	}

	rt, err := container.DetectRuntime()
	if err != nil {
		return nil, fmt.Errorf("engine autostart: %w", err)
	}
	if err := rt.ImageExists(cfg.Image); err != nil {
		log.Info("pulling engine image", zap.String("image", cfg.Image))
		if err := rt.Pull(cfg.Image); err != nil {
			return nil, fmt.Errorf("pulling %s: %w", cfg.Image, err)
		}
	}

	gpu := acc.Device == accel.DeviceCUDA
	id, err := rt.StartDetached(cfg.Image, cfg.Port, enginePort, gpu)
	if err != nil {
		return nil, fmt.Errorf("starting engine container: %w", err)
	}
	log.Info("engine container started",
		zap.String("runtime", rt.Name()),
		zap.String("id", id),
		zap.Bool("gpu", gpu))

	stopContainer := func() {
		if err := rt.Stop(id); err != nil {
			log.Warn("stopping engine container", zap.String("id", id), zap.Error(err))
		}
	}

	if err := waitHealthy(ctx, conv, cfg.StartupWait); err != nil {
		stopContainer()
		return nil, err
	}
	log.Info("engine ready", zap.String("url", cfg.URL))
	return stopContainer, nil
}

func probeEngine(ctx context.Context, conv *convert.ServeConverter) error {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return conv.Healthz(probeCtx)
}

// waitHealthy polls the engine's health endpoint until it answers or
// wait elapses.
func waitHealthy(ctx context.Context, conv *convert.ServeConverter, wait time.Duration) error {
	deadline := time.Now().Add(wait)
	for {
		err := probeEngine(ctx, conv)
		if err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("engine did not come up within %s: %w", wait, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}

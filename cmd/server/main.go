// Platform server - runs detection sessions and serves HTTP/WebSocket clients
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/GriffinCanCode/codefinder/backend/platform/internal/camera"
	"github.com/GriffinCanCode/codefinder/backend/platform/internal/config"
	apperrors "github.com/GriffinCanCode/codefinder/backend/platform/internal/errors"
	"github.com/GriffinCanCode/codefinder/backend/platform/internal/grpcclient"
	"github.com/GriffinCanCode/codefinder/backend/platform/internal/orchestrator"
	"github.com/GriffinCanCode/codefinder/backend/platform/internal/resilience"
	"github.com/GriffinCanCode/codefinder/backend/platform/internal/server"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	if err := run(cfg); err != nil {
		slog.Error("platform server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("shutdown complete")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to recognizer gRPC server
	recognizer, err := grpcclient.New(cfg.Recognition.Addr)
	if err != nil {
		return apperrors.Wrapf(err, apperrors.CodeUnavailable, "connect recognizer at %s", cfg.Recognition.Addr)
	}
	defer func() { _ = recognizer.Close() }()

	if cfg.Recognition.WaitReady {
		if err := recognizer.WaitReady(ctx, resilience.ReadinessRetryConfig()); err != nil {
			return err
		}
	}

	mgr := orchestrator.New(recognizer, cfg)
	if err := mgr.Start(ctx); err != nil {
		return err
	}
	defer mgr.Stop()

	srv := server.New(mgr, cfg)
	defer srv.Close()

	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("platform server starting", "http", cfg.Server.HTTPAddr, "recognizer", cfg.Recognition.Addr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if cfg.Source.Screen {
		capturer, err := camera.NewScreenCapturer(cfg.Source.Display)
		if err != nil {
			return err
		}
		g.Go(func() error {
			defer capturer.Close()
			slog.Info("screen source started", "display", cfg.Source.Display, "rate", cfg.Source.CaptureRate)
			camera.Pump(gctx, capturer, cfg.Source.CaptureRate, func(f *camera.Frame) {
				// Frames are dropped while no session is active.
				_ = mgr.SubmitFrame(f)
			})
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Recognizer server - serves Tesseract text recognition over gRPC
package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/GriffinCanCode/codefinder/backend/platform/internal/config"
	"github.com/GriffinCanCode/codefinder/backend/platform/internal/grpcclient"
	"github.com/GriffinCanCode/codefinder/backend/platform/internal/recognition/tesseract"
	"github.com/GriffinCanCode/codefinder/backend/platform/internal/trace"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	if err := run(cfg); err != nil {
		slog.Error("recognizer failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lis, err := net.Listen("tcp", cfg.Recognition.ListenAddr)
	if err != nil {
		return err
	}

	engine := tesseract.New(cfg.Recognition.Languages...)
	srv := grpc.NewServer(
		grpc.UnaryInterceptor(trace.UnaryServerInterceptor()),
		grpc.MaxRecvMsgSize(grpcclient.MaxMessageBytes),
		grpc.MaxSendMsgSize(grpcclient.MaxMessageBytes),
	)
	grpcclient.RegisterRecognizerServer(srv, grpcclient.NewEngineService(engine))

	hs := health.NewServer()
	hs.SetServingStatus(grpcclient.ServiceName, healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("recognizer listening", "addr", lis.Addr().String(), "engine", engine.Name(), "languages", cfg.Recognition.Languages)
		return srv.Serve(lis)
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")
		hs.Shutdown()
		srv.GracefulStop()
		return nil
	})
	return g.Wait()
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/construpro/internal/common"
	"github.com/joseph-ayodele/construpro/internal/core"
	"github.com/joseph-ayodele/construpro/internal/core/extract"
	"github.com/joseph-ayodele/construpro/internal/core/pdftext"
	"github.com/joseph-ayodele/construpro/internal/export"
	repo "github.com/joseph-ayodele/construpro/internal/repository"
	svc "github.com/joseph-ayodele/construpro/internal/server"
)

const shutdownTimeout = 15 * time.Second

func main() {
	_ = godotenv.Load()

	cfg := common.LoadConfig()
	logger := common.NewLogger(os.Stdout, cfg.Log, false)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := svc.ConnectDB(ctx, cfg.Database, logger)
	if err != nil {
		os.Exit(1)
	}
	defer svc.CloseDB(db, logger)

	if err := svc.PingDB(ctx, db, logger, 5*time.Second); err != nil {
		os.Exit(1)
	}

	loader, err := pdftext.New(cfg.Extraction, logger)
	if err != nil {
		logger.Error("failed to build document loader", "error", err)
		os.Exit(1)
	}
	opts, err := extract.OptionsFromConfig(cfg.Extraction)
	if err != nil {
		logger.Error("failed to load extraction tables", "error", err)
		os.Exit(1)
	}

	filesRepo := repo.NewFileHistoryRepository(db, cfg.History.Keep, logger)
	jobsRepo := repo.NewJobRepository(db, logger)
	extractor := extract.NewExtractor(loader, opts, logger)
	processor := core.NewProcessor(logger, extractor, filesRepo, jobsRepo)

	// gRPC server
	grpcServer := grpc.NewServer(grpc.MaxRecvMsgSize(int(cfg.Server.MaxUploadBytes) + 1<<20))
	svc.RegisterInvoiceServiceServer(grpcServer, svc.NewInvoiceServer(processor, logger))

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(svc.InvoiceServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	// HTTP server
	httpServer := &http.Server{
		Addr: cfg.Server.HTTPAddr,
		Handler: svc.NewHTTPHandler(svc.HTTPDeps{
			Processor:      processor,
			Files:          filesRepo,
			Jobs:           jobsRepo,
			Export:         export.NewService(jobsRepo, logger),
			Health:         db,
			MaxUploadBytes: cfg.Server.MaxUploadBytes,
			Logger:         logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Server.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
			os.Exit(1)
		}
		g.Go(func() error {
			logger.Info("construpro gRPC listening", "addr", cfg.Server.GRPCAddr)
			return grpcServer.Serve(lis)
		})
	}
	if cfg.Server.HTTPAddr != "" {
		g.Go(func() error {
			logger.Info("construpro HTTP listening", "addr", cfg.Server.HTTPAddr)
			if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		healthServer.Shutdown()

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(sctx); err != nil {
			logger.Error("http shutdown", "error", err)
		}
		grpcServer.GracefulStop()
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

// stubapi serves an in-memory rendition of the tr4ction backend for local
// development and for exercising the console against scripted failures.
package main

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httptransport "github.com/spec-kit/tr4ction-console/internal/api/http"
	"github.com/spec-kit/tr4ction-console/internal/api/http/handlers"
	"github.com/spec-kit/tr4ction-console/internal/config"
	"github.com/spec-kit/tr4ction-console/internal/observability"
	"github.com/spec-kit/tr4ction-console/internal/persistence"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Readiness covers the store the console session backend points at.
	ready := map[string]handlers.Pinger{}
	switch cfg.Session.Backend {
	case config.SessionBackendRedis:
		redis := persistence.NewRedis(ctx, cfg.Redis, logger)
		defer redis.Close()
		ready["redis"] = redis
	case config.SessionBackendPostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer pg.Close()
		ready["postgres"] = pg
	}

	srv, err := httptransport.NewServer(ctx, cfg.Stub, httptransport.Options{
		Logger:  logger,
		Metrics: observability.NewMetrics(),
		Ready:   ready,
	})
	if err != nil {
		logger.Fatal("failed to build stub backend", zap.Error(err))
	}

	ln, err := net.Listen("tcp", cfg.Stub.Addr())
	if err != nil {
		logger.Fatal("listen", zap.String("addr", cfg.Stub.Addr()), zap.Error(err))
	}

	go func() {
		if err := srv.Serve(ln); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := srv.Shutdown(5 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}

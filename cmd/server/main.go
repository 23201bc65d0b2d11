package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ogurasousui/dp-roster-sync/internal/adapters/grpc/handler"
	"github.com/ogurasousui/dp-roster-sync/internal/app"
	"github.com/ogurasousui/dp-roster-sync/internal/platform/admin"
	"github.com/ogurasousui/dp-roster-sync/internal/platform/config"
	"github.com/ogurasousui/dp-roster-sync/internal/platform/logger"
	"github.com/ogurasousui/dp-roster-sync/internal/platform/scheduler"
	"github.com/ogurasousui/dp-roster-sync/internal/platform/server"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

func main() {
	os.Exit(run())
}

// run はサーバーを起動し、停止後に終了コードを返します。
func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "assets/local.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Printf("failed to load config: %v", err)
		return 1
	}

	zl, err := logger.New(cfg.Log)
	if err != nil {
		log.Printf("failed to initialize logger: %v", err)
		return 1
	}
	defer func() { _ = zl.Sync() }()

	a, err := app.New(ctx, cfg, zl)
	if err != nil {
		zl.Error("failed to initialize application", zap.Error(err))
		return 1
	}
	defer a.Close()

	grpcServer := server.New(
		cfg.Server.ListenAddr,
		handler.NewRosterHandler(a.Sync, a.Query, zl),
		zl,
		grpc.ChainUnaryInterceptor(a.Metrics.UnaryServerInterceptor()),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return grpcServer.Run(gctx)
	})

	if cfg.Server.AdminAddr != "" {
		adminServer := admin.New(cfg.Server.AdminAddr, admin.NewRouter(a.Registry, a.ReadinessChecks()), zl)
		g.Go(func() error {
			return adminServer.Run(gctx)
		})
	}

	if cfg.Scheduler.Enabled {
		daily, err := scheduler.NewDaily(scheduler.NewSyncJob(a.Sync, zl), scheduler.Options{
			Hour:     cfg.Scheduler.Hour,
			Minute:   cfg.Scheduler.Minute,
			Location: cfg.Scheduler.Location,
			Logger:   zl,
		})
		if err != nil {
			zl.Error("failed to build scheduler", zap.Error(err))
			stop()
			_ = g.Wait()
			return 1
		}
		if err := daily.Start(gctx); err != nil {
			zl.Error("failed to start scheduler", zap.Error(err))
			stop()
			_ = g.Wait()
			return 1
		}
		defer daily.Stop()
	}

	if err := g.Wait(); err != nil {
		zl.Error("server stopped with error", zap.Error(err))
		return 1
	}
	zl.Info("server stopped")
	return 0
}

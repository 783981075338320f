package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/atukutisuzume/portfolio-visualizer/config"
	"github.com/atukutisuzume/portfolio-visualizer/data"
	"github.com/atukutisuzume/portfolio-visualizer/data/cache"
	"github.com/atukutisuzume/portfolio-visualizer/data/repository/postgres"
	"github.com/atukutisuzume/portfolio-visualizer/internal/auditlog"
	"github.com/atukutisuzume/portfolio-visualizer/internal/externalApi/cloudStorageApi/googleDriveApi"
	"github.com/atukutisuzume/portfolio-visualizer/internal/reportGenerator/xlsxGenerator"
	"github.com/atukutisuzume/portfolio-visualizer/internal/scheduler"
	"github.com/atukutisuzume/portfolio-visualizer/internal/service/portfolioService"
	"github.com/atukutisuzume/portfolio-visualizer/internal/transport/rest"
)

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	slog.Debug("config", slog.Any("cfg", cfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pgClient := data.NewPostgresClient(cfg)
	defer pgClient.Close()

	pgRepo := postgres.NewPostgres(cfg, pgClient)

	redisClient := data.NewRedisClient(cfg)
	defer redisClient.Close()

	redisCache := cache.NewRedisCache(redisClient, cfg)

	auditLogger := auditlog.New(cfg.Audit.LogPath)

	reportGenerator := xlsxGenerator.New()

	var cloudStorage portfolioService.CloudStorage
	if cfg.Drive.Enabled {
		cloudStorage = googleDriveApi.New(ctx, cfg)
	}

	portfolioSrv := portfolioService.New(cfg, pgRepo, redisCache, auditLogger, reportGenerator, cloudStorage)

	sched := scheduler.New()
	sched.NewIntervalJob("warm monthly pl cache", portfolioSrv.WarmMonthlyPlCache, cfg.Jobs.WarmMonthlyPlInterval, true)
	if cfg.Drive.Enabled {
		sched.NewIntervalJob("cleanup drive reports", portfolioSrv.CleanupDriveReports, cfg.Jobs.DriveCleanupInterval, false)
	}
	sched.Start()
	defer sched.Stop()

	controller := rest.NewController(cfg, portfolioSrv)
	router := rest.NewRouter(cfg, controller)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		slog.Info("http server started", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", slog.String("err", err.Error()))
			cancel()
		}
	}()

	// Waiting interruption signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	select {
	case <-interrupt:
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown failed", slog.String("err", err.Error()))
	}
}

func setupLogger(cfg *config.Config) {
	var logLevel slog.Level

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
}

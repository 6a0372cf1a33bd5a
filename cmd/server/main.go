package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"thetrek/internal/config"
	"thetrek/internal/database"
	"thetrek/internal/router"
	"thetrek/internal/services"
)

func main() {
	logger, err := initLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	logger.Info("starting the trek server")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}
	logger.Info("configuration loaded",
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port))

	dbManager, err := database.NewManager(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}

	if err := dbManager.Migrate(cfg.Database.MigrationsPath); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	collection, err := services.NewServiceCollection(dbManager, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize services", zap.Error(err))
	}

	startCtx, startCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := collection.Start(startCtx); err != nil {
		startCancel()
		logger.Fatal("failed to start services", zap.Error(err))
	}
	startCancel()

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.New(collection, logger),
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("http server listening",
			zap.String("address", server.Addr),
			zap.String("environment", cfg.Server.Environment))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	sig := <-quit
	logger.Info("shutdown signal received", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()

	// Stop accepting requests first, then drain the service layer so
	// in-flight badge evaluations complete before connections close.
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	if err := collection.Shutdown(shutdownCtx); err != nil {
		logger.Error("service shutdown error", zap.Error(err))
	}

	logger.Info("shutdown complete")
}

// initLogger builds the structured logger for the current environment.
func initLogger() (*zap.Logger, error) {
	var config zap.Config
	switch os.Getenv("GO_ENV") {
	case "production":
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	default:
		config = zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

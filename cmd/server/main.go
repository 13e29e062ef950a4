package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"anoa.com/attachments/internal/config"
	"anoa.com/attachments/internal/entity"
	"anoa.com/attachments/internal/server"
	"anoa.com/attachments/pkg/database"
	"anoa.com/attachments/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zapLogger, err := logger.New(cfg.AppEnv)
	if err != nil {
		log.Fatalf("failed to initialize zap logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Config loaded",
		zap.String("port", cfg.Port),
		zap.String("env", cfg.AppEnv),
		zap.String("storage_driver", cfg.StorageDriver),
		zap.Bool("remote_authz", cfg.AuthzURL != ""),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, cfg.PostgresDSN(), zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect database", zap.Error(err))
	}
	defer database.Close(db)

	if err := db.AutoMigrate(&entity.Attachment{}); err != nil {
		zapLogger.Fatal("Migration failed", zap.Error(err))
	}

	redisClient := database.ConnectRedis(ctx, cfg.RedisURL, zapLogger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	srv := server.NewServer(cfg, db, redisClient, zapLogger)
	srv.StartJobs(ctx)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zapLogger.Info("Server started", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Server stopped with error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	stop()
	zapLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	srv.StopJobs()

	// Let in-flight file cleanups and change feed publishes finish.
	srv.Drain()

	zapLogger.Info("Server exited gracefully")
}

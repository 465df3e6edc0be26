package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"slidestudio/internal/api"
	"slidestudio/internal/auth"
	"slidestudio/internal/catalog"
	"slidestudio/internal/config"
	"slidestudio/internal/database"
	"slidestudio/internal/editor"
	"slidestudio/internal/media"
	"slidestudio/internal/notify"
	"slidestudio/internal/repository"
	"slidestudio/internal/slider"
	"slidestudio/internal/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment variables")
	}

	cfg := config.MustLoad()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}
	logger.Info("database ready",
		slog.String("host", cfg.Database.Host),
		slog.String("db", cfg.Database.Name),
	)
	repo := repository.New(db)

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password})
	defer asynqClient.Close()

	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}

	privateKey, err := os.ReadFile(cfg.Auth.PrivateKeyPath)
	if err != nil {
		log.Fatalf("read jwt private key: %v", err)
	}
	publicKey, err := os.ReadFile(cfg.Auth.PublicKeyPath)
	if err != nil {
		log.Fatalf("read jwt public key: %v", err)
	}
	authService, err := auth.NewAuthService(privateKey, publicKey, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	if err != nil {
		log.Fatalf("init auth service: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cat := catalog.New(repo, logger)
	if cfg.API.SeedTemplates {
		seeded, err := cat.SeedDefaults(ctx)
		if err != nil {
			log.Fatalf("seed templates: %v", err)
		}
		if seeded > 0 {
			logger.Info("default templates seeded", slog.Int("count", seeded))
		}
	}

	var scanner media.Scanner
	if cfg.Media.ScanEnabled {
		scanner = media.NewClamdScanner(cfg.Media.ClamdAddr)
	}
	mediaService := media.NewService(storageClient, repo, scanner, cfg.Media.MaxUploadBytes, logger)

	sessions := editor.NewManager(cfg.Editor.SessionTTL, logger)
	go sessions.Run(ctx, cfg.Editor.SweepInterval)

	router := api.NewRouter(cfg, logger)
	api.RegisterRoutes(router, api.Dependencies{
		Config:   cfg,
		Repo:     repo,
		Auth:     authService,
		Redis:    redisClient,
		Sessions: sessions,
		Catalog:  cat,
		Slider:   slider.NewService(repo, logger),
		Media:    mediaService,
		Notifier: notify.NewRedisNotifier(redisClient, logger),
		Enqueuer: asynqClient,
		Objects:  storageClient,
		Logger:   logger,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("api listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down api server")
	case err := <-serverErr:
		logger.Error("api server failed", slog.Any("error", err))
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("api server forced to shutdown", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("api server exited")
}

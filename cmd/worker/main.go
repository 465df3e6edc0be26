package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"slidestudio/internal/config"
	"slidestudio/internal/database"
	"slidestudio/internal/media"
	"slidestudio/internal/metrics"
	"slidestudio/internal/notify"
	"slidestudio/internal/repository"
	"slidestudio/internal/snapshot"
	"slidestudio/internal/storage"
	"slidestudio/internal/tasks"
	"slidestudio/internal/worker"
)

func main() {
	_ = godotenv.Load()
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	log.Println("database connection ready for worker")
	repo := repository.New(db)

	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}
	log.Printf("storage client ready, bucket=%s", cfg.MinIO.Bucket)

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	redisOpt := asynq.RedisClientOpt{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password}
	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Worker.Concurrency,
	})

	// 媒体服务只用于解析背景地址，不需要扫描器。
	mediaService := media.NewService(storageClient, repo, nil, cfg.Media.MaxUploadBytes, logger)
	thumbnailHandler := worker.NewThumbnailHandler(
		repo,
		mediaService,
		snapshot.NewRodScreenshotter(cfg.Worker.ChromeBin, logger),
		storageClient,
		notify.NewRedisNotifier(redisClient, logger),
		cfg.Worker.ThumbnailWidth,
		logger,
	)

	mux := asynq.NewServeMux()
	mux.Use(metrics.AsynqMetricsMiddleware())
	mux.Handle(tasks.TypeSlideThumbnail, thumbnailHandler)

	logger.Info("worker service started", slog.String("redis_addr", cfg.Redis.Addr()))
	if err := server.Run(mux); err != nil {
		logger.Error("worker server stopped", slog.Any("error", err))
	}
}

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"couple-journal/api"
	"couple-journal/auth"
	"couple-journal/config"
	"couple-journal/journal"
	"couple-journal/model"
	"couple-journal/storage"
	"couple-journal/upload"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	logger, err := config.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatal("Failed to create logger:", err)
	}
	defer logger.Sync()

	for _, w := range cfg.ApplyFallbacks() {
		logger.Warn(w)
	}

	ctx := context.Background()

	mongodb := &storage.MongoStore{Log: logger}
	if err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase); err != nil {
		logger.Fatal("failed to connect to MongoDB", zap.Error(err))
	}
	defer mongodb.Close(context.Background())

	if err := mongodb.EnsureIndexes(ctx); err != nil {
		logger.Fatal("failed to create indexes", zap.Error(err))
	}

	j := journal.New(mongodb, mongodb, mongodb, mongodb, logger)
	if err := j.Provinces.Seed(ctx); err != nil {
		logger.Warn("failed to seed provinces", zap.Error(err))
	}

	photos, files := photoStorage(ctx, cfg, logger)

	authService := auth.NewService(mongodb, cfg.JWTSecret, logger)
	authService.Subscribe(func(user *model.User) {
		if user != nil {
			logger.Debug("auth state changed", zap.String("user_id", user.ID))
		}
	})

	uploader := upload.NewUploader(photos, logger)
	uploader.Compress.Enabled = cfg.CompressUploads

	server := api.NewServer(
		authService,
		j,
		uploader,
		&upload.Archiver{Storage: photos, Delay: cfg.AlbumDownloadDelay, Log: logger},
		logger,
	)
	server.Files = files

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shut down", zap.Error(err))
	}
}

// photoStorage picks the bucket when it is configured and reachable, and
// local disk otherwise. The returned handler serves local files and is nil
// for the bucket.
func photoStorage(ctx context.Context, cfg config.Config, logger *zap.Logger) (storage.PhotoStorage, http.Handler) {
	if cfg.Storage.Enabled() {
		bucket, err := storage.NewMinioPhotoStorage(ctx, storage.MinioConfig{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Bucket:    cfg.Storage.Bucket,
			UseSSL:    cfg.Storage.UseSSL,
			PublicURL: cfg.Storage.PublicURL,
		}, logger)
		if err == nil {
			return bucket, nil
		}
		logger.Warn("object storage unavailable; falling back to local disk", zap.Error(err))
	}

	local := &storage.LocalPhotoStorage{
		Directory: cfg.LocalUploadDir,
		BaseURL:   cfg.LocalPublicURL,
	}
	return local, local.Handler()
}

package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"arpublish/internal/config"
	"arpublish/internal/database"
	handlers "arpublish/internal/http/handler"
	"arpublish/internal/repository"
	"arpublish/internal/repository/cache"
	"arpublish/internal/repository/memory"
	"arpublish/internal/repository/postgres"
	"arpublish/internal/storage"
)

// openRepository returns the record store, the health pinger backing /health and a close func.
func openRepository(ctx context.Context, cfg *config.AppConfig, log *zap.Logger) (repository.ArRepository, handlers.Pinger, func(), error) {
	switch cfg.Database.Driver {
	case "postgres":
		db, err := database.Connect(ctx, cfg.Database, log)
		if err != nil {
			return nil, nil, nil, err
		}
		return postgres.NewArPostgres(db), db, func() { _ = db.Close() }, nil
	case "memory":
		log.Warn("using in-memory metadata store; records are lost on restart")
		repo := memory.NewArMemory()
		return repo, repo, func() {}, nil
	default:
		return nil, nil, nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Database.Driver)
	}
}

// withResolveCache fronts repo with the record LRU unless it is disabled.
func withResolveCache(repo repository.ArRepository, cfg config.CacheConfig, reg prometheus.Registerer) (repository.ArRepository, error) {
	if cfg.Size == 0 {
		return repo, nil
	}
	return cache.NewArCache(repo, cfg.Size, cfg.TTL, reg)
}

// openUploader builds the photo and video buckets and the uploader over them.
func openUploader(ctx context.Context, cfg *config.AppConfig) (storage.Uploader, error) {
	var photos, videos storage.Storage
	switch cfg.MinIO.Driver {
	case "minio":
		cli, err := storage.NewMinIOClient(cfg.MinIO)
		if err != nil {
			return nil, err
		}
		if photos, err = storage.NewMinIOBucket(ctx, cli, cfg.MinIO.PhotoBucket); err != nil {
			return nil, err
		}
		if videos, err = storage.NewMinIOBucket(ctx, cli, cfg.MinIO.VideoBucket); err != nil {
			return nil, err
		}
	case "memory":
		photos = storage.NewMemory(cfg.MinIO.PhotoBucket)
		videos = storage.NewMemory(cfg.MinIO.VideoBucket)
	default:
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER %q", cfg.MinIO.Driver)
	}
	return storage.NewBlobUploader(cfg.MinIO.PublicURL, photos, videos), nil
}

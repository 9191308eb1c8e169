package credential

import (
	"context"
	"fmt"

	"clubhub-go/internal/config"
)

// Open builds the store selected by cfg.Backend, wrapped with instrumentation.
func Open(ctx context.Context, cfg config.StoreConfig) (*Instrumented, error) {
	var (
		store Store
		err   error
	)
	switch cfg.Backend {
	case config.StoreMemory:
		store = NewMemoryStore()
	case config.StoreFile, "":
		store, err = NewFileStore(cfg.FilePath)
	case config.StoreRedis:
		store, err = NewRedisStore(ctx, RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
	case config.StoreMongoDB:
		store, err = NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
	case config.StorePostgres:
		store, err = NewPostgresStore(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown credential store backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Backend, err)
	}
	label := cfg.Backend
	if label == "" {
		label = config.StoreFile
	}
	return WithInstrumentation(store, label), nil
}

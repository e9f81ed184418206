package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/AlouiLouai/takwira/internal/config"
	"github.com/AlouiLouai/takwira/internal/logging"
	"github.com/AlouiLouai/takwira/internal/onboarding"
	"github.com/AlouiLouai/takwira/internal/store"

	"github.com/redis/go-redis/v9"
)

type migrator interface {
	Migrate(ctx context.Context) (int, error)
}

// backend is the storage side of a running process.
type backend struct {
	gateway  store.Gateway
	migrator migrator
	kv       onboarding.KV
	redis    *redis.Client
}

func (b *backend) Close() error {
	var errs []error
	if b.gateway != nil {
		errs = append(errs, b.gateway.Close())
	}
	if b.redis != nil {
		errs = append(errs, b.redis.Close())
	}
	return errors.Join(errs...)
}

// openBackend picks the gateway named by the config. When REDIS_URL is set,
// Redis carries the change feed for memory and SQLite and stores tutorial
// flags; Postgres always uses its own LISTEN/NOTIFY feed.
func openBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (*backend, error) {
	b := &backend{kv: onboarding.NewMemoryKV()}
	var feed store.Feed

	if cfg.Redis.URL != "" {
		redisOpts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		b.redis = redis.NewClient(redisOpts)
		kv, err := onboarding.NewRedisKV(&onboarding.RedisKVConfig{RedisClient: b.redis})
		if err != nil {
			_ = b.Close()
			return nil, err
		}
		b.kv = kv
		if cfg.Store.Backend != config.BackendPostgres {
			rf, err := store.NewRedisFeed(&store.RedisFeedConfig{
				RedisClient: b.redis,
				Channel:     cfg.Redis.Channel,
				Logger:      logger,
			})
			if err != nil {
				_ = b.Close()
				return nil, err
			}
			feed = rf
		}
	}

	switch cfg.Store.Backend {
	case config.BackendPostgres:
		pg, err := store.NewPostgresGateway(cfg.Store.PostgresDSN, store.PostgresOptions{
			MigrationsDir: cfg.Store.PostgresMigrationsDir,
			AutoMigrate:   cfg.Store.AutoMigrate,
			Logger:        logger,
		})
		if err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("postgres gateway: %w", err)
		}
		b.gateway, b.migrator = pg, pg
	case config.BackendSQLite:
		lite, err := store.NewSQLiteGateway(cfg.Store.DBPath, store.SQLiteOptions{
			MigrationsDir: cfg.Store.SQLiteMigrationsDir,
			AutoMigrate:   cfg.Store.AutoMigrate,
			Feed:          feed,
			Logger:        logger,
		})
		if err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("sqlite gateway: %w", err)
		}
		b.gateway, b.migrator = lite, lite
	default:
		b.gateway = store.NewMemoryGateway(store.MemoryOptions{Feed: feed, Seed: cfg.Dev()})
	}

	logging.Info(logger, "store ready",
		logging.FieldBackend, cfg.Store.Backend,
		"redis", b.redis != nil,
	)
	return b, nil
}

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/playperu/scoreboard/internal/config"
	"github.com/playperu/scoreboard/internal/database"
	"github.com/playperu/scoreboard/internal/handler/health"
	"github.com/playperu/scoreboard/internal/migrations"
	"github.com/playperu/scoreboard/internal/server"
	"github.com/playperu/scoreboard/internal/store"
)

// backend is the configured store plus whatever else lives next to it.
type backend struct {
	store  store.Backend
	admins server.AdminStore
	checks map[string]health.Checker
}

func (b *backend) Close() error { return b.store.Close() }

func openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*backend, error) {
	b := &backend{checks: map[string]health.Checker{}}

	switch cfg.StoreBackend {
	case config.BackendMemory:
		b.store = store.NewMemory()
		b.checks["store"] = b.store
		logger.Warn("using in-memory store, state is lost on restart")

	case config.BackendSQLite:
		db, err := database.Open(ctx, cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("connecting to sqlite: %w", err)
		}
		if err := migrations.Run(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
		logger.Info("connected to sqlite", "path", cfg.DBPath)
		b.store = store.NewSQLite(db)
		b.checks["sqlite"] = database.Checker{DB: db}

		if cfg.AdminEmail != "" {
			admins := server.NewSQLAdminStore(db)
			if err := admins.Seed(ctx, cfg.AdminEmail, cfg.AdminPasswordHash); err != nil {
				db.Close()
				return nil, err
			}
			b.admins = admins
		}

	case config.BackendRedis:
		rdb, err := openRedis(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		s, err := store.NewRedis(ctx, rdb, cfg.RedisPrefix)
		if err != nil {
			rdb.Close()
			return nil, err
		}
		logger.Info("connected to redis", "prefix", cfg.RedisPrefix)
		b.store = s
		b.checks["redis"] = redisChecker{rdb}

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	if b.admins == nil && cfg.AdminEmail != "" {
		b.admins = server.NewMemoryAdminStore(cfg.AdminEmail, cfg.AdminPasswordHash)
	}
	return b, nil
}

// openRedis builds the client. store.NewRedis does the connectivity check.
func openRedis(rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	return redis.NewClient(opt), nil
}

// redisChecker adapts *redis.Client to health.Checker.
type redisChecker struct{ client *redis.Client }

func (r redisChecker) Check(ctx context.Context) error { return r.client.Ping(ctx).Err() }

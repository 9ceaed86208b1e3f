package session

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/tr4ction-console/internal/config"
	"github.com/spec-kit/tr4ction-console/internal/persistence"
)

// Open builds the store selected by cfg.Session.Backend. The returned
// closer releases any connection the store holds and is never nil.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Store, func(), error) {
	noop := func() {}

	switch cfg.Session.Backend {
	case config.SessionBackendMemory:
		return NewMemoryStore(), noop, nil

	case config.SessionBackendFile, "":
		return NewFileStore(cfg.Session.Dir), noop, nil

	case config.SessionBackendRedis:
		rdb := persistence.NewRedis(ctx, cfg.Redis, logger)
		return NewRedisStore(rdb.Client, cfg.Session.Namespace), rdb.Close, nil

	case config.SessionBackendPostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, noop, err
		}
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.Pool, cfg.Postgres.MigrationsDir, logger); err != nil {
				pg.Close()
				return nil, noop, err
			}
		}
		return NewPostgresStore(pg.Pool, cfg.Session.Namespace), pg.Close, nil

	default:
		return nil, noop, fmt.Errorf("unknown session backend %q", cfg.Session.Backend)
	}
}

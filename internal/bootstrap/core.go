// Package bootstrap builds the storage-backed components shared by the API
// and the worker: database, cache, search projector, ledger and blacklist gate.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/ajayykmr/sms-dispatch-service/internal/blacklist"
	"github.com/ajayykmr/sms-dispatch-service/internal/cache"
	"github.com/ajayykmr/sms-dispatch-service/internal/config"
	"github.com/ajayykmr/sms-dispatch-service/internal/ledger"
	"github.com/ajayykmr/sms-dispatch-service/internal/search"
	"github.com/ajayykmr/sms-dispatch-service/internal/storage"
)

// Core holds the shared components and the connections behind them.
type Core struct {
	DB        *gorm.DB
	Redis     *redis.Client
	Projector *search.Projector
	Ledger    *ledger.Ledger
	Gate      *blacklist.Gate
}

// Open connects to the database and Redis, migrates the schema and wires the
// ledger, projector and gate. Partially opened connections are released on
// error.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Core, error) {
	db, err := storage.Open(cfg.Database, log)
	if err != nil {
		return nil, err
	}
	if err := storage.AutoMigrate(db); err != nil {
		_ = storage.Close(db)
		return nil, fmt.Errorf("bootstrap: migrate: %w", err)
	}

	rdb, err := cache.Connect(ctx, cfg.Redis)
	if err != nil {
		_ = storage.Close(db)
		return nil, err
	}

	core := &Core{DB: db, Redis: rdb}
	if err := core.wire(ctx, cfg, log); err != nil {
		_ = core.Close()
		return nil, err
	}
	return core, nil
}

func (c *Core) wire(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	store, err := searchStore(ctx, cfg.Search, c.DB)
	if err != nil {
		return err
	}
	c.Projector, err = search.NewProjector(store, log)
	if err != nil {
		return err
	}

	rc := cache.NewRedisCache(c.Redis)
	c.Ledger, err = ledger.New(ledger.NewGormStore(c.DB), rc, c.Projector, cfg.Redis.CacheTTL, log)
	if err != nil {
		return err
	}
	c.Gate, err = blacklist.NewGate(blacklist.NewGormStore(c.DB), rc, cfg.Redis.CacheTTL, log)
	return err
}

func searchStore(ctx context.Context, cfg config.SearchConfig, db *gorm.DB) (search.DocumentStore, error) {
	switch cfg.Backend {
	case "db":
		return search.NewDBStore(db), nil
	case "elastic":
		es, err := search.NewElasticClient(cfg)
		if err != nil {
			return nil, err
		}
		store, err := search.NewElasticStore(es, cfg.Index)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureIndex(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("bootstrap: unsupported search backend %q", cfg.Backend)
	}
}

// PingDB is a health check for the database.
func (c *Core) PingDB(ctx context.Context) error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// PingRedis is a health check for the cache.
func (c *Core) PingRedis(ctx context.Context) error {
	return c.Redis.Ping(ctx).Err()
}

// Close releases Redis and the database pool.
func (c *Core) Close() error {
	var errs []error
	if c.Redis != nil {
		errs = append(errs, c.Redis.Close())
	}
	if c.DB != nil {
		errs = append(errs, storage.Close(c.DB))
	}
	return errors.Join(errs...)
}

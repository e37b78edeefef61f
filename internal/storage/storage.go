// Package storage opens the record store selected by configuration.
package storage

import (
	"database/sql"
	"fmt"

	"github.com/marcelsud/webhook-inspector/config"
	"github.com/marcelsud/webhook-inspector/migrations"
	"github.com/marcelsud/webhook-inspector/webhook"
	"github.com/marcelsud/webhook-inspector/webhook/postgres"
	"github.com/marcelsud/webhook-inspector/webhook/redis"
	"github.com/marcelsud/webhook-inspector/webhook/sqlite"
	"github.com/rs/zerolog/log"
)

// Open returns the configured store, migrating SQL schemas first when AutoMigrate is set
func Open(cfg *config.Config) (webhook.Repository, error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		if cfg.AutoMigrate {
			if err := migrate(postgres.DriverName, cfg.DatabaseURL, migrations.Postgres); err != nil {
				return nil, err
			}
		}
		repo, err := postgres.NewRepositoryWithPoolConfig(
			cfg.DatabaseURL,
			cfg.PostgresMaxOpenConns,
			cfg.PostgresMaxIdleConns,
			cfg.PostgresConnMaxLifetimeMinutes,
		)
		if err != nil {
			return nil, err
		}
		return repo, nil

	case config.StoreSQLite:
		if cfg.AutoMigrate {
			if err := migrate(sqlite.DriverName, sqlite.DSN(cfg.SQLitePath), migrations.SQLite); err != nil {
				return nil, err
			}
		}
		repo, err := sqlite.NewRepository(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return repo, nil

	case config.StoreRedis:
		repo, err := redis.NewRepository(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		return repo, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// migrate runs on its own handle; migrations.Run closes it
func migrate(driverName, dsn, dialect string) error {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return fmt.Errorf("opening %s for migrations: %w", dialect, err)
	}
	log.Info().Str("dialect", dialect).Msg("applying migrations")
	if err := migrations.Run(db, dialect); err != nil {
		return fmt.Errorf("migrating %s: %w", dialect, err)
	}
	return nil
}

package repository

import (
	"fmt"

	"github.com/Habibullahdevv/ai-native-book/internal/config"
)

// Open returns the store selected by cfg.DatabaseURL: Postgres for
// postgres:// URLs, SQLite otherwise.
func Open(cfg *config.Config) (Store, error) {
	if cfg.UsesPostgres() {
		store, err := NewPostgresStore(cfg.DatabaseURL, PostgresOptions{
			MaxConns:       int32(cfg.DBMaxConns),
			MinConns:       int32(cfg.DBMinConns),
			AcquireTimeout: cfg.DBAcquireTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("postgres store: %w", err)
		}
		return store, nil
	}
	store, err := NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: %w", err)
	}
	return store, nil
}

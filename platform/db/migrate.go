// Package db provides database connection infrastructure.
// This is part of the platform layer and contains no business logic.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"callcenter_backend/platform/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// RunMigrations applies all pending goose migrations found in fsys.
// It returns the versions applied by this call.
func RunMigrations(ctx context.Context, cfg config.DatabaseConfig, fsys fs.FS) ([]int64, error) {
	sqlDB, err := sql.Open("pgx", cfg.GetDatabaseURL())
	if err != nil {
		return nil, err
	}
	defer sqlDB.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, sqlDB, fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return nil, err
	}

	applied := make([]int64, 0, len(results))
	for _, res := range results {
		if res.Source != nil {
			applied = append(applied, res.Source.Version)
		}
	}
	return applied, nil
}

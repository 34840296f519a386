package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

// Direction selects which goose command Migrate runs.
type Direction string

const (
	MigrateUp     Direction = "up"
	MigrateDown   Direction = "down"
	MigrateStatus Direction = "status"
)

// Migrate runs the embedded migrations against db in the given direction.
func Migrate(ctx context.Context, db *DB, dir Direction) error {
	if db == nil || db.Pool == nil {
		return errors.New("nil pool provided")
	}

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(db.Pool)
	defer sqlDB.Close()

	switch dir {
	case MigrateUp:
		return goose.UpContext(ctx, sqlDB, migrationsDir)
	case MigrateDown:
		return goose.DownContext(ctx, sqlDB, migrationsDir)
	case MigrateStatus:
		return goose.StatusContext(ctx, sqlDB, migrationsDir)
	default:
		return fmt.Errorf("unknown migration direction %q", dir)
	}
}

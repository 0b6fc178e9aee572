package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

func init() {
	createAttemptsSQL := mustReadSQL("create_attempts.sql")
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, createAttemptsSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS attempts`)
			return err
		},
	)
}

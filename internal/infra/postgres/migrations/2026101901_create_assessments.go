package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

func init() {
	createAssessmentsSQL := mustReadSQL("create_assessments.sql")
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, createAssessmentsSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS assessments`)
			return err
		},
	)
}

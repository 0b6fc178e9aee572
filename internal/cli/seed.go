package cli

import (
	"fmt"
	"time"

	"assessment-session-service/internal/config"
	"assessment-session-service/internal/infra/memory"
	pgstore "assessment-session-service/internal/infra/postgres"
	infraredis "assessment-session-service/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewSeedCmd loads a YAML catalog into Postgres and drops stale cached definitions.
func NewSeedCmd(configPath *string) *cobra.Command {
	var catalogPath string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load assessments from a YAML catalog into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync()

			path := catalogPath
			if path == "" {
				path = cfg.Assessment.Catalog
			}
			if path == "" {
				return fmt.Errorf("no catalog path given")
			}
			catalog, err := memory.LoadCatalogFile(path)
			if err != nil {
				return err
			}

			if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
				return err
			}
			pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer pool.Close()
			loader := pgstore.NewAssessmentLoader(pool)

			var cache *infraredis.AssessmentRepository
			if cfg.Redis.Addr != "" {
				client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
				defer client.Close()
				cache = infraredis.NewAssessmentRepository(client, loader, config.TTLDuration(cfg.Assessment.TTL, 10*time.Minute))
			}

			for _, stored := range catalog.All() {
				if err := loader.SaveAssessment(ctx, stored); err != nil {
					return fmt.Errorf("seed %q: %w", stored.Definition.ID, err)
				}
				if cache != nil {
					if err := cache.Invalidate(ctx, stored.Definition.ID); err != nil {
						log.Warn("cache invalidation failed", "assessment_id", stored.Definition.ID, "error", err)
					}
				}
				log.Info("assessment seeded", "assessment_id", stored.Definition.ID, "questions", len(stored.Definition.Questions))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "catalog file (defaults to assessment.catalog)")
	return cmd
}

package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"assessment-session-service/internal/app"
	"assessment-session-service/internal/config"
	"assessment-session-service/internal/infra/attemptapi"
	pgstore "assessment-session-service/internal/infra/postgres"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
)

// NewResultsCmd prints the stored result of an attempt.
func NewResultsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "results <assessmentId> <attemptId>",
		Short: "Print the result of a submitted attempt",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync()

			var gateway app.AttemptGateway
			switch {
			case cfg.AttemptAPI.BaseURL != "":
				gateway = attemptapi.New(cfg.AttemptAPI.BaseURL, config.TTLDuration(cfg.AttemptAPI.Timeout, 10*time.Second))
			case cfg.Postgres.URL != "":
				pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
				if err != nil {
					return fmt.Errorf("connect postgres: %w", err)
				}
				defer pool.Close()
				gateway = pgstore.NewAttemptStore(pool, pgstore.NewAssessmentLoader(pool))
			default:
				return fmt.Errorf("neither attemptApi.baseUrl nor postgres.url is configured")
			}

			result, err := gateway.GetResults(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
}

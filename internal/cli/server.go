package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"assessment-session-service/internal/app"
	"assessment-session-service/internal/config"
	"assessment-session-service/internal/domain"
	"assessment-session-service/internal/infra/attemptapi"
	"assessment-session-service/internal/infra/memory"
	pgstore "assessment-session-service/internal/infra/postgres"
	infraredis "assessment-session-service/internal/infra/redis"
	"assessment-session-service/internal/logger"
	"assessment-session-service/internal/rewards"
	"assessment-session-service/internal/submission"
	transport "assessment-session-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the assessment server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// backend is the persistence side the engine talks to.
type backend struct {
	content  app.ContentProvider
	attempts app.AttemptGateway
	// local is set when this process owns persistence and serves the attempt API.
	local bool
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, log, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.Postgres.URL != "" && cfg.AttemptAPI.BaseURL == "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 30*time.Minute)

	be, closeBackend, err := buildBackend(ctx, cfg, redisClient, log)
	if err != nil {
		return err
	}
	defer closeBackend()

	var store app.SessionRepository
	var owners transport.OwnerLookup
	if redisClient != nil {
		redisSessions := infraredis.NewSessionStore(redisClient, redisTTL, cfg.Server.Instance)
		store = redisSessions
		owners = redisSessions
	} else {
		store = memory.NewSessionStore()
	}

	var streaks rewards.StreakStore = memory.NewStreakStore()
	var publisher rewards.Publisher
	if redisClient != nil {
		streaks = infraredis.NewStreakStore(redisClient)
		awards := infraredis.NewRewardPublisher(redisClient, cfg.Rewards.Channel, log)
		publisher = awards
		err := awards.Forward(ctx, func(a rewards.Award) {
			log.Info("award delivered", "learner_id", a.LearnerID, "points", a.Points, "milestone", a.Milestone)
		})
		if err != nil {
			log.Warn("award forwarding disabled", "error", err)
		}
	}

	sessionCfg := sessionConfig(cfg)
	service := app.NewAssessmentService(store, app.Dependencies{
		Content:   be.content,
		Attempts:  be.attempts,
		Submitter: submission.NewCoordinator(be.attempts, sessionCfg.SubmitTimeout, log),
		Rewards:   rewards.NewSink(streaks, publisher, log),
		Log:       log,
		Config:    sessionCfg,
	})
	wsHandler := transport.NewWSHandler(service, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	if be.local {
		transport.NewAttemptHandler(be.content, be.attempts, log).Register(mux)
	}
	if owners != nil {
		transport.NewSessionStatusHandler(owners, log).Register(mux)
	}

	server := &http.Server{
		Addr:    ":" + finalPort,
		Handler: mux,
		// WebSocket connections are long-lived; only the header read is bounded.
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("starting assessment service", "port", finalPort, "local_persistence", be.local)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("failed to start server", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildBackend picks the persistence side: a remote attempt API, Postgres, or the YAML catalog in memory.
// Definitions are cached in Redis when it is configured.
func buildBackend(ctx context.Context, cfg config.Config, redisClient *redis.Client, log *logger.Logger) (backend, func(), error) {
	noop := func() {}
	if cfg.AttemptAPI.BaseURL != "" {
		client := attemptapi.New(cfg.AttemptAPI.BaseURL, config.TTLDuration(cfg.AttemptAPI.Timeout, 10*time.Second))
		log.Info("using remote attempt api", "base_url", cfg.AttemptAPI.BaseURL)
		return backend{content: cachedContent(cfg, client, redisClient), attempts: client}, noop, nil
	}

	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return backend{}, noop, fmt.Errorf("connect postgres: %w", err)
		}
		loader := pgstore.NewAssessmentLoader(pool)
		return backend{
			content:  cachedContent(cfg, loader, redisClient),
			attempts: pgstore.NewAttemptStore(pool, loader),
			local:    true,
		}, pool.Close, nil
	}

	catalog, err := loadCatalog(cfg, log)
	if err != nil {
		return backend{}, noop, err
	}
	return backend{
		content:  cachedContent(cfg, catalog, redisClient),
		attempts: memory.NewAttemptStore(catalog),
		local:    true,
	}, noop, nil
}

func cachedContent(cfg config.Config, loader memory.AssessmentLoader, redisClient *redis.Client) app.ContentProvider {
	ttl := config.TTLDuration(cfg.Assessment.TTL, 10*time.Minute)
	if redisClient != nil {
		return infraredis.NewAssessmentRepository(redisClient, loader, ttl)
	}
	return memory.NewAssessmentRepository(loader, ttl)
}

func loadCatalog(cfg config.Config, log *logger.Logger) (*memory.Catalog, error) {
	if cfg.Assessment.Catalog == "" {
		log.Warn("no catalog configured, serving the built-in sample assessment")
		return memory.NewCatalog(sampleAssessment()), nil
	}
	catalog, err := memory.LoadCatalogFile(cfg.Assessment.Catalog)
	if err != nil {
		return nil, err
	}
	log.Info("catalog loaded", "path", cfg.Assessment.Catalog, "assessments", len(catalog.All()))
	return catalog, nil
}

func sessionConfig(cfg config.Config) app.SessionConfig {
	defaults := app.DefaultSessionConfig()
	return app.SessionConfig{
		MaxSubmitRetries: cfg.Retries(defaults.MaxSubmitRetries),
		SubmitTimeout:    config.TTLDuration(cfg.Session.SubmitTimeout, defaults.SubmitTimeout),
		TickInterval:     config.TTLDuration(cfg.Session.TickInterval, defaults.TickInterval),
		RewardTimeout:    config.TTLDuration(cfg.Session.RewardTimeout, defaults.RewardTimeout),
	}
}

// sampleAssessment is served when no catalog file is configured.
func sampleAssessment() domain.StoredAssessment {
	return domain.StoredAssessment{
		Definition: domain.AssessmentDefinition{
			ID:               "sample-1",
			Title:            "Sample quiz",
			Kind:             domain.KindQuiz,
			TimeLimitSeconds: 120,
			PassThreshold:    50,
			Questions: []domain.Question{
				{ID: "q1", Prompt: "What is 2 + 2?", Kind: domain.AnswerSingleChoice, Options: []string{"3", "4", "5"}, Points: 1},
				{ID: "q2", Prompt: "The earth orbits the sun.", Kind: domain.AnswerBoolean, Options: []string{"True", "False"}, Points: 1},
			},
		},
		AnswerKey: domain.AnswerKey{"q1": {"4"}, "q2": {"True"}},
	}
}

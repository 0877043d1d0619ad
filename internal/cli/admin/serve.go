package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/parkwebdev/recall/internal/api/handlers"
	"github.com/parkwebdev/recall/internal/config"
	"github.com/parkwebdev/recall/internal/database"
	"github.com/parkwebdev/recall/internal/domain"
	"github.com/parkwebdev/recall/internal/jobs"
	"github.com/parkwebdev/recall/internal/openai"
	"github.com/parkwebdev/recall/internal/repository"
	"github.com/parkwebdev/recall/internal/server"
	"github.com/parkwebdev/recall/internal/service"
	"github.com/parkwebdev/recall/internal/telemetry"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the recall API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().Bool("no-workers", false, "Skip the in-process janitor and watchdog workers")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPoolFromURL(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	searchRepo := repository.NewSearchRepository(pool, cfg.IVFFlatProbes)
	sourceRepo := repository.NewSourceRepository(pool)
	embeddingCacheRepo := repository.NewEmbeddingCacheRepository(pool)
	responseCacheRepo := repository.NewResponseCacheRepository(pool)
	apiKeyRepo := repository.NewAPIKeyRepository(pool)

	uuidGen := &service.DefaultUUIDGenerator{}
	authSvc := service.NewAuthService(apiKeyRepo, uuidGen)

	if cfg.InitAPIKeyName != "" {
		if err := bootstrapInitialAPIKey(ctx, cfg, authSvc, apiKeyRepo); err != nil {
			return fmt.Errorf("failed to bootstrap initial API key: %w", err)
		}
	}

	searchSvc := service.NewSearchService(searchRepo, service.DefaultTierDimensions())
	embeddingCacheSvc := service.NewEmbeddingCacheService(embeddingCacheRepo, cfg.CacheTTL)
	responseCacheSvc := service.NewResponseCacheService(responseCacheRepo, cfg.CacheTTL)
	janitorSvc := service.NewJanitorService(embeddingCacheRepo, responseCacheRepo)
	watchdogSvc := service.NewWatchdogService(sourceRepo, cfg.StuckTimeout)

	var embedder service.EmbeddingClient
	var helpEmbedder service.EmbeddingClient
	if cfg.HasOpenAI() {
		embedder = openai.NewClient(cfg.OpenAIAPIKey)
		helpEmbedder = openai.NewHelpArticleClient(cfg.OpenAIAPIKey)
	} else {
		log.Println("OPENAI_API_KEY not set: /retrieve will be unavailable")
	}

	var retrieveHandler *handlers.RetrieveHandler
	if embedder != nil {
		retrievalSvc := service.NewRetrievalService(searchSvc, embeddingCacheSvc, responseCacheSvc, embedder, helpEmbedder)
		retrieveHandler = handlers.NewRetrieveHandler(retrievalSvc)
	} else {
		retrieveHandler = handlers.NewRetrieveHandler(&noOpRetrievalService{})
	}

	routerCfg := server.RouterConfig{
		AuthValidator:      authSvc,
		SearchHandler:      handlers.NewSearchHandler(searchSvc),
		RetrieveHandler:    retrieveHandler,
		CacheHandler:       handlers.NewCacheHandler(embeddingCacheSvc, responseCacheSvc),
		MaintenanceHandler: handlers.NewMaintenanceHandler(janitorSvc, watchdogSvc),
	}

	router := server.NewRouter(routerCfg)

	var workers []*jobs.Worker
	noWorkers, _ := cmd.Flags().GetBool("no-workers")
	if !noWorkers {
		workers = append(workers,
			jobs.NewWorker(jobs.NewJanitorTask(janitorSvc), cfg.JanitorInterval),
			jobs.NewWorker(jobs.NewWatchdogTask(watchdogSvc), cfg.WatchdogInterval),
		)
		for _, w := range workers {
			go w.Start(ctx)
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	for _, w := range workers {
		w.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

type noOpRetrievalService struct{}

func (s *noOpRetrievalService) Retrieve(ctx context.Context, input service.RetrievalInput) (*service.RetrievalOutput, error) {
	return nil, domain.NewDomainError(domain.ErrCodeValidation, "retrieval not configured: OPENAI_API_KEY required")
}

func bootstrapInitialAPIKey(ctx context.Context, cfg *config.Config, authSvc *service.AuthService, apiKeyRepo *repository.APIKeyRepository) error {
	keys, err := apiKeyRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to check existing keys: %w", err)
	}
	if len(keys) > 0 {
		log.Printf("bootstrap: %d API keys already exist, skipping", len(keys))
		return nil
	}

	token, err := authSvc.CreateAPIKey(ctx, cfg.InitAPIKeyName, "")
	if err != nil {
		return fmt.Errorf("failed to create API key: %w", err)
	}

	// Logged once: the hash is all that survives in the database.
	log.Printf("bootstrap: created API key '%s': %s", cfg.InitAPIKeyName, token)
	return nil
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	// Create postgres driver instance
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Create migrate instance with file source
	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	// Run migrations
	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	// Get migration version and status
	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}

package admin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloo-solutions/finsight/internal/api/handlers"
	"github.com/cloo-solutions/finsight/internal/chunker"
	"github.com/cloo-solutions/finsight/internal/config"
	"github.com/cloo-solutions/finsight/internal/database"
	"github.com/cloo-solutions/finsight/internal/domain"
	"github.com/cloo-solutions/finsight/internal/hashvec"
	"github.com/cloo-solutions/finsight/internal/index"
	"github.com/cloo-solutions/finsight/internal/jobs"
	"github.com/cloo-solutions/finsight/internal/logger"
	"github.com/cloo-solutions/finsight/internal/marketdata"
	"github.com/cloo-solutions/finsight/internal/openai"
	"github.com/cloo-solutions/finsight/internal/repository"
	"github.com/cloo-solutions/finsight/internal/risk"
	"github.com/cloo-solutions/finsight/internal/sentiment"
	"github.com/cloo-solutions/finsight/internal/server"
	"github.com/cloo-solutions/finsight/internal/service"
	"github.com/cloo-solutions/finsight/internal/storage"
	"github.com/cloo-solutions/finsight/internal/telemetry"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the retrieval and synthesis API server",
		Long:  "Start the finsight API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic schema migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(cfg.Env)
	defer logger.Sync()
	log := logger.Named("serve")

	if cfg.SentryDSN != "" {
		// Default to 10% sampling in production, 100% elsewhere
		sampleRate := 0.1
		if cfg.Env != "production" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.Env,
			TracesSampleRate: sampleRate,
			Debug:            cfg.Debug,
		})
		if err != nil {
			log.Warnw("telemetry init failed, continuing without tracing", "error", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	synthesis, err := config.LoadSynthesis(cfg.SynthesisConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load synthesis config: %w", err)
	}

	var (
		idx          service.VectorIndex
		retentionIdx jobs.RetentionIndex
		series       service.SeriesStore
	)
	switch cfg.IndexDriver {
	case config.IndexDriverPostgres:
		pool, err := database.NewPoolFromURL(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()
		log.Infow("connected to database")

		noMigrate, _ := cmd.Flags().GetBool("no-migrate")
		if !noMigrate {
			if err := runMigrations(cfg.DatabaseURL, log); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
		}

		chunkIndex := repository.NewChunkIndexRepository(pool)
		idx = chunkIndex
		retentionIdx = chunkIndex
		series = repository.NewSeriesRepository(pool)
	case config.IndexDriverMemory:
		mem := index.NewMemory()
		idx = mem
		retentionIdx = mem
		series = repository.NewMemorySeriesStore()
		log.Infow("using in-memory index and series store")
	}

	var openaiClient *openai.Client
	if cfg.EmbedderDriver == config.EmbedderDriverOpenAI || cfg.SentimentDriver == config.SentimentDriverOpenAI {
		openaiClient = openai.NewClient(cfg.OpenAIAPIKey)
	}

	// EMBEDDING_DIMENSIONS drives hashvec only; OpenAI dimensions follow the
	// embedding model.
	var embedder service.EmbeddingClient = hashvec.New(cfg.EmbeddingDimensions)
	if cfg.EmbedderDriver == config.EmbedderDriverOpenAI {
		embedder = openaiClient
	}

	var annotator service.SentimentAnnotator = sentiment.NewLexicon()
	if cfg.SentimentDriver == config.SentimentDriverOpenAI {
		annotator = openaiClient
	}

	var archive *storage.DocumentArchive
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Infow("document archive ready", "bucket", cfg.S3Bucket)
		archive = storage.NewDocumentArchive(s3Client)
	}

	engine := risk.NewEngine(risk.Config{
		RiskFreeRate:   cfg.RiskFreeRate,
		LowVolatility:  synthesis.LowVolatility,
		HighVolatility: synthesis.HighVolatility,
	})

	ingestCfg := service.IngestConfig{
		EmbedWorkers: cfg.EmbedWorkers,
		EmbedTimeout: cfg.EmbedTimeout,
	}
	var ingestSvc *service.IngestService
	if archive != nil {
		ingestSvc = service.NewIngestServiceWithArchive(chunker.New(chunker.Config{}), annotator, embedder, idx, series, archive, ingestCfg)
	} else {
		ingestSvc = service.NewIngestService(chunker.New(chunker.Config{}), annotator, embedder, idx, series, ingestCfg)
	}

	insightSvc := service.NewInsightService(embedder, idx, series, engine, synthesis, service.InsightConfig{
		DefaultK:        cfg.DefaultK,
		RiskWindowDays:  cfg.RiskWindowDays,
		BenchmarkSymbol: cfg.BenchmarkSymbol,
		EmbedTimeout:    cfg.EmbedTimeout,
		SearchTimeout:   cfg.SearchTimeout,
	})

	symbolSvc := service.NewSymbolService(series, engine, cfg.RiskWindowDays, cfg.BenchmarkSymbol)

	httpClient := &http.Client{Timeout: 30 * time.Second}
	refreshSvc := service.NewRefreshService(
		marketdata.NewYahooSource(httpClient),
		marketdata.NewFeedSource(httpClient),
		ingestSvc,
		service.RefreshConfig{Feeds: synthesis.Feeds},
	)

	var retentionWorker *jobs.Worker
	if cfg.RetentionDays > 0 {
		retentionWorker = jobs.NewWorker(jobs.NewRetentionProcessor(retentionIdx, cfg.RetentionDays), cfg.RetentionInterval)
		go retentionWorker.Start(ctx)
		log.Infow("retention worker started", "retention_days", cfg.RetentionDays, "interval", cfg.RetentionInterval)
	}

	var insightForRouter handlers.InsightService = insightSvc
	if cfg.QueryTimeout > 0 {
		insightForRouter = &queryDeadlineService{svc: insightSvc, timeout: cfg.QueryTimeout}
	}

	routerCfg := server.RouterConfig{
		APIKey:          cfg.APIKey,
		DocumentHandler: handlers.NewDocumentHandler(ingestSvc),
		InsightHandler:  handlers.NewInsightHandler(insightForRouter),
		SymbolHandler:   handlers.NewSymbolHandler(symbolSvc, refreshSvc),
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Infow("starting server",
			"port", cfg.Port,
			"index_driver", cfg.IndexDriver,
			"embedder_driver", cfg.EmbedderDriver,
			"sentiment_driver", cfg.SentimentDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down...")

	if retentionWorker != nil {
		retentionWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server exited")
	return nil
}

// queryDeadlineService caps whole-query latency over the insight pipeline.
// The per-stage embed and search deadlines still apply underneath.
type queryDeadlineService struct {
	svc     *service.InsightService
	timeout time.Duration
}

func (s *queryDeadlineService) Answer(ctx context.Context, input service.AnswerInput) (*domain.Insight, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	insight, err := s.svc.Answer(ctx, input)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: query exceeded %s", domain.ErrTimeout, s.timeout)
	}
	return insight, err
}

func runMigrations(databaseURL string, log *zap.SugaredLogger) error {
	// golang-migrate drives a database/sql connection, not the pgx pool
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	upErr := m.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", upErr)
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		log.Info("migrations: schema is empty, nothing to apply")
	case err != nil:
		return fmt.Errorf("failed to get migration version: %w", err)
	case dirty:
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	case errors.Is(upErr, migrate.ErrNoChange):
		log.Infow("migrations: database is up to date", "version", version)
	default:
		log.Infow("migrations: applied successfully", "version", version)
	}

	return nil
}

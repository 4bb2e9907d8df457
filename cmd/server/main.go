package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"benefitflow/internal/authority"
	"benefitflow/internal/catalog"
	catalogstore "benefitflow/internal/catalog/store"
	"benefitflow/internal/documents"
	documentstore "benefitflow/internal/documents/store"
	"benefitflow/internal/eligibility"
	"benefitflow/internal/eligibility/cache"
	"benefitflow/internal/platform/config"
	"benefitflow/internal/platform/database"
	"benefitflow/internal/platform/health"
	"benefitflow/internal/platform/httpserver"
	kafkaproducer "benefitflow/internal/platform/kafka/producer"
	"benefitflow/internal/platform/logger"
	"benefitflow/internal/platform/metrics"
	platformredis "benefitflow/internal/platform/redis"
	"benefitflow/internal/requirement"
	"benefitflow/internal/submission"
	httptransport "benefitflow/internal/transport/http"
	"benefitflow/internal/workflow"
	workflowstore "benefitflow/internal/workflow/store"
	"benefitflow/internal/workflow/worker"
	"benefitflow/pkg/platform/audit"
	auditkafka "benefitflow/pkg/platform/audit/kafka"
	auditpublisher "benefitflow/pkg/platform/audit/publisher"
	auditmemory "benefitflow/pkg/platform/audit/store/memory"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing benefitflow",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
	)

	m := metrics.New()
	checks := health.New(cfg.Environment)

	// Persistence: PostgreSQL when configured, in-memory otherwise.
	dbCfg := database.DefaultConfig()
	dbCfg.URL = cfg.DatabaseURL
	pool, err := database.New(dbCfg)
	if err != nil {
		log.Error("database init failed", "error", err)
		os.Exit(1)
	}

	var (
		catalogStore  catalog.Store
		documentStore documents.Store
		workflowStore workflow.Store
	)
	if pool != nil {
		catalogStore = catalogstore.NewPostgres(pool.DB())
		documentStore = documentstore.NewPostgres(pool.DB())
		workflowStore = workflowstore.NewPostgres(pool.DB())
		checks.RegisterCheck("postgres", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return pool.Health(ctx)
		})
		defer pool.Close() //nolint:errcheck // shutdown path
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		catalogStore = catalogstore.NewInMemory("dev", nil, nil)
		documentStore = documentstore.NewInMemory()
		workflowStore = workflowstore.NewInMemory()
	}

	// Eligibility cache: Redis when configured, in-process otherwise.
	redisCfg := platformredis.DefaultConfig()
	redisCfg.URL = cfg.RedisURL
	redisClient, err := platformredis.New(redisCfg)
	if err != nil {
		log.Error("redis init failed", "error", err)
		os.Exit(1)
	}
	var cacheBackend cache.Backend
	if redisClient != nil {
		cacheBackend = cache.NewRedis(redisClient.Client)
		checks.RegisterCheck("redis", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return redisClient.Health(ctx)
		})
		defer redisClient.Close() //nolint:errcheck // shutdown path
	} else {
		cacheBackend = cache.NewMemory(cfg.CacheTTL)
	}

	// Audit trail: Kafka when configured, in-memory otherwise.
	var sink audit.Sink
	if cfg.KafkaBrokers != "" {
		producer, err := kafkaproducer.New(kafkaproducer.Config{
			Brokers: cfg.KafkaBrokers,
			Retries: 3,
		}, log)
		if err != nil {
			log.Error("kafka init failed", "error", err)
			os.Exit(1)
		}
		defer producer.Close()
		sink = auditkafka.NewSink(producer, audit.Topic)
	} else {
		log.Warn("KAFKA_BROKERS not set, audit events stay in memory")
		sink = auditmemory.New()
	}
	publisher := auditpublisher.New(sink, auditpublisher.WithLogger(log))
	defer publisher.Close()

	eligSvc, err := eligibility.New(catalogStore,
		eligibility.WithCache(cacheBackend, cfg.CacheTTL),
		eligibility.WithSimilarityWeights(eligibility.SimilarityWeights{
			Category: cfg.CategoryWeight,
			Field:    cfg.FieldWeight,
		}),
		eligibility.WithConfidenceFloor(cfg.ConfidenceFloor),
		eligibility.WithParallelism(cfg.EvalParallelism),
		eligibility.WithLogger(log),
		eligibility.WithMetrics(m),
	)
	if err != nil {
		log.Error("eligibility service init failed", "error", err)
		os.Exit(1)
	}

	reqSvc, err := requirement.New(catalogStore, documentStore,
		requirement.WithGraceWindow(cfg.RenewalGraceWindow),
		requirement.WithLogger(log),
		requirement.WithMetrics(m),
	)
	if err != nil {
		log.Error("requirement service init failed", "error", err)
		os.Exit(1)
	}

	wfOpts := []workflow.Option{
		workflow.WithAuditEmitter(publisher),
		workflow.WithMaxRetries(cfg.MaxStepRetries),
		workflow.WithRetryBackoffBase(cfg.RetryBackoffBase),
		workflow.WithStaleAfter(cfg.StaleAfter),
		workflow.WithLogger(log),
		workflow.WithMetrics(m),
	}
	if cfg.AuthorityDirectoryFile != "" {
		directory, err := authority.LoadStatic(cfg.AuthorityDirectoryFile)
		if err != nil {
			log.Error("authority directory load failed", "error", err)
			os.Exit(1)
		}
		wfOpts = append(wfOpts, workflow.WithAuthorityDirectory(directory))
	}
	if cfg.SubmissionBaseURL != "" {
		wfOpts = append(wfOpts, workflow.WithSubmissionClient(submission.NewHTTP(submission.Config{
			BaseURL: cfg.SubmissionBaseURL,
			APIKey:  cfg.SubmissionAPIKey,
		})))
	}
	wfSvc, err := workflow.New(workflowStore, wfOpts...)
	if err != nil {
		log.Error("workflow service init failed", "error", err)
		os.Exit(1)
	}

	router := httptransport.NewRouter(httptransport.Handlers{
		Eligibility: httptransport.NewEligibilityHandler(eligSvc, log),
		Requirement: httptransport.NewRequirementHandler(reqSvc, log),
		Workflow:    httptransport.NewWorkflowHandler(wfSvc, reqSvc, log),
		Health:      checks,
	}, m, log)

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	go worker.NewStaleSweeper(wfSvc, cfg.StaleSweepEvery, log).Run(sweepCtx)

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting http server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown on SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	log.Info("shutting down server gracefully")
	stopSweeper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}

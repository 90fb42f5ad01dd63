// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"grant-workers/internal/common/camunda"
	"grant-workers/internal/common/config"
	"grant-workers/internal/common/database"
	"grant-workers/internal/common/logger"
	"grant-workers/internal/common/observability"
	"grant-workers/internal/matching/analysis"
	"grant-workers/internal/matching/cache"
	"grant-workers/internal/matching/pipeline"
	"grant-workers/internal/matching/relevance"
	"grant-workers/internal/matching/source"

	// Matching Workers (5)
	cge "grant-workers/internal/workers/matching/check-grant-eligibility"
	cgs "grant-workers/internal/workers/matching/calculate-grant-score"
	dg "grant-workers/internal/workers/matching/discover-grants"
	pdo "grant-workers/internal/workers/matching/parse-discovery-options"
	smc "grant-workers/internal/workers/matching/sweep-match-cache"

	// AI Workers (1)
	agm "grant-workers/internal/workers/ai/analyze-grant-match"

	// Search Workers (2)
	asr "grant-workers/internal/workers/search/apply-search-relevance"
	sg "grant-workers/internal/workers/search/search-grants"

	// Data Access Workers (1)
	qg "grant-workers/internal/workers/data-access/query-grants"
)

func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.NewFromConfig(cfg.Logging, cfg.App)
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...")

	obs, err := observability.New(cfg.Observability.ServiceName)
	if err != nil {
		zapLog.Warn("metrics exporter unavailable", zap.Error(err))
		obs = &observability.Observability{}
	}
	tracing, err := observability.NewTracing(observability.TracingConfig{
		ServiceName:    cfg.Observability.ServiceName,
		Environment:    cfg.App.Environment,
		Version:        cfg.App.Version,
		JaegerEndpoint: cfg.Observability.JaegerEndpoint,
		SampleRatio:    cfg.Observability.SampleRatio,
	})
	if err != nil {
		zapLog.Fatal("tracing setup failed", zap.Error(err))
	}
	obs.WithTracing(tracing)
	defer obs.Shutdown()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClientFromConfig(cfg.Camunda)
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")

	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	if missing, err := pg.MissingTables(ctx, database.MatchingTables...); err != nil || len(missing) > 0 {
		zapLog.Warn("matching tables unavailable, discovery and query-grants will fail",
			zap.Strings("missing", missing),
			zap.Error(err),
		)
	}
	zapLog.Info("PostgreSQL connected successfully")

	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	if exists, err := esClient.IndexExists(ctx); err != nil || !exists {
		zapLog.Warn("grant index missing, search-grants will fail until it is created",
			zap.String("index", esClient.GrantIndex),
			zap.Error(err),
		)
	}
	zapLog.Info("Elasticsearch connected successfully")

	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	analyzer, err := analysis.New(ctx, analysis.Options{
		Provider:   cfg.APIs.GenAI.Provider,
		BaseURL:    cfg.APIs.GenAI.BaseURL,
		APIKey:     cfg.APIs.GenAI.APIKey,
		Model:      cfg.APIs.GenAI.Model,
		MaxRetries: cfg.APIs.GenAI.MaxRetries,
	}, log)
	if err != nil {
		// analysis is optional; discovery still ranks without it
		zapLog.Warn("AI analyzer unavailable, continuing without analysis", zap.Error(err))
		analyzer = nil
	}

	store := source.NewPostgresStore(pg.DB, log)
	grantSearch := source.NewElasticsearchGrantSearch(esClient.Client, esClient.GrantIndex, log)
	matchCache := cache.NewRedisStore(redis.Client, cfg.Matching.CacheTTL())
	sweeper := cache.NewSweeper(matchCache, store, cfg.Matching.SweepBatchSize, log).WithUserChecker(store)

	discovery := pipeline.New(pipeline.ConfigFromMatching(cfg.Matching), log).
		WithCache(matchCache).
		WithRecorder(obs).
		WithTracer(tracing.Tracer("grant-workers/pipeline"))
	if analyzer != nil {
		discovery = discovery.WithAnalyzer(analyzer)
	}

	relevanceCfg := relevance.DefaultConfig()
	relevanceCfg.MinScore = cfg.Matching.MinRelevanceScore

	zapLog.Info("All external service clients initialized")

	registry := camunda.NewRegistry(zeebe.GetClient(), zapLog).WithRecorder(obs)
	timeout := func(taskType string) time.Duration {
		return config.GetDuration(config.GetWorkerConfig(cfg, taskType).Timeout)
	}

	{
		handler := cge.NewHandler(&cge.Config{Timeout: timeout(cge.TaskType)}, log)
		registry.Start(cge.TaskType, config.GetWorkerConfig(cfg, cge.TaskType), handler.Handle)
	}

	{
		scoreCfg := cgs.LoadConfig()
		scoreCfg.Timeout = timeout(cgs.TaskType)
		handler := cgs.NewHandler(scoreCfg, log)
		registry.Start(cgs.TaskType, config.GetWorkerConfig(cfg, cgs.TaskType), handler.Handle)
	}

	{
		handler := pdo.NewHandler(
			&pdo.Config{
				Timeout:  timeout(pdo.TaskType),
				Pipeline: pipeline.ConfigFromMatching(cfg.Matching),
			},
			log,
		)
		registry.Start(pdo.TaskType, config.GetWorkerConfig(cfg, pdo.TaskType), handler.Handle)
	}

	{
		handler := dg.NewHandler(dg.ConfigFromApp(cfg), store, store, discovery, log)
		registry.Start(dg.TaskType, config.GetWorkerConfig(cfg, dg.TaskType), handler.Handle)
	}

	{
		handler := smc.NewHandler(&smc.Config{Timeout: timeout(smc.TaskType)}, sweeper, log)
		registry.Start(smc.TaskType, config.GetWorkerConfig(cfg, smc.TaskType), handler.Handle)
	}

	{
		handler := agm.NewHandler(agm.ConfigFromApp(cfg), analyzer, matchCache, log)
		registry.Start(agm.TaskType, config.GetWorkerConfig(cfg, agm.TaskType), handler.Handle)
	}

	{
		handler := asr.NewHandler(
			&asr.Config{
				Timeout:   timeout(asr.TaskType),
				Relevance: relevanceCfg,
			},
			log,
		)
		registry.Start(asr.TaskType, config.GetWorkerConfig(cfg, asr.TaskType), handler.Handle)
	}

	{
		searchCfg := sg.LoadConfig()
		searchCfg.Timeout = timeout(sg.TaskType)
		searchCfg.Relevance = relevanceCfg
		handler := sg.NewHandler(searchCfg, grantSearch, log)
		registry.Start(sg.TaskType, config.GetWorkerConfig(cfg, sg.TaskType), handler.Handle)
	}

	{
		handler := qg.NewHandler(&qg.Config{Timeout: timeout(qg.TaskType)}, pg.DB, log)
		registry.Start(qg.TaskType, config.GetWorkerConfig(cfg, qg.TaskType), handler.Handle)
	}

	zapLog.Info("Workers registered", zap.Strings("taskTypes", registry.TaskTypes()))

	if cfg.Matching.SweepInterval > 0 {
		interval := time.Duration(cfg.Matching.SweepInterval) * time.Minute
		go sweeper.RunPeriodic(ctx, interval)
		zapLog.Info("Match cache sweep scheduled", zap.Duration("interval", interval))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		checks := map[string]string{}
		ready := true
		for name, ping := range map[string]func(context.Context) error{
			"zeebe":         zeebe.HealthCheck,
			"postgres":      pg.Ping,
			"redis":         matchCache.Ping,
			"elasticsearch": esClient.Ping,
		} {
			if err := ping(checkCtx); err != nil {
				checks[name] = err.Error()
				ready = false
				continue
			}
			checks[name] = "ok"
		}

		status := http.StatusOK
		checks["status"] = "ready"
		if !ready {
			status = http.StatusServiceUnavailable
			checks["status"] = "not_ready"
		}
		checks["time"] = time.Now().Format(time.RFC3339)
		writeStatus(w, status, checks)
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/debug/pprof/", http.DefaultServeMux)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.HTTPPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	registry.Close()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}

	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func writeStatus(w http.ResponseWriter, status int, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

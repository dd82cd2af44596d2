package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kestrel-data/nlmongo/internal/config"
	dbMongo "github.com/kestrel-data/nlmongo/internal/db/mongo"
	dbRedis "github.com/kestrel-data/nlmongo/internal/db/redis"
	"github.com/kestrel-data/nlmongo/internal/domain"
	"github.com/kestrel-data/nlmongo/internal/inference"
	logpkg "github.com/kestrel-data/nlmongo/internal/logger"
	"github.com/kestrel-data/nlmongo/internal/metrics"
	datasetrepo "github.com/kestrel-data/nlmongo/internal/repository/dataset"
	insightsrepo "github.com/kestrel-data/nlmongo/internal/repository/insights"
	"github.com/kestrel-data/nlmongo/internal/repository/llmcache"
	queryrepo "github.com/kestrel-data/nlmongo/internal/repository/query"
	schemarepo "github.com/kestrel-data/nlmongo/internal/repository/schema"
	chiTransport "github.com/kestrel-data/nlmongo/internal/transport/chi"
	openaiTx "github.com/kestrel-data/nlmongo/internal/transport/openai"
	healthuc "github.com/kestrel-data/nlmongo/internal/usecase/health"
	ingestuc "github.com/kestrel-data/nlmongo/internal/usecase/ingest"
	insightsuc "github.com/kestrel-data/nlmongo/internal/usecase/insights"
	queryuc "github.com/kestrel-data/nlmongo/internal/usecase/query"
	schemauc "github.com/kestrel-data/nlmongo/internal/usecase/schema"
	"github.com/kestrel-data/nlmongo/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting nlmongo API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("mongo_database", cfg.Mongo.Database),
		zap.String("default_provider", cfg.LLM.Default),
	)

	ctx := context.Background()

	store, err := dbMongo.NewStore(ctx, dbMongo.Config{
		URI:            cfg.Mongo.URI,
		Database:       cfg.Mongo.Database,
		ConnectTimeout: time.Duration(cfg.Mongo.ConnectTimeout) * time.Second,
	})
	if err != nil {
		logger.Fatal("Failed to create document store", zap.Error(err))
	}
	defer func() { _ = store.Close(context.Background()) }()

	if err := store.WaitForReady(ctx, time.Duration(cfg.Mongo.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Document store not ready", zap.Error(err))
	}
	logger.Info("Connected to document store")

	// Translation cache is optional; no addrs means no cache.
	var cache *dbRedis.Store
	if len(cfg.Cache.Addrs) > 0 {
		cache, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Username: cfg.Cache.Username,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer cache.Close()

		if err := cache.WaitForReady(ctx, 10*time.Second); err != nil {
			logger.Fatal("Cache not ready", zap.Error(err))
		}
		logger.Info("Connected to translation cache")
	}

	// Register query metrics explicitly (no init())
	metrics.RegisterQueryMetrics()

	// Create repositories (domain-native, no adapters)
	schemaRepo := schemarepo.New(store)
	queryRepo := queryrepo.New(store)
	datasetRepo := datasetrepo.New(store)
	insightsRepo := insightsrepo.New(store)

	// Relationship inference: heuristics verified against sampled value overlap
	sampler := inference.NewSampler(schemaRepo, cfg.Inference.SampleSize, logger)
	engine := inference.NewEngine(sampler, logger).
		WithMaxConcurrency(cfg.Inference.MaxConcurrency)

	// Create use case services
	schemaSvc := schemauc.New(schemaRepo, engine, cfg.Inference.MinConfidence, logger)
	ingestSvc := ingestuc.New(datasetRepo, logger)
	insightsSvc := insightsuc.New(insightsRepo, store, logger)

	// One query pipeline per configured translation provider. The default
	// provider's base translator also serves the health check.
	queries := make(map[string]*queryuc.Service, len(cfg.LLM.Providers))
	var defaultTranslator *openaiTx.Translator
	for name, provCfg := range cfg.LLM.Providers {
		base := openaiTx.NewTranslator(&openaiTx.Config{
			APIKey:   provCfg.APIKey,
			BaseURL:  provCfg.BaseURL,
			Model:    provCfg.Model,
			Provider: name,
			Logger:   logger,
		})
		if name == cfg.LLM.Default {
			defaultTranslator = base
		}

		var translator domain.Translator = base
		if cache != nil {
			translator = llmcache.New(
				base, cache, name, provCfg.Model,
				time.Duration(cfg.Cache.TTLSec)*time.Second,
				metrics.TranslationCacheTotal, logger,
			)
		}

		queries[name] = queryuc.New(schemaSvc, translator, queryRepo, cfg.Query.DefaultLimit, logger)
		logger.Info("Translation provider configured",
			zap.String("provider", name),
			zap.String("model", provCfg.Model),
			zap.Bool("cached", cache != nil),
		)
	}

	// Pass nil interface (not typed nil pointer!) for absent optional components.
	var cachePinger healthuc.CachePinger
	if cache != nil {
		cachePinger = cache
	}
	var translatorChecker healthuc.TranslatorChecker
	if defaultTranslator != nil {
		translatorChecker = defaultTranslator
	}
	healthSvc := healthuc.New(store, store, cachePinger, translatorChecker)

	// Create chi server
	server := chiTransport.NewServer(
		ingestSvc, queries, cfg.LLM.Default, schemaSvc, insightsSvc, healthSvc, logger,
	)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}

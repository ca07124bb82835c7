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
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/pensieve-cloud/pensieve/internal/config"
	dbRedis "github.com/pensieve-cloud/pensieve/internal/db/redis"
	"github.com/pensieve-cloud/pensieve/internal/domain"
	logpkg "github.com/pensieve-cloud/pensieve/internal/logger"
	"github.com/pensieve-cloud/pensieve/internal/metrics"
	contentrepo "github.com/pensieve-cloud/pensieve/internal/repository/content"
	vectorrepo "github.com/pensieve-cloud/pensieve/internal/repository/vector"
	chiTransport "github.com/pensieve-cloud/pensieve/internal/transport/chi"
	openaiEmb "github.com/pensieve-cloud/pensieve/internal/transport/openai"
	healthuc "github.com/pensieve-cloud/pensieve/internal/usecase/health"
	retrievaluc "github.com/pensieve-cloud/pensieve/internal/usecase/retrieval"
	"github.com/pensieve-cloud/pensieve/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting pensieve API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("index_addrs", cfg.VectorIndex.Addrs),
	)

	// Vector index store
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.VectorIndex.Addrs,
		Password: cfg.VectorIndex.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create vector index store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.VectorIndex.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Vector index not ready", zap.Error(err))
	}
	logger.Info("Connected to vector index")

	// Authoritative content store
	poolCfg, err := pgxpool.ParseConfig(cfg.ContentStore.DSN)
	if err != nil {
		logger.Fatal("Invalid content store DSN", zap.Error(err))
	}
	poolCfg.MaxConns = int32(cfg.ContentStore.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		logger.Fatal("Failed to connect content store", zap.Error(err))
	}
	defer pool.Close()
	logger.Info("Connected to content store")

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterRetrievalMetrics()

	embedder := buildEmbedder(cfg.Embedding, logger)

	contentStore := contentrepo.New(pool)
	vectorIndex := vectorrepo.New(store, cfg.Embedding.Model, logger)

	registry, err := retrievaluc.DefaultRegistry(contentStore, contentStore)
	if err != nil {
		logger.Fatal("Failed to build extraction registry", zap.Error(err))
	}

	retrievalSvc := retrievaluc.New(embedder, vectorIndex, registry, cfg.Retrieval.ScoreThreshold)

	healthSvc := healthuc.New(store, pool, newEmbeddingHealthChecker(embedder))

	server := chiTransport.NewServer(retrievalSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

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

// buildEmbedder assembles the embedder chain: OpenAI base, then the query
// instruction prefix when the model expects one.
func buildEmbedder(cfg config.EmbeddingConfig, logger *zap.Logger) domain.Embedder {
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Provider:   "nebius",
		Logger:     logger,
	})

	if cfg.QueryInstruction != "" {
		return domain.NewInstructionEmbedder(base, cfg.QueryInstruction)
	}
	return base
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
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
			if requestID == "" {
				requestID = uuid.NewString()
			}

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

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
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kailas-cloud/carlens/internal/config"
	dbRedis "github.com/kailas-cloud/carlens/internal/db/redis"
	"github.com/kailas-cloud/carlens/internal/domain"
	logpkg "github.com/kailas-cloud/carlens/internal/logger"
	"github.com/kailas-cloud/carlens/internal/metrics"
	"github.com/kailas-cloud/carlens/internal/repository/embcache"
	imagesrepo "github.com/kailas-cloud/carlens/internal/repository/images"
	vectorrepo "github.com/kailas-cloud/carlens/internal/repository/vector"
	"github.com/kailas-cloud/carlens/internal/storage"
	chiTransport "github.com/kailas-cloud/carlens/internal/transport/chi"
	"github.com/kailas-cloud/carlens/internal/transport/clip"
	"github.com/kailas-cloud/carlens/internal/transport/detector"
	embeddinguc "github.com/kailas-cloud/carlens/internal/usecase/embedding"
	enhanceuc "github.com/kailas-cloud/carlens/internal/usecase/enhance"
	healthuc "github.com/kailas-cloud/carlens/internal/usecase/health"
	imagesuc "github.com/kailas-cloud/carlens/internal/usecase/images"
	importeruc "github.com/kailas-cloud/carlens/internal/usecase/importer"
	searchuc "github.com/kailas-cloud/carlens/internal/usecase/search"
	"github.com/kailas-cloud/carlens/internal/version"
)

func main() {
	// .env is optional; real env vars win either way.
	_ = godotenv.Load()

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

	logger.Info("Starting carlens API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.Int("vector_width", cfg.VectorWidth()),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create vector store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Vector store not ready", zap.Error(err))
	}
	logger.Info("Connected to vector store")

	imageRepo, err := imagesrepo.Open(cfg.Relational.Path)
	if err != nil {
		logger.Fatal("Failed to open image store", zap.Error(err))
	}
	defer func() { _ = imageRepo.Close() }()

	uploadDir, err := storage.NewDir(cfg.Storage.UploadDir)
	if err != nil {
		logger.Fatal("Failed to create upload dir", zap.Error(err))
	}

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	// Encoder chain: CLIP sidecar -> cached
	textBase := clip.NewTextEncoder(&clip.TextConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.ClipBaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})
	textEncoder := embcache.New(textBase, store, cfg.Storage.KeyPrefix, metrics.EmbeddingCacheTotal, logger)

	imageEncoder := clip.NewImageEncoder(&clip.ImageConfig{
		BaseURL: cfg.Embedding.ClipBaseURL,
		Timeout: time.Duration(cfg.Embedding.TimeoutSec) * time.Second,
		Logger:  logger,
	})

	// Pass nil interface (not typed nil pointer!) when detection is off.
	var regions domain.RegionDetector
	if cfg.Embedding.UseCarDetection {
		regions = detector.New(&detector.Config{
			BaseURL:       cfg.Detector.BaseURL,
			MinConfidence: cfg.Detector.MinConfidence,
			Timeout:       time.Duration(cfg.Detector.TimeoutSec) * time.Second,
			Logger:        logger,
		})
	}

	provider := embeddinguc.NewProvider(textEncoder, imageEncoder, regions, embeddinguc.Config{
		Width:            cfg.VectorWidth(),
		ImageWeight:      cfg.Embedding.ImageWeight,
		TagWeight:        cfg.Embedding.TagWeight,
		VariationWeights: cfg.Embedding.VariationWeights,
		CropPadding:      cfg.Detector.Padding,
	}, logger)
	logger.Info("Encoders created",
		zap.String("model", cfg.Embedding.Model),
		zap.Bool("color_histogram", cfg.Embedding.UseColorHistogram),
		zap.Bool("car_detection", cfg.Embedding.UseCarDetection),
	)

	vectorRepo := vectorrepo.New(store, cfg.Storage.KeyPrefix, cfg.VectorWidth())
	if err := vectorRepo.EnsureIndex(ctx, cfg.Index.HNSWM, cfg.Index.HNSWEFConstruct); err != nil {
		logger.Fatal("Failed to ensure vector index", zap.Error(err))
	}

	embOpts := embeddinguc.Options{
		UseColorHistogram: cfg.Embedding.UseColorHistogram,
		UseCarDetection:   cfg.Embedding.UseCarDetection,
	}

	enhanceSvc := enhanceuc.New(provider)
	searchSvc := searchuc.New(enhanceSvc, vectorRepo, searchuc.Config{
		MaxDistance:     cfg.Search.MaxDistance,
		OverfetchFactor: cfg.Search.OverfetchFactor,
		DefaultLimit:    cfg.Search.DefaultLimit,
		MinSimilarity:   cfg.Search.MinSimilarity,
		SemanticWeight:  cfg.Search.SemanticWeight,
		KeywordWeight:   cfg.Search.KeywordWeight,
	}, logger)
	imagesSvc := imagesuc.New(imageRepo, vectorRepo, provider, uploadDir, embOpts, logger)

	importSvc, err := importeruc.New(imagesSvc, uploadDir, importeruc.Config{
		Workers: cfg.Import.Workers,
		MaxRows: cfg.Import.MaxRows,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create import service", zap.Error(err))
	}
	defer importSvc.Close()

	healthSvc := healthuc.New(store, textBase, imageEncoder)

	server := chiTransport.NewServer(searchSvc, imagesSvc, importSvc, enhanceSvc, healthSvc, vectorRepo, logger)

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

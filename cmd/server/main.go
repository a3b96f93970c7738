package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	histhandler "docscan/internal/history/handler"
	"docscan/internal/history/blob"
	"docscan/internal/history/reaper"
	histservice "docscan/internal/history/service"
	"docscan/internal/history/store"
	inshandler "docscan/internal/inspector/handler"
	"docscan/internal/inspector/extractor"
	"docscan/internal/inspector/ml"
	"docscan/internal/inspector/renderer"
	insservice "docscan/internal/inspector/service"
	"docscan/internal/platform/config"
	"docscan/internal/platform/httpserver"
	"docscan/internal/platform/logger"
	"docscan/internal/platform/metrics"
	"docscan/internal/platform/middleware"
	platformredis "docscan/internal/platform/redis"
	"docscan/pkg/platform/httputil"
)

// main wires dependencies and owns process lifecycle. Business logic lives in
// the internal service packages.
func main() {
	_ = godotenv.Load()

	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Persistence: PostgreSQL when a DSN is configured, in-memory otherwise.
	var recordStore store.RecordStore
	if cfg.PostgresDSN != "" {
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			log.Error("open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("ping postgres", "error", err)
			os.Exit(1)
		}
		if _, err := db.ExecContext(ctx, store.Schema()); err != nil {
			log.Error("apply schema", "error", err)
			os.Exit(1)
		}
		recordStore = store.NewPostgres(db)
		log.Info("using postgres record store")
	} else {
		recordStore = store.NewInMemory()
		log.Warn("no postgres DSN configured, scan history is in-memory only")
	}

	blobs, err := blob.New(cfg.UploadDir)
	if err != nil {
		log.Error("init blob store", "error", err)
		os.Exit(1)
	}

	historyOpts := []histservice.Option{
		histservice.WithLogger(log),
		histservice.WithMetrics(m),
	}
	if cfg.RedisAddr != "" {
		redisClient, err := platformredis.New(ctx, cfg.RedisAddr)
		if err != nil {
			log.Error("connect redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		historyOpts = append(historyOpts, histservice.WithStatsCache(histservice.NewRedisStatsCache(redisClient)))
		log.Info("stats cache enabled", "addr", cfg.RedisAddr)
	}
	history := histservice.New(recordStore, blobs, historyOpts...)

	// Scan pipeline. An empty inference URL leaves the service in degraded
	// mode: uploads are accepted but come back with zero detections.
	detector := ml.New(cfg.InferenceURL)
	pipeline := insservice.New(
		renderer.New(cfg.RenderScale),
		detector,
		extractor.New(detector, log),
		insservice.WithLogger(log),
		insservice.WithMetrics(m),
		insservice.WithPageWorkers(cfg.PageWorkers),
	)
	if cfg.InferenceURL == "" {
		log.Warn("no inference URL configured, running in degraded mode")
	}

	resolver := middleware.NewJWTResolver(cfg.JWTSigningKey)
	inspectHandler := inshandler.New(pipeline, history, log, cfg.DefaultThreshold)
	historyHandler := histhandler.New(history, log)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	router.Handle("/metrics", promhttp.Handler())
	router.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalOwner(resolver))
			inspectHandler.Register(r)
		})
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireOwner(resolver, log))
			historyHandler.Register(r)
		})
	})

	retention := reaper.New(recordStore, blobs,
		reaper.WithLogger(log),
		reaper.WithMetrics(m),
	)
	if err := retention.Start(cfg.ReaperSchedule); err != nil {
		log.Error("start retention reaper", "error", err)
		os.Exit(1)
	}
	defer retention.Stop()

	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

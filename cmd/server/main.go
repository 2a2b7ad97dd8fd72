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
	_ "github.com/jackc/pgx/v5/stdlib"

	"idproof/internal/audit"
	"idproof/internal/classifier"
	"idproof/internal/decision"
	"idproof/internal/extraction"
	"idproof/internal/platform/config"
	"idproof/internal/platform/httpserver"
	"idproof/internal/platform/logger"
	platformmetrics "idproof/internal/platform/metrics"
	"idproof/internal/platform/middleware"
	platformredis "idproof/internal/platform/redis"
	"idproof/internal/session"
	sessionhandler "idproof/internal/session/handler"
	sessionmetrics "idproof/internal/session/metrics"
	"idproof/internal/storage"
	"idproof/internal/token"
	"idproof/internal/verification"
)

const auditInboxSize = 256

// main wires the verification pipeline from configuration and keeps the
// server lifecycle small. Business logic lives in the internal feature
// packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.APIKeyHash == "" {
		log.Warn("API key auth disabled; set API_KEY_HASH in production")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	objects, err := buildObjectStore(cfg, log)
	if err != nil {
		log.Error("object store init failed", "error", err)
		os.Exit(1)
	}

	sessions, redisClient, err := buildSessionStore(cfg)
	if err != nil {
		log.Error("session store init failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	auditStore, db, err := buildAuditStore(ctx, cfg)
	if err != nil {
		log.Error("audit store init failed", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	var inbox chan audit.Record
	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := audit.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			log.Error("audit publisher init failed", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()

		inbox = make(chan audit.Record, auditInboxSize)
		worker := audit.NewWorker(publisher, inbox, log)
		go func() {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("audit worker stopped", "error", err)
			}
		}()
		log.Info("audit fan-out enabled", "topic", cfg.Kafka.Topic)
	}
	auditor := audit.NewService(auditStore, inbox, log)

	vision := classifier.NewClient(cfg.Classifier, log)
	pipelineMetrics := sessionmetrics.New()

	svc := session.NewService(
		sessions,
		objects,
		extraction.NewAdapter(vision, log),
		verification.NewAdapter(vision, log),
		decision.NewEngine(cfg.Thresholds),
		token.NewIssuer(cfg.SigningKey, "idproof"),
		auditor,
		&cfg,
		log,
		session.WithMetrics(pipelineMetrics),
	)

	appMetrics := platformmetrics.New()
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.ClientMetadata)
	router.Use(middleware.Latency(appMetrics))
	router.Get("/healthz", handleHealth)
	router.Get("/readyz", handleReady(redisClient, db))
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAPIKey(cfg.APIKeyHash, log))
		sessionhandler.New(svc, log).Register(r)
	})

	srv := httpserver.New(cfg.Addr, router)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", platformmetrics.Handler())
	metricsSrv := httpserver.New(cfg.MetricsAddr, metricsMux)
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server error", "error", err)
		}
	}()

	go func() {
		log.Info("starting idproof", "addr", cfg.Addr, "metrics_addr", cfg.MetricsAddr)
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
	_ = metricsSrv.Shutdown(shutdownCtx)
}

func buildObjectStore(cfg config.Config, log *slog.Logger) (storage.Store, error) {
	if cfg.Storage.Bucket == "" {
		log.Warn("no storage bucket configured, using in-memory object store")
		return storage.NewInMemory(), nil
	}
	return storage.NewS3Backend(cfg.Storage, log)
}

func buildSessionStore(cfg config.Config) (session.Store, *platformredis.Client, error) {
	client, err := platformredis.New(cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		return session.NewInMemoryStore(), nil, nil
	}
	return session.NewRedisStore(client.Client, cfg.Redis.SessionTTL), client, nil
}

func buildAuditStore(ctx context.Context, cfg config.Config) (audit.Store, *sql.DB, error) {
	if cfg.PostgresURL == "" {
		return audit.NewInMemoryStore(), nil, nil
	}
	db, err := sql.Open("pgx", cfg.PostgresURL)
	if err != nil {
		return nil, nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, err
	}
	store := audit.NewPostgresStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return store, db, nil
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports readiness based on the backing stores that are actually
// configured. In-memory backends are always ready.
func handleReady(redisClient *platformredis.Client, db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if redisClient != nil {
			if err := redisClient.Health(ctx); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	}
}

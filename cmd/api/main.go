package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/coach/internal/api"
	"example.com/coach/internal/auth"
	"example.com/coach/internal/config"
	"example.com/coach/internal/domain"
	"example.com/coach/internal/llm"
	"example.com/coach/internal/outbox"
	persistence "example.com/coach/internal/persistence/postgres"
	"example.com/coach/internal/plangen"
	httptransport "example.com/coach/internal/transport/http"
	"example.com/coach/internal/webhook"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	repo := persistence.NewRepository(pool)
	producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
	defer producer.Close()

	dispatcher := outbox.NewDispatcher(pool, producer, cfg.OutboxPollInterval, cfg.OutboxBatchSize)
	go dispatcher.Start(ctx)

	service := domain.NewService(repo)

	verifier, err := webhook.NewVerifier(cfg.ClerkWebhookSecret, cfg.WebhookTolerance)
	if err != nil {
		log.Fatalf("failed to initialise webhook verifier: %v", err)
	}
	eventDispatcher := webhook.NewDispatcher(service)

	completer := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMTimeout)
	pipeline := plangen.NewPipeline(completer, service)

	handler := api.NewHandler(verifier, eventDispatcher, pipeline, service)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	// Basic request logger
	logger := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Printf("%s %s", r.Method, r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}

	var root http.Handler = logger(mux)
	if cfg.AuthJWTSecret != "" {
		// Bearer auth guards the plan endpoints only; the webhook route is
		// authenticated by its signature scheme.
		skipper := func(r *http.Request) bool {
			switch r.URL.Path {
			case "/clerk-webhook", "/healthz", "/metrics":
				return true
			}
			return false
		}
		middleware := auth.NewMiddleware(auth.Config{Secret: cfg.AuthJWTSecret, Issuer: cfg.AuthJWTIssuer}, skipper)
		root = middleware.Wrap(root)
	}

	// Write timeout must cover two sequential LLM calls.
	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 2*cfg.LLMTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}, root)

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("coach-service listening on %s", cfg.HTTPAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	dispatcher.Wait()
}

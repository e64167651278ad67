// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/d-karpukhin/event-board/internal/database"
	"github.com/d-karpukhin/event-board/internal/handler"
	"github.com/d-karpukhin/event-board/internal/repository"
	"github.com/d-karpukhin/event-board/internal/service"
	"github.com/d-karpukhin/event-board/internal/stats"
)

func main() {
	ctx := context.Background()

	// ── 1. Connect to PostgreSQL and apply the schema ─────────────────────
	pool, err := database.NewPool(ctx)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Println("✓ Connected to PostgreSQL")

	// ── 2. Wire up layers ────────────────────────────────────────────────
	statsClient := stats.NewClient(
		getEnv("STATS_URL", "http://localhost:9090"),
		getEnv("APP_NAME", "event-board"),
		statsTimeout(),
	)

	eventRepo := repository.NewEventRepository(pool)
	requestRepo := repository.NewRequestRepository(pool)
	directory := repository.NewDirectory(pool)

	eventSvc := service.NewEventService(eventRepo, directory, statsClient)
	requestSvc := service.NewRequestService(requestRepo, eventRepo, directory)

	eventHandler := handler.NewEventHandler(eventSvc)
	requestHandler := handler.NewRequestHandler(requestSvc)

	// ── 3. Build the router ───────────────────────────────────────────────
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(handler.Logger)
	r.Use(handler.CORS)

	r.Get("/health", handler.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/events", func(r chi.Router) {
		r.Get("/", eventHandler.SearchPublic)
		r.Get("/{id}", eventHandler.GetPublic)
	})

	r.Route("/users/{userId}", func(r chi.Router) {
		r.Route("/events", func(r chi.Router) {
			r.Post("/", eventHandler.Create)
			r.Get("/", eventHandler.ListByOwner)
			r.Get("/{eventId}", eventHandler.GetByOwner)
			r.Patch("/{eventId}", eventHandler.UpdateByOwner)
			r.Get("/{eventId}/requests", requestHandler.ListByEventOwner)
			r.Patch("/{eventId}/requests", requestHandler.BatchDecide)
		})
		r.Route("/requests", func(r chi.Router) {
			r.Post("/", requestHandler.Submit)
			r.Get("/", requestHandler.ListByRequester)
			r.Patch("/{requestId}/cancel", requestHandler.Cancel)
		})
	})

	r.Route("/admin/events", func(r chi.Router) {
		r.Get("/", eventHandler.SearchAdmin)
		r.Patch("/{eventId}", eventHandler.UpdateByAdmin)
	})

	// ── 4. Start server with graceful shutdown ────────────────────────────
	port := getEnv("PORT", "8080")
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("✓ Server listening on http://localhost:%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("graceful shutdown failed: %v", err)
	}
	log.Println("server stopped")
}

func statsTimeout() time.Duration {
	if v := os.Getenv("STATS_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("invalid STATS_TIMEOUT %q, using default", v)
	}
	return 2 * time.Second
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Package main runs queued campaign metric and lead syncs from Kafka.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/white/campaign-manager/config"
	"github.com/white/campaign-manager/internal/bootstrap"
	"github.com/white/campaign-manager/internal/handlers"
	"github.com/white/campaign-manager/internal/worker"
	"github.com/white/campaign-manager/pkg/kafka"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if len(cfg.Kafka.Brokers) == 0 {
		log.Fatalf("kafka.brokers is required for the processor")
	}

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 2*time.Minute)
	app, err := bootstrap.Build(startupCtx, cfg)
	cancelStartup()
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}

	consumer, err := kafka.NewConsumer(cfg.Kafka)
	if err != nil {
		log.Fatalf("Failed to create consumer: %v", err)
	}
	if err := consumer.Subscribe([]string{cfg.Kafka.Topics.SyncRequests}); err != nil {
		log.Fatalf("Failed to subscribe to %s: %v", cfg.Kafka.Topics.SyncRequests, err)
	}

	router := mux.NewRouter()
	health := handlers.NewHealthHandler("campaign-manager-processor", cfg.Server.Version, app.HealthChecks())
	router.HandleFunc("/health", health.GetOverallHealth).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ProcessorPort),
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("Processor health endpoint on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Health server failed: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	processor := worker.NewSyncProcessor(app.Campaigns, app.Leads)
	log.Printf("Consuming sync requests from %s", cfg.Kafka.Topics.SyncRequests)
	if err := consumer.Consume(ctx, processor.HandleMessage); err != nil {
		log.Printf("Consumer stopped: %v", err)
	}

	log.Println("Shutting down processor...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	consumer.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Health server forced to shutdown: %v", err)
	}
	app.Close(shutdownCtx)

	log.Println("Processor stopped")
}

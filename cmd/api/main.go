// Package main is the entry point for the Campaign Manager API.
//
// @title Campaign Manager API
// @version 1.0
// @description Creates ad campaigns once and fans them out to Facebook, Instagram, WhatsApp, Google, YouTube, LinkedIn, Twitter and Snapchat.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/white/campaign-manager/config"
	"github.com/white/campaign-manager/internal/bootstrap"
	"github.com/white/campaign-manager/internal/handlers"
	"github.com/white/campaign-manager/internal/middleware"
	"github.com/white/campaign-manager/internal/utils"
)

func main() {
	// Load environment variables (ignore error in dev)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 2*time.Minute)
	app, err := bootstrap.Build(startupCtx, cfg)
	cancelStartup()
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	log.Println("Services initialized")

	seedCtx, cancelSeed := context.WithTimeout(context.Background(), 30*time.Second)
	if err := app.Platforms.SeedCatalog(seedCtx); err != nil {
		log.Printf("Failed to seed platform catalog: %v", err)
	}
	cancelSeed()

	var jwksCache *utils.JWKSCache
	if cfg.JWT.JWKSEndpoint != "" {
		jwksCache = utils.NewJWKSCache(cfg.JWT.JWKSEndpoint, time.Hour)
	}
	validator := utils.NewTokenValidator(cfg.JWT, jwksCache)
	if !validator.Enabled() {
		log.Fatalf("Either jwt.shared_secret or jwt.jwks_endpoint must be set")
	}
	authMiddleware := middleware.JWTAuth(validator)

	// Initialize router
	router := mux.NewRouter()
	router.Use(middleware.Metrics)

	// Custom NotFoundHandler (for routes that don't exist)
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"success":false,"error":{"code":"NOT_FOUND","message":"Endpoint not found"}}`))
	})

	health := handlers.NewHealthHandler("campaign-manager", cfg.Server.Version, app.HealthChecks())
	router.HandleFunc("/health", health.GetOverallHealth).Methods(http.MethodGet, http.MethodOptions)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// Swagger ui endpoint - API documentation
	router.PathPrefix("/swagger/").Handler(httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("none"),
		httpSwagger.DomID("swagger-ui"),
	)).Methods(http.MethodGet)

	handlers.RegisterRoutes(router,
		handlers.NewCampaignHandler(app.Campaigns, app.Leads, app.SyncQueue),
		handlers.NewLeadHandler(app.Leads),
		handlers.NewPlatformHandler(app.Platforms),
		authMiddleware,
	)

	// HTTP server configuration
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      corsMiddleware(cfg.Server.AllowedOrigins)(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute, // fan-out to every platform runs inside the request
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	go func() {
		log.Printf("Server running on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	app.Close(ctx)

	log.Println("Server stopped")
}

// corsMiddleware adds CORS headers for the configured origins.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			originAllowed := false
			for _, allowed := range allowedOrigins {
				if origin == allowed {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					originAllowed = true
					break
				}
			}

			if !originAllowed && origin != "" {
				http.Error(w, "Origin not allowed", http.StatusForbidden)
				return
			}

			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Credentials", "true")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Package main provides the entrypoint for the flyerdeck API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/flyerdeck/flyerdeck/internal/api"
	"github.com/flyerdeck/flyerdeck/internal/api/middleware"
	"github.com/flyerdeck/flyerdeck/internal/auth"
	"github.com/flyerdeck/flyerdeck/internal/detect"
	"github.com/flyerdeck/flyerdeck/internal/detect/gemini"
	"github.com/flyerdeck/flyerdeck/internal/detect/segment"
	"github.com/flyerdeck/flyerdeck/internal/extract"
	"github.com/flyerdeck/flyerdeck/internal/extract/imagegen"
	"github.com/flyerdeck/flyerdeck/internal/generate"
	"github.com/flyerdeck/flyerdeck/internal/geo"
	"github.com/flyerdeck/flyerdeck/internal/geo/places"
	"github.com/flyerdeck/flyerdeck/internal/geo/transitroute"
	"github.com/flyerdeck/flyerdeck/internal/provider/resilience"
	"github.com/flyerdeck/flyerdeck/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "flyerdeck-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting flyerdeck API")

	// Get configuration from environment
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	// Initialize OpenTelemetry
	ctx := context.Background()
	telemetryEnabled := os.Getenv("OTEL_ENABLED") == "true"

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    env,
		OTLPEndpoint:   otlpEndpoint,
		Enabled:        telemetryEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if telemetryEnabled {
		log.Info().
			Str("otlp_endpoint", otlpEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	// Initialize JWT service (get signing key from environment)
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		jwtSigningKey = "local-dev-signing-key-change-in-production"
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}

	jwtService := auth.NewJWTService(auth.JWTConfig{
		SigningKey: jwtSigningKey,
		Issuer:     os.Getenv("JWT_ISSUER"),
		Audience:   os.Getenv("JWT_AUDIENCE"),
	})

	// One registry tracks every provider client for /v1/ops/status.
	registry := resilience.NewRegistry()

	// Generative Language API key serves detection and regeneration.
	geminiAPIKey := os.Getenv("GEMINI_API_KEY")
	if geminiAPIKey == "" {
		log.Warn().Msg("GEMINI_API_KEY not set - extraction will fail")
	}

	// Build the detector policy: prompted vision for photos, the
	// segmentation model for floor plans when configured.
	policy := detect.NewPolicy()

	visionDetector := gemini.NewClient(gemini.ClientConfig{
		APIKey:   geminiAPIKey,
		Registry: registry,
		Logger:   log,
	})
	policy.Register(detect.AssetPropertyPhoto, visionDetector)
	policy.Register(detect.AssetFloorPlan, visionDetector)

	if segmentURL := os.Getenv("SEGMENT_BASE_URL"); segmentURL != "" {
		segmentDetector := segment.NewClient(segment.ClientConfig{
			BaseURL:  segmentURL,
			APIKey:   os.Getenv("SEGMENT_API_KEY"),
			Registry: registry,
			Logger:   log,
		})
		policy.Register(detect.AssetFloorPlan, segmentDetector)
		log.Info().Msg("segmentation detector registered for floor plans")
	}

	imageGenerator := imagegen.NewClient(imagegen.ClientConfig{
		APIKey:   geminiAPIKey,
		Registry: registry,
		Logger:   log,
	})

	fetcher := extract.NewHTTPFetcher(extract.FetcherConfig{
		Registry: registry,
		Logger:   log,
	})

	pipeline := extract.NewPipeline(extract.PipelineConfig{
		Policy:    policy,
		Generator: imageGenerator,
		Fetcher:   fetcher,
		Logger:    log,
	})
	log.Info().Msg("extraction pipeline initialized")

	// Maps Platform clients for the access slide.
	mapsAPIKey := os.Getenv("MAPS_API_KEY")
	if mapsAPIKey == "" {
		log.Warn().Msg("MAPS_API_KEY not set - route aggregation will fail")
	}

	placesClient := places.NewClient(places.ClientConfig{
		APIKey:   mapsAPIKey,
		Registry: registry,
		Logger:   log,
	})
	routesClient := transitroute.NewClient(transitroute.ClientConfig{
		APIKey:   mapsAPIKey,
		Registry: registry,
		Logger:   log,
	})

	geoService := geo.NewService(geo.ServiceConfig{
		Places: placesClient,
		Routes: routesClient,
		Logger: log,
	})
	log.Info().Msg("geo service initialized")

	generator := generate.NewService(generate.ServiceConfig{
		Extractor: pipeline,
		Routes:    geoService,
		Logger:    log,
	})
	log.Info().Msg("slide generator initialized")

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:     Version,
		BuildTime:   BuildTime,
		Logger:      log,
		ServiceName: serviceName,
		Metrics:     metrics,
		JWTService:  jwtService,
		Generator:   generator,
		Registry:    registry,
	})

	// Create HTTP server. WriteTimeout stays zero: generation streams
	// are long-lived and heartbeats keep the connection alive.
	server := &http.Server{
		Addr:        ":" + port,
		Handler:     router,
		ReadTimeout: 60 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}

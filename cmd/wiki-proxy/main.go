package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/wiki-api-client/pkg/client"
	"github.com/Sternrassler/wiki-api-client/pkg/logging"
	"github.com/Sternrassler/wiki-api-client/pkg/metrics"
	"github.com/Sternrassler/wiki-api-client/pkg/store"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	logging.Setup(logging.ConfigFromEnv())

	// Configuration from environment
	endpoint := getEnv("WIKI_ENDPOINT", client.DefaultEndpoint)
	userAgent := getEnv("USER_AGENT", client.DefaultUserAgent)
	port := getEnv("PORT", "8080")
	redisURL := getEnv("REDIS_URL", "")

	snapshotTTL, err := time.ParseDuration(getEnv("SNAPSHOT_TTL", "0s"))
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid SNAPSHOT_TTL")
	}

	cfg := client.DefaultConfig()
	cfg.Endpoint = endpoint
	cfg.UserAgent = userAgent

	wikiClient, err := client.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create wiki client")
	}

	// Snapshot store is optional
	var redisClient *redis.Client
	var snapshots *store.Store
	if redisURL != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr: redisURL,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Fatal().Err(err).Str("redis", redisURL).Msg("Failed to connect to Redis")
		}
		snapshots = store.New(redisClient, store.Config{TTL: snapshotTTL})
		log.Info().Str("redis", redisURL).Dur("ttl", snapshotTTL).Msg("Snapshot store enabled")
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           newMux(wikiClient, snapshots, redisClient),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("endpoint", wikiClient.Endpoint()).
			Str("user_agent", userAgent).
			Msg("Starting wiki proxy server")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}

func newMux(wikiClient *client.Client, snapshots *store.Store, redisClient *redis.Client) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("GET /ready", readyHandler(redisClient))
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /backlinks", backlinksHandler(wikiClient, snapshots))
	mux.HandleFunc("GET /entities/{id}", entityHandler(wikiClient, snapshots))
	return mux
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

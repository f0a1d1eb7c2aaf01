package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Sternrassler/wiki-api-client/pkg/client"
	"github.com/Sternrassler/wiki-api-client/pkg/store"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// defaultBacklinkLimit applies when /backlinks has no limit parameter.
const defaultBacklinkLimit = 500

// BacklinksResponse is the body of GET /backlinks.
type BacklinksResponse struct {
	Title  string   `json:"title"`
	Limit  int      `json:"limit"`
	Count  int      `json:"count"`
	Titles []string `json:"titles"`
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// readyHandler reports 503 when the configured Redis is unreachable.
// Without Redis the proxy is always ready.
func readyHandler(redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			if err := redisClient.Ping(r.Context()).Err(); err != nil {
				log.Warn().Err(err).Msg("Readiness check failed")
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	}
}

func backlinksHandler(wikiClient *client.Client, snapshots *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		title := r.URL.Query().Get("title")

		limit := defaultBacklinkLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				http.Error(w, fmt.Sprintf("invalid limit %q", raw), http.StatusBadRequest)
				return
			}
			limit = n
		}

		titles, err := wikiClient.Backlinks(r.Context(), title, limit)
		if err != nil {
			writeError(w, err)
			return
		}

		if snapshots != nil {
			snap := &store.BacklinkSnapshot{
				Endpoint: wikiClient.Endpoint(),
				Title:    title,
				Limit:    limit,
				Titles:   titles,
			}
			if err := snapshots.SaveBacklinks(r.Context(), snap); err != nil {
				log.Warn().Err(err).Str("title", title).Msg("Failed to save backlink snapshot")
			}
		}

		writeJSON(w, BacklinksResponse{
			Title:  title,
			Limit:  limit,
			Count:  len(titles),
			Titles: titles,
		})
	}
}

func entityHandler(wikiClient *client.Client, snapshots *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")

		payload, err := wikiClient.EntityData(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}

		if snapshots != nil {
			snap := &store.EntitySnapshot{
				Endpoint: wikiClient.Endpoint(),
				ID:       id,
				Payload:  payload,
			}
			if err := snapshots.SaveEntity(r.Context(), snap); err != nil {
				log.Warn().Err(err).Str("id", id).Msg("Failed to save entity snapshot")
			}
		}

		writeJSON(w, payload)
	}
}

// statusFor maps client errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, client.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, client.ErrTransport), errors.Is(err, client.ErrParse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Warn().Err(err).Int("status", status).Msg("Wiki request failed")
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to write response")
	}
}

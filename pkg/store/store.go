package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/wiki-api-client/pkg/logging"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var (
	// ErrNotFound indicates no snapshot exists for the requested key.
	ErrNotFound = errors.New("snapshot not found")

	// ErrInvalidSnapshot indicates a corrupted or partially expired snapshot.
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)

// Config holds store configuration.
type Config struct {
	// TTL expires snapshots after the given duration. Zero keeps them forever.
	TTL time.Duration
}

// Store writes finished results to Redis for downstream consumers.
type Store struct {
	redis  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// New creates a snapshot store with Redis backend.
func New(redisClient *redis.Client, cfg Config) *Store {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Store{
		redis:  redisClient,
		ttl:    cfg.TTL,
		logger: logging.NewLogger("snapshot-store"),
	}
}

// Ping checks the Redis connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}

// SaveBacklinks replaces the snapshot for snap.Endpoint/snap.Title atomically.
// Count and (if zero) SavedAt are filled in.
func (s *Store) SaveBacklinks(ctx context.Context, snap *BacklinkSnapshot) error {
	if snap == nil {
		return fmt.Errorf("snapshot cannot be nil")
	}
	if snap.SavedAt.IsZero() {
		snap.SavedAt = time.Now().UTC()
	}
	snap.Count = len(snap.Titles)

	meta, err := json.Marshal(snap)
	if err != nil {
		StoreErrors.WithLabelValues("save_backlinks").Inc()
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	key := snap.Key()
	listKey := key.String()

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, listKey)
		if len(snap.Titles) > 0 {
			values := make([]interface{}, len(snap.Titles))
			for i, title := range snap.Titles {
				values[i] = title
			}
			pipe.RPush(ctx, listKey, values...)
			if s.ttl > 0 {
				pipe.Expire(ctx, listKey, s.ttl)
			}
		}
		pipe.Set(ctx, key.MetaKey(), meta, s.ttl)
		return nil
	})
	if err != nil {
		StoreErrors.WithLabelValues("save_backlinks").Inc()
		return fmt.Errorf("redis save backlinks: %w", err)
	}

	StoreOperations.WithLabelValues("save_backlinks").Inc()
	SnapshotItems.WithLabelValues(string(KindBacklinks)).Observe(float64(snap.Count))

	s.logger.Info().
		Str("key", listKey).
		Int("count", snap.Count).
		Dur("ttl", s.ttl).
		Msg("Saved backlink snapshot")

	return nil
}

// LoadBacklinks returns the snapshot for endpoint/title, or ErrNotFound.
func (s *Store) LoadBacklinks(ctx context.Context, endpoint, title string) (*BacklinkSnapshot, error) {
	key := Key{Endpoint: endpoint, Kind: KindBacklinks, Subject: title}

	// Metadata and list are read in one MULTI/EXEC, like SaveBacklinks writes them.
	var metaCmd *redis.StringCmd
	var listCmd *redis.StringSliceCmd
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		metaCmd = pipe.Get(ctx, key.MetaKey())
		listCmd = pipe.LRange(ctx, key.String(), 0, -1)
		return nil
	})
	if err != nil && err != redis.Nil {
		StoreErrors.WithLabelValues("load_backlinks").Inc()
		return nil, fmt.Errorf("redis load backlinks: %w", err)
	}

	meta, err := metaCmd.Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		StoreErrors.WithLabelValues("load_backlinks").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var snap BacklinkSnapshot
	if err := json.Unmarshal(meta, &snap); err != nil {
		StoreErrors.WithLabelValues("load_backlinks").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}

	titles, err := listCmd.Result()
	if err != nil {
		StoreErrors.WithLabelValues("load_backlinks").Inc()
		return nil, fmt.Errorf("redis lrange: %w", err)
	}
	if len(titles) != snap.Count {
		StoreErrors.WithLabelValues("load_backlinks").Inc()
		return nil, fmt.Errorf("%w: %s has %d titles, metadata says %d",
			ErrInvalidSnapshot, key.String(), len(titles), snap.Count)
	}

	snap.Titles = make([]string, 0, len(titles))
	snap.Titles = append(snap.Titles, titles...)

	StoreOperations.WithLabelValues("load_backlinks").Inc()
	return &snap, nil
}

// SaveEntity stores the raw entity payload. SavedAt is filled in if zero.
func (s *Store) SaveEntity(ctx context.Context, snap *EntitySnapshot) error {
	if snap == nil {
		return fmt.Errorf("snapshot cannot be nil")
	}
	if snap.SavedAt.IsZero() {
		snap.SavedAt = time.Now().UTC()
	}

	data, err := json.Marshal(snap)
	if err != nil {
		StoreErrors.WithLabelValues("save_entity").Inc()
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	key := snap.Key()
	if err := s.redis.Set(ctx, key.String(), data, s.ttl).Err(); err != nil {
		StoreErrors.WithLabelValues("save_entity").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	StoreOperations.WithLabelValues("save_entity").Inc()
	s.logger.Info().
		Str("key", key.String()).
		Int("bytes", len(data)).
		Msg("Saved entity snapshot")

	return nil
}

// LoadEntity returns the snapshot for endpoint/id, or ErrNotFound.
// Payload numbers decode as json.Number, as EntityData returns them.
func (s *Store) LoadEntity(ctx context.Context, endpoint, id string) (*EntitySnapshot, error) {
	key := Key{Endpoint: endpoint, Kind: KindEntity, Subject: id}

	data, err := s.redis.Get(ctx, key.String()).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		StoreErrors.WithLabelValues("load_entity").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var snap EntitySnapshot
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&snap); err != nil {
		StoreErrors.WithLabelValues("load_entity").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}

	StoreOperations.WithLabelValues("load_entity").Inc()
	return &snap, nil
}

// Delete removes a snapshot and its metadata.
func (s *Store) Delete(ctx context.Context, key Key) error {
	if err := s.redis.Del(ctx, key.String(), key.MetaKey()).Err(); err != nil {
		StoreErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}

	StoreOperations.WithLabelValues("delete").Inc()
	return nil
}

// Package store persists finished wiki results to Redis.
//
// The store is an export sink: it records what an enumeration or entity fetch
// returned so other processes can pick it up. The client never reads from it,
// so it does not change what the API returns.
//
// # Layout
//
// Backlink snapshots use two keys:
//
//	wiki:www.wikidata.org/w/api.php:backlinks:Q5        list of titles, upstream order
//	wiki:www.wikidata.org/w/api.php:backlinks:Q5:meta   JSON metadata (limit, count, saved_at)
//
// Entity snapshots use one key holding the JSON document, payload included:
//
//	wiki:www.wikidata.org/w/api.php:entity:P569
//
// Saving a backlink snapshot replaces the list and metadata in one MULTI/EXEC.
//
// # Basic Usage
//
//	s := store.New(redisClient, store.Config{TTL: 24 * time.Hour})
//
//	titles, err := c.Backlinks(ctx, "Q5", 5000)
//	if err != nil {
//		return err
//	}
//	err = s.SaveBacklinks(ctx, &store.BacklinkSnapshot{
//		Endpoint: c.Endpoint(),
//		Title:    "Q5",
//		Limit:    5000,
//		Titles:   titles,
//	})
//
//	snap, err := s.LoadBacklinks(ctx, c.Endpoint(), "Q5")
//	if errors.Is(err, store.ErrNotFound) {
//		// nothing saved yet
//	}
//
// # Metrics
//
//   - wiki_store_operations_total{operation} - Successful operations
//   - wiki_store_errors_total{operation} - Failed operations
//   - wiki_store_snapshot_items{kind} - Titles per backlink snapshot
package store

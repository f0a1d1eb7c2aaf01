package store

import (
	"time"
)

// BacklinkSnapshot is a saved backlink enumeration.
type BacklinkSnapshot struct {
	// Endpoint is the api.php URL that was queried.
	Endpoint string `json:"endpoint"`

	// Title is the page the backlinks point to.
	Title string `json:"title"`

	// Limit is the limit the enumeration ran with.
	Limit int `json:"limit"`

	// Count is len(Titles) at save time. A mismatch on load means a partial snapshot.
	Count int `json:"count"`

	// SavedAt is when the snapshot was written.
	SavedAt time.Time `json:"saved_at"`

	// Titles are stored as a Redis list, not in the metadata document.
	Titles []string `json:"-"`
}

// Key returns the Redis key of the snapshot.
func (s *BacklinkSnapshot) Key() Key {
	return Key{Endpoint: s.Endpoint, Kind: KindBacklinks, Subject: s.Title}
}

// Age returns how long ago the snapshot was saved.
func (s *BacklinkSnapshot) Age() time.Duration {
	return time.Since(s.SavedAt)
}

// EntitySnapshot is a saved wbgetentities payload.
type EntitySnapshot struct {
	Endpoint string    `json:"endpoint"`
	ID       string    `json:"id"`
	SavedAt  time.Time `json:"saved_at"`
	Payload  any       `json:"payload"`
}

// Key returns the Redis key of the snapshot.
func (s *EntitySnapshot) Key() Key {
	return Key{Endpoint: s.Endpoint, Kind: KindEntity, Subject: s.ID}
}

// Age returns how long ago the snapshot was saved.
func (s *EntitySnapshot) Age() time.Duration {
	return time.Since(s.SavedAt)
}

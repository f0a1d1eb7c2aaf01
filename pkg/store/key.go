package store

import (
	"net/url"
	"strings"
)

// Kind distinguishes the two snapshot types.
type Kind string

const (
	// KindBacklinks is a finished backlink enumeration.
	KindBacklinks Kind = "backlinks"

	// KindEntity is a raw wbgetentities payload.
	KindEntity Kind = "entity"
)

// Key identifies one snapshot in Redis.
type Key struct {
	// Endpoint is the api.php URL the data came from. Snapshots of different wikis never collide.
	Endpoint string

	Kind Kind

	// Subject is the page title (backlinks) or entity id (entity).
	Subject string
}

// String generates a deterministic Redis key.
// Format: wiki:<host><path>:<kind>:<subject>
//
// Example:
//
//	wiki:www.wikidata.org/w/api.php:backlinks:Q5
func (k Key) String() string {
	return strings.Join([]string{"wiki", normalizeEndpoint(k.Endpoint), string(k.Kind), k.Subject}, ":")
}

// MetaKey is the key of the metadata document that accompanies a backlinks list.
func (k Key) MetaKey() string {
	return k.String() + ":meta"
}

// normalizeEndpoint drops scheme, query and letter case of the host so that
// http/https and ?uselang variants of the same api.php share snapshots.
func normalizeEndpoint(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return strings.ToLower(strings.TrimSpace(endpoint))
	}
	return strings.ToLower(u.Host) + strings.TrimRight(u.Path, "/")
}

// Package cache provides pluggable caching for fetched pages, computed
// layouts and rendered artifacts.
//
// Three backends are available:
//   - [FileCache]: one JSON file per entry, for the CLI
//   - [RedisCache]: shared cache for server deployments
//   - [NullCache]: disables caching
//
// Keys are produced by a [Keyer] so that every entry point (CLI, server)
// derives identical keys for identical inputs. [Scoped] prefixes keys
// per API host or tenant.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry TTL.
type Cache interface {
	// Get returns the cached value and true on a hit. A miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of 0 means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// TTLs for the different entry types.
const (
	// TTLPage is short: gallery pages change whenever someone uploads.
	TTLPage = 5 * time.Minute

	// TTLLayout is long: layouts are pure functions of their key.
	TTLLayout = 7 * 24 * time.Hour

	// TTLArtifact matches TTLLayout for the same reason.
	TTLArtifact = 7 * 24 * time.Hour

	// TTLHTTP bounds cached REST responses.
	TTLHTTP = 10 * time.Minute
)

// LayoutKeyOpts are the inputs besides the items that determine a layout.
type LayoutKeyOpts struct {
	ContainerWidth float64 `json:"container_width"`
	MinCols        int     `json:"min_cols"`
	MaxCols        int     `json:"max_cols"`
	MinColWidth    float64 `json:"min_col_width"`
	MaxColWidth    float64 `json:"max_col_width"`
	Gap            float64 `json:"gap"`
}

// ArtifactKeyOpts are the inputs besides the layout that determine an artifact.
type ArtifactKeyOpts struct {
	Format string `json:"format"`
	// MetaHash covers per-item titles and sources shown in the artifact.
	MetaHash  string  `json:"meta_hash,omitempty"`
	TextWidth int     `json:"text_width,omitempty"`
	Padding   float64 `json:"padding,omitempty"`
}

// Keyer derives cache keys.
type Keyer interface {
	// HTTPKey keys a cached HTTP response.
	HTTPKey(namespace, key string) string

	// PageKey keys a fetched page of gallery items.
	PageKey(source, token string) string

	// LayoutKey keys a layout computed from the items with the given hash.
	LayoutKey(itemsHash string, opts LayoutKeyOpts) string

	// ArtifactKey keys a rendered artifact of the layout with the given hash.
	ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer produces unscoped keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// HTTPKey returns "http:<namespace>:<key>".
func (DefaultKeyer) HTTPKey(namespace, key string) string {
	return "http:" + namespace + ":" + key
}

// PageKey returns a hashed key for a page of a source.
func (DefaultKeyer) PageKey(source, token string) string {
	return hashKey("page", source, token)
}

// LayoutKey returns a hashed key over the items hash and layout inputs.
func (DefaultKeyer) LayoutKey(itemsHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", itemsHash, opts)
}

// ArtifactKey returns a hashed key over the layout hash and render inputs.
func (DefaultKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", layoutHash, opts)
}

var _ Keyer = DefaultKeyer{}

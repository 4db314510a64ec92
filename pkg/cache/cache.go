// Package cache stores computed stitching plans and preview images so that
// repeated runs over an unchanged board skip rasterization.
//
// # Backends
//
//   - [NullCache]: caching disabled
//   - [FileCache]: one JSON entry file per key under a directory, for the CLI
//   - [RedisCache]: a shared Redis instance, for servers
//
// # Keys
//
// Keys are derived by a [Keyer] from a board fingerprint and every
// parameter that influences the result, so a key never outlives the
// geometry it was computed from. [ScopedKeyer] prefixes keys to separate
// namespaces sharing one backend.
package cache

import (
	"context"
	"time"
)

// Default time-to-live values.
const (
	TTLPlan    = 7 * 24 * time.Hour
	TTLPreview = 24 * time.Hour
)

// Cache is a byte-oriented key/value store with expiry.
type Cache interface {
	// Get returns the value for key. The second result is false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	Delete(ctx context.Context, key string) error
	Close() error
}

// Clearer is implemented by caches that can drop all their entries.
type Clearer interface {
	Clear(ctx context.Context) (int, error)
}

// PlanKeyOpts lists every parameter of a plan, in board units.
type PlanKeyOpts struct {
	Net         string   `json:"net"`
	ViaDiameter int64    `json:"via_diameter"`
	ViaDrill    int64    `json:"via_drill"`
	GridX       int64    `json:"grid_x"`
	GridY       int64    `json:"grid_y"`
	OffsetX     int64    `json:"offset_x"`
	OffsetY     int64    `json:"offset_y"`
	Stagger     bool     `json:"stagger"`
	Clearance   int64    `json:"clearance"`
	Resolution  int64    `json:"resolution"`
	Scale       int64    `json:"scale"`
	MaxPixels   int64    `json:"max_pixels"`
	IgnoreZones []string `json:"ignore_zones"` // sorted
}

// PreviewKeyOpts lists the rendering parameters of a preview image.
type PreviewKeyOpts struct {
	WidthMM  float64 `json:"width_mm"`
	HeightMM float64 `json:"height_mm"`
}

// Keyer derives cache keys.
type Keyer interface {
	PlanKey(fingerprint string, opts PlanKeyOpts) string
	PreviewKey(planKey string, opts PreviewKeyOpts) string
}

// DefaultKeyer hashes key components with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// PlanKey returns "plan:<hash>" over the fingerprint and options.
func (DefaultKeyer) PlanKey(fingerprint string, opts PlanKeyOpts) string {
	return hashKey("plan", fingerprint, opts)
}

// PreviewKey returns "preview:<hash>" over the plan key and options.
func (DefaultKeyer) PreviewKey(planKey string, opts PreviewKeyOpts) string {
	return hashKey("preview", planKey, opts)
}

var _ Keyer = DefaultKeyer{}

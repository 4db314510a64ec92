// Package history records stitching runs so that users can review what was
// placed, when and with which parameters.
//
// Two stores are provided: package sqlite keeps a local database next to
// the CLI cache, package mongo writes to a shared MongoDB collection for
// servers. [Nop] disables recording.
package history

import (
	"context"
	"time"

	"github.com/matzehuels/viastitch/pkg/errors"
	"github.com/matzehuels/viastitch/pkg/stitch"
)

// DefaultLimit is the number of runs List returns when no limit is given.
const DefaultLimit = 20

// Record describes one run.
type Record struct {
	ID          string        `json:"id" bson:"_id"`
	Board       string        `json:"board,omitempty" bson:"board,omitempty"`
	Net         string        `json:"net" bson:"net"`
	Fingerprint string        `json:"fingerprint" bson:"fingerprint"`
	Outcome     string        `json:"outcome" bson:"outcome"`
	Candidates  int           `json:"candidates" bson:"candidates"`
	Created     int           `json:"created" bson:"created"`
	CommitError string        `json:"commit_error,omitempty" bson:"commit_error,omitempty"`
	PlanCached  bool          `json:"plan_cached" bson:"plan_cached"`
	DryRun      bool          `json:"dry_run" bson:"dry_run"`
	Params      stitch.Params `json:"params" bson:"params"`
	StartedAt   time.Time     `json:"started_at" bson:"started_at"`
	Duration    time.Duration `json:"duration" bson:"duration"`
}

// ListOptions filters List.
type ListOptions struct {
	Net   string // empty matches every net
	Limit int    // <= 0 selects DefaultLimit
}

// EffectiveLimit returns the limit to apply.
func (o ListOptions) EffectiveLimit() int {
	if o.Limit <= 0 {
		return DefaultLimit
	}
	return o.Limit
}

// Store persists run records.
type Store interface {
	Save(ctx context.Context, r *Record) error

	// List returns runs newest first.
	List(ctx context.Context, opts ListOptions) ([]Record, error)

	// Get returns one run, or an error with code RUN_NOT_FOUND.
	Get(ctx context.Context, id string) (*Record, error)

	Close() error
}

// NotFound returns the error stores report for a missing run.
func NotFound(id string) error {
	return errors.New(errors.ErrCodeRunNotFound, "run %q not found", id)
}

// Nop is a store that records nothing.
type Nop struct{}

func (Nop) Save(context.Context, *Record) error { return nil }

func (Nop) List(context.Context, ListOptions) ([]Record, error) { return nil, nil }

func (Nop) Get(_ context.Context, id string) (*Record, error) { return nil, NotFound(id) }

func (Nop) Close() error { return nil }

var _ Store = Nop{}

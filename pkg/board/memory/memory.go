// Package memory implements [board.Board] over an in-process
// [board.Document]. It backs the CLI and the HTTP server, which load a
// board document from disk, stitch it and optionally save it back, and it
// doubles as the fake collaborator in tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/matzehuels/viastitch/pkg/board"
	"github.com/matzehuels/viastitch/pkg/errors"
)

// Option configures a [Board].
type Option func(*Board)

// WithCommitError makes every Commit fail with err. Staged vias are
// discarded, as a host editor would on a failed commit.
func WithCommitError(err error) Option {
	return func(b *Board) { b.commitErr = err }
}

// WithEnumerateError makes every enumeration call fail with err.
func WithEnumerateError(err error) Option {
	return func(b *Board) { b.enumErr = err }
}

// Board is a mutex-guarded in-memory board.
type Board struct {
	mu        sync.Mutex
	doc       board.Document
	selection []string
	refills   int
	commits   int
	calls     []string

	commitErr error
	enumErr   error
}

// New returns a board over a copy of doc. The document is validated
// first; a nil document yields an empty board.
func New(doc *board.Document, opts ...Option) (*Board, error) {
	b := &Board{}
	if doc != nil {
		b.doc = cloneDocument(doc)
	}
	if err := b.doc.Validate(); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Load reads the board document at path.
func Load(path string, opts ...Option) (*Board, error) {
	doc, err := board.LoadDocument(path)
	if err != nil {
		return nil, err
	}
	return New(doc, opts...)
}

// Document returns a snapshot of the current board, including committed
// vias.
func (b *Board) Document() *board.Document {
	b.mu.Lock()
	defer b.mu.Unlock()
	doc := cloneDocument(&b.doc)
	return &doc
}

// Selection returns the IDs currently selected.
func (b *Board) Selection() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.selection)
}

// Refills returns how many times RefillZones was called.
func (b *Board) Refills() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refills
}

// Commits returns the number of successful commits.
func (b *Board) Commits() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.commits
}

// Calls returns the names of mutating calls in the order they were made.
func (b *Board) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.calls)
}

func (b *Board) enumerate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.enumErr
}

func (b *Board) Nets(ctx context.Context) ([]board.Net, error) {
	if err := b.enumerate(ctx); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.doc.Nets), nil
}

func (b *Board) Pads(ctx context.Context) ([]board.Pad, error) {
	if err := b.enumerate(ctx); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return board.ClonePads(b.doc.Pads), nil
}

func (b *Board) Vias(ctx context.Context) ([]board.Via, error) {
	if err := b.enumerate(ctx); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.doc.Vias), nil
}

func (b *Board) Tracks(ctx context.Context) ([]board.Track, error) {
	if err := b.enumerate(ctx); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.doc.Tracks), nil
}

func (b *Board) Zones(ctx context.Context) ([]board.Zone, error) {
	if err := b.enumerate(ctx); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return board.CloneZones(b.doc.Zones), nil
}

func (b *Board) Begin(ctx context.Context) (board.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.record("begin")
	return &tx{board: b}, nil
}

func (b *Board) ClearSelection(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, "clear-selection")
	b.selection = nil
	return nil
}

func (b *Board) AddToSelection(ctx context.Context, ids ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, "add-selection")
	b.selection = append(b.selection, ids...)
	return nil
}

func (b *Board) RefillZones(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, "refill")
	b.refills++
	return nil
}

func (b *Board) record(call string) {
	b.mu.Lock()
	b.calls = append(b.calls, call)
	b.mu.Unlock()
}

// tx stages vias until Commit.
type tx struct {
	board  *Board
	staged []board.Via
	done   bool
}

func (t *tx) Create(ctx context.Context, vias ...board.Via) ([]board.Via, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t.done {
		return nil, errors.New(errors.ErrCodeInternal, "transaction already finished")
	}
	out := make([]board.Via, len(vias))
	for i, v := range vias {
		if v.ID == "" {
			v.ID = uuid.NewString()
		}
		out[i] = v
	}
	t.staged = append(t.staged, out...)
	t.board.record("create")
	return out, nil
}

func (t *tx) Commit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.done {
		return errors.New(errors.ErrCodeInternal, "transaction already finished")
	}
	t.done = true

	b := t.board
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, "commit")
	if b.commitErr != nil {
		return fmt.Errorf("commit %d vias: %w", len(t.staged), b.commitErr)
	}
	b.doc.Vias = append(b.doc.Vias, t.staged...)
	b.commits++
	return nil
}

func (t *tx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.staged = nil
	t.board.record("rollback")
	return nil
}

func cloneDocument(d *board.Document) board.Document {
	return board.Document{
		Version: d.Version,
		Units:   d.Units,
		Nets:    slices.Clone(d.Nets),
		Pads:    board.ClonePads(d.Pads),
		Vias:    slices.Clone(d.Vias),
		Tracks:  slices.Clone(d.Tracks),
		Zones:   board.CloneZones(d.Zones),
	}
}

var _ board.Board = (*Board)(nil)

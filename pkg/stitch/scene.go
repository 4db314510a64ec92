package stitch

import (
	"cmp"
	"context"
	"encoding/json"
	"slices"

	"github.com/matzehuels/viastitch/pkg/board"
	"github.com/matzehuels/viastitch/pkg/cache"
	"github.com/matzehuels/viastitch/pkg/errors"
)

// Scene is one snapshot of the board geometry a run works on.
type Scene struct {
	Nets   []board.Net   `json:"nets"`
	Pads   []board.Pad   `json:"pads"`
	Vias   []board.Via   `json:"vias"`
	Tracks []board.Track `json:"tracks"`
	Zones  []board.Zone  `json:"zones"`
}

// LoadScene enumerates every feature of b. Enumeration failures are
// wrapped as BOARD_UNAVAILABLE; context errors are returned as is.
func LoadScene(ctx context.Context, b board.Board) (*Scene, error) {
	var (
		s   Scene
		err error
	)
	if s.Nets, err = b.Nets(ctx); err != nil {
		return nil, enumerateErr(ctx, "nets", err)
	}
	if s.Pads, err = b.Pads(ctx); err != nil {
		return nil, enumerateErr(ctx, "pads", err)
	}
	if s.Vias, err = b.Vias(ctx); err != nil {
		return nil, enumerateErr(ctx, "vias", err)
	}
	if s.Tracks, err = b.Tracks(ctx); err != nil {
		return nil, enumerateErr(ctx, "tracks", err)
	}
	if s.Zones, err = b.Zones(ctx); err != nil {
		return nil, enumerateErr(ctx, "zones", err)
	}
	return &s, nil
}

func enumerateErr(ctx context.Context, what string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return errors.Wrap(errors.ErrCodeBoardUnavailable, err, "enumerate %s", what)
}

// Fingerprint returns a content hash of the scene, stable across
// enumeration order of nets and features.
func (s *Scene) Fingerprint() string {
	c := Scene{
		Nets:   slices.Clone(s.Nets),
		Pads:   slices.Clone(s.Pads),
		Vias:   slices.Clone(s.Vias),
		Tracks: slices.Clone(s.Tracks),
		Zones:  slices.Clone(s.Zones),
	}
	slices.SortFunc(c.Nets, func(a, b board.Net) int { return cmp.Compare(a.Name, b.Name) })
	slices.SortFunc(c.Pads, func(a, b board.Pad) int { return cmp.Compare(a.ID, b.ID) })
	slices.SortFunc(c.Vias, func(a, b board.Via) int { return cmp.Compare(a.ID, b.ID) })
	slices.SortFunc(c.Tracks, func(a, b board.Track) int { return cmp.Compare(a.ID, b.ID) })
	slices.SortFunc(c.Zones, func(a, b board.Zone) int { return cmp.Compare(a.ID, b.ID) })

	data, _ := json.Marshal(c)
	return cache.Hash(data)
}

// HasNet reports whether the scene lists a net with the given name.
func (s *Scene) HasNet(name string) bool {
	return slices.ContainsFunc(s.Nets, func(n board.Net) bool { return n.Name == name })
}

// FilledZones returns the filled zones on net, in scene order.
func (s *Scene) FilledZones(net string) []board.Zone {
	var out []board.Zone
	for _, z := range s.Zones {
		if z.Filled && z.Net != "" && z.Net == net {
			out = append(out, z)
		}
	}
	return out
}

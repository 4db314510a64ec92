// Package board defines the board collaborator consumed by the stitching
// pipeline: typed copper features, the enumeration and commit interface,
// and the JSON board document used by the CLI and the HTTP server.
//
// # Model
//
// Every feature carries the name of its net; an empty name means the
// feature has no net. Lengths and positions are int64 board units (see
// package geom). Zones carry their filled polygons per copper layer, each
// polygon an outline with holes.
//
// The model is validated once at the collaborator boundary
// ([Document.Validate]) so that downstream code works with plain values and
// never probes for optional fields.
//
// # Collaborator
//
// [Board] is the interface the pipeline talks to. It enumerates features,
// creates vias inside a [Transaction], manages the editor selection and
// triggers a zone refill. Package memory provides an in-process
// implementation backed by a [Document].
package board

import (
	"context"
	"slices"

	"github.com/matzehuels/viastitch/pkg/geom"
)

// NoNet is the display name for features that belong to no net.
const NoNet = "No Net"

// Layer identifies a copper layer, e.g. "F.Cu" or "In1.Cu".
type Layer string

// Net is a named electrical net.
type Net struct {
	Name string `json:"name"`
}

// PadLayer is a pad's copper footprint on one layer.
type PadLayer struct {
	Layer Layer      `json:"layer"`
	Size  geom.Point `json:"size"`
}

// Pad is a footprint pad.
type Pad struct {
	ID       string     `json:"id"`
	Net      string     `json:"net,omitempty"`
	Position geom.Point `json:"position"`
	Copper   []PadLayer `json:"copper,omitempty"`
}

// MaxDimension returns the largest copper footprint dimension over all
// layers, or false when the pad carries no size data.
func (p Pad) MaxDimension() (int64, bool) {
	var best int64
	found := false
	for _, c := range p.Copper {
		d := max(c.Size.X, c.Size.Y)
		if !found || d > best {
			best = d
			found = true
		}
	}
	return best, found
}

// Via is a plated through hole.
type Via struct {
	ID       string     `json:"id"`
	Net      string     `json:"net,omitempty"`
	Position geom.Point `json:"position"`
	Diameter int64      `json:"diameter"`
	Drill    int64      `json:"drill"`
}

// Track is a straight copper segment.
type Track struct {
	ID    string     `json:"id"`
	Net   string     `json:"net,omitempty"`
	Layer Layer      `json:"layer"`
	Start geom.Point `json:"start"`
	End   geom.Point `json:"end"`
	Width int64      `json:"width"`
}

// Zone is a copper pour.
type Zone struct {
	ID      string                   `json:"id"`
	Name    string                   `json:"name,omitempty"`
	Net     string                   `json:"net,omitempty"`
	Layers  []Layer                  `json:"layers"`
	Filled  bool                     `json:"filled"`
	Outline geom.Ring                `json:"outline,omitempty"`
	Fills   map[Layer][]geom.Polygon `json:"filled_polygons,omitempty"`
}

// NetName returns the zone's net name, or [NoNet] when it has none.
func (z Zone) NetName() string {
	if z.Net == "" {
		return NoNet
	}
	return z.Net
}

// Bounds returns the zone bounding box: the drawn outline merged with every
// filled polygon outline. The second result is false when the zone has no
// geometry at all.
func (z Zone) Bounds() (geom.Box, bool) {
	box, ok := z.Outline.Bounds()
	for _, polys := range z.Fills {
		for _, p := range polys {
			b, pok := p.Bounds()
			if !pok {
				continue
			}
			if ok {
				box = box.Merge(b)
			} else {
				box, ok = b, true
			}
		}
	}
	return box, ok
}

// Clone returns a copy of p with its own copper list.
func (p Pad) Clone() Pad {
	p.Copper = slices.Clone(p.Copper)
	return p
}

// Clone returns a copy of z that shares no layer, outline or fill storage
// with it.
func (z Zone) Clone() Zone {
	z.Layers = slices.Clone(z.Layers)
	z.Outline = slices.Clone(z.Outline)
	if z.Fills != nil {
		fills := make(map[Layer][]geom.Polygon, len(z.Fills))
		for l, polys := range z.Fills {
			cp := make([]geom.Polygon, len(polys))
			for i, p := range polys {
				cp[i] = p.Clone()
			}
			fills[l] = cp
		}
		z.Fills = fills
	}
	return z
}

// ClonePads deep-copies pads.
func ClonePads(pads []Pad) []Pad {
	if pads == nil {
		return nil
	}
	out := make([]Pad, len(pads))
	for i, p := range pads {
		out[i] = p.Clone()
	}
	return out
}

// CloneZones deep-copies zones.
func CloneZones(zones []Zone) []Zone {
	if zones == nil {
		return nil
	}
	out := make([]Zone, len(zones))
	for i, z := range zones {
		out[i] = z.Clone()
	}
	return out
}

// Board is the collaborator the stitching pipeline reads geometry from and
// writes vias to. Implementations may be remote; every call can fail.
type Board interface {
	Nets(ctx context.Context) ([]Net, error)
	Pads(ctx context.Context) ([]Pad, error)
	Vias(ctx context.Context) ([]Via, error)
	Tracks(ctx context.Context) ([]Track, error)
	Zones(ctx context.Context) ([]Zone, error)

	// Begin opens an atomic edit. Nothing is visible on the board until
	// Commit succeeds.
	Begin(ctx context.Context) (Transaction, error)

	ClearSelection(ctx context.Context) error
	AddToSelection(ctx context.Context, ids ...string) error

	// RefillZones recomputes every zone fill.
	RefillZones(ctx context.Context) error
}

// Transaction groups item creation into one undoable commit.
type Transaction interface {
	// Create stages vias and returns them with board-assigned IDs.
	Create(ctx context.Context, vias ...Via) ([]Via, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

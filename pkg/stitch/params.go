package stitch

import (
	"github.com/matzehuels/viastitch/pkg/errors"
	"github.com/matzehuels/viastitch/pkg/geom"
)

// DefaultMaxPixels caps the frame size of one run (64 Mpx, 256 MiB per
// int32 grid).
const DefaultMaxPixels int64 = 64 << 20

// ViaSpec describes the vias to create, in board units.
type ViaSpec struct {
	Diameter int64 `json:"diameter"`
	Drill    int64 `json:"drill"`
}

// GridSpec describes the placement lattice, in board units.
type GridSpec struct {
	X       int64 `json:"x"`
	Y       int64 `json:"y"`
	OffsetX int64 `json:"offset_x,omitempty"`
	OffsetY int64 `json:"offset_y,omitempty"`
	Stagger bool  `json:"stagger,omitempty"`
}

// Spacing returns the lattice steps. Steps that are not positive are
// replaced by one millimetre so that sampling always terminates.
func (g GridSpec) Spacing(scale geom.Scale) (gx, gy int64) {
	if scale <= 0 {
		scale = geom.DefaultScale
	}
	gx, gy = g.X, g.Y
	if gx <= 0 {
		gx = int64(scale)
	}
	if gy <= 0 {
		gy = int64(scale)
	}
	return gx, gy
}

// Params configures one run. All lengths are board units; millimetre
// conversion happens in package pipeline.
type Params struct {
	Net         string     `json:"net"`
	Via         ViaSpec    `json:"via"`
	Grid        GridSpec   `json:"grid"`
	Clearance   int64      `json:"clearance"`
	Resolution  int64      `json:"resolution"`
	IgnoreZones []string   `json:"ignore_zones,omitempty"`
	RefillAfter bool       `json:"refill_after"`
	Scale       geom.Scale `json:"scale"`

	// MaxPixels bounds the frame size; 0 selects DefaultMaxPixels and a
	// negative value disables the cap.
	MaxPixels int64 `json:"max_pixels,omitempty"`

	// KeepGrids retains the intermediate grids on the plan for previews
	// and debug dumps.
	KeepGrids bool `json:"-"`
}

// Validate checks p and fills in defaults for the scale and pixel cap.
func (p *Params) Validate() error {
	if p.Scale == 0 {
		p.Scale = geom.DefaultScale
	}
	if err := p.Scale.Validate(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidUnits, err, "invalid units")
	}
	if p.MaxPixels == 0 {
		p.MaxPixels = DefaultMaxPixels
	}
	if err := errors.ValidateNetName(p.Net); err != nil {
		return err
	}
	if err := errors.ValidatePositive(errors.ErrCodeInvalidGrid, "resolution", p.Resolution); err != nil {
		return err
	}
	if err := errors.ValidateNonNegative(errors.ErrCodeInvalidInput, "clearance", p.Clearance); err != nil {
		return err
	}
	if err := errors.ValidatePositive(errors.ErrCodeInvalidInput, "via diameter", p.Via.Diameter); err != nil {
		return err
	}
	if err := errors.ValidatePositive(errors.ErrCodeInvalidInput, "via drill", p.Via.Drill); err != nil {
		return err
	}
	if p.Via.Drill > p.Via.Diameter {
		return errors.New(errors.ErrCodeInvalidInput, "via drill %d exceeds diameter %d", p.Via.Drill, p.Via.Diameter)
	}
	return nil
}

func (p Params) ignored() map[string]bool {
	set := make(map[string]bool, len(p.IgnoreZones))
	for _, id := range p.IgnoreZones {
		set[id] = true
	}
	return set
}

package board

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/matzehuels/viastitch/pkg/errors"
)

// DocumentVersion is the current board document format version.
const DocumentVersion = 1

// documentUnits maps the unit names a document may declare to board units
// per millimetre.
var documentUnits = map[string]int64{
	"nm": 1_000_000,
	"um": 1_000,
}

// Document is the JSON board snapshot exchanged with the host editor.
//
//	{
//	  "version": 1,
//	  "nets": [{"name": "GND"}],
//	  "zones": [{
//	    "id": "...", "net": "GND", "layers": ["F.Cu", "B.Cu"], "filled": true,
//	    "filled_polygons": {"F.Cu": [{"outline": [{"x": 0, "y": 0}, ...]}]}
//	  }],
//	  "pads": [...], "vias": [...], "tracks": [...]
//	}
type Document struct {
	Version int `json:"version"`

	// Units optionally names the coordinate unit, "nm" or "um". Documents
	// without it use the configured scale.
	Units  string  `json:"units,omitempty"`
	Nets   []Net   `json:"nets"`
	Pads   []Pad   `json:"pads,omitempty"`
	Vias   []Via   `json:"vias,omitempty"`
	Tracks []Track `json:"tracks,omitempty"`
	Zones  []Zone  `json:"zones,omitempty"`
}

// UnitsPerMM returns the board units per millimetre the document declares,
// or 0 when it declares none.
func (d *Document) UnitsPerMM() int64 {
	return documentUnits[d.Units]
}

// CheckScale reports an INVALID_UNITS error when the document declares a
// unit that disagrees with perMM.
func (d *Document) CheckScale(perMM int64) error {
	if declared := d.UnitsPerMM(); declared != 0 && declared != perMM {
		return errors.New(errors.ErrCodeInvalidUnits,
			"document uses %s (%d units per mm) but the configured scale is %d per mm", d.Units, declared, perMM)
	}
	return nil
}

// Validate checks the document for structural problems that make it
// unusable as a whole: duplicate IDs, negative sizes, unknown versions.
// Items with missing IDs are given fresh UUIDs. Per-item geometry problems
// such as empty fill outlines are left in place; the pipeline skips and
// reports them.
func (d *Document) Validate() error {
	if d.Version == 0 {
		d.Version = DocumentVersion
	}
	if d.Version != DocumentVersion {
		return errors.New(errors.ErrCodeInvalidDocument, "unsupported document version %d", d.Version)
	}
	if _, ok := documentUnits[d.Units]; d.Units != "" && !ok {
		return errors.New(errors.ErrCodeInvalidDocument, "unsupported document units %q, want nm or um", d.Units)
	}

	seen := make(map[string]string)
	claim := func(kind string, id *string) error {
		if *id == "" {
			*id = uuid.NewString()
		}
		if prev, dup := seen[*id]; dup {
			return errors.New(errors.ErrCodeInvalidDocument, "%s id %q already used by a %s", kind, *id, prev)
		}
		seen[*id] = kind
		return nil
	}

	nets := make(map[string]bool, len(d.Nets))
	for _, n := range d.Nets {
		if n.Name == "" {
			return errors.New(errors.ErrCodeInvalidDocument, "net with empty name")
		}
		nets[n.Name] = true
	}
	knownNet := func(kind, id, net string) error {
		if net != "" && !nets[net] {
			return errors.New(errors.ErrCodeInvalidDocument, "%s %s references unknown net %q", kind, id, net)
		}
		return nil
	}

	for i := range d.Pads {
		p := &d.Pads[i]
		if err := claim("pad", &p.ID); err != nil {
			return err
		}
		if err := knownNet("pad", p.ID, p.Net); err != nil {
			return err
		}
		for _, c := range p.Copper {
			if c.Size.X < 0 || c.Size.Y < 0 {
				return errors.New(errors.ErrCodeInvalidDocument, "pad %s has negative size on %s", p.ID, c.Layer)
			}
		}
	}
	for i := range d.Vias {
		v := &d.Vias[i]
		if err := claim("via", &v.ID); err != nil {
			return err
		}
		if err := knownNet("via", v.ID, v.Net); err != nil {
			return err
		}
		if v.Diameter < 0 || v.Drill < 0 {
			return errors.New(errors.ErrCodeInvalidDocument, "via %s has negative size", v.ID)
		}
	}
	for i := range d.Tracks {
		tr := &d.Tracks[i]
		if err := claim("track", &tr.ID); err != nil {
			return err
		}
		if err := knownNet("track", tr.ID, tr.Net); err != nil {
			return err
		}
		if tr.Width < 0 {
			return errors.New(errors.ErrCodeInvalidDocument, "track %s has negative width", tr.ID)
		}
	}
	for i := range d.Zones {
		z := &d.Zones[i]
		if err := claim("zone", &z.ID); err != nil {
			return err
		}
		if err := knownNet("zone", z.ID, z.Net); err != nil {
			return err
		}
	}
	return nil
}

// ReadDocument decodes and validates a board document from r.
// ReadDocument does not close r.
func ReadDocument(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidDocument, err, "decode board document")
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// LoadDocument reads the board document at path.
func LoadDocument(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadDocument(f)
}

// WriteDocument encodes doc as indented JSON.
func WriteDocument(doc *Document, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// SaveDocument writes doc to path, replacing any existing file.
func SaveDocument(doc *Document, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteDocument(doc, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

package geom

import (
	"fmt"
	"math"
)

// Scale is the number of board units per millimetre.
type Scale int64

// DefaultScale assumes nanometre board units.
const DefaultScale Scale = 1_000_000

// Validate rejects non-positive scales.
func (s Scale) Validate() error {
	if s <= 0 {
		return fmt.Errorf("units per mm must be positive, got %d", int64(s))
	}
	return nil
}

// FromMM converts millimetres to board units, rounding to the nearest unit
// so that decimal inputs such as 0.3 do not lose a unit to float error.
func (s Scale) FromMM(mm float64) int64 {
	return int64(math.Round(mm * float64(s)))
}

// ToMM converts board units to millimetres.
func (s Scale) ToMM(v int64) float64 {
	return float64(v) / float64(s)
}

// FloorDiv divides a by b rounding toward negative infinity. b must be
// positive.
func FloorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && (a < 0) {
		q--
	}
	return q
}

// FloorFloat returns floor(v) as an int, saturating at the int range.
func FloorFloat(v float64) int {
	f := math.Floor(v)
	switch {
	case f >= math.MaxInt32:
		return math.MaxInt32
	case f <= math.MinInt32:
		return math.MinInt32
	}
	return int(f)
}

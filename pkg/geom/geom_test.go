package geom

import "testing"

func TestBoxOf(t *testing.T) {
	if _, ok := BoxOf(); ok {
		t.Error("BoxOf() with no points should report false")
	}

	b, ok := BoxOf(Pt(5, -2), Pt(-1, 7), Pt(3, 3))
	if !ok {
		t.Fatal("BoxOf returned false for non-empty input")
	}
	want := Box{Pos: Pt(-1, -2), Size: Pt(6, 9)}
	if b != want {
		t.Errorf("BoxOf = %v, want %v", b, want)
	}
	if b.Right() != 5 || b.Bottom() != 7 {
		t.Errorf("Right/Bottom = %d/%d, want 5/7", b.Right(), b.Bottom())
	}
}

func TestBoxMerge(t *testing.T) {
	tests := []struct {
		name string
		a, b Box
		want Box
	}{
		{
			name: "disjoint",
			a:    Box{Pos: Pt(0, 0), Size: Pt(10, 10)},
			b:    Box{Pos: Pt(20, 5), Size: Pt(5, 20)},
			want: Box{Pos: Pt(0, 0), Size: Pt(25, 25)},
		},
		{
			name: "contained",
			a:    Box{Pos: Pt(0, 0), Size: Pt(10, 10)},
			b:    Box{Pos: Pt(2, 2), Size: Pt(1, 1)},
			want: Box{Pos: Pt(0, 0), Size: Pt(10, 10)},
		},
		{
			name: "negative origin",
			a:    Box{Pos: Pt(-5, -5), Size: Pt(1, 1)},
			b:    Box{Pos: Pt(0, 0), Size: Pt(0, 0)},
			want: Box{Pos: Pt(-5, -5), Size: Pt(5, 5)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Merge(tt.b); got != tt.want {
				t.Errorf("Merge = %v, want %v", got, tt.want)
			}
			if got := tt.b.Merge(tt.a); got != tt.want {
				t.Errorf("Merge is not symmetric: %v", got)
			}
		})
	}
}

func TestBoxContains(t *testing.T) {
	b := Box{Pos: Pt(0, 0), Size: Pt(10, 10)}
	for _, p := range []Point{Pt(0, 0), Pt(10, 10), Pt(5, 0)} {
		if !b.Contains(p) {
			t.Errorf("Contains(%v) = false, want true", p)
		}
	}
	for _, p := range []Point{Pt(-1, 0), Pt(11, 5), Pt(5, 11)} {
		if b.Contains(p) {
			t.Errorf("Contains(%v) = true, want false", p)
		}
	}
}

func TestRingArea(t *testing.T) {
	if got := Rect(0, 0, 4, 3).Area(); got != 12 {
		t.Errorf("Area = %v, want 12", got)
	}
	// Clockwise winding gives the same absolute area.
	cw := Ring{Pt(0, 0), Pt(0, 3), Pt(4, 3), Pt(4, 0)}
	if got := cw.Area(); got != 12 {
		t.Errorf("clockwise Area = %v, want 12", got)
	}
	if got := (Ring{Pt(0, 0), Pt(1, 1)}).Area(); got != 0 {
		t.Errorf("degenerate Area = %v, want 0", got)
	}
}

func TestScale(t *testing.T) {
	s := DefaultScale
	if err := s.Validate(); err != nil {
		t.Fatalf("DefaultScale invalid: %v", err)
	}
	if got := s.FromMM(2.5); got != 2_500_000 {
		t.Errorf("FromMM(2.5) = %d, want 2500000", got)
	}
	if got := s.FromMM(0.3); got != 300_000 {
		t.Errorf("FromMM(0.3) = %d, want 300000", got)
	}
	if got := s.ToMM(250_000); got != 0.25 {
		t.Errorf("ToMM(250000) = %v, want 0.25", got)
	}
	if err := Scale(0).Validate(); err == nil {
		t.Error("zero scale should be rejected")
	}
	if err := Scale(-3).Validate(); err == nil {
		t.Error("negative scale should be rejected")
	}
}

func TestFloorDiv(t *testing.T) {
	tests := []struct {
		a, b, want int64
	}{
		{7, 2, 3},
		{-7, 2, -4},
		{-6, 2, -3},
		{0, 5, 0},
		{-1, 100000, -1},
	}
	for _, tt := range tests {
		if got := FloorDiv(tt.a, tt.b); got != tt.want {
			t.Errorf("FloorDiv(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

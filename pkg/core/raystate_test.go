package core

import "testing"

func TestRadius(t *testing.T) {
	s := RayState{Position: [4]float64{0, 3, 4, 12}}

	if got := s.Radius(CoordSpherical); got != 3 {
		t.Errorf("spherical radius = %g, want 3", got)
	}
	if got := s.Radius(CoordCartesian); got != 13 {
		t.Errorf("cartesian radius = %g, want 13", got)
	}
}

func TestLerp(t *testing.T) {
	a := RayState{Position: [4]float64{0, 1, 0, 0}, Velocity: [4]float64{1, 2, 0, 0}}
	b := RayState{Position: [4]float64{-2, 3, 0, 0}, Velocity: [4]float64{1, 4, 0, 0}}

	if got := a.Lerp(b, 0); got != a {
		t.Errorf("Lerp(0) = %+v, want a", got)
	}
	if got := a.Lerp(b, 1); got != b {
		t.Errorf("Lerp(1) = %+v, want b", got)
	}
	mid := a.Lerp(b, 0.5)
	if mid.Position[0] != -1 || mid.Position[1] != 2 || mid.Velocity[1] != 3 {
		t.Errorf("Lerp(0.5) = %+v", mid)
	}
}

func TestMaxNorm(t *testing.T) {
	s := RayState{
		Position: [4]float64{1, -7, 2, 0},
		Velocity: [4]float64{0.5, 3, -6.5, 0},
	}
	if got := s.MaxNorm(); got != 7 {
		t.Errorf("MaxNorm = %g, want 7", got)
	}
	if got := (RayState{}).MaxNorm(); got != 0 {
		t.Errorf("zero state MaxNorm = %g, want 0", got)
	}
}

func TestParseCoordKind(t *testing.T) {
	tests := []struct {
		in      string
		want    CoordKind
		wantErr bool
	}{
		{"spherical", CoordSpherical, false},
		{"cartesian", CoordCartesian, false},
		{"cylindrical", CoordUnknown, true},
		{"", CoordUnknown, true},
	}
	for _, tt := range tests {
		got, err := ParseCoordKind(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseCoordKind(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseCoordKind(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestCheckCoordKind(t *testing.T) {
	if err := CheckCoordKind(CoordSpherical); err != nil {
		t.Errorf("CheckCoordKind(spherical) = %v", err)
	}
	if err := CheckCoordKind(CoordUnknown); err == nil {
		t.Error("CheckCoordKind(unknown) = nil, want error")
	}
	if err := CheckCoordKind(CoordKind(42)); err == nil {
		t.Error("CheckCoordKind(42) = nil, want error")
	}
}

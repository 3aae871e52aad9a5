package core

import "fmt"

// CoordKind identifies the coordinate convention a metric works in. Object
// variants switch their geometry tests on it; an unrecognized kind is a fatal
// configuration error, detected when the metric is attached, never mid-trace.
type CoordKind int

const (
	CoordUnknown CoordKind = iota
	CoordSpherical
	CoordCartesian
)

// String returns the lower-case name of the coordinate kind.
func (k CoordKind) String() string {
	switch k {
	case CoordSpherical:
		return "spherical"
	case CoordCartesian:
		return "cartesian"
	}
	return "unknown"
}

// ParseCoordKind maps a configuration string to a CoordKind.
func ParseCoordKind(s string) (CoordKind, error) {
	switch s {
	case "spherical":
		return CoordSpherical, nil
	case "cartesian":
		return CoordCartesian, nil
	}
	return CoordUnknown, fmt.Errorf("unknown coordinate kind %q", s)
}

// CheckCoordKind validates that a kind is one the geometry code understands.
func CheckCoordKind(k CoordKind) error {
	if k != CoordSpherical && k != CoordCartesian {
		return fmt.Errorf("unknown coordinate kind %d", int(k))
	}
	return nil
}

package renderer

import (
	"fmt"
	"math"

	"github.com/df07/go-geodesic-raytracer/pkg/core"
)

// ScreenConfig describes a static pinhole observer looking at the coordinate
// origin from a given distance and inclination.
type ScreenConfig struct {
	Width, Height int     // pixel grid
	FOV           float64 // full field of view, radians
	Distance      float64 // observer radius
	Inclination   float64 // angle from the polar axis, radians
	Date          float64 // observation coordinate time

	Kind        core.CoordKind // coordinate kind of the produced states
	Frequencies []float64      // spectrometer channels, may be empty
}

// DefaultScreenConfig is a 64x64 equatorial observer at radius 100 with a
// 30-degree field of view, emitting spherical states.
func DefaultScreenConfig() ScreenConfig {
	return ScreenConfig{
		Width:       64,
		Height:      64,
		FOV:         math.Pi / 6,
		Distance:    100,
		Inclination: math.Pi / 2,
		Kind:        core.CoordSpherical,
	}
}

// BasicScreen generates the initial photon state for each pixel: position at
// the observer, velocity pointing radially away from the scene (the photon's
// forward direction), tilted per pixel across the field of view. Integration
// runs backward in time, so the outward-pointing velocity carries the ray
// inward toward the scene.
type BasicScreen struct {
	cfg ScreenConfig
}

// NewScreen validates the configuration and builds a screen.
func NewScreen(cfg ScreenConfig) (*BasicScreen, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("screen: grid %dx%d not positive", cfg.Width, cfg.Height)
	}
	if cfg.FOV <= 0 || cfg.FOV >= math.Pi {
		return nil, fmt.Errorf("screen: field of view %g out of (0, pi)", cfg.FOV)
	}
	if cfg.Distance <= 0 {
		return nil, fmt.Errorf("screen: distance %g not positive", cfg.Distance)
	}
	if err := core.CheckCoordKind(cfg.Kind); err != nil {
		return nil, fmt.Errorf("screen: %w", err)
	}
	if cfg.Kind == core.CoordSpherical {
		if s := math.Sin(cfg.Inclination); s == 0 {
			return nil, fmt.Errorf("screen: polar observer not representable in spherical coordinates")
		}
	}
	return &BasicScreen{cfg: cfg}, nil
}

// Config returns the screen configuration.
func (s *BasicScreen) Config() ScreenConfig { return s.cfg }

// GridDimensions implements core.Screen.
func (s *BasicScreen) GridDimensions() (rows, cols int) {
	return s.cfg.Height, s.cfg.Width
}

// Frequencies implements core.Screen.
func (s *BasicScreen) Frequencies() []float64 { return s.cfg.Frequencies }

// InitialRayState implements core.Screen. Pixel (0, 0) is the lower-left
// corner of the field; i runs along the horizontal axis.
func (s *BasicScreen) InitialRayState(i, j int) core.RayState {
	// Pixel centre offsets across the field of view.
	alpha := s.cfg.FOV * ((float64(i)+0.5)/float64(s.cfg.Width) - 0.5)
	beta := s.cfg.FOV * ((float64(j)+0.5)/float64(s.cfg.Height) - 0.5)

	sinI, cosI := math.Sin(s.cfg.Inclination), math.Cos(s.cfg.Inclination)

	// Orthonormal frame at the observer, placed at azimuth zero.
	// er points away from the origin, ephi horizontally, eth toward the pole.
	er := [3]float64{sinI, 0, cosI}
	eth := [3]float64{cosI, 0, -sinI}
	ephi := [3]float64{0, 1, 0}

	ca, sa := math.Cos(alpha), math.Sin(alpha)
	cb, sb := math.Cos(beta), math.Sin(beta)
	var dir [3]float64
	for k := 0; k < 3; k++ {
		dir[k] = ca*cb*er[k] + sa*ephi[k] - sb*eth[k]
	}

	d := s.cfg.Distance
	pos := [3]float64{d * sinI, 0, d * cosI}

	if s.cfg.Kind == core.CoordCartesian {
		return core.RayState{
			Position: [4]float64{s.cfg.Date, pos[0], pos[1], pos[2]},
			Velocity: [4]float64{1, dir[0], dir[1], dir[2]},
		}
	}

	// Spherical observer at (d, inclination, 0); transform the cartesian
	// direction into coordinate velocities there.
	rdot := dir[0]*sinI + dir[2]*cosI
	thdot := (dir[0]*cosI - dir[2]*sinI) / d
	phdot := dir[1] / (d * sinI)
	return core.RayState{
		Position: [4]float64{s.cfg.Date, d, s.cfg.Inclination, 0},
		Velocity: [4]float64{1, rdot, thdot, phdot},
	}
}

package core

import "math"

// RayState is the full phase-space state of a photon at one integration step:
// four position coordinates and four velocity components, expressed in the
// coordinate convention of the active metric. Position[0] is the coordinate
// time, which doubles as the integration parameter of the ray's history.
type RayState struct {
	Position [4]float64
	Velocity [4]float64
}

// Time returns the coordinate time of the state.
func (s RayState) Time() float64 { return s.Position[0] }

// Radius returns the coordinate distance from the origin for the given
// coordinate kind.
func (s RayState) Radius(kind CoordKind) float64 {
	switch kind {
	case CoordSpherical:
		return s.Position[1]
	case CoordCartesian:
		x, y, z := s.Position[1], s.Position[2], s.Position[3]
		return math.Sqrt(x*x + y*y + z*z)
	}
	return 0
}

// Add returns the component-wise sum of two states.
func (s RayState) Add(o RayState) RayState {
	var r RayState
	for i := 0; i < 4; i++ {
		r.Position[i] = s.Position[i] + o.Position[i]
		r.Velocity[i] = s.Velocity[i] + o.Velocity[i]
	}
	return r
}

// Scale returns the state with every component multiplied by f.
func (s RayState) Scale(f float64) RayState {
	var r RayState
	for i := 0; i < 4; i++ {
		r.Position[i] = s.Position[i] * f
		r.Velocity[i] = s.Velocity[i] * f
	}
	return r
}

// MaxNorm returns the largest absolute component of the state. Adaptive step
// control uses it both for the error estimate and for the relative tolerance
// scale.
func (s RayState) MaxNorm() float64 {
	m := 0.0
	for i := 0; i < 4; i++ {
		if v := math.Abs(s.Position[i]); v > m {
			m = v
		}
		if v := math.Abs(s.Velocity[i]); v > m {
			m = v
		}
	}
	return m
}

// Lerp linearly interpolates between s and o. t=0 yields s, t=1 yields o.
func (s RayState) Lerp(o RayState, t float64) RayState {
	return s.Scale(1 - t).Add(o.Scale(t))
}

// Coords returns the state flattened to the 8-scalar layout used for
// precomputed impact coordinates (position first, then velocity).
func (s RayState) Coords() [8]float64 {
	return [8]float64{
		s.Position[0], s.Position[1], s.Position[2], s.Position[3],
		s.Velocity[0], s.Velocity[1], s.Velocity[2], s.Velocity[3],
	}
}

// StateFromCoords rebuilds a RayState from the flattened 8-scalar layout.
func StateFromCoords(c [8]float64) RayState {
	return RayState{
		Position: [4]float64{c[0], c[1], c[2], c[3]},
		Velocity: [4]float64{c[4], c[5], c[6], c[7]},
	}
}

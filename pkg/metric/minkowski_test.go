package metric

import (
	"math"
	"testing"

	"github.com/df07/go-geodesic-raytracer/pkg/core"
)

func TestCartesianDerivativeIsTrivial(t *testing.T) {
	m := NewMinkowski(core.CoordCartesian)
	s := core.RayState{
		Position: [4]float64{0, 1, 2, 3},
		Velocity: [4]float64{1, 0.1, -0.2, 0.3},
	}
	d := m.Derivative(s)
	if d.Position != s.Velocity {
		t.Errorf("position derivative = %v, want %v", d.Position, s.Velocity)
	}
	if d.Velocity != ([4]float64{}) {
		t.Errorf("velocity derivative = %v, want zero", d.Velocity)
	}
}

// A straight line through flat space, rewritten in spherical coordinates,
// must satisfy the spherical geodesic equation: the connection terms have to
// cancel the apparent coordinate acceleration exactly.
func TestSphericalDerivativeMatchesStraightLine(t *testing.T) {
	m := NewMinkowski(core.CoordSpherical)

	// Straight line x(t) = (x0 + t, y0, z0) in the equatorial-ish region.
	x0, y0, z0 := 2.0, 1.5, 0.5
	eps := 1e-5

	toSpherical := func(tt float64) [4]float64 {
		x, y, z := x0+tt, y0, z0
		r := math.Sqrt(x*x + y*y + z*z)
		return [4]float64{tt, r, math.Acos(z / r), math.Atan2(y, x)}
	}

	// Velocity and acceleration of the spherical coordinates by finite
	// differences of the exact straight line.
	p0 := toSpherical(0)
	pp := toSpherical(eps)
	pm := toSpherical(-eps)
	var vel, acc [4]float64
	for i := 0; i < 4; i++ {
		vel[i] = (pp[i] - pm[i]) / (2 * eps)
		acc[i] = (pp[i] - 2*p0[i] + pm[i]) / (eps * eps)
	}

	d := m.Derivative(core.RayState{Position: p0, Velocity: vel})
	for i := 1; i < 4; i++ {
		if diff := math.Abs(d.Velocity[i] - acc[i]); diff > 1e-4 {
			t.Errorf("component %d: geodesic rhs %g, finite difference %g", i, d.Velocity[i], acc[i])
		}
	}
}

func TestSysPrimeToTdot(t *testing.T) {
	m := NewMinkowski(core.CoordCartesian)

	if got := m.SysPrimeToTdot([4]float64{}, [3]float64{0, 0, 0}); got != 1 {
		t.Errorf("tdot at rest = %g, want 1", got)
	}
	got := m.SysPrimeToTdot([4]float64{}, [3]float64{0.6, 0, 0})
	if want := 1.25; math.Abs(got-want) > 1e-12 {
		t.Errorf("tdot at v=0.6 = %g, want %g", got, want)
	}
	if got := m.SysPrimeToTdot([4]float64{}, [3]float64{1, 0, 0}); got != 0 {
		t.Errorf("tdot at light speed = %g, want 0", got)
	}

	// Spherical coordinate velocities must be weighted by the metric.
	ms := NewMinkowski(core.CoordSpherical)
	pos := [4]float64{0, 2, math.Pi / 2, 0}
	got = ms.SysPrimeToTdot(pos, [3]float64{0, 0.3, 0}) // |v| = r*thdot = 0.6
	if want := 1.25; math.Abs(got-want) > 1e-12 {
		t.Errorf("spherical tdot = %g, want %g", got, want)
	}
}

func TestScalarProdSignature(t *testing.T) {
	m := NewMinkowski(core.CoordSpherical)
	pos := [4]float64{0, 3, math.Pi / 2, 0}

	u := [4]float64{1, 0, 0, 0}
	if got := m.ScalarProd(pos, u, u); got != -1 {
		t.Errorf("g(et, et) = %g, want -1", got)
	}
	v := [4]float64{0, 0, 1, 0}
	if got := m.ScalarProd(pos, v, v); got != 9 {
		t.Errorf("g(eth, eth) = %g, want r^2 = 9", got)
	}
	// A null vector: tdot = r*phdot in the equatorial plane.
	n := [4]float64{3, 0, 0, 1}
	if got := m.ScalarProd(pos, n, n); math.Abs(got) > 1e-12 {
		t.Errorf("null vector norm = %g, want 0", got)
	}
}

func TestStepStraightLineCartesian(t *testing.T) {
	m := NewMinkowski(core.CoordCartesian)
	s := core.RayState{
		Position: [4]float64{0, 1, 2, 3},
		Velocity: [4]float64{1, 0.5, -0.25, 0},
	}
	next, errEst := m.Step(s, 2)
	if errEst != 0 {
		t.Errorf("error estimate = %g, want 0", errEst)
	}
	want := [4]float64{2, 2, 1.5, 3}
	for i := 0; i < 4; i++ {
		if math.Abs(next.Position[i]-want[i]) > 1e-12 {
			t.Errorf("position[%d] = %g, want %g", i, next.Position[i], want[i])
		}
	}
	if next.Velocity != s.Velocity {
		t.Errorf("velocity changed along a straight line: %v", next.Velocity)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	m := NewMinkowski(core.CoordSpherical)
	c := m.Clone().(*Minkowski)
	c.SetEscapeRadius(7)
	if m.EscapeRadius() == 7 {
		t.Error("clone shares state with the original")
	}
	if c.CoordKind() != core.CoordSpherical {
		t.Errorf("clone kind = %v", c.CoordKind())
	}
}

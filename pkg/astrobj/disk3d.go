package astrobj

import (
	"fmt"
	"math"

	"github.com/df07/go-geodesic-raytracer/pkg/core"
)

// Disk3D is the tabulated-grid variant: emission is read from a 4-D grid
// over (frequency, azimuth, height, radius) and the emitter velocity from a
// matching 3-D grid. The object occupies the cylindrical shell
// rin <= r <= rout, zmin <= z <= zmax; a non-negative zmin means the disk is
// symmetric about the equatorial plane.
//
// Grids are loaded from a FITS table (LoadFITS) or injected directly via the
// setters. Both tables are mandatory; tracing refuses to start without them.
type Disk3D struct {
	Generic

	emissQuant []float64 // nnu*nphi*nz*nr, radius slowest
	velocity   []float64 // 3*nphi*nz*nr, components (dphi/dt, dz/dt, dr/dt)

	nu0, dnu  float64
	nnu       int
	dphi      float64
	nphi      int
	repeatPhi int
	zmin, dz  float64
	nz        int
	zmax      float64
	rin, dr   float64
	nr        int
	rout      float64
}

// NewDisk3D creates an empty grid variant. The radial and vertical ranges
// must be set before a grid can be attached.
func NewDisk3D() *Disk3D {
	d := &Disk3D{
		dnu:       1,
		repeatPhi: 1,
		rin:       math.Inf(-1),
		rout:      math.Inf(1),
		zmin:      math.Inf(-1),
		zmax:      math.Inf(1),
	}
	d.Generic = newGeneric(d)
	return d
}

// Rin returns the inner radius of the grid.
func (d *Disk3D) Rin() float64 { return d.rin }

// SetRin sets the inner radius and refreshes the radial spacing.
func (d *Disk3D) SetRin(r float64) {
	d.rin = r
	if d.nr > 0 {
		d.dr = (d.rout - d.rin) / float64(d.nr)
	}
}

// Rout returns the outer radius of the grid.
func (d *Disk3D) Rout() float64 { return d.rout }

// SetRout sets the outer radius, refreshes the radial spacing and the
// bounding radius used by the coarse reject.
func (d *Disk3D) SetRout(r float64) {
	d.rout = r
	d.rMax = r
	if d.nr > 0 {
		d.dr = (d.rout - d.rin) / float64(d.nr)
	}
}

// Zmin returns the lower vertical bound.
func (d *Disk3D) Zmin() float64 { return d.zmin }

// SetZmin sets the lower vertical bound and refreshes the vertical spacing.
func (d *Disk3D) SetZmin(z float64) {
	d.zmin = z
	if d.nz > 0 {
		d.dz = (d.zmax - d.zmin) / float64(d.nz)
	}
}

// Zmax returns the upper vertical bound.
func (d *Disk3D) Zmax() float64 { return d.zmax }

// SetZmax sets the upper vertical bound and refreshes the vertical spacing.
func (d *Disk3D) SetZmax(z float64) {
	d.zmax = z
	if d.nz > 0 {
		d.dz = (d.zmax - d.zmin) / float64(d.nz)
	}
}

// Nu0 returns the frequency of the first spectral bin.
func (d *Disk3D) Nu0() float64 { return d.nu0 }

// SetNu0 sets the frequency of the first spectral bin.
func (d *Disk3D) SetNu0(nu float64) { d.nu0 = nu }

// DNu returns the spectral bin width.
func (d *Disk3D) DNu() float64 { return d.dnu }

// SetDNu sets the spectral bin width.
func (d *Disk3D) SetDNu(dnu float64) { d.dnu = dnu }

// RepeatPhi returns how many times the azimuthal pattern repeats over a full
// turn.
func (d *Disk3D) RepeatPhi() int { return d.repeatPhi }

// SetRepeatPhi sets the azimuthal repetition count and refreshes the
// azimuthal spacing.
func (d *Disk3D) SetRepeatPhi(n int) {
	d.repeatPhi = n
	if d.nphi > 0 {
		d.dphi = 2 * math.Pi / float64(d.nphi*d.repeatPhi)
	}
}

// EmissQuant returns the emission grid and its axes (nnu, nphi, nz, nr).
func (d *Disk3D) EmissQuant() ([]float64, [4]int) {
	return d.emissQuant, [4]int{d.nnu, d.nphi, d.nz, d.nr}
}

// Velocity returns the velocity grid.
func (d *Disk3D) Velocity() []float64 { return d.velocity }

// SetEmissQuant attaches the emission grid with axes (nnu, nphi, nz, nr).
// The radial and vertical ranges must already be set and ordered; if the
// spatial dimensions change, a previously attached velocity grid is dropped.
func (d *Disk3D) SetEmissQuant(data []float64, naxes [4]int) error {
	nnu, nphi, nz, nr := naxes[0], naxes[1], naxes[2], naxes[3]
	if nnu <= 0 || nphi <= 0 || nz <= 0 || nr <= 0 {
		return fmt.Errorf("disk3d: grid dimensions can't be null (%v)", naxes)
	}
	if len(data) != nnu*nphi*nz*nr {
		return fmt.Errorf("disk3d: emission grid has %d cells, axes %v require %d", len(data), naxes, nnu*nphi*nz*nr)
	}
	if !(d.rout > d.rin) || math.IsInf(d.rin, 0) || math.IsInf(d.rout, 0) {
		return fmt.Errorf("disk3d: radial range [%g, %g] must be set and ordered before the grid", d.rin, d.rout)
	}
	if !(d.zmax > d.zmin) || math.IsInf(d.zmin, 0) || math.IsInf(d.zmax, 0) {
		return fmt.Errorf("disk3d: vertical range [%g, %g] must be set and ordered before the grid", d.zmin, d.zmax)
	}
	if d.nphi != nphi || d.nz != nz || d.nr != nr {
		d.velocity = nil
	}
	d.nnu, d.nphi, d.nz, d.nr = nnu, nphi, nz, nr
	d.dr = (d.rout - d.rin) / float64(d.nr)
	d.dz = (d.zmax - d.zmin) / float64(d.nz)
	d.dphi = 2 * math.Pi / float64(d.nphi*d.repeatPhi)
	d.emissQuant = append([]float64(nil), data...)
	d.rMax = d.rout
	return nil
}

// SetVelocity attaches the velocity grid with axes (nphi, nz, nr). The
// emission grid must already be attached and the dimensions must agree.
func (d *Disk3D) SetVelocity(data []float64, naxes [3]int) error {
	if d.emissQuant == nil {
		return fmt.Errorf("disk3d: attach the emission grid before the velocity grid")
	}
	if naxes[0] != d.nphi || naxes[1] != d.nz || naxes[2] != d.nr {
		return fmt.Errorf("disk3d: velocity axes %v inconsistent with emission axes (%d, %d, %d)", naxes, d.nphi, d.nz, d.nr)
	}
	if len(data) != 3*d.nphi*d.nz*d.nr {
		return fmt.Errorf("disk3d: velocity grid has %d cells, want %d", len(data), 3*d.nphi*d.nz*d.nr)
	}
	d.velocity = append([]float64(nil), data...)
	return nil
}

// getIndices maps a position and an emitted frequency to grid indices
// (inu, iphi, iz, ir). Out-of-range coordinates clamp to the nearest valid
// bin.
func (d *Disk3D) getIndices(pos [4]float64, nu float64) (inu, iphi, iz, ir int) {
	if nu > d.nu0 {
		inu = int((nu - d.nu0) / d.dnu)
		if inu >= d.nnu {
			inu = d.nnu - 1
		}
	}

	rcyl, z, phi := cylindrical(d.metric.CoordKind(), pos)

	for phi < 0 {
		phi += 2 * math.Pi
	}
	iphi = int(phi/d.dphi) % d.nphi

	// A non-negative zmin means the disk is symmetric about the plane.
	if z < 0 && d.zmin >= 0 {
		z = -z
	}
	iz = clampIndex((z-d.zmin)/d.dz, d.nz)
	ir = clampIndex((rcyl-d.rin)/d.dr, d.nr)
	return inu, iphi, iz, ir
}

func clampIndex(v float64, n int) int {
	i := int(v)
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func (d *Disk3D) emissAt(inu, iphi, iz, ir int) float64 {
	return d.emissQuant[((ir*d.nz+iz)*d.nphi+iphi)*d.nnu+inu]
}

// GetVelocity returns the emitter 4-velocity at pos from the velocity grid,
// converting the tabulated cylindrical rates (dphi/dt, dz/dt, dr/dt) to the
// spherical 4-velocity.
func (d *Disk3D) GetVelocity(pos [4]float64) [4]float64 {
	_, iphi, iz, ir := d.getIndices(pos, d.nu0)
	base := ((ir*d.nz+iz)*d.nphi + iphi) * 3
	phiPrime := d.velocity[base]
	zPrime := d.velocity[base+1]
	rPrime := d.velocity[base+2]

	// Spherical components from the cylindrical rates; follows from
	// rsph^2 = rcyl^2 + z^2 and rsph cos(th) = z.
	rsph, th := pos[1], pos[2]
	z := rsph * math.Cos(th)
	rcyl := math.Sqrt(math.Max(rsph*rsph-z*z, 0))

	var vel [4]float64
	v1 := (rcyl*rPrime + z*zPrime) / rsph
	v2 := (v1*math.Cos(th) - zPrime) / (rsph * math.Sin(th))
	v3 := phiPrime
	vel[0] = d.metric.SysPrimeToTdot(pos, [3]float64{v1, v2, v3})
	vel[1] = v1 * vel[0]
	vel[2] = v2 * vel[0]
	vel[3] = v3 * vel[0]
	return vel
}

// outsideGrid reports whether the cylindrical point is outside the shell.
func (d *Disk3D) outsideGrid(rcyl, z float64) bool {
	if d.zmin < 0 {
		if z < d.zmin {
			return true
		}
	} else if z < -d.zmax {
		return true
	}
	return z > d.zmax || rcyl > d.rout || rcyl < d.rin
}

// Impact tests the ray segment between history entries index and index+1 by
// marching in coordinate time from the point nearest the observer backward:
// first to find the grid entry point, then through the grid accumulating
// emission until exit or the segment's earlier end.
func (d *Disk3D) Impact(ph core.PhotonAccess, index int, data *core.Properties) bool {
	later := ph.Coord(index)
	earlier := ph.Coord(index + 1)
	kind := d.metric.CoordKind()

	// Heuristic reject to prevent pointless marching: no test when both
	// endpoints are far outside the outer radius and on the same side of
	// the plane.
	r1, z1, _ := cylSpherRadius(kind, earlier.Position)
	r2, z2, _ := cylSpherRadius(kind, later.Position)
	rtol := d.boundFactor * d.rout
	if r1 > rtol && r2 > rtol && z1*z2 > 0 {
		return false
	}

	t2, t1 := later.Time(), earlier.Time()
	dt := d.subStep(t2 - t1)
	if dt <= 0 {
		return false
	}

	// Find the grid entry point between t1 and t2.
	tcur := t2
	rcyl, z, _ := cylindrical(kind, later.Position)
	for tcur > t1+dt && d.outsideGrid(rcyl, z) {
		tcur -= dt
		st := ph.CoordAt(tcur)
		rcyl, z, _ = cylindrical(kind, st.Position)
	}
	if tcur <= t1+dt {
		// Either no point inside the grid between t1 and t2, or the entry
		// landed on the segment's last sub-step. Report no hit in both
		// cases; the neighboring segment visits the entry point again.
		return false
	}

	// Accumulate emission along the path inside the grid.
	hit := false
	for inGrid := true; inGrid && tcur > t1+dt; {
		tcur -= dt
		st := ph.CoordAt(tcur)
		rcyl, z, _ = cylindrical(kind, st.Position)
		if d.outsideGrid(rcyl, z) {
			inGrid = false
			continue
		}
		hit = true
		vel := d.GetVelocity(st.Position)
		if !d.opticallyThin {
			data.SetImpactCoords(objCoords(st, vel), st.Coords())
			d.ProcessHit(ph, st, vel, dt, data)
			return true
		}
		d.ProcessHit(ph, st, vel, dt, data)
	}
	return hit
}

// cylSpherRadius returns the spherical radius alongside the cylindrical
// height, the pair the reject heuristic works on.
func cylSpherRadius(kind core.CoordKind, pos [4]float64) (rsph, z, phi float64) {
	var rcyl float64
	rcyl, z, phi = cylindrical(kind, pos)
	if kind == core.CoordSpherical {
		return pos[1], z, phi
	}
	return math.Sqrt(rcyl*rcyl + z*z), z, phi
}

// Emission implements Radiator: the tabulated emission quantity at the
// nearest grid cell, scaled by the path element in thin mode.
func (d *Disk3D) Emission(nuEm, dsEm float64, pos [4]float64) float64 {
	inu, iphi, iz, ir := d.getIndices(pos, nuEm)
	q := d.emissAt(inu, iphi, iz, ir)
	if d.opticallyThin {
		return q * dsEm
	}
	return q
}

// Transmission implements Radiator. The grid carries no opacity table, so
// thin mode is fully transparent and thick mode fully opaque.
func (d *Disk3D) Transmission(nuEm, dsEm float64, pos [4]float64) float64 {
	if d.opticallyThin {
		return 1
	}
	return 0
}

// Validate reports whether the grids are attached and consistent. Both
// tables are mandatory; the velocity transform works in spherical
// coordinates only.
func (d *Disk3D) Validate() error {
	if d.metric == nil {
		return fmt.Errorf("disk3d: no metric attached")
	}
	if d.emissQuant == nil {
		return fmt.Errorf("disk3d: missing mandatory emission grid")
	}
	if d.velocity == nil {
		return fmt.Errorf("disk3d: missing mandatory velocity grid")
	}
	if d.dr <= 0 || d.dz <= 0 || d.dphi <= 0 || d.dnu <= 0 {
		return fmt.Errorf("disk3d: non-positive grid spacing (dr=%g dz=%g dphi=%g dnu=%g)", d.dr, d.dz, d.dphi, d.dnu)
	}
	if d.metric.CoordKind() != core.CoordSpherical {
		return fmt.Errorf("disk3d: velocity grid requires a metric in spherical coordinates")
	}
	return nil
}

// Clone returns an independent deep copy.
func (d *Disk3D) Clone() core.Astrobj {
	c := *d
	c.emissQuant = append([]float64(nil), d.emissQuant...)
	c.velocity = append([]float64(nil), d.velocity...)
	c.radiator = &c
	return &c
}

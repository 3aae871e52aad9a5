// Package renderer drives ray-tracing jobs over a pixel grid: it owns the
// metric, screen, object and template photon, partitions the grid across
// parallel workers, and funnels results into a Properties accumulator.
package renderer

import (
	"fmt"

	"github.com/df07/go-geodesic-raytracer/pkg/core"
	"github.com/df07/go-geodesic-raytracer/pkg/photon"
)

// Scenery owns one metric, one screen, one object variant and one template
// photon holding the shared numerical tuning. It is built once per run,
// cloned per worker for the duration of a ray-tracing request.
type Scenery struct {
	metric  core.Metric
	screen  core.Screen
	astrobj core.Astrobj
	photon  *photon.Photon

	quantities core.Quantity
	nThreads   int
}

// NewScenery assembles a scenery. The metric is attached to the object so
// the three always agree on the coordinate convention.
func NewScenery(m core.Metric, screen core.Screen, obj core.Astrobj) (*Scenery, error) {
	if err := obj.SetMetric(m); err != nil {
		return nil, fmt.Errorf("scenery: %w", err)
	}
	return &Scenery{
		metric:     m,
		screen:     screen,
		astrobj:    obj,
		photon:     photon.New(m, obj, photon.DefaultTuning()),
		quantities: core.QuantityIntensity,
		nThreads:   1,
	}, nil
}

// Metric returns the spacetime model.
func (s *Scenery) Metric() core.Metric { return s.metric }

// Screen returns the camera.
func (s *Scenery) Screen() core.Screen { return s.screen }

// Astrobj returns the object variant.
func (s *Scenery) Astrobj() core.Astrobj { return s.astrobj }

// Photon returns the template photon; tune it to configure every ray of the
// next request.
func (s *Scenery) Photon() *photon.Photon { return s.photon }

// Quantities returns the requested-quantity mask.
func (s *Scenery) Quantities() core.Quantity { return s.quantities }

// SetQuantities selects which quantities rayTrace computes.
func (s *Scenery) SetQuantities(q core.Quantity) { s.quantities = q }

// NThreads returns the number of parallel workers used by RayTrace.
func (s *Scenery) NThreads() int { return s.nThreads }

// SetNThreads sets the number of parallel workers; values below 2 select the
// single-threaded path using the template photon directly.
func (s *Scenery) SetNThreads(n int) { s.nThreads = n }

// NewProperties allocates an accumulator sized for the given pixel range
// with the scenery's requested quantities and spectrometer channels.
func (s *Scenery) NewProperties(npix int) *core.Properties {
	return core.NewProperties(s.quantities, npix, len(s.screen.Frequencies()))
}

// RayTrace computes every pixel in the rectangular sub-range
// [imin, imax) x [jmin, jmax) into data, whose cursor must sit on the first
// pixel of the range. Pixels are laid out row-major, i fastest.
//
// impactCoords, when non-nil, holds 16 precomputed impact scalars per pixel
// in the same order; those pixels skip geodesic integration entirely and
// accumulate directly on the supplied impact state.
//
// With NThreads >= 2 the rows are split into contiguous blocks, one per
// worker; every worker owns a full clone of the photon (and through it of
// the metric and object), and writes into a disjoint region of data, so the
// hot path needs no synchronization.
func (s *Scenery) RayTrace(imin, imax, jmin, jmax int, data *core.Properties, impactCoords []float64) error {
	if err := s.photon.Validate(); err != nil {
		return fmt.Errorf("scenery: %w", err)
	}
	rows, cols := s.screen.GridDimensions()
	if imin < 0 || imax > cols || jmin < 0 || jmax > rows || imin >= imax || jmin >= jmax {
		return fmt.Errorf("scenery: pixel range [%d,%d)x[%d,%d) outside %dx%d grid", imin, imax, jmin, jmax, cols, rows)
	}
	if impactCoords != nil {
		if want := (imax - imin) * (jmax - jmin) * core.ImpactCoordsSize; len(impactCoords) != want {
			return fmt.Errorf("scenery: impact coords length %d, want %d", len(impactCoords), want)
		}
	}

	nWorkers := s.nThreads
	if nWorkers > jmax-jmin {
		nWorkers = jmax - jmin
	}

	Logger().Debug("ray trace",
		"imin", imin, "imax", imax, "jmin", jmin, "jmax", jmax,
		"workers", nWorkers, "quantities", s.quantities.String())

	if nWorkers < 2 {
		s.traceBlock(imin, imax, jmin, jmax, jmin, data, impactCoords, s.photon)
		return nil
	}

	pool := newWorkerPool(s, nWorkers)
	pool.Start()
	blockRows := (jmax - jmin + nWorkers - 1) / nWorkers
	tasks := 0
	for j0 := jmin; j0 < jmax; j0 += blockRows {
		j1 := j0 + blockRows
		if j1 > jmax {
			j1 = jmax
		}
		pool.Submit(blockTask{
			taskID: tasks,
			imin:   imin, imax: imax,
			jmin: j0, jmax: j1,
			rangeStart:   jmin,
			data:         data,
			impactCoords: impactCoords,
		})
		tasks++
	}
	pool.Stop()

	degraded := 0
	for i := 0; i < tasks; i++ {
		result, ok := pool.Result()
		if !ok {
			return fmt.Errorf("scenery: worker pool closed unexpectedly")
		}
		degraded += result.degraded
	}
	if degraded > 0 {
		Logger().Warn("degraded pixels", "count", degraded)
	}
	return nil
}

// traceBlock renders the row block [jmin, jmax) with a single photon,
// walking the accumulator cursor across the block's disjoint region.
// rangeStart is the first row of the whole request, which anchors the pixel
// layout of data and impactCoords.
func (s *Scenery) traceBlock(imin, imax, jmin, jmax, rangeStart int, data *core.Properties, impactCoords []float64, ph *photon.Photon) int {
	cols := imax - imin
	degraded := 0
	view := data.View(data.Cursor() + (jmin-rangeStart)*cols)
	for j := jmin; j < jmax; j++ {
		for i := imin; i < imax; i++ {
			var ic []float64
			if impactCoords != nil {
				p := ((j-rangeStart)*cols + (i - imin)) * core.ImpactCoordsSize
				ic = impactCoords[p : p+core.ImpactCoordsSize]
			}
			reason := s.TracePixel(i, j, view, ic, ph)
			if reason.Degraded() {
				degraded++
			}
			view.Advance()
		}
	}
	return degraded
}

// TracePixel computes a single pixel into the current cell of data, the
// single-ray entry point shared by the grid drivers and direct callers.
// When ph is nil the template photon is used (single-threaded mode only).
//
// When impactCoords is non-nil, integration is skipped: the 16 scalars are a
// previously computed terminal impact (emitter state then photon state), and
// the object's accumulation runs directly on them, converging on the same
// Properties write contract as a full trace. The NoImpact marker yields the
// same no-data defaults as an escaped ray.
func (s *Scenery) TracePixel(i, j int, data *core.Properties, impactCoords []float64, ph *photon.Photon) photon.TerminationReason {
	if ph == nil {
		ph = s.photon
	}
	ph.SetFrequencies(1, s.screen.Frequencies())
	data.Init()

	if impactCoords != nil {
		ph.Reset()
		if impactCoords[0] == core.NoImpact {
			return photon.Escaped
		}
		var obj, phc [8]float64
		copy(obj[:], impactCoords[:8])
		copy(phc[:], impactCoords[8:16])
		data.SetImpactCoords(obj, phc)
		st := core.StateFromCoords(phc)
		objVel := [4]float64{obj[4], obj[5], obj[6], obj[7]}
		ph.Astrobj().ProcessHit(ph, st, objVel, 0, data)
		return photon.Intersected
	}

	reason := ph.Integrate(s.screen.InitialRayState(i, j), data)
	if reason.Degraded() {
		data.MarkInvalid()
	}
	return reason
}

package core

// Metric supplies the spacetime geometry: the coordinate convention, the
// geodesic equation, and the velocity transforms object variants need.
// A Metric is queried, never mutated, during a trace; implementations that
// keep mutable caches must make Clone return an independent copy.
type Metric interface {
	// CoordKind reports the coordinate convention of this metric.
	CoordKind() CoordKind

	// Derivative returns the rate of change of a ray state with respect to
	// the affine parameter: d(position)/dlambda is the velocity and
	// d(velocity)/dlambda follows the geodesic equation.
	Derivative(s RayState) RayState

	// SysPrimeToTdot converts a coordinate 3-velocity (dxi/dt) at pos into
	// the time component dt/dtau of the corresponding unit 4-velocity.
	SysPrimeToTdot(pos [4]float64, vel [3]float64) float64

	// CircularVelocity returns the 4-velocity of matter in circular rotation
	// at the given position.
	CircularVelocity(pos [4]float64) [4]float64

	// ScalarProd computes the metric scalar product of two 4-vectors at pos.
	ScalarProd(pos [4]float64, u, v [4]float64) float64

	// EscapeRadius is the coordinate radius beyond which a ray is considered
	// to have left the scene.
	EscapeRadius() float64

	// Clone returns an independent copy safe for use by another worker.
	Clone() Metric
}

// SelfStepper is an optional Metric capability: a metric-specific stepping
// routine used by the "legacy" integration strategy. It advances a state by h
// in the affine parameter and returns a local error estimate.
type SelfStepper interface {
	Step(s RayState, h float64) (RayState, float64)
}

// Screen maps pixels to initial ray states. It stands in for the camera and
// spectrometer setup, which are outside the tracing engine proper.
type Screen interface {
	// InitialRayState returns the ray state leaving pixel (i, j), ready to be
	// integrated backward in time.
	InitialRayState(i, j int) RayState

	// GridDimensions returns the pixel grid size as (rows, cols).
	GridDimensions() (rows, cols int)

	// Frequencies lists the observed frequencies of the spectrometer
	// channels. It may be empty when no Spectrum quantity is requested.
	Frequencies() []float64
}

// PhotonAccess is the read/update surface an object variant sees of the
// photon whose path it is testing: the recorded history, interpolation along
// it, and the transmission bookkeeping for radiative transfer.
type PhotonAccess interface {
	// Coord returns the history entry at the given index. Entries are stored
	// in integration order, so higher indices are earlier coordinate times.
	Coord(index int) RayState

	// CoordAt interpolates the recorded history at coordinate time t, which
	// must lie within the time span of the history.
	CoordAt(t float64) RayState

	// Len returns the number of recorded history entries.
	Len() int

	// Metric returns the metric the photon is being integrated in.
	Metric() Metric

	// FreqObs is the observed frequency the Intensity quantity refers to.
	FreqObs() float64

	// Frequencies lists the observed spectrometer channel frequencies.
	Frequencies() []float64

	// Transmission returns the transmission accumulated so far between the
	// observer and the current point, for the Intensity channel.
	Transmission() float64

	// TransmissionAt is Transmission for spectrometer channel ch.
	TransmissionAt(ch int) float64

	// Absorb composes one sub-step's transmission into the Intensity
	// channel. Called front-to-back, nearest the observer first.
	Absorb(tr float64)

	// AbsorbAt is Absorb for spectrometer channel ch.
	AbsorbAt(ch int, tr float64)
}

// Astrobj is the intersection-and-accumulation contract every emitting object
// variant implements. Instances are configured before tracing begins and are
// read-only during a trace; Clone provides per-worker copies.
type Astrobj interface {
	// Impact tests the ray segment between history entries index and index+1
	// and accumulates any emission into data. It returns true when the
	// object was hit. For optically thick objects a hit is terminal; for
	// optically thin objects integration continues.
	Impact(ph PhotonAccess, index int, data *Properties) bool

	// ProcessHit accumulates the requested quantities for a single impact
	// state without re-tracing, used by the precomputed-impact-coordinates
	// path. coordPh is the photon state at impact, objVel the emitter's
	// 4-velocity there, and dsem the emitter-frame path element.
	ProcessHit(ph PhotonAccess, coordPh RayState, objVel [4]float64, dsem float64, data *Properties)

	// GetVelocity returns the emitter 4-velocity at a position inside the
	// object.
	GetVelocity(pos [4]float64) [4]float64

	// RMax is the outer radius of the region the object may occupy, used by
	// the coarse bounding reject.
	RMax() float64

	// OpticallyThin reports whether emission is integrated along the path
	// through the object (true) or the first surface contact stops the ray
	// (false).
	OpticallyThin() bool

	// SetMetric attaches the metric. It fails on an unrecognized coordinate
	// convention, before any tracing can start.
	SetMetric(m Metric) error

	// Metric returns the attached metric.
	Metric() Metric

	// Validate reports whether the object is fully configured. A scenery
	// refuses to trace with a partially configured object.
	Validate() error

	// Clone returns an independent deep copy safe for another worker.
	Clone() Astrobj
}

package photon

import (
	"fmt"
	"math"
	"sort"

	"github.com/df07/go-geodesic-raytracer/pkg/core"
)

// TerminationReason explains why Integrate stopped advancing a ray.
type TerminationReason int

const (
	// Intersected: the object reported a terminal (optically thick) hit.
	Intersected TerminationReason = iota + 1
	// TimeExceeded: the ray crossed the minimum-time bound going backward.
	TimeExceeded
	// MaxIterationsReached: the iteration cap fired. A safety guard, not a
	// physical result; the pixel must be treated as degraded.
	MaxIterationsReached
	// Escaped: the ray left the scene through the metric's escape radius.
	Escaped
	// StepUnderflow: the step size collapsed to the configured minimum while
	// still failing the tolerance. Flags numerical instability on the pixel.
	StepUnderflow
)

// Degraded reports whether the reason flags numerical trouble rather than a
// physical outcome.
func (r TerminationReason) Degraded() bool {
	return r == MaxIterationsReached || r == StepUnderflow
}

func (r TerminationReason) String() string {
	switch r {
	case Intersected:
		return "Intersected"
	case TimeExceeded:
		return "TimeExceeded"
	case MaxIterationsReached:
		return "MaxIterationsReached"
	case Escaped:
		return "Escaped"
	case StepUnderflow:
		return "StepUnderflow"
	}
	return fmt.Sprintf("TerminationReason(%d)", int(r))
}

// Tuning holds the numerical parameters shared by every photon a scenery
// launches. Zero values are not useful; start from DefaultTuning.
type Tuning struct {
	Delta         float64 // initial integration step (affine parameter)
	Adaptive      bool    // adaptive step control vs fixed step
	AbsTol        float64 // absolute tolerance for the adaptive control
	RelTol        float64 // relative tolerance for the adaptive control
	DeltaMin      float64 // smallest allowed step
	DeltaMax      float64 // largest allowed step
	DeltaMaxOverR float64 // largest step relative to the current radius
	MaxIter       int     // iteration cap per ray
	TMin          float64 // earliest date a ray may reach backward in time
}

// DefaultTuning returns the tuning used when a scenery does not override it.
func DefaultTuning() Tuning {
	return Tuning{
		Delta:         0.1,
		Adaptive:      true,
		AbsTol:        1e-9,
		RelTol:        1e-9,
		DeltaMin:      1e-12,
		DeltaMax:      100,
		DeltaMaxOverR: 0.1,
		MaxIter:       100000,
		TMin:          -1e6,
	}
}

// stepLimiter is an optional object capability: a cap on the step size near
// the object, so the integrator cannot jump across it.
type stepLimiter interface {
	DeltaMax(pos [4]float64) float64
}

// Photon integrates one ray backward in time through a metric, recording its
// history and handing every accepted step to the object's intersection test.
// A Photon owns its mutable per-trace state exclusively; concurrent workers
// use Clone.
type Photon struct {
	Tuning

	metric  core.Metric
	astrobj core.Astrobj

	stepper     Stepper
	stepperName string

	history []core.RayState
	delta   float64 // current step size

	freqObs          float64
	freqs            []float64
	transmission     float64
	transmissionFreq []float64
}

// New creates a photon template bound to a metric and an object.
func New(m core.Metric, obj core.Astrobj, tuning Tuning) *Photon {
	ph := &Photon{
		Tuning:  tuning,
		metric:  m,
		astrobj: obj,
		freqObs: 1,
	}
	ph.stepperName = "runge_kutta_fehlberg45"
	ph.stepper, _ = NewStepper(ph.stepperName)
	return ph
}

// SetIntegrator selects the integration strategy by name.
func (ph *Photon) SetIntegrator(name string) error {
	st, err := NewStepper(name)
	if err != nil {
		return err
	}
	ph.stepper = st
	ph.stepperName = name
	return nil
}

// Integrator returns the name of the active integration strategy.
func (ph *Photon) Integrator() string { return ph.stepperName }

// SetFrequencies configures the observed frequency for the Intensity quantity
// and the spectrometer channel frequencies.
func (ph *Photon) SetFrequencies(obs float64, channels []float64) {
	ph.freqObs = obs
	ph.freqs = append([]float64(nil), channels...)
}

// Metric returns the metric the photon integrates in.
func (ph *Photon) Metric() core.Metric { return ph.metric }

// Astrobj returns the object the photon tests against.
func (ph *Photon) Astrobj() core.Astrobj { return ph.astrobj }

// Validate checks that the photon is fully configured: metric and object
// attached, a known coordinate convention, a usable stepper, and positive
// step bounds. A scenery refuses to trace until this passes.
func (ph *Photon) Validate() error {
	if ph.metric == nil {
		return fmt.Errorf("photon: no metric attached")
	}
	if ph.astrobj == nil {
		return fmt.Errorf("photon: no astrobj attached")
	}
	if err := core.CheckCoordKind(ph.metric.CoordKind()); err != nil {
		return fmt.Errorf("photon: %w", err)
	}
	if ph.stepperName == LegacyStepperName {
		if _, ok := ph.metric.(core.SelfStepper); !ok {
			return fmt.Errorf("photon: integrator %q needs a metric with its own stepping routine", LegacyStepperName)
		}
	}
	if ph.Delta <= 0 || ph.DeltaMin <= 0 || ph.DeltaMax < ph.DeltaMin {
		return fmt.Errorf("photon: invalid step bounds delta=%g min=%g max=%g", ph.Delta, ph.DeltaMin, ph.DeltaMax)
	}
	if ph.MaxIter <= 0 {
		return fmt.Errorf("photon: iteration cap must be positive")
	}
	return ph.astrobj.Validate()
}

// Clone returns a photon with the same configuration and freshly cloned
// metric and object, safe for use by another worker.
func (ph *Photon) Clone() *Photon {
	c := &Photon{
		Tuning:      ph.Tuning,
		stepperName: ph.stepperName,
		freqObs:     ph.freqObs,
		freqs:       append([]float64(nil), ph.freqs...),
	}
	c.stepper, _ = NewStepper(ph.stepperName)
	c.metric = ph.metric.Clone()
	c.astrobj = ph.astrobj.Clone()
	// The coordinate kind was validated on the template.
	_ = c.astrobj.SetMetric(c.metric)
	return c
}

// Reset clears the per-trace state: history, step size and transmissions.
// Integrate calls it; the precomputed-impact path calls it directly before
// accumulating on a supplied impact state.
func (ph *Photon) Reset() {
	ph.history = ph.history[:0]
	ph.delta = ph.Delta
	ph.transmission = 1
	n := len(ph.freqs)
	if cap(ph.transmissionFreq) < n {
		ph.transmissionFreq = make([]float64, n)
	}
	ph.transmissionFreq = ph.transmissionFreq[:n]
	for i := range ph.transmissionFreq {
		ph.transmissionFreq[i] = 1
	}
}

// Integrate advances the ray from initial until a termination condition
// fires, writing any emission encountered on the way into data. Conditions
// are checked after every accepted step, first match wins: terminal
// intersection, minimum-time bound, iteration cap, escape.
func (ph *Photon) Integrate(initial core.RayState, data *core.Properties) TerminationReason {
	ph.Reset()
	ph.history = append(ph.history, initial)

	kind := ph.metric.CoordKind()
	for iter := 1; ; iter++ {
		cur := ph.history[len(ph.history)-1]
		next, ok := ph.advance(cur)
		if !ok {
			return StepUnderflow
		}
		ph.history = append(ph.history, next)

		if ph.astrobj.Impact(ph, len(ph.history)-2, data) && !ph.astrobj.OpticallyThin() {
			return Intersected
		}
		if next.Time() <= ph.TMin {
			return TimeExceeded
		}
		if iter >= ph.MaxIter {
			return MaxIterationsReached
		}
		if r := next.Radius(kind); r >= ph.metric.EscapeRadius() && r >= cur.Radius(kind) {
			return Escaped
		}
	}
}

// advance performs one accepted step, retrying with smaller sizes under
// adaptive control. It returns false when the step collapses to DeltaMin
// while still failing the tolerance.
func (ph *Photon) advance(cur core.RayState) (core.RayState, bool) {
	hmax := ph.DeltaMax
	if ph.DeltaMaxOverR > 0 {
		if hr := cur.Radius(ph.metric.CoordKind()) * ph.DeltaMaxOverR; hr > 0 && hr < hmax {
			hmax = hr
		}
	}
	if lim, ok := ph.astrobj.(stepLimiter); ok {
		if hobj := lim.DeltaMax(cur.Position); hobj > 0 && hobj < hmax {
			hmax = hobj
		}
	}

	h := ph.delta
	if h > hmax {
		h = hmax
	}
	if h < ph.DeltaMin {
		h = ph.DeltaMin
	}

	for {
		// Step backward in time: negative affine increment.
		next, errEst := ph.stepper.Step(ph.metric, cur, -h)
		if !ph.Adaptive {
			ph.delta = h
			return next, true
		}

		tol := ph.AbsTol + ph.RelTol*cur.MaxNorm()
		if errEst <= tol {
			growth := 2.0
			if errEst > 0 {
				if g := 0.9 * math.Pow(tol/errEst, 0.2); g < growth {
					growth = g
				}
			}
			if growth < 1 {
				growth = 1
			}
			ph.delta = h * growth
			if ph.delta > ph.DeltaMax {
				ph.delta = ph.DeltaMax
			}
			return next, true
		}

		if h <= ph.DeltaMin {
			return next, false
		}
		shrink := 0.5
		if errEst > 0 {
			if s := 0.9 * math.Pow(tol/errEst, 0.25); s < shrink {
				shrink = s
			}
		}
		h *= shrink
		if h < ph.DeltaMin {
			h = ph.DeltaMin
		}
	}
}

// Coord returns the history entry at index. Higher indices are earlier dates.
func (ph *Photon) Coord(index int) core.RayState { return ph.history[index] }

// Len returns the number of recorded history entries.
func (ph *Photon) Len() int { return len(ph.history) }

// CoordAt interpolates the recorded history at coordinate time t. The
// history is strictly decreasing in time; t outside its span clamps to the
// nearest endpoint.
func (ph *Photon) CoordAt(t float64) core.RayState {
	n := len(ph.history)
	if n == 0 {
		return core.RayState{}
	}
	if t >= ph.history[0].Time() {
		return ph.history[0]
	}
	if t <= ph.history[n-1].Time() {
		return ph.history[n-1]
	}
	// First entry with time <= t.
	i := sort.Search(n, func(i int) bool { return ph.history[i].Time() <= t })
	a, b := ph.history[i-1], ph.history[i]
	span := a.Time() - b.Time()
	if span <= 0 {
		return a
	}
	return a.Lerp(b, (a.Time()-t)/span)
}

// FreqObs is the observed frequency the Intensity quantity refers to.
func (ph *Photon) FreqObs() float64 { return ph.freqObs }

// Frequencies lists the observed spectrometer channel frequencies.
func (ph *Photon) Frequencies() []float64 { return ph.freqs }

// Transmission returns the transmission accumulated between the observer and
// the current point for the Intensity channel.
func (ph *Photon) Transmission() float64 { return ph.transmission }

// TransmissionAt is Transmission for spectrometer channel ch.
func (ph *Photon) TransmissionAt(ch int) float64 { return ph.transmissionFreq[ch] }

// Absorb composes one sub-step's transmission into the Intensity channel.
func (ph *Photon) Absorb(tr float64) { ph.transmission *= tr }

// AbsorbAt is Absorb for spectrometer channel ch.
func (ph *Photon) AbsorbAt(ch int, tr float64) { ph.transmissionFreq[ch] *= tr }

package photon

import (
	"fmt"
	"sort"

	"github.com/df07/go-geodesic-raytracer/pkg/core"
)

// Stepper advances a ray state by h in the affine parameter and returns the
// new state together with a local error estimate. Swapping the stepper never
// changes the termination or intersection logic, which lives in Photon.
type Stepper interface {
	Step(m core.Metric, s core.RayState, h float64) (next core.RayState, errEstimate float64)
}

// LegacyStepperName selects the metric's own stepping routine. The metric
// must implement core.SelfStepper, which is checked when integration starts.
const LegacyStepperName = "legacy"

var stepperFactories = map[string]func() Stepper{
	LegacyStepperName:         func() Stepper { return legacyStepper{} },
	"runge_kutta_fehlberg45":  func() Stepper { return &embeddedRK{tableau: fehlberg45} },
	"runge_kutta_cash_karp54": func() Stepper { return &embeddedRK{tableau: cashKarp54} },
}

// NewStepper builds the integration strategy registered under name.
func NewStepper(name string) (Stepper, error) {
	f, ok := stepperFactories[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator %q (have %v)", name, StepperNames())
	}
	return f(), nil
}

// StepperNames lists the registered integration strategies.
func StepperNames() []string {
	names := make([]string, 0, len(stepperFactories))
	for n := range stepperFactories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// legacyStepper delegates to the metric's own stepping routine.
type legacyStepper struct{}

func (legacyStepper) Step(m core.Metric, s core.RayState, h float64) (core.RayState, float64) {
	return m.(core.SelfStepper).Step(s, h)
}

// rkTableau is the Butcher tableau of an embedded Runge-Kutta pair. b is the
// higher-order solution, bErr the difference between the two orders, used
// directly as the error estimate.
type rkTableau struct {
	c    []float64
	a    [][]float64
	b    []float64
	bErr []float64
}

// fehlberg45 is the classic Runge-Kutta-Fehlberg 4(5) pair.
var fehlberg45 = rkTableau{
	c: []float64{0, 1. / 4, 3. / 8, 12. / 13, 1, 1. / 2},
	a: [][]float64{
		{},
		{1. / 4},
		{3. / 32, 9. / 32},
		{1932. / 2197, -7200. / 2197, 7296. / 2197},
		{439. / 216, -8, 3680. / 513, -845. / 4104},
		{-8. / 27, 2, -3544. / 2565, 1859. / 4104, -11. / 40},
	},
	b: []float64{16. / 135, 0, 6656. / 12825, 28561. / 56430, -9. / 50, 2. / 55},
	bErr: []float64{
		16./135 - 25./216, 0, 6656./12825 - 1408./2565,
		28561./56430 - 2197./4104, -9./50 + 1./5, 2. / 55,
	},
}

// cashKarp54 is the Cash-Karp 5(4) pair.
var cashKarp54 = rkTableau{
	c: []float64{0, 1. / 5, 3. / 10, 3. / 5, 1, 7. / 8},
	a: [][]float64{
		{},
		{1. / 5},
		{3. / 40, 9. / 40},
		{3. / 10, -9. / 10, 6. / 5},
		{-11. / 54, 5. / 2, -70. / 27, 35. / 27},
		{1631. / 55296, 175. / 512, 575. / 13824, 44275. / 110592, 253. / 4096},
	},
	b: []float64{37. / 378, 0, 250. / 621, 125. / 594, 0, 512. / 1771},
	bErr: []float64{
		37./378 - 2825./27648, 0, 250./621 - 18575./48384,
		125./594 - 13525./55296, -277. / 14336, 512./1771 - 1./4,
	},
}

// embeddedRK evaluates an embedded Runge-Kutta pair against the metric's
// geodesic derivative.
type embeddedRK struct {
	tableau rkTableau
}

func (rk *embeddedRK) Step(m core.Metric, s core.RayState, h float64) (core.RayState, float64) {
	t := rk.tableau
	stages := len(t.c)
	k := make([]core.RayState, stages)
	for i := 0; i < stages; i++ {
		y := s
		for j := 0; j < i; j++ {
			if t.a[i][j] != 0 {
				y = y.Add(k[j].Scale(h * t.a[i][j]))
			}
		}
		k[i] = m.Derivative(y)
	}

	next := s
	var errState core.RayState
	for i := 0; i < stages; i++ {
		if t.b[i] != 0 {
			next = next.Add(k[i].Scale(h * t.b[i]))
		}
		if t.bErr[i] != 0 {
			errState = errState.Add(k[i].Scale(h * t.bErr[i]))
		}
	}
	return next, errState.MaxNorm()
}

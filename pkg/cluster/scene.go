package cluster

import (
	"fmt"

	"github.com/df07/go-geodesic-raytracer/pkg/astrobj"
	"github.com/df07/go-geodesic-raytracer/pkg/core"
	"github.com/df07/go-geodesic-raytracer/pkg/metric"
	"github.com/df07/go-geodesic-raytracer/pkg/photon"
	"github.com/df07/go-geodesic-raytracer/pkg/renderer"
)

// SceneDescription is the serializable configuration of a complete scenery.
// The controller sends it once per session; Build reconstructs an equivalent
// Scenery on the worker side. An unknown kind anywhere is a fatal
// configuration error.
type SceneDescription struct {
	Metric     MetricDescription  `cbor:"metric"`
	Screen     ScreenDescription  `cbor:"screen"`
	Astrobj    AstrobjDescription `cbor:"astrobj"`
	Photon     PhotonDescription  `cbor:"photon"`
	Quantities []string           `cbor:"quantities"`
	NThreads   int                `cbor:"nthreads,omitempty"`
}

// MetricDescription selects and configures the spacetime model.
type MetricDescription struct {
	Kind         string  `cbor:"kind"`  // "minkowski"
	Coord        string  `cbor:"coord"` // "spherical" or "cartesian"
	EscapeRadius float64 `cbor:"escapeRadius,omitempty"`
}

// ScreenDescription mirrors renderer.ScreenConfig minus the coordinate kind,
// which follows the metric.
type ScreenDescription struct {
	Width       int       `cbor:"width"`
	Height      int       `cbor:"height"`
	FOV         float64   `cbor:"fov"`
	Distance    float64   `cbor:"distance"`
	Inclination float64   `cbor:"inclination"`
	Date        float64   `cbor:"date,omitempty"`
	Frequencies []float64 `cbor:"frequencies,omitempty"`
}

// AstrobjDescription selects and configures the object variant. Torus fields
// and disk fields are mutually exclusive per Kind.
type AstrobjDescription struct {
	Kind          string `cbor:"kind"` // "torus" or "disk3d"
	OpticallyThin bool   `cbor:"opticallyThin,omitempty"`

	// torus
	LargeRadius     float64 `cbor:"largeRadius,omitempty"`
	SmallRadius     float64 `cbor:"smallRadius,omitempty"`
	Temperature     float64 `cbor:"temperature,omitempty"`
	OpacityConstant float64 `cbor:"opacityConstant,omitempty"`
	OpacityExponent float64 `cbor:"opacityExponent,omitempty"`

	// disk3d: either a FITS file readable by the worker, or inline grids.
	FITSPath   string    `cbor:"fitsPath,omitempty"`
	Rin        float64   `cbor:"rin,omitempty"`
	Rout       float64   `cbor:"rout,omitempty"`
	Zmin       float64   `cbor:"zmin,omitempty"`
	Zmax       float64   `cbor:"zmax,omitempty"`
	Nu0        float64   `cbor:"nu0,omitempty"`
	DNu        float64   `cbor:"dnu,omitempty"`
	RepeatPhi  int       `cbor:"repeatPhi,omitempty"`
	EmissQuant []float64 `cbor:"emissQuant,omitempty"`
	EmissDims  [4]int    `cbor:"emissDims,omitempty"`
	Velocity   []float64 `cbor:"velocity,omitempty"`
}

// PhotonDescription carries the numerical tuning and integrator choice.
type PhotonDescription struct {
	Integrator string        `cbor:"integrator,omitempty"`
	Tuning     photon.Tuning `cbor:"tuning"`
}

// Build constructs a Scenery from the description.
func (sd *SceneDescription) Build() (*renderer.Scenery, error) {
	kind, err := core.ParseCoordKind(sd.Metric.Coord)
	if err != nil {
		return nil, fmt.Errorf("cluster: scene: %w", err)
	}

	var m core.Metric
	switch sd.Metric.Kind {
	case "minkowski":
		mk := metric.NewMinkowski(kind)
		if sd.Metric.EscapeRadius > 0 {
			mk.SetEscapeRadius(sd.Metric.EscapeRadius)
		}
		m = mk
	default:
		return nil, fmt.Errorf("cluster: scene: unknown metric kind %q", sd.Metric.Kind)
	}

	obj, err := sd.Astrobj.build()
	if err != nil {
		return nil, err
	}

	screen, err := renderer.NewScreen(renderer.ScreenConfig{
		Width:       sd.Screen.Width,
		Height:      sd.Screen.Height,
		FOV:         sd.Screen.FOV,
		Distance:    sd.Screen.Distance,
		Inclination: sd.Screen.Inclination,
		Date:        sd.Screen.Date,
		Kind:        kind,
		Frequencies: sd.Screen.Frequencies,
	})
	if err != nil {
		return nil, fmt.Errorf("cluster: scene: %w", err)
	}

	s, err := renderer.NewScenery(m, screen, obj)
	if err != nil {
		return nil, err
	}

	ph := s.Photon()
	ph.Tuning = sd.Photon.Tuning
	if sd.Photon.Integrator != "" {
		if err := ph.SetIntegrator(sd.Photon.Integrator); err != nil {
			return nil, fmt.Errorf("cluster: scene: %w", err)
		}
	}

	if len(sd.Quantities) > 0 {
		q, err := core.ParseQuantities(sd.Quantities)
		if err != nil {
			return nil, fmt.Errorf("cluster: scene: %w", err)
		}
		s.SetQuantities(q)
	}
	if sd.NThreads > 0 {
		s.SetNThreads(sd.NThreads)
	}
	return s, nil
}

func (ad *AstrobjDescription) build() (core.Astrobj, error) {
	switch ad.Kind {
	case "torus":
		t := astrobj.NewTorus()
		if ad.LargeRadius > 0 {
			t.SetLargeRadius(ad.LargeRadius)
		}
		if ad.SmallRadius > 0 {
			t.SetSmallRadius(ad.SmallRadius)
		}
		if ad.Temperature > 0 {
			t.SetSpectrum(astrobj.NewBlackBody(ad.Temperature))
		}
		if ad.OpacityConstant != 0 {
			t.SetOpacity(astrobj.NewPowerLaw(ad.OpacityConstant, ad.OpacityExponent))
		}
		t.SetOpticallyThin(ad.OpticallyThin)
		return t, nil

	case "disk3d":
		d := astrobj.NewDisk3D()
		d.SetOpticallyThin(ad.OpticallyThin)
		if ad.FITSPath != "" {
			if err := d.LoadFITS(ad.FITSPath); err != nil {
				return nil, fmt.Errorf("cluster: scene: %w", err)
			}
			return d, nil
		}
		d.SetRin(ad.Rin)
		d.SetRout(ad.Rout)
		d.SetZmin(ad.Zmin)
		d.SetZmax(ad.Zmax)
		if ad.Nu0 > 0 {
			d.SetNu0(ad.Nu0)
		}
		if ad.DNu > 0 {
			d.SetDNu(ad.DNu)
		}
		if ad.RepeatPhi > 0 {
			d.SetRepeatPhi(ad.RepeatPhi)
		}
		if err := d.SetEmissQuant(ad.EmissQuant, ad.EmissDims); err != nil {
			return nil, fmt.Errorf("cluster: scene: %w", err)
		}
		vdims := [3]int{ad.EmissDims[1], ad.EmissDims[2], ad.EmissDims[3]}
		if err := d.SetVelocity(ad.Velocity, vdims); err != nil {
			return nil, fmt.Errorf("cluster: scene: %w", err)
		}
		return d, nil
	}
	return nil, fmt.Errorf("cluster: scene: unknown astrobj kind %q", ad.Kind)
}

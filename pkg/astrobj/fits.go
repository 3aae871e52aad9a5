package astrobj

import (
	"fmt"
	"os"

	"github.com/astrogo/fitsio"
)

// FITS extension and keyword names of the Disk3D table format.
const (
	fitsEmissExt = "GYOTO Disk3D emissquant"
	fitsVelExt   = "GYOTO Disk3D velocity"

	fitsKeyRepeatPhi = "GYOTO Disk3D RepeatPhi"
	fitsKeyRin       = "GYOTO Disk3D Rin"
	fitsKeyRout      = "GYOTO Disk3D Rout"
	fitsKeyZmin      = "GYOTO Disk3D Zmin"
	fitsKeyZmax      = "GYOTO Disk3D Zmax"
)

// LoadFITS reads the emission and velocity grids from a FITS file. The
// emission table lives in the HDU named "GYOTO Disk3D emissquant" together
// with the geometry keywords; the velocity table in "GYOTO Disk3D velocity".
// Any missing mandatory piece is a configuration error and no partial state
// is installed.
func (d *Disk3D) LoadFITS(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("disk3d: open %s: %w", path, err)
	}
	defer f.Close()

	fits, err := fitsio.Open(f)
	if err != nil {
		return fmt.Errorf("disk3d: read %s: %w", path, err)
	}
	defer fits.Close()

	emiss := findImageHDU(fits, fitsEmissExt)
	if emiss == nil {
		return fmt.Errorf("disk3d: %s: no %q extension", path, fitsEmissExt)
	}
	hdr := emiss.Header()

	for _, k := range []struct {
		name string
		set  func(float64)
	}{
		{fitsKeyRin, d.SetRin},
		{fitsKeyRout, d.SetRout},
		{fitsKeyZmin, d.SetZmin},
		{fitsKeyZmax, d.SetZmax},
	} {
		v, err := cardFloat(hdr, k.name)
		if err != nil {
			return fmt.Errorf("disk3d: %s: %w", path, err)
		}
		k.set(v)
	}
	if c := hdr.Get(fitsKeyRepeatPhi); c != nil {
		// Optional; defaults to 1.
		if n, err := cardFloat(hdr, fitsKeyRepeatPhi); err == nil {
			d.SetRepeatPhi(int(n))
		}
	}

	axes := hdr.Axes()
	if len(axes) != 4 {
		return fmt.Errorf("disk3d: %s: emission grid has %d axes, want 4", path, len(axes))
	}
	nu0, err := cardFloat(hdr, "CRVAL1")
	if err != nil {
		return fmt.Errorf("disk3d: %s: %w", path, err)
	}
	dnu, err := cardFloat(hdr, "CDELT1")
	if err != nil {
		return fmt.Errorf("disk3d: %s: %w", path, err)
	}
	crpix, err := cardFloat(hdr, "CRPIX1")
	if err != nil {
		return fmt.Errorf("disk3d: %s: %w", path, err)
	}
	if crpix != 1 {
		nu0 -= dnu * (crpix - 1)
	}
	d.SetNu0(nu0)
	d.SetDNu(dnu)

	var emissData []float64
	if err := emiss.Read(&emissData); err != nil {
		return fmt.Errorf("disk3d: %s: read emission grid: %w", path, err)
	}
	if err := d.SetEmissQuant(emissData, [4]int{axes[0], axes[1], axes[2], axes[3]}); err != nil {
		return fmt.Errorf("disk3d: %s: %w", path, err)
	}

	vel := findImageHDU(fits, fitsVelExt)
	if vel == nil {
		return fmt.Errorf("disk3d: %s: no %q extension", path, fitsVelExt)
	}
	vaxes := vel.Header().Axes()
	if len(vaxes) != 4 || vaxes[0] != 3 {
		return fmt.Errorf("disk3d: %s: velocity grid axes %v not conformable", path, vaxes)
	}
	var velData []float64
	if err := vel.Read(&velData); err != nil {
		return fmt.Errorf("disk3d: %s: read velocity grid: %w", path, err)
	}
	if err := d.SetVelocity(velData, [3]int{vaxes[1], vaxes[2], vaxes[3]}); err != nil {
		return fmt.Errorf("disk3d: %s: %w", path, err)
	}
	return nil
}

// StoreFITS writes the attached grids and geometry keywords to a FITS file
// in the layout LoadFITS reads back.
func (d *Disk3D) StoreFITS(path string) error {
	if d.emissQuant == nil {
		return fmt.Errorf("disk3d: nothing to save")
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("disk3d: create %s: %w", path, err)
	}
	defer f.Close()

	fits, err := fitsio.Create(f)
	if err != nil {
		return fmt.Errorf("disk3d: write %s: %w", path, err)
	}
	defer fits.Close()

	emiss := fitsio.NewImage(-64, []int{d.nnu, d.nphi, d.nz, d.nr})
	defer emiss.Close()
	err = emiss.Header().Append(
		fitsio.Card{Name: "EXTNAME", Value: fitsEmissExt},
		fitsio.Card{Name: fitsKeyRepeatPhi, Value: d.repeatPhi},
		fitsio.Card{Name: fitsKeyRin, Value: d.rin},
		fitsio.Card{Name: fitsKeyRout, Value: d.rout},
		fitsio.Card{Name: fitsKeyZmin, Value: d.zmin},
		fitsio.Card{Name: fitsKeyZmax, Value: d.zmax},
		fitsio.Card{Name: "CRVAL1", Value: d.nu0},
		fitsio.Card{Name: "CDELT1", Value: d.dnu},
		fitsio.Card{Name: "CRPIX1", Value: 1.0},
	)
	if err != nil {
		return fmt.Errorf("disk3d: write %s: %w", path, err)
	}
	if err := emiss.Write(&d.emissQuant); err != nil {
		return fmt.Errorf("disk3d: write %s: %w", path, err)
	}
	if err := fits.Write(emiss); err != nil {
		return fmt.Errorf("disk3d: write %s: %w", path, err)
	}

	if d.velocity != nil {
		vel := fitsio.NewImage(-64, []int{3, d.nphi, d.nz, d.nr})
		defer vel.Close()
		if err := vel.Header().Append(fitsio.Card{Name: "EXTNAME", Value: fitsVelExt}); err != nil {
			return fmt.Errorf("disk3d: write %s: %w", path, err)
		}
		if err := vel.Write(&d.velocity); err != nil {
			return fmt.Errorf("disk3d: write %s: %w", path, err)
		}
		if err := fits.Write(vel); err != nil {
			return fmt.Errorf("disk3d: write %s: %w", path, err)
		}
	}
	return nil
}

// findImageHDU locates an image extension by EXTNAME.
func findImageHDU(f *fitsio.File, name string) fitsio.Image {
	for _, hdu := range f.HDUs() {
		img, ok := hdu.(fitsio.Image)
		if !ok {
			continue
		}
		if hdu.Name() == name {
			return img
		}
		if c := hdu.Header().Get("EXTNAME"); c != nil {
			if s, ok := c.Value.(string); ok && s == name {
				return img
			}
		}
	}
	return nil
}

// cardFloat reads a numeric header card.
func cardFloat(hdr *fitsio.Header, name string) (float64, error) {
	c := hdr.Get(name)
	if c == nil {
		return 0, fmt.Errorf("missing mandatory keyword %q", name)
	}
	switch v := c.Value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	}
	return 0, fmt.Errorf("keyword %q is not numeric", name)
}

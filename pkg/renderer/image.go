package renderer

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/df07/go-geodesic-raytracer/pkg/core"
)

// IntensityImage maps the intensity plane of a fully accumulated Properties
// to an 8-bit image. Intensities are normalized to the brightest pixel and
// gamma-compressed; degraded pixels come out red so numerical trouble is
// visible at a glance. Pixel (0, 0) of the grid maps to the bottom-left
// corner of the image.
func IntensityImage(data *core.Properties, width, height int) (*image.RGBA, error) {
	if !data.Has(core.QuantityIntensity) {
		return nil, fmt.Errorf("renderer: no intensity plane in data")
	}
	if len(data.Intensity) != width*height {
		return nil, fmt.Errorf("renderer: %d intensity samples for a %dx%d image", len(data.Intensity), width, height)
	}

	maxI := 0.0
	for _, v := range data.Intensity {
		if !math.IsNaN(v) && v > maxI {
			maxI = v
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for j := 0; j < height; j++ {
		for i := 0; i < width; i++ {
			p := j*width + i
			if data.Invalid != nil && data.Invalid[p] {
				img.Set(i, height-1-j, color.RGBA{R: 255, A: 255})
				continue
			}
			v := data.Intensity[p]
			if math.IsNaN(v) || v < 0 {
				v = 0
			}
			if maxI > 0 {
				v /= maxI
			}
			g := uint8(255 * math.Sqrt(v))
			img.Set(i, height-1-j, color.RGBA{R: g, G: g, B: g, A: 255})
		}
	}
	return img, nil
}

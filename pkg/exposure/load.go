package exposure

import(
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/image/tiff"

	"skywarp/pkg/frame"
	"skywarp/pkg/psf"
	"skywarp/pkg/skymap"
)

// An Exposure is one detector's pixels plus everything adopted into a
// canvas on its behalf: WCS, calibration, filter, seeing model, and
// observing circumstances.
type Exposure struct {
	Ref    Ref
	Frame  frame.Frame
	Wcs    skymap.Wcs
	Calib  frame.PhotoCalib
	Filter string
	Psf    psf.Model
	Visit  frame.VisitInfo
}

// Load reads one exposure's pixels and metadata. With bgSubtracted
// (the normal case) pixels are used as stored; otherwise the
// sidecar's background estimate is added back, for callers that want
// sky in their warp. Missing or unreadable data comes back as an
// error the accumulator treats as skip-this-exposure.
func (c *Catalog)Load(ref Ref, bgSubtracted bool) (*Exposure, error) {
	sc, ok := c.sidecars[ref]
	if !ok {
		return nil, fmt.Errorf("%v not in catalog '%s'", ref, c.Dir)
	}

	wcs, err := sc.SkyWcs(c.TanRA, c.TanDec)
	if err != nil {
		return nil, fmt.Errorf("%v: %v", ref, err)
	}

	model, err := sc.PsfModel()
	if err != nil {
		return nil, fmt.Errorf("%v: %v", ref, err)
	}

	pixPath := filepath.Join(c.Dir, sc.Pixels)
	f, err := loadTIFF(pixPath, sc)
	if err != nil {
		return nil, fmt.Errorf("%v: %v", ref, err)
	}

	if !bgSubtracted {
		f.AddScalar(sc.Background)
	}

	calib := sc.Calib
	if !calib.IsSet() {
		// No calibration in the sidecar; bootstrap one from the pixel
		// file's EXIF exposure triple.
		if calib, err = calibFromExif(pixPath); err != nil {
			return nil, fmt.Errorf("%v has no calib and no usable EXIF: %v", ref, err)
		}
	}

	return &Exposure{
		Ref:    ref,
		Frame:  f,
		Wcs:    wcs,
		Calib:  calib,
		Filter: sc.Filter,
		Psf:    model,
		Visit: frame.VisitInfo{
			ObsTimeMJD:  sc.ObsTimeMJD,
			ExposureSec: sc.ExposureSec,
			Airmass:     sc.Airmass,
		},
	}, nil
}

// loadTIFF decodes the pixel file into a frame: values are the
// 16-bit counts, the variance plane is the usual shot noise plus
// read noise model, and pixels at/above the sidecar's saturation
// level get the SAT bit.
func loadTIFF(filename string, sc Sidecar) (frame.Frame, error) {
	reader, err := os.Open(filename)
	if err != nil {
		return frame.Frame{}, fmt.Errorf("open+r img '%s': %v", filename, err)
	}
	defer reader.Close()

	img, err := tiff.Decode(reader)
	if err != nil {
		return frame.Frame{}, fmt.Errorf("tiff loading '%s': %v", filename, err)
	}

	bounds := img.Bounds()
	if sc.Width > 0 && (bounds.Dx() != sc.Width || bounds.Dy() != sc.Height) {
		return frame.Frame{}, fmt.Errorf("'%s' is %dx%d but sidecar declares %dx%d",
			filename, bounds.Dx(), bounds.Dy(), sc.Width, sc.Height)
	}

	gain := sc.Gain
	if gain <= 0 { gain = 1.0 }
	rn2 := sc.ReadNoise * sc.ReadNoise

	f := frame.New(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y:=bounds.Min.Y; y<bounds.Max.Y; y++ {
		for x:=bounds.Min.X; x<bounds.Max.X; x++ {
			r, _, _, _ := img.At(x, y).RGBA()
			v := float64(r)

			var bits uint16
			if sc.Saturation > 0 && v >= sc.Saturation {
				bits |= frame.MaskSat
			}

			f.SetPixel(x-bounds.Min.X, y-bounds.Min.Y, v, bits, math.Max(v, 0)/gain+rn2)
		}
	}

	return f, nil
}

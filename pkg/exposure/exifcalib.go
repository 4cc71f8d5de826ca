package exposure

// Fallback photometric calibration for sidecars that don't carry
// one: derive a rough zero-point from the pixel file's EXIF exposure
// triple. The fstop/shutter/ISO triple fully defines how much light
// exposes a pixel, so up to an instrument constant it defines the
// flux scale too. Good enough to merge test data on a common scale;
// real calibrations should come from the sidecar.

import(
	"fmt"
	"math"
	"os"

	"github.com/rwcarlsen/goexif/exif"

	"skywarp/pkg/frame"
)

// The zero-point assigned to an EV100 of 0; one stop of exposure
// moves the zero-point by a factor of 2.
const fluxMag0AtEV0 = 1 << 25

func calibFromExif(filename string) (frame.PhotoCalib, error) {
	pc := frame.PhotoCalib{}

	reader, err := os.Open(filename)
	if err != nil {
		return pc, fmt.Errorf("open+r exif '%s': %v", filename, err)
	}
	defer reader.Close()

	ex, err := exif.Decode(reader)
	if err != nil {
		return pc, fmt.Errorf("exif parsing '%s': %v", filename, err)
	}

	var iso int64
	if tag, err := ex.Get(exif.ISOSpeedRatings); err != nil {
		return pc, fmt.Errorf("exif ISO '%s': %v", filename, err)
	} else if iso, err = tag.Int64(0); err != nil || iso <= 0 {
		return pc, fmt.Errorf("exif ISO '%s': %v", filename, err)
	}

	var fnumber float64
	if tag, err := ex.Get(exif.FNumber); err != nil {
		return pc, fmt.Errorf("exif FNumber '%s': %v", filename, err)
	} else if num, denom, err := tag.Rat2(0); err != nil || denom == 0 {
		return pc, fmt.Errorf("exif FNumber '%s': %v", filename, err)
	} else {
		fnumber = float64(num) / float64(denom)
	}

	var shutterSec float64
	if tag, err := ex.Get(exif.ExposureTime); err != nil {
		return pc, fmt.Errorf("exif ExposureTime '%s': %v", filename, err)
	} else if num, denom, err := tag.Rat2(0); err != nil || num == 0 || denom == 0 {
		return pc, fmt.Errorf("exif ExposureTime '%s': %v", filename, err)
	} else {
		shutterSec = float64(num) / float64(denom)
	}

	ev := ev100(iso, fnumber, shutterSec)
	if ev < -6 || ev > 24 {
		return pc, fmt.Errorf("exif exposure triple of '%s' looks suspicious, EV100=%.1f", filename, ev)
	}

	pc.FluxMag0 = fluxMag0AtEV0 * math.Pow(2, -ev)
	return pc, nil
}

// ev100 is the exposure value normalized to ISO 100: log2(N^2/t) -
// log2(ISO/100). Higher ISO or a longer shutter mean more counts per
// unit flux, i.e. a bigger zero-point.
func ev100(iso int64, fnumber, shutterSec float64) float64 {
	return math.Log2(fnumber*fnumber/shutterSec) - math.Log2(float64(iso)/100.0)
}

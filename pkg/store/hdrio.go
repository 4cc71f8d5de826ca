package store

// Canvas pixels travel as two files: a Radiance RGBE image holding the
// value plane in R and the variance plane in G, and a 16-bit grayscale
// PNG holding the raw mask bits. NaN and +Inf can't survive the RGBE
// shared-exponent encoding, so invalid pixels are flattened to zero on
// write and rebuilt from the mask's NO_DATA bit on read.

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"github.com/mdouchement/hdr"
	"github.com/mdouchement/hdr/codec/rgbe"
	"github.com/mdouchement/hdr/hdrcolor"

	"skywarp/pkg/frame"
)

// frameImage adapts a frame to the image.Image + hdr.Image interfaces
// the rgbe codec wants.
type frameImage struct {
	f *frame.Frame
}

func (fi frameImage)ColorModel() color.Model { return hdrcolor.RGBModel }
func (fi frameImage)Bounds() image.Rectangle { return fi.f.BBox }
func (fi frameImage)At(x, y int) color.Color { return fi.HDRAt(x, y) }

func (fi frameImage)HDRAt(x, y int) hdrcolor.Color {
	v := fi.f.ValueAt(x, y)
	varr := fi.f.VarianceAt(x, y)
	if math.IsNaN(v) || math.IsInf(varr, 0) {
		return hdrcolor.RGB{}
	}
	return hdrcolor.RGB{R: v, G: varr, B: 0}
}

func (fi frameImage)Size() int { return fi.f.BBox.Dx() * fi.f.BBox.Dy() }

// WriteFrameHDR writes the value and variance planes as Radiance RGBE.
func WriteFrameHDR(f *frame.Frame, filename string) error {
	if writer, err := os.Create(filename); err != nil {
		return fmt.Errorf("open+w '%s': %v", filename, err)
	} else {
		defer writer.Close()
		return rgbe.Encode(writer, frameImage{f})
	}
}

// WriteMaskPNG writes the mask plane, one uint16 of bits per pixel.
func WriteMaskPNG(f *frame.Frame, filename string) error {
	img := image.NewGray16(image.Rect(0, 0, f.BBox.Dx(), f.BBox.Dy()))
	for y := 0; y < f.BBox.Dy(); y++ {
		for x := 0; x < f.BBox.Dx(); x++ {
			img.SetGray16(x, y, color.Gray16{Y: f.MaskAt(f.BBox.Min.X+x, f.BBox.Min.Y+y)})
		}
	}

	if writer, err := os.Create(filename); err != nil {
		return fmt.Errorf("open+w '%s': %v", filename, err)
	} else {
		defer writer.Close()
		return png.Encode(writer, img)
	}
}

// ReadFrame rebuilds a frame from its HDR and mask files. bbox places
// the pixels back on the patch plane. Pixels whose stored mask has
// NO_DATA set come back in birth state (NaN value, +Inf variance).
func ReadFrame(hdrFilename, maskFilename string, bbox image.Rectangle) (frame.Frame, error) {
	fr := frame.NewEmpty(bbox)

	hf, err := os.Open(hdrFilename)
	if err != nil {
		return fr, fmt.Errorf("open+r '%s': %v", hdrFilename, err)
	}
	defer hf.Close()
	decoded, _, err := image.Decode(hf)
	if err != nil {
		return fr, fmt.Errorf("decode '%s': %v", hdrFilename, err)
	}
	hdrImg, ok := decoded.(hdr.Image)
	if !ok {
		return fr, fmt.Errorf("'%s' is not an hdr image (%T)", hdrFilename, decoded)
	}

	mf, err := os.Open(maskFilename)
	if err != nil {
		return fr, fmt.Errorf("open+r '%s': %v", maskFilename, err)
	}
	defer mf.Close()
	maskImg, err := png.Decode(mf)
	if err != nil {
		return fr, fmt.Errorf("decode '%s': %v", maskFilename, err)
	}

	hb := hdrImg.Bounds()
	mb := maskImg.Bounds()
	if hb.Dx() != bbox.Dx() || hb.Dy() != bbox.Dy() || mb.Dx() != bbox.Dx() || mb.Dy() != bbox.Dy() {
		return fr, fmt.Errorf("stored planes are %dx%d / %dx%d, expected %dx%d",
			hb.Dx(), hb.Dy(), mb.Dx(), mb.Dy(), bbox.Dx(), bbox.Dy())
	}

	for y := 0; y < bbox.Dy(); y++ {
		for x := 0; x < bbox.Dx(); x++ {
			g16 := color.Gray16Model.Convert(maskImg.At(mb.Min.X+x, mb.Min.Y+y)).(color.Gray16)
			bits := g16.Y
			if bits&frame.MaskNoData != 0 {
				continue // birth state stands
			}
			v, varr, _, _ := hdrImg.HDRAt(hb.Min.X+x, hb.Min.Y+y).HDRRGBA()
			fr.SetPixel(bbox.Min.X+x, bbox.Min.Y+y, v, bits, varr)
		}
	}

	return fr, nil
}

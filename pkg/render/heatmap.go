package render

// QA image output. Heat maps colour pixels by coverage depth; frame
// renders window the flux range and grey-scale it, which is usually
// enough to eyeball whether a warp landed where it should.

import(
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"
	"github.com/lucasb-eyer/go-colorful"

	"skywarp/pkg/frame"
	"skywarp/pkg/wmath"
)

// DepthColor maps a contributor count onto a heat ramp: black for no
// coverage, then blue through to red across the observed range.
func DepthColor(depth, maxDepth int) color.Color {
	if depth <= 0 || maxDepth <= 0 {
		return color.Black
	}
	if depth > maxDepth {
		depth = maxDepth
	}

	frac := float64(depth) / float64(maxDepth)
	c := colorful.Hsv(240.0*(1.0-frac), 1.0, 0.2+0.8*frac)
	r, g, b := c.RGB255()
	return color.RGBA{r, g, b, 0xFF}
}

// Heatmap renders a depth map as a coloured image, scaled to the
// map's own maximum depth.
func Heatmap(depth *wmath.FloatGrid) image.Image {
	_, max := depth.MinMax()
	maxDepth := int(max)

	img := image.NewRGBA(image.Rect(0, 0, depth.Dx(), depth.Dy()))
	for x:=0; x<depth.Dx(); x++ {
		for y:=0; y<depth.Dy(); y++ {
			img.Set(x, y, DepthColor(int(depth.Get(x, y)), maxDepth))
		}
	}

	return img
}

// WriteHeatmapPNG writes the heat map with a title scribbled into the
// top-left corner.
func WriteHeatmapPNG(depth *wmath.FloatGrid, title, filename string) error {
	dc := gg.NewContextForImage(Heatmap(depth))
	dc.SetRGB(1,1,1)
	dc.DrawString(title, 50, 50)
	return dc.SavePNG(filename)
}

// WriteFramePNG grey-scales a frame's values for human eyes. The
// display range is windowed to the 1st..99th percentile so a few hot
// pixels don't blow out the stretch, and we take a square root so
// faint structure stays visible in linear flux data. Pixels with no
// data come out black.
func WriteFramePNG(f *frame.Frame, title, filename string) error {
	lo, hi := f.Values.PercentileRange(0.01, 0.99)

	img := image.NewRGBA64(image.Rect(0, 0, f.BBox.Dx(), f.BBox.Dy()))
	for x:=f.BBox.Min.X; x<f.BBox.Max.X; x++ {
		for y:=f.BBox.Min.Y; y<f.BBox.Max.Y; y++ {
			px, py := x-f.BBox.Min.X, y-f.BBox.Min.Y

			v := f.ValueAt(x, y)
			if math.IsNaN(v) || f.MaskAt(x, y) & frame.MaskNoData != 0 {
				img.Set(px, py, color.Black)
				continue
			}

			t := 0.0
			if hi > lo {
				t = (v - lo) / (hi - lo)
			}
			if t < 0 { t = 0 }
			if t > 1 { t = 1 }

			gray := math.Sqrt(t)
			img.Set(px, py, color.RGBA64{
				uint16(gray * 65535.0), uint16(gray * 65535.0), uint16(gray * 65535.0), 0xFFFF})
		}
	}

	dc := gg.NewContextForImage(img)
	dc.SetRGB(1,1,1)
	dc.DrawString(title, 50, 50)
	return dc.SavePNG(filename)
}

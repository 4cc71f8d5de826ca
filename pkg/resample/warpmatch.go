package resample

import(
	"fmt"
	"image"

	"skywarp/pkg/frame"
	"skywarp/pkg/psf"
	"skywarp/pkg/skymap"
)

// A Request describes one source exposure's trip onto the patch
// plane: which variants to produce, where to land them, and the PSF
// pair needed if homogenization is on.
type Request struct {
	SrcWcs  skymap.Wcs
	DstWcs  skymap.Wcs
	DstBBox image.Rectangle
	Kernel  Kernel

	MakeDirect     bool
	MakePsfMatched bool

	SrcPsf          psf.Model // required for psf-matched
	TargetPsf       psf.Model // ditto
	MatchKernelSize int
}

// A Result holds whichever variants came out. A nil frame with a set
// PsfMatchErr means that variant failed on its own while the other
// survived; per the accumulation contract the caller skips just the
// missing variant.
type Result struct {
	Direct      *frame.Frame
	PsfMatched  *frame.Frame
	PsfMatchErr error
}

// WarpAndMatch produces the requested warp variants of one source
// frame in a single pass over its pixels. PSF matching happens in the
// source frame before resampling, so the matching kernel is built in
// the pixels the PSF was measured in.
func WarpAndMatch(src *frame.Frame, req Request) (Result, error) {
	res := Result{}

	if !req.MakeDirect && !req.MakePsfMatched {
		return res, fmt.Errorf("no warp variant requested")
	}
	if req.DstBBox.Empty() {
		return res, fmt.Errorf("empty destination box")
	}

	if req.MakeDirect {
		w := Warp(src, req.SrcWcs, req.DstWcs, req.DstBBox, req.Kernel)
		res.Direct = &w
	}

	if req.MakePsfMatched {
		if req.SrcPsf == nil || req.TargetPsf == nil {
			res.PsfMatchErr = fmt.Errorf("psf matching needs both a source and a target model")
			return res, nil
		}

		if kernel, err := psf.MatchingKernel(req.SrcPsf, req.TargetPsf, req.MatchKernelSize); err != nil {
			res.PsfMatchErr = fmt.Errorf("matching kernel: %v", err)
		} else {
			matched := Convolve(src, kernel)
			w := Warp(&matched, req.SrcWcs, req.DstWcs, req.DstBBox, req.Kernel)
			res.PsfMatched = &w
		}
	}

	return res, nil
}

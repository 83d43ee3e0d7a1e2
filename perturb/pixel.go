// Package perturb advances individual pixels against a shared reference
// orbit using the perturbation recurrence dz' = 2·Z·dz + dz² + dc.
//
// Pixels are plain-precision state machines: the extended precision lives
// entirely in the reference orbit, and each pixel tracks only its offset dc
// and perturbation dz at float64 (or float32 on a GPU board). Two
// mechanisms keep that viable at extreme magnification: rebasing, which
// resets a pixel's orbit cursor when the perturbation starts to dominate
// the reference, and adaptive rescaling, which keeps the stored dz mantissa
// representable when the true dz is far below the float64 range.
package perturb

import (
	"fmt"
	"math"
)

// Status is a pixel's lifecycle state. It is monotonic: once a pixel
// leaves StatusActive it never changes again.
type Status uint32

const (
	// StatusActive means the pixel is still iterating.
	StatusActive Status = iota
	// StatusEscaped means the pixel left the escape radius.
	StatusEscaped
	// StatusConverged means the pixel settled into a periodic cycle.
	StatusConverged
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusEscaped:
		return "escaped"
	case StatusConverged:
		return "converged"
	default:
		return fmt.Sprintf("Status(%d)", uint32(s))
	}
}

// Pixel is one pixel's complete iteration state. The layout is fixed and
// padding-free (48 bytes of float64 followed by 32 bytes of 32-bit words)
// so a pixel arena serializes as a straight memory copy and mirrors the
// GPU-side record field for field.
//
// Dc is the pixel's fixed offset from the orbit center. When rescaling is
// enabled the stored Dc and Dz are mantissas: the true values are
// Dc·2^ScaleFloor and Dz·2^Scale. On plain boards Scale and ScaleFloor stay
// zero and the stored values are the true values.
type Pixel struct {
	// DcRe, DcIm are the fixed offset c - center (mantissa when scaled).
	DcRe, DcIm float64
	// DzRe, DzIm are the current perturbation (mantissa when scaled).
	DzRe, DzIm float64
	// CpDzRe, CpDzIm are the checkpoint perturbation at absolute scale.
	CpDzRe, CpDzIm float64

	// RefIndex is a weak cursor into the reference orbit.
	RefIndex uint32
	// CpRefIndex is the orbit cursor captured at the checkpoint.
	CpRefIndex uint32
	// CpIter is the absolute iteration the checkpoint was taken at.
	CpIter uint32
	// Iter counts wall-clock iterations; rebasing never resets it.
	Iter uint32
	// Period is the candidate cycle length, 0 until the first loose match.
	Period uint32
	// State is the lifecycle status.
	State Status
	// Scale is the dz exponent: true dz = stored dz × 2^Scale.
	Scale int32
	// ScaleFloor is the lowest Scale may go, set from log2(pixel size).
	ScaleFloor int32
}

// PixelBytes is the serialized size of one Pixel record.
const PixelBytes = 80

// Grid describes the pixel lattice of a view: a Width×Height grid of
// offsets centered on the reference, spaced by PixelSize·2^PixelSizeExp.
type Grid struct {
	Width, Height int
	PixelSize     float64
	// PixelSizeExp extends the pixel size below the float64 range by a
	// power of two. Zero for all but extreme magnifications.
	PixelSizeExp int
}

// Validate reports malformed grid parameters.
func (g Grid) Validate() error {
	if g.Width <= 0 || g.Height <= 0 {
		return fmt.Errorf("perturb: empty grid %dx%d", g.Width, g.Height)
	}
	if g.PixelSize <= 0 || math.IsNaN(g.PixelSize) || math.IsInf(g.PixelSize, 0) {
		return fmt.Errorf("perturb: invalid pixel size %v", g.PixelSize)
	}
	return nil
}

// NewArena builds the pixel array for a grid. Offsets are measured from
// the grid center, so the center pixel of an odd-sized grid has dc = 0.
// When rescale is enabled, dc is stored as a mantissa against a shared
// scale floor derived from the pixel size.
func NewArena(g Grid, rescale bool) ([]Pixel, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	pixels := make([]Pixel, g.Width*g.Height)

	ps := g.PixelSize
	floor := 0
	if rescale {
		frac, exp := math.Frexp(g.PixelSize)
		floor = exp + g.PixelSizeExp
		ps = frac
	}

	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			p := &pixels[y*g.Width+x]
			p.DcRe = float64(x-g.Width/2) * ps
			p.DcIm = float64(y-g.Height/2) * ps
			p.Scale = int32(floor)
			p.ScaleFloor = int32(floor)
		}
	}
	return pixels, nil
}

// ActiveCount returns the number of pixels still iterating.
func ActiveCount(pixels []Pixel) int {
	n := 0
	for i := range pixels {
		if pixels[i].State == StatusActive {
			n++
		}
	}
	return n
}

// MaxRefIndex returns the highest orbit cursor among active pixels. The
// board uses it to pre-extend the orbit to a batch's ceiling.
func MaxRefIndex(pixels []Pixel) int {
	m := 0
	for i := range pixels {
		if pixels[i].State == StatusActive && int(pixels[i].RefIndex) > m {
			m = int(pixels[i].RefIndex)
		}
	}
	return m
}

package perturb

import (
	"math"

	"github.com/gogpu/deepzoom/orbit"
)

// Params are the iteration thresholds. The rebase trigger, rescale band
// and loose/tight ratio are tuned policy validated against known failure
// cases, not derived constants; override them only with scenario coverage.
type Params struct {
	// EscapeRadius2 is the squared escape radius, canonically 4.
	EscapeRadius2 float64
	// Eps is the tight convergence threshold, relative to orbit scale.
	Eps float64
	// Eps2 is the loose threshold that arms period detection first, so a
	// single near-match never converges a pixel on its own.
	Eps2 float64
	// Rescale enables adaptive dz rescaling for the extreme tier.
	Rescale bool
}

// DefaultParams returns the standard thresholds.
func DefaultParams() Params {
	return Params{
		EscapeRadius2: 4,
		Eps:           1e-9,
		Eps2:          1e-5,
	}
}

// Iterator advances pixels one iteration at a time against one reference
// orbit. It holds no per-pixel state, so a single Iterator may be shared
// by any number of goroutines working on disjoint pixels.
type Iterator struct {
	orb    orbit.Orbit
	params Params
}

// NewIterator creates an iterator over orb.
func NewIterator(orb orbit.Orbit, params Params) *Iterator {
	return &Iterator{orb: orb, params: params}
}

// Params returns the iterator's thresholds.
func (it *Iterator) Params() Params { return it.params }

// Step advances one pixel by exactly one iteration. The caller must have
// extended the orbit to the batch ceiling beforehand; Step never grows the
// orbit. Terminal pixels are left untouched.
func (it *Iterator) Step(p *Pixel) {
	if p.State != StatusActive {
		return
	}
	if it.params.Rescale {
		it.stepScaled(p)
		return
	}
	it.stepPlain(p)
}

func (it *Iterator) stepPlain(p *Pixel) {
	orb := it.orb
	ref := int(p.RefIndex)

	// The cursor has run off the frozen orbit tail: fold the reference in
	// and ride the orbit from the start.
	if ref+1 >= orb.Len() {
		z := orb.At(ref)
		p.DzRe += real(z)
		p.DzIm += imag(z)
		p.RefIndex = 0
		ref = 0
		it.snapshotCheckpoint(p)
	}

	z := orb.At(ref)
	zr, zi := real(z), imag(z)
	dzr, dzi := p.DzRe, p.DzIm

	// dz' = 2·Z·dz + dz² + dc
	ndzr := 2*(zr*dzr-zi*dzi) + (dzr*dzr - dzi*dzi) + p.DcRe
	ndzi := 2*(zr*dzi+zi*dzr) + 2*dzr*dzi + p.DcIm

	zn := orb.At(ref + 1)
	totr := real(zn) + ndzr
	toti := imag(zn) + ndzi

	p.Iter++
	tot2 := totr*totr + toti*toti
	if tot2 > it.params.EscapeRadius2 {
		p.DzRe, p.DzIm = ndzr, ndzi
		p.State = StatusEscaped
		return
	}

	// Compare against the checkpoint before any rebase bookkeeping: the
	// total is absolute, so the comparison stays valid on the iterations
	// where the cursor is about to reset.
	it.checkConvergence(p, totr, toti)
	if p.State != StatusActive {
		p.DzRe, p.DzIm = ndzr, ndzi
		return
	}

	if tot2 < 4*(ndzr*ndzr+ndzi*ndzi) {
		// |total| < 2|dz'|: the perturbation dominates the reference and
		// precision is about to drain away. Rebase to the orbit start with
		// the absolute position as the new perturbation.
		p.DzRe, p.DzIm = totr, toti
		p.RefIndex = 0
		it.snapshotCheckpoint(p)
	} else {
		p.DzRe, p.DzIm = ndzr, ndzi
		p.RefIndex = uint32(ref + 1)
	}

	if p.State == StatusActive && checkpointDue(p.Iter) {
		it.snapshotCheckpoint(p)
	}
}

// stepScaled is the extreme-depth variant: the stored dz is a mantissa and
// the true perturbation is dz·2^Scale. The recurrence becomes
//
//	s' = 2·Z·s + s²·2^σ + dc·2^(floor-σ)
//
// which keeps s representable long after the true dz has left the float64
// range in either direction.
func (it *Iterator) stepScaled(p *Pixel) {
	orb := it.orb
	ref := int(p.RefIndex)
	sigma := int(p.Scale)

	if ref+1 >= orb.Len() {
		z := orb.At(ref)
		p.DzRe = real(z) + math.Ldexp(p.DzRe, sigma)
		p.DzIm = imag(z) + math.Ldexp(p.DzIm, sigma)
		p.Scale = 0
		p.RefIndex = 0
		ref = 0
		it.rescale(p)
		sigma = int(p.Scale)
		it.snapshotCheckpoint(p)
	}

	z := orb.At(ref)
	zr, zi := real(z), imag(z)
	sr, si := p.DzRe, p.DzIm

	dcShift := int(p.ScaleFloor) - sigma
	nsr := 2*(zr*sr-zi*si) + math.Ldexp(sr*sr-si*si, sigma) + math.Ldexp(p.DcRe, dcShift)
	nsi := 2*(zr*si+zi*sr) + math.Ldexp(2*sr*si, sigma) + math.Ldexp(p.DcIm, dcShift)

	zn := orb.At(ref + 1)
	totr := real(zn) + math.Ldexp(nsr, sigma)
	toti := imag(zn) + math.Ldexp(nsi, sigma)

	p.Iter++
	tot2 := totr*totr + toti*toti
	if tot2 > it.params.EscapeRadius2 {
		p.DzRe, p.DzIm = nsr, nsi
		p.State = StatusEscaped
		return
	}

	it.checkConvergence(p, totr, toti)
	if p.State != StatusActive {
		p.DzRe, p.DzIm = nsr, nsi
		return
	}

	// ldexp of the squared magnitude underflows to zero exactly when the
	// true dz is so far below the reference that rebasing is pointless.
	if tot2 < math.Ldexp(4*(nsr*nsr+nsi*nsi), 2*sigma) {
		p.DzRe, p.DzIm = totr, toti
		p.Scale = 0
		p.RefIndex = 0
		it.rescale(p)
		it.snapshotCheckpoint(p)
	} else {
		p.DzRe, p.DzIm = nsr, nsi
		p.RefIndex = uint32(ref + 1)
		it.rescale(p)
	}

	if checkpointDue(p.Iter) {
		it.snapshotCheckpoint(p)
	}
}

// rescale renormalizes the stored dz mantissa into the safe band [0.5, 2)
// by an exact power-of-two shift, never dropping Scale below the pixel's
// floor so the dc term cannot underflow out of the recurrence.
func (it *Iterator) rescale(p *Pixel) {
	m := math.Max(math.Abs(p.DzRe), math.Abs(p.DzIm))
	if m == 0 {
		return
	}
	if m >= 0.5 && m < 2 {
		return
	}
	_, e := math.Frexp(m) // m = f·2^e with f in [0.5, 1)
	shift := e
	ns := int(p.Scale) + shift
	if ns < int(p.ScaleFloor) {
		ns = int(p.ScaleFloor)
		shift = ns - int(p.Scale)
	}
	if shift == 0 {
		return
	}
	p.DzRe = math.Ldexp(p.DzRe, -shift)
	p.DzIm = math.Ldexp(p.DzIm, -shift)
	p.Scale = int32(ns)
}

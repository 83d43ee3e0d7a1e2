package extfloat

// Oct is the eight-limb tier, ~124 decimal digits. It exists for
// magnifications where even quad-double cannot separate adjacent pixels;
// operations cost roughly four times a Quad operation.
type Oct [8]float64

var _ Scalar[Oct] = Oct{}

// OctFromFloat64 builds an Oct from a plain float.
func OctFromFloat64(v float64) Oct {
	var r Oct
	r[0] = v
	return r
}

// Add returns a + b.
func (a Oct) Add(b Oct) Oct {
	var r Oct
	addInto(r[:], a[:], b[:])
	return r
}

// Sub returns a - b.
func (a Oct) Sub(b Oct) Oct {
	var r Oct
	subInto(r[:], a[:], b[:])
	return r
}

// Mul returns a * b.
func (a Oct) Mul(b Oct) Oct {
	var r Oct
	mulInto(r[:], a[:], b[:])
	return r
}

// Square returns a * a.
func (a Oct) Square() Oct {
	var r Oct
	squareInto(r[:], a[:])
	return r
}

// Neg returns -a.
func (a Oct) Neg() Oct {
	var r Oct
	for i := range a {
		r[i] = -a[i]
	}
	return r
}

// MulPow2 returns a * 2^k.
func (a Oct) MulPow2(k int) Oct {
	var r Oct
	mulPow2Into(r[:], a[:], k)
	return r
}

// Cmp returns -1, 0 or +1 as a <=> b.
func (a Oct) Cmp(b Oct) int { return cmpLimbs(a[:], b[:]) }

// CmpAbs returns -1, 0 or +1 comparing magnitudes.
func (a Oct) CmpAbs(b Oct) int {
	aa, ab := a, b
	if aa[0] < 0 {
		aa = aa.Neg()
	}
	if ab[0] < 0 {
		ab = ab.Neg()
	}
	return aa.Cmp(ab)
}

// Float64 returns the lossy plain-float value.
func (a Oct) Float64() float64 { return sumLimbs(a[:]) }

// FromFloat64 builds an Oct from a plain float.
func (Oct) FromFloat64(v float64) Oct { return OctFromFloat64(v) }

// IsZero reports whether a is exactly zero.
func (a Oct) IsZero() bool { return a[0] == 0 }

// Limbs returns the limb slice, dominant first.
func (a Oct) Limbs() []float64 { return a[:] }

// FromLimbs rebuilds an Oct from a limb slice.
func (Oct) FromLimbs(ls []float64) Oct {
	var r Oct
	copy(r[:], ls)
	return r
}

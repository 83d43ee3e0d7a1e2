package extfloat

// Quad is the four-limb (quad-double) tier, ~62 decimal digits.
type Quad [4]float64

var _ Scalar[Quad] = Quad{}

// QuadFromFloat64 builds a Quad from a plain float.
func QuadFromFloat64(v float64) Quad { return Quad{v, 0, 0, 0} }

// Add returns a + b.
func (a Quad) Add(b Quad) Quad {
	var r Quad
	addInto(r[:], a[:], b[:])
	return r
}

// Sub returns a - b.
func (a Quad) Sub(b Quad) Quad {
	var r Quad
	subInto(r[:], a[:], b[:])
	return r
}

// Mul returns a * b.
func (a Quad) Mul(b Quad) Quad {
	var r Quad
	mulInto(r[:], a[:], b[:])
	return r
}

// Square returns a * a.
func (a Quad) Square() Quad {
	var r Quad
	squareInto(r[:], a[:])
	return r
}

// Neg returns -a.
func (a Quad) Neg() Quad { return Quad{-a[0], -a[1], -a[2], -a[3]} }

// MulPow2 returns a * 2^k.
func (a Quad) MulPow2(k int) Quad {
	var r Quad
	mulPow2Into(r[:], a[:], k)
	return r
}

// Cmp returns -1, 0 or +1 as a <=> b.
func (a Quad) Cmp(b Quad) int { return cmpLimbs(a[:], b[:]) }

// CmpAbs returns -1, 0 or +1 comparing magnitudes.
func (a Quad) CmpAbs(b Quad) int {
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
func (a Quad) Float64() float64 { return sumLimbs(a[:]) }

// FromFloat64 builds a Quad from a plain float.
func (Quad) FromFloat64(v float64) Quad { return QuadFromFloat64(v) }

// IsZero reports whether a is exactly zero.
func (a Quad) IsZero() bool { return a[0] == 0 }

// Limbs returns the limb slice, dominant first.
func (a Quad) Limbs() []float64 { return a[:] }

// FromLimbs rebuilds a Quad from a limb slice.
func (Quad) FromLimbs(ls []float64) Quad {
	var r Quad
	copy(r[:], ls)
	return r
}

package extfloat

// Double is the two-limb (double-double) tier, ~31 decimal digits.
// Limb 0 carries the dominant part; limb 1 is smaller than half a
// unit-in-last-place of limb 0.
type Double [2]float64

var _ Scalar[Double] = Double{}

// DoubleFromFloat64 builds a Double from a plain float.
func DoubleFromFloat64(v float64) Double { return Double{v, 0} }

// Add returns a + b.
func (a Double) Add(b Double) Double {
	var r Double
	addInto(r[:], a[:], b[:])
	return r
}

// Sub returns a - b.
func (a Double) Sub(b Double) Double {
	var r Double
	subInto(r[:], a[:], b[:])
	return r
}

// Mul returns a * b.
func (a Double) Mul(b Double) Double {
	var r Double
	mulInto(r[:], a[:], b[:])
	return r
}

// Square returns a * a.
func (a Double) Square() Double {
	var r Double
	squareInto(r[:], a[:])
	return r
}

// Neg returns -a.
func (a Double) Neg() Double { return Double{-a[0], -a[1]} }

// MulPow2 returns a * 2^k.
func (a Double) MulPow2(k int) Double {
	var r Double
	mulPow2Into(r[:], a[:], k)
	return r
}

// Cmp returns -1, 0 or +1 as a <=> b.
func (a Double) Cmp(b Double) int { return cmpLimbs(a[:], b[:]) }

// CmpAbs returns -1, 0 or +1 comparing magnitudes.
func (a Double) CmpAbs(b Double) int {
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
func (a Double) Float64() float64 { return sumLimbs(a[:]) }

// FromFloat64 builds a Double from a plain float.
func (Double) FromFloat64(v float64) Double { return DoubleFromFloat64(v) }

// IsZero reports whether a is exactly zero.
func (a Double) IsZero() bool { return a[0] == 0 }

// Limbs returns the limb slice, dominant first.
func (a Double) Limbs() []float64 { return a[:] }

// FromLimbs rebuilds a Double from a limb slice.
func (Double) FromLimbs(ls []float64) Double {
	var r Double
	copy(r[:], ls)
	return r
}

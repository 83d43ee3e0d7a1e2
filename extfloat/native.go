package extfloat

import "math"

// Native is the plain float64 tier. It satisfies Scalar so shallow views
// run the same generic orbit code as the multi-limb tiers.
type Native float64

var _ Scalar[Native] = Native(0)

// Add returns a + b.
func (a Native) Add(b Native) Native { return a + b }

// Sub returns a - b.
func (a Native) Sub(b Native) Native { return a - b }

// Mul returns a * b.
func (a Native) Mul(b Native) Native { return a * b }

// Square returns a * a.
func (a Native) Square() Native { return a * a }

// Neg returns -a.
func (a Native) Neg() Native { return -a }

// MulPow2 returns a * 2^k.
func (a Native) MulPow2(k int) Native { return Native(math.Ldexp(float64(a), k)) }

// Cmp returns -1, 0 or +1 as a <=> b.
func (a Native) Cmp(b Native) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// CmpAbs returns -1, 0 or +1 comparing |a| and |b|.
func (a Native) CmpAbs(b Native) int {
	aa, ab := math.Abs(float64(a)), math.Abs(float64(b))
	switch {
	case aa < ab:
		return -1
	case aa > ab:
		return 1
	default:
		return 0
	}
}

// Float64 returns the value as a plain float64.
func (a Native) Float64() float64 { return float64(a) }

// FromFloat64 builds a Native from a plain float.
func (Native) FromFloat64(v float64) Native { return Native(v) }

// IsZero reports whether a is exactly zero.
func (a Native) IsZero() bool { return a == 0 }

// Limbs returns the limb representation (a single float64).
func (a Native) Limbs() []float64 { return []float64{float64(a)} }

// FromLimbs rebuilds a Native from a limb slice.
func (Native) FromLimbs(ls []float64) Native {
	if len(ls) == 0 {
		return 0
	}
	return Native(ls[0])
}

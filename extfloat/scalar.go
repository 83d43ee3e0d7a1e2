package extfloat

import (
	"errors"
	"fmt"
	"math"
)

// Scalar is the capability set the orbit and iteration code is generic
// over. Every tier (Native, Double, Quad, Oct) satisfies Scalar with itself
// as the type parameter. All operations produce fresh values; receivers are
// never mutated.
type Scalar[T any] interface {
	// Add returns the sum, exact to the tier's digit budget.
	Add(T) T
	// Sub returns the difference, exact to the tier's digit budget.
	Sub(T) T
	// Mul returns the product, exact to the tier's digit budget.
	Mul(T) T
	// Square returns the product with itself, cheaper than Mul by symmetry.
	Square() T
	// Neg returns the negation (exact).
	Neg() T
	// MulPow2 returns the value scaled by 2^k (exact).
	MulPow2(k int) T
	// Cmp returns -1, 0 or +1 comparing signed values.
	Cmp(T) int
	// CmpAbs returns -1, 0 or +1 comparing magnitudes.
	CmpAbs(T) int
	// Float64 returns the lossy plain-float value (sum of limbs).
	Float64() float64
	// FromFloat64 builds a tier value from a plain float. The receiver is
	// only used for type dispatch; call it on the zero value.
	FromFloat64(float64) T
	// Limbs returns the limb representation, dominant limb first.
	Limbs() []float64
	// FromLimbs rebuilds a value from a limb slice previously obtained from
	// Limbs. Like FromFloat64 the receiver is only used for dispatch.
	FromLimbs([]float64) T
	// IsZero reports whether the value is exactly zero.
	IsZero() bool
}

// Tier identifies one of the supported precision tiers.
type Tier uint32

const (
	// TierNative is plain float64, ~16 decimal digits.
	TierNative Tier = iota
	// TierDouble is double-double, ~31 decimal digits.
	TierDouble
	// TierQuad is quad-double, ~62 decimal digits.
	TierQuad
	// TierOct is eight limbs, ~124 decimal digits.
	TierOct
)

// String returns the tier name.
func (t Tier) String() string {
	switch t {
	case TierNative:
		return "native"
	case TierDouble:
		return "double"
	case TierQuad:
		return "quad"
	case TierOct:
		return "oct"
	default:
		return fmt.Sprintf("Tier(%d)", uint32(t))
	}
}

// Limbs returns the number of float64 limbs in the tier's representation.
func (t Tier) Limbs() int {
	switch t {
	case TierNative:
		return 1
	case TierDouble:
		return 2
	case TierQuad:
		return 4
	case TierOct:
		return 8
	default:
		return 0
	}
}

// Digits returns the tier's approximate usable decimal digits.
func (t Tier) Digits() int {
	switch t {
	case TierNative:
		return 16
	case TierDouble:
		return 31
	case TierQuad:
		return 62
	case TierOct:
		return 124
	default:
		return 0
	}
}

// ErrTierInsufficient reports that a precision tier cannot resolve
// adjacent-pixel coordinates at the requested magnification. The caller
// should retry with a higher tier.
var ErrTierInsufficient = errors.New("extfloat: tier cannot resolve pixel spacing at this magnification")

// TierForPixelSize selects the lowest tier able to resolve coordinates
// separated by pixelSize*2^exp2 around coordinates of order one, with
// roughly ten guard digits. exp2 extends the reach below the float64
// subnormal range.
func TierForPixelSize(pixelSize float64, exp2 int) (Tier, error) {
	if pixelSize <= 0 || math.IsNaN(pixelSize) || math.IsInf(pixelSize, 0) {
		return TierNative, fmt.Errorf("extfloat: invalid pixel size %v", pixelSize)
	}
	// Decimal digits needed to distinguish neighboring pixels.
	digits := -(math.Log10(pixelSize) + float64(exp2)*math.Ln2/math.Ln10) + 10
	for _, t := range []Tier{TierNative, TierDouble, TierQuad, TierOct} {
		if float64(t.Digits()) >= digits {
			return t, nil
		}
	}
	return TierOct, ErrTierInsufficient
}

// CheckTier verifies that tier t can resolve pixelSize*2^exp2. It returns
// ErrTierInsufficient when a deeper tier (or none at all) is required.
func CheckTier(t Tier, pixelSize float64, exp2 int) error {
	need, err := TierForPixelSize(pixelSize, exp2)
	if err != nil {
		return err
	}
	if need > t {
		return fmt.Errorf("%w: have %s, need %s", ErrTierInsufficient, t, need)
	}
	return nil
}

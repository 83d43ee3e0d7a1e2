package extfloat

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
)

// ErrSyntax reports a malformed decimal string.
var ErrSyntax = errors.New("extfloat: invalid decimal syntax")

// Parse converts a decimal string ("-1.2345e-67") to a tier value, accurate
// to the tier's digit budget. Deep-zoom center coordinates carry far more
// digits than a float64 literal can hold, so this is the way views at high
// magnification are constructed.
func Parse[T Scalar[T]](s string) (T, error) {
	var zero T
	if s == "" {
		return zero, ErrSyntax
	}
	i := 0
	neg := false
	switch s[0] {
	case '+':
		i++
	case '-':
		neg = true
		i++
	}

	ten := zero.FromFloat64(10)
	mant := zero
	exp := 0
	seenDigit := false
	seenPoint := false

scan:
	for ; i < len(s); i++ {
		switch c := s[i]; {
		case c >= '0' && c <= '9':
			mant = mant.Mul(ten).Add(zero.FromFloat64(float64(c - '0')))
			if seenPoint {
				exp--
			}
			seenDigit = true
		case c == '.':
			if seenPoint {
				return zero, fmt.Errorf("%w: %q", ErrSyntax, s)
			}
			seenPoint = true
		case c == 'e' || c == 'E':
			e, err := strconv.Atoi(s[i+1:])
			if err != nil {
				return zero, fmt.Errorf("%w: %q", ErrSyntax, s)
			}
			exp += e
			break scan
		default:
			return zero, fmt.Errorf("%w: %q", ErrSyntax, s)
		}
	}
	if !seenDigit {
		return zero, fmt.Errorf("%w: %q", ErrSyntax, s)
	}

	switch {
	case exp > 0:
		mant = mant.Mul(powTen[T](exp))
	case exp < 0:
		mant = mant.Mul(recip(powTen[T](-exp)))
	}
	if neg {
		mant = mant.Neg()
	}
	return mant, nil
}

// ParseComplex parses the real and imaginary coordinates of a point.
func ParseComplex[T Scalar[T]](re, im string) (Complex[T], error) {
	r, err := Parse[T](re)
	if err != nil {
		return Complex[T]{}, fmt.Errorf("real part: %w", err)
	}
	i, err := Parse[T](im)
	if err != nil {
		return Complex[T]{}, fmt.Errorf("imaginary part: %w", err)
	}
	return Complex[T]{Re: r, Im: i}, nil
}

// powTen returns 10^n for n >= 0 by binary exponentiation.
func powTen[T Scalar[T]](n int) T {
	var zero T
	result := zero.FromFloat64(1)
	base := zero.FromFloat64(10)
	for n > 0 {
		if n&1 == 1 {
			result = result.Mul(base)
		}
		base = base.Square()
		n >>= 1
	}
	return result
}

// recip approximates 1/v by Newton iteration r <- r*(2 - v*r). Each step
// doubles the number of correct digits; five steps from a float64 seed
// cover every tier's budget.
func recip[T Scalar[T]](v T) T {
	var zero T
	two := zero.FromFloat64(2)
	r := zero.FromFloat64(1 / v.Float64())
	for range 5 {
		r = r.Mul(two.Sub(v.Mul(r)))
	}
	return r
}

// formatLimbs renders an expansion in decimal via math/big, with enough
// binary precision to make every tier digit visible.
func formatLimbs(limbs []float64, digits int) string {
	prec := uint(len(limbs)*53 + 16)
	acc := new(big.Float).SetPrec(prec)
	for _, l := range limbs {
		acc.Add(acc, new(big.Float).SetPrec(prec).SetFloat64(l))
	}
	return acc.Text('g', digits)
}

// String renders the value with the tier's full digit budget.
func (a Double) String() string { return formatLimbs(a[:], TierDouble.Digits()) }

// String renders the value with the tier's full digit budget.
func (a Quad) String() string { return formatLimbs(a[:], TierQuad.Digits()) }

// String renders the value with the tier's full digit budget.
func (a Oct) String() string { return formatLimbs(a[:], TierOct.Digits()) }

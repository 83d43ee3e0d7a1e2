package extfloat

// Error-free transforms. Each function returns an exact decomposition of a
// floating-point operation: the rounded result plus the rounding error,
// such that the mathematical identity holds exactly in real arithmetic.

// twoSum returns (s, e) with s = fl(a+b) and a+b = s+e exactly.
// Works for any ordering of a and b (Knuth).
func twoSum(a, b float64) (s, e float64) {
	s = a + b
	bb := s - a
	e = (a - (s - bb)) + (b - bb)
	return s, e
}

// quickTwoSum returns (s, e) with s = fl(a+b) and a+b = s+e exactly.
// Requires |a| >= |b| or a == 0 (Dekker's fast path).
func quickTwoSum(a, b float64) (s, e float64) {
	s = a + b
	e = b - (s - a)
	return s, e
}

// splitter is 2^27+1, used to split a 53-bit mantissa into two 26-bit halves.
const splitter = 134217729.0

// splitThreshold guards against overflow in split for |a| >= 2^996.
const splitThreshold = 6.696928794914171e+299 // 2^996

// split returns (hi, lo) with a = hi+lo exactly and both halves
// representable in 26 bits of mantissa (Dekker/Veltkamp).
func split(a float64) (hi, lo float64) {
	if a > splitThreshold || a < -splitThreshold {
		a *= 3.7252902984619140625e-09 // 2^-28
		t := splitter * a
		hi = t - (t - a)
		lo = a - hi
		hi *= 268435456.0 // 2^28
		lo *= 268435456.0
		return hi, lo
	}
	t := splitter * a
	hi = t - (t - a)
	lo = a - hi
	return hi, lo
}

// twoProd returns (p, e) with p = fl(a*b) and a*b = p+e exactly.
// Uses high/low splitting so it does not depend on hardware FMA.
func twoProd(a, b float64) (p, e float64) {
	p = a * b
	ahi, alo := split(a)
	bhi, blo := split(b)
	e = ((ahi*bhi - p) + ahi*blo + alo*bhi) + alo*blo
	return p, e
}

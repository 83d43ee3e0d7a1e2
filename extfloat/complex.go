package extfloat

// Complex composes two scalars of the same tier. It provides only the
// operations the reference orbit needs; it is not a general complex-number
// library.
type Complex[T Scalar[T]] struct {
	Re, Im T
}

// NewComplex builds a Complex from two scalars.
func NewComplex[T Scalar[T]](re, im T) Complex[T] {
	return Complex[T]{Re: re, Im: im}
}

// ComplexFromFloat64 builds a Complex from plain floats.
func ComplexFromFloat64[T Scalar[T]](re, im float64) Complex[T] {
	var zero T
	return Complex[T]{Re: zero.FromFloat64(re), Im: zero.FromFloat64(im)}
}

// Add returns z + w.
func (z Complex[T]) Add(w Complex[T]) Complex[T] {
	return Complex[T]{Re: z.Re.Add(w.Re), Im: z.Im.Add(w.Im)}
}

// Sub returns z - w.
func (z Complex[T]) Sub(w Complex[T]) Complex[T] {
	return Complex[T]{Re: z.Re.Sub(w.Re), Im: z.Im.Sub(w.Im)}
}

// Mul returns z * w using the 3-multiply identity: with z = a+bi and
// w = c+di, real = ac - bd and imag = (a+b)(c+d) - ac - bd. One multiply is
// traded for three additions without losing tier precision.
func (z Complex[T]) Mul(w Complex[T]) Complex[T] {
	ac := z.Re.Mul(w.Re)
	bd := z.Im.Mul(w.Im)
	cross := z.Re.Add(z.Im).Mul(w.Re.Add(w.Im))
	return Complex[T]{
		Re: ac.Sub(bd),
		Im: cross.Sub(ac).Sub(bd),
	}
}

// Square returns z * z: real = a² - b², imag = 2ab.
func (z Complex[T]) Square() Complex[T] {
	return Complex[T]{
		Re: z.Re.Square().Sub(z.Im.Square()),
		Im: z.Re.Mul(z.Im).MulPow2(1),
	}
}

// AbsSquared returns |z|² = a² + b².
func (z Complex[T]) AbsSquared() T {
	return z.Re.Square().Add(z.Im.Square())
}

// Complex128 returns the lossy plain-complex value.
func (z Complex[T]) Complex128() complex128 {
	return complex(z.Re.Float64(), z.Im.Float64())
}

// IsZero reports whether both parts are exactly zero.
func (z Complex[T]) IsZero() bool {
	return z.Re.IsZero() && z.Im.IsZero()
}

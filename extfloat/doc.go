// Package extfloat implements extended-precision floating-point arithmetic
// built from error-free transforms.
//
// # Overview
//
// A value is an ordered sequence of float64 limbs of non-increasing
// magnitude whose sum represents the number. Three multi-limb tiers are
// provided on top of plain float64:
//
//   - Double (2 limbs, ~31 decimal digits)
//   - Quad (4 limbs, ~62 decimal digits)
//   - Oct (8 limbs, ~124 decimal digits)
//
// Every operation produces a fresh, renormalized value: each trailing limb
// is smaller than half a unit-in-last-place of its predecessor. Arithmetic
// is exact up to the tier's digit budget; there is no rounding-mode or
// environment dependence beyond IEEE-754 double arithmetic.
//
// # Scalar and Complex
//
// All tiers satisfy the generic Scalar constraint, so code that iterates a
// high-precision orbit can be written once and instantiated per tier.
// Complex composes two scalars and multiplies with the 3-multiply identity.
//
// # Deep coordinates
//
// Coordinates at extreme magnification cannot be written as float64
// literals. Use Parse to build a tier value from a decimal string:
//
//	re, err := extfloat.Parse[extfloat.Quad]("-0.7436438870371587")
//
// # References
//
// The underlying building blocks are the classic error-free transforms:
// Knuth's two-sum, Dekker's split and two-product, and expansion
// renormalization in the style of Priest and CAMPARY.
package extfloat

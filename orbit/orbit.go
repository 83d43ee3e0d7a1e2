// Package orbit maintains the single high-precision reference orbit that
// backs every pixel of a view.
//
// The orbit is extended lazily: callers ask for a target length before a
// batch runs, and the orbit appends Mandelbrot steps at the view's precision
// tier until the target is reached or the orbit escapes. Once escaped the
// orbit is frozen; pixels that run off its end rebase to the start instead
// of reading past it.
//
// Concurrency: the orbit is a single-writer/many-reader structure. Extend
// must complete before any reader touches the new indices; the compute board
// provides that barrier by extending once per batch, so there is no per-read
// locking here.
package orbit

import (
	"errors"

	"github.com/gogpu/deepzoom/extfloat"
)

// ErrTruncated reports a malformed serialized orbit.
var ErrTruncated = errors.New("orbit: truncated or corrupt serialized data")

// Orbit is the read contract pixel iteration consumes. Values are served at
// plain float64 precision: the perturbation recurrence only ever needs the
// reference at the pixel tier, the extended precision lives in the
// extension arithmetic.
//
// Index 0 is the orbit's implicit starting point z₀ = 0. That convention is
// what makes rebasing work: a pixel whose cursor is reset to 0 carries its
// absolute position in dz, and At(0) contributes nothing.
type Orbit interface {
	// At returns the orbit value at index i, rounded to plain precision.
	At(i int) complex128
	// Len returns the number of readable indices.
	Len() int
	// Extend grows the orbit so Len() >= target, stopping early if the
	// orbit escapes. Smaller targets are no-ops; extension past an escape
	// is satisfied from the frozen tail.
	Extend(target int)
	// Escaped reports whether the orbit has left the escape radius.
	Escaped() bool
	// EscapeIndex returns the index of the escaping value, or -1.
	EscapeIndex() int
	// Tier returns the precision tier the orbit is computed at.
	Tier() extfloat.Tier
	// MarshalBinary serializes the orbit including its high-precision
	// cursor, so extension resumes bit-for-bit after a round trip.
	MarshalBinary() ([]byte, error)
}

// Reference is the generic orbit implementation, instantiated per tier.
type Reference[T extfloat.Scalar[T]] struct {
	center extfloat.Complex[T]

	// cursor is the full-precision value of the last appended point. Only
	// the cursor is needed to take the next step, so the stored points can
	// stay at plain precision.
	cursor extfloat.Complex[T]

	// points[0] is the implicit z₀ = 0; points[i] is zᵢ at plain precision.
	points []complex128

	escaped     bool
	escapeIndex int

	four T
}

var _ Orbit = (*Reference[extfloat.Double])(nil)

// New creates an orbit for the given center. The orbit starts with the
// single implicit zero point.
func New[T extfloat.Scalar[T]](center extfloat.Complex[T]) *Reference[T] {
	var zero T
	return &Reference[T]{
		center:      center,
		points:      []complex128{0},
		escapeIndex: -1,
		four:        zero.FromFloat64(4),
	}
}

// Center returns the orbit's center c.
func (r *Reference[T]) Center() extfloat.Complex[T] { return r.center }

// At returns the orbit value at index i at plain precision.
func (r *Reference[T]) At(i int) complex128 { return r.points[i] }

// Len returns the number of readable indices.
func (r *Reference[T]) Len() int { return len(r.points) }

// Escaped reports whether the orbit has escaped.
func (r *Reference[T]) Escaped() bool { return r.escaped }

// EscapeIndex returns the index of the escaping value, or -1 if the orbit
// has not escaped.
func (r *Reference[T]) EscapeIndex() int { return r.escapeIndex }

// Tier returns the orbit's precision tier.
func (r *Reference[T]) Tier() extfloat.Tier {
	var zero T
	switch len(zero.Limbs()) {
	case 1:
		return extfloat.TierNative
	case 2:
		return extfloat.TierDouble
	case 4:
		return extfloat.TierQuad
	default:
		return extfloat.TierOct
	}
}

// Extend appends z ← z² + c until Len() >= target or the orbit escapes.
// The escape comparison runs in extended precision; the value is only
// rounded to plain precision for storage.
func (r *Reference[T]) Extend(target int) {
	for len(r.points) < target && !r.escaped {
		r.cursor = r.cursor.Square().Add(r.center)
		r.points = append(r.points, r.cursor.Complex128())
		if r.cursor.AbsSquared().Cmp(r.four) > 0 {
			r.escaped = true
			r.escapeIndex = len(r.points) - 1
		}
	}
}

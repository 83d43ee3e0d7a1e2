package orbit

import (
	"math/cmplx"
	"testing"

	"github.com/gogpu/deepzoom/extfloat"
)

func mustComplex[T extfloat.Scalar[T]](t *testing.T, re, im string) extfloat.Complex[T] {
	t.Helper()
	z, err := extfloat.ParseComplex[T](re, im)
	if err != nil {
		t.Fatalf("parse center: %v", err)
	}
	return z
}

func TestExtendStepInvariant(t *testing.T) {
	// Every stored point must be exactly one Mandelbrot step from its
	// predecessor (checked at plain precision against the plain recurrence).
	c := mustComplex[extfloat.Double](t, "-0.5", "0.25")
	r := New(c)
	r.Extend(50)

	cc := c.Complex128()
	for i := 0; i+1 < r.Len(); i++ {
		want := r.At(i)*r.At(i) + cc
		got := r.At(i + 1)
		if cmplx.Abs(got-want) > 1e-12*(1+cmplx.Abs(want)) {
			t.Fatalf("orbit[%d+1] = %v, want one step from orbit[%d] = %v", i, got, i, want)
		}
	}
	if r.At(0) != 0 {
		t.Fatalf("At(0) = %v, want 0", r.At(0))
	}
	if r.At(1) != cc {
		t.Fatalf("At(1) = %v, want center %v", r.At(1), cc)
	}
}

func TestExtendIdempotent(t *testing.T) {
	c := mustComplex[extfloat.Double](t, "-0.5", "0")
	r := New(c)
	r.Extend(100)
	if got := r.Len(); got != 100 {
		t.Fatalf("Len = %d, want 100", got)
	}
	before := make([]complex128, r.Len())
	for i := range before {
		before[i] = r.At(i)
	}

	// Smaller target is a no-op.
	r.Extend(10)
	if got := r.Len(); got != 100 {
		t.Fatalf("Len after smaller target = %d, want 100", got)
	}
	// Re-extending must not change existing values.
	r.Extend(200)
	for i, want := range before {
		if r.At(i) != want {
			t.Fatalf("At(%d) changed after extension: %v != %v", i, r.At(i), want)
		}
	}
}

func TestEscapeFreezesOrbit(t *testing.T) {
	// c = 1 escapes quickly: 0, 1, 2, 5, 26...
	c := mustComplex[extfloat.Double](t, "1", "0")
	r := New(c)
	r.Extend(1000)

	if !r.Escaped() {
		t.Fatal("orbit at c=1 must escape")
	}
	if r.EscapeIndex() != r.Len()-1 {
		t.Fatalf("escape index %d, want last index %d", r.EscapeIndex(), r.Len()-1)
	}
	esc := r.At(r.EscapeIndex())
	if cmplx.Abs(esc)*cmplx.Abs(esc) <= 4 {
		t.Fatalf("escaping value %v inside radius", esc)
	}

	frozenLen, frozenIdx := r.Len(), r.EscapeIndex()
	r.Extend(10000)
	if r.Len() != frozenLen || r.EscapeIndex() != frozenIdx {
		t.Fatalf("escaped orbit mutated: len %d→%d, idx %d→%d", frozenLen, r.Len(), frozenIdx, r.EscapeIndex())
	}
}

func TestDeepSeedEscape(t *testing.T) {
	// Orbit seeded near c=-0.75+0.1i at quad precision: must escape well
	// before iteration 10000 and keep a stable escape index across repeated
	// Extend calls.
	c := mustComplex[extfloat.Quad](t, "-0.75", "0.1")
	r := New(c)

	var indices []int
	for target := 100; target <= 10000; target *= 2 {
		r.Extend(target)
		if r.Escaped() {
			indices = append(indices, r.EscapeIndex())
		}
	}
	if !r.Escaped() {
		t.Fatal("orbit must escape before iteration 10000")
	}
	for _, idx := range indices {
		if idx != indices[0] {
			t.Fatalf("escape index drifted across extends: %v", indices)
		}
	}
}

func TestInteriorOrbitDoesNotEscape(t *testing.T) {
	c := mustComplex[extfloat.Double](t, "-0.5", "0")
	r := New(c)
	r.Extend(5000)
	if r.Escaped() {
		t.Fatal("c=-0.5 is interior, orbit must not escape")
	}
	if r.EscapeIndex() != -1 {
		t.Fatalf("EscapeIndex = %d, want -1", r.EscapeIndex())
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		name string
		orb  Orbit
	}{
		{"double interior", func() Orbit {
			r := New(mustComplex[extfloat.Double](t, "-0.5", "0.1"))
			r.Extend(300)
			return r
		}()},
		{"quad escaped", func() Orbit {
			r := New(mustComplex[extfloat.Quad](t, "1", "1"))
			r.Extend(5000)
			return r
		}()},
		{"oct fresh", New(mustComplex[extfloat.Oct](t, "-1.75", "0"))},
	} {
		t.Run(tc.name, func(t *testing.T) {
			blob, err := tc.orb.MarshalBinary()
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			back, err := Unmarshal(blob)
			if err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if back.Tier() != tc.orb.Tier() {
				t.Fatalf("tier %s, want %s", back.Tier(), tc.orb.Tier())
			}
			if back.Len() != tc.orb.Len() || back.Escaped() != tc.orb.Escaped() || back.EscapeIndex() != tc.orb.EscapeIndex() {
				t.Fatal("orbit metadata changed on round trip")
			}
			for i := 0; i < back.Len(); i++ {
				if back.At(i) != tc.orb.At(i) {
					t.Fatalf("point %d changed: %v != %v", i, back.At(i), tc.orb.At(i))
				}
			}

			// Extension must resume identically from the restored cursor.
			if !tc.orb.Escaped() {
				tc.orb.Extend(tc.orb.Len() + 50)
				back.Extend(back.Len() + 50)
				for i := 0; i < tc.orb.Len(); i++ {
					if back.At(i) != tc.orb.At(i) {
						t.Fatalf("resumed point %d differs: %v != %v", i, back.At(i), tc.orb.At(i))
					}
				}
			}
		})
	}
}

func TestUnmarshalErrors(t *testing.T) {
	if _, err := Unmarshal(nil); err == nil {
		t.Fatal("expected error for empty blob")
	}
	r := New(mustComplex[extfloat.Double](t, "0.1", "0.1"))
	r.Extend(20)
	blob, _ := r.MarshalBinary()
	if _, err := Unmarshal(blob[:len(blob)/2]); err == nil {
		t.Fatal("expected error for truncated blob")
	}
	blob[0] = 0xFF // bogus tier
	if _, err := Unmarshal(blob); err == nil {
		t.Fatal("expected error for unknown tier")
	}
}

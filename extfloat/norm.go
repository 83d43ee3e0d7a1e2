package extfloat

import "math"

// Expansion engine shared by all multi-limb tiers. A raw expansion is an
// unevaluated sum of float64 terms in roughly decreasing magnitude; the
// functions below combine raw terms and collapse them back to a fixed limb
// count without losing the exact sum until the final truncation.

// distill rebuilds x in place into a nonoverlapping expansion in
// decreasing magnitude order. Each term is cascaded through the already
// conditioned prefix with exact two-sums, so the prefix stays
// nonoverlapping after every insertion and the total is preserved bit for
// bit regardless of the input order. Quadratic in the term count, which
// is fixed and small per tier.
func distill(x []float64) {
	for k := 1; k < len(x); k++ {
		q := x[k]
		for i := k - 1; i >= 0; i-- {
			hi, lo := twoSum(x[i], q)
			x[i+1] = lo
			q = hi
		}
		x[0] = q
	}
}

// vecSumErrBranch compresses a conditioned expansion into out, dropping only
// mass beyond the last output limb. Zero residues are skipped so the output
// limbs are non-overlapping.
func vecSumErrBranch(e []float64, out []float64) {
	j := 0
	eps := e[0]
	for i := 0; i < len(e)-1; i++ {
		r, t := twoSum(eps, e[i+1])
		if t != 0 {
			out[j] = r
			j++
			if j == len(out) {
				return
			}
			eps = t
		} else {
			eps = r
		}
	}
	if j < len(out) {
		out[j] = eps
		j++
	}
	for ; j < len(out); j++ {
		out[j] = 0
	}
}

// renormalize collapses raw terms into len(out) canonical limbs, each
// trailing limb at most half an ulp of its predecessor. Distillation
// conditions the expansion fully before the final compression; an
// unordered product term list cannot be conditioned by a fixed number of
// cascade passes alone, so every term is folded in individually.
func renormalize(raw []float64, out []float64) {
	distill(raw)
	vecSumErrBranch(raw, out)
}

// mergeByMagnitude merges two magnitude-sorted limb slices into dst,
// largest first. dst must have len(a)+len(b) capacity.
func mergeByMagnitude(dst, a, b []float64) []float64 {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if math.Abs(a[i]) >= math.Abs(b[j]) {
			dst = append(dst, a[i])
			i++
		} else {
			dst = append(dst, b[j])
			j++
		}
	}
	dst = append(dst, a[i:]...)
	dst = append(dst, b[j:]...)
	return dst
}

// addInto computes out = a + b.
func addInto(out, a, b []float64) {
	var buf [16]float64
	raw := mergeByMagnitude(buf[:0], a, b)
	renormalize(raw, out)
}

// subInto computes out = a - b.
func subInto(out, a, b []float64) {
	var nb [8]float64
	for i := range b {
		nb[i] = -b[i]
	}
	addInto(out, a, nb[:len(b)])
}

// mulInto computes out = a * b. Cross-terms are retained through the tier's
// full digit budget: for every product order below the limb count both the
// rounded product and its error-free residue are accumulated, and the first
// truncated order contributes its plain products. Naive limb-wise
// multiply-and-truncate is not acceptable here.
func mulInto(out, a, b []float64) {
	n := len(out)
	var buf [96]float64
	terms := buf[:0]
	for o := 0; o < n; o++ {
		for i := 0; i <= o; i++ {
			j := o - i
			if i >= len(a) || j >= len(b) {
				continue
			}
			p, e := twoProd(a[i], b[j])
			terms = append(terms, p, e)
		}
	}
	// First truncated order: rounded products only.
	var tail float64
	for i := 0; i < len(a); i++ {
		j := n - i
		if j >= 0 && j < len(b) {
			tail += a[i] * b[j]
		}
	}
	terms = append(terms, tail)
	renormalize(terms, out)
}

// squareInto computes out = a * a, halving the product count by symmetry.
// Doubling an error-free product scales both halves by an exact power of
// two, so no precision is lost.
func squareInto(out, a []float64) {
	n := len(out)
	var buf [96]float64
	terms := buf[:0]
	for o := 0; o < n; o++ {
		for i := 0; 2*i <= o; i++ {
			j := o - i
			if i >= len(a) || j >= len(a) {
				continue
			}
			p, e := twoProd(a[i], a[j])
			if i != j {
				p *= 2
				e *= 2
			}
			terms = append(terms, p, e)
		}
	}
	var tail float64
	for i := 0; 2*i <= n; i++ {
		j := n - i
		if j < len(a) && i < len(a) {
			p := a[i] * a[j]
			if i != j {
				p *= 2
			}
			tail += p
		}
	}
	terms = append(terms, tail)
	renormalize(terms, out)
}

// mulPow2Into scales by 2^k, which is exact per limb and preserves the
// renormalization invariant.
func mulPow2Into(out, a []float64, k int) {
	for i := range a {
		out[i] = math.Ldexp(a[i], k)
	}
}

// cmpLimbs returns -1, 0 or +1 as a <=> b.
func cmpLimbs(a, b []float64) int {
	var diff [8]float64
	subInto(diff[:len(a)], a, b)
	switch {
	case diff[0] > 0:
		return 1
	case diff[0] < 0:
		return -1
	default:
		return 0
	}
}

// sumLimbs returns the lossy float64 value of an expansion, accumulating
// from the smallest limb up so low-order mass is not discarded early.
func sumLimbs(a []float64) float64 {
	s := 0.0
	for i := len(a) - 1; i >= 0; i-- {
		s += a[i]
	}
	return s
}

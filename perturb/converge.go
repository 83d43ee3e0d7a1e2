package perturb

import "math"

// Periodicity detection. Interior pixels never escape; instead their totals
// settle into a cycle. At a geometrically decaying schedule of iterations a
// checkpoint captures (dz, refIndex), and every iteration in between
// compares the current total against the checkpoint's total. A loose match
// arms period detection; a later tight match converges the pixel with the
// period measured at that tight match. On every
// rebase the checkpoint is recomputed from the post-rebase dz — comparing
// against a stale absolute position at plain precision is exactly how false
// convergence creeps back in.

// checkpointDue reports whether a checkpoint should be taken after the
// given iteration. Powers of two give O(log n) checkpoints over n
// iterations with the required checkpoint at iteration 1.
func checkpointDue(iter uint32) bool {
	return iter&(iter-1) == 0
}

// snapshotCheckpoint captures the pixel's current perturbation and orbit
// cursor. The dz is stored at absolute scale so the checkpoint stays
// comparable across later rescales.
func (it *Iterator) snapshotCheckpoint(p *Pixel) {
	p.CpDzRe = math.Ldexp(p.DzRe, int(p.Scale))
	p.CpDzIm = math.Ldexp(p.DzIm, int(p.Scale))
	p.CpRefIndex = p.RefIndex
	p.CpIter = p.Iter
}

// checkConvergence compares the current total against the checkpoint's
// total, arming the period on a loose match and converging on a tight one.
func (it *Iterator) checkConvergence(p *Pixel, totr, toti float64) {
	cpZ := it.orb.At(int(p.CpRefIndex))
	cr := real(cpZ) + p.CpDzRe
	ci := imag(cpZ) + p.CpDzIm

	d := cycleDistance(totr, toti, cr, ci)
	scale := 1 + math.Hypot(cr, ci)

	if p.Period == 0 {
		if d < it.params.Eps2*scale && p.Iter > p.CpIter {
			p.Period = p.Iter - p.CpIter
		}
		return
	}
	if d < it.params.Eps*scale {
		// The confirmed period is the gap at the tight match, not the armed
		// one. The first tight trip after a fresh checkpoint lands exactly
		// one true period past it, whereas the loose trip can land on a
		// multiple when an attractor is approached with alternating sign.
		p.Period = p.Iter - p.CpIter
		p.State = StatusConverged
	}
}

// cycleDistance measures how close two totals are. Near the origin a
// component difference is fine, but once |z| is not small, subtracting two
// similar plain floats starves precision exactly where period detection
// needs it, so the comparison switches to magnitude difference plus scaled
// angular distance.
func cycleDistance(ar, ai, br, bi float64) float64 {
	ma := math.Hypot(ar, ai)
	mb := math.Hypot(br, bi)
	if ma < 0.25 || mb < 0.25 {
		return math.Hypot(ar-br, ai-bi)
	}
	dm := math.Abs(ma - mb)
	da := math.Abs(math.Atan2(ai, ar) - math.Atan2(bi, br))
	if da > math.Pi {
		da = 2*math.Pi - da
	}
	return dm + math.Min(ma, mb)*da
}

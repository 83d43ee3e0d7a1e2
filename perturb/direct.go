package perturb

import "math"

// DirectResult is the outcome of iterating a point without perturbation.
type DirectResult struct {
	State  Status
	Iter   uint32
	Period uint32
}

// DirectIterate runs the plain z ← z² + c recurrence with the same escape
// test, checkpoint schedule and convergence comparison as the perturbation
// path. It is only tractable at shallow magnification; its role is to
// cross-check the perturbation engine, which must agree with it exactly
// there.
func DirectIterate(c complex128, maxIter int, params Params) DirectResult {
	var zr, zi float64
	var cpr, cpi float64
	var cpIter, period uint32

	cr, ci := real(c), imag(c)
	for iter := uint32(1); iter <= uint32(maxIter); iter++ {
		nr := (zr*zr - zi*zi) + cr
		ni := 2*zr*zi + ci
		zr, zi = nr, ni

		if zr*zr+zi*zi > params.EscapeRadius2 {
			return DirectResult{State: StatusEscaped, Iter: iter, Period: period}
		}

		d := cycleDistance(zr, zi, cpr, cpi)
		scale := 1 + math.Hypot(cpr, cpi)
		if period == 0 {
			if d < params.Eps2*scale && iter > cpIter {
				period = iter - cpIter
			}
		} else if d < params.Eps*scale {
			return DirectResult{State: StatusConverged, Iter: iter, Period: iter - cpIter}
		}

		if checkpointDue(iter) {
			cpr, cpi = zr, zi
			cpIter = iter
		}
	}
	return DirectResult{State: StatusActive, Iter: uint32(maxIter), Period: period}
}

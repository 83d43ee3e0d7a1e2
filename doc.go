// Package deepzoom computes Mandelbrot escape/convergence data at
// magnifications far beyond float64 precision, using perturbation theory
// around a single high-precision reference orbit.
//
// # Overview
//
// At deep zoom levels adjacent pixels differ by less than one float64 ulp,
// so direct iteration is useless. Instead one reference orbit is computed
// in extended precision (double-double, quad-double or eight limbs,
// selected automatically from the pixel size) and every pixel tracks only
// its small perturbation from that orbit at plain precision. Rebasing and
// adaptive rescaling keep the perturbation representable no matter how
// deep the view goes, and checkpoint-based period detection terminates
// interior pixels that would otherwise iterate forever.
//
// # Quick Start
//
//	import "github.com/gogpu/deepzoom"
//
//	view, err := deepzoom.NewView(deepzoom.Config{
//		CenterRe:  "-0.74364388703715870475",
//		CenterIm:  "0.13182590420532171789",
//		Width:     512,
//		Height:    512,
//		PixelSize: 1e-18,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer view.Close()
//
//	for view.Active() > 0 {
//		if _, err := view.Iterate(10_000); err != nil {
//			log.Fatal(err)
//		}
//	}
//
// Pixel outcomes (escaped at which iteration, converged with which
// period) are read from view.Pixels(); coloring and display are up to the
// caller.
//
// # Architecture
//
// The library is organized into:
//   - Public API: View, Config
//   - extfloat: extended-precision scalars and complexes on error-free transforms
//   - orbit: the shared high-precision reference orbit
//   - perturb: per-pixel iteration, rebasing, rescaling, period detection
//   - board: batch execution substrates (software; GPU via the gpu package)
//
// A half-computed view can be snapshotted with Serialize and resumed on
// another process or substrate with Deserialize.
package deepzoom

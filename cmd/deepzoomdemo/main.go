// Command deepzoomdemo renders a Mandelbrot view to a PNG using the
// deepzoom perturbation engine.
package main

import (
	"flag"
	"image"
	"image/color"
	"image/png"
	"log"
	"log/slog"
	"math"
	"os"

	"golang.org/x/image/draw"

	"github.com/gogpu/deepzoom"
	_ "github.com/gogpu/deepzoom/gpu" // enable the GPU board
	"github.com/gogpu/deepzoom/perturb"
)

func main() {
	var (
		centerRe  = flag.String("re", "-0.75", "center real part (decimal string, any precision)")
		centerIm  = flag.String("im", "0.0", "center imaginary part")
		pixelSize = flag.Float64("pixel-size", 0.005, "complex-plane distance between pixels")
		pixelExp  = flag.Int("pixel-exp", 0, "extra power-of-two pixel size exponent for extreme zooms")
		width     = flag.Int("width", 800, "image width")
		height    = flag.Int("height", 600, "image height")
		maxIters  = flag.Int("iters", 10000, "total iteration budget per pixel")
		batch     = flag.Int("batch", 1000, "iterations per batch")
		ss        = flag.Int("supersample", 2, "supersampling factor (1 = off)")
		boardName = flag.String("board", "", "board to use (default: best available)")
		workers   = flag.Int("workers", 0, "software board workers (default: GOMAXPROCS)")
		output    = flag.String("output", "mandelbrot.png", "output file")
		verbose   = flag.Bool("v", false, "log batch progress")
	)
	flag.Parse()

	if *verbose {
		deepzoom.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}
	if *ss < 1 {
		*ss = 1
	}

	view, err := deepzoom.NewView(deepzoom.Config{
		CenterRe:     *centerRe,
		CenterIm:     *centerIm,
		Width:        *width * *ss,
		Height:       *height * *ss,
		PixelSize:    *pixelSize / float64(*ss),
		PixelSizeExp: *pixelExp,
		Board:        *boardName,
		Workers:      *workers,
	})
	if err != nil {
		log.Fatalf("Failed to create view: %v", err)
	}
	defer view.Close()
	log.Printf("Rendering %dx%d at %s+%si (tier %v, board %s)",
		*width, *height, *centerRe, *centerIm, view.Tier(), view.Board())

	for done := 0; done < *maxIters; done += *batch {
		n := *batch
		if rest := *maxIters - done; rest < n {
			n = rest
		}
		rep, err := view.Iterate(n)
		if err != nil {
			log.Fatalf("Batch failed: %v", err)
		}
		if *verbose {
			log.Printf("  %d iters: %d escaped, %d converged, %d active",
				done+n, len(rep.Escaped), len(rep.Converged), rep.Active)
		}
		if rep.Active == 0 {
			break
		}
	}

	img := render(view, *maxIters)
	if *ss > 1 {
		small := image.NewRGBA(image.Rect(0, 0, *width, *height))
		draw.CatmullRom.Scale(small, small.Bounds(), img, img.Bounds(), draw.Src, nil)
		img = small
	}

	f, err := os.Create(*output)
	if err != nil {
		log.Fatalf("Failed to create %s: %v", *output, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		log.Fatalf("Failed to encode: %v", err)
	}
	log.Printf("Saved %s (%dx%d)", *output, *width, *height)
}

// render maps pixel outcomes to colors: escaped pixels get a smooth
// palette by escape iteration, converged pixels a dark shade keyed to
// their period, and pixels that exhausted the budget stay black.
func render(view *deepzoom.View, maxIters int) *image.RGBA {
	grid := view.Grid()
	pixels := view.Pixels()
	img := image.NewRGBA(image.Rect(0, 0, grid.Width, grid.Height))
	for i := range pixels {
		p := &pixels[i]
		var c color.RGBA
		switch p.State {
		case perturb.StatusEscaped:
			t := math.Log1p(float64(p.Iter)) / math.Log1p(float64(maxIters))
			c = palette(t)
		case perturb.StatusConverged:
			shade := uint8(24 + 20*(p.Period%5))
			c = color.RGBA{shade / 2, shade / 2, shade, 255}
		default:
			c = color.RGBA{0, 0, 0, 255}
		}
		img.SetRGBA(i%grid.Width, i/grid.Width, c)
	}
	return img
}

// palette maps t in [0,1] to a blue-gold gradient.
func palette(t float64) color.RGBA {
	r := 9*(1-t)*t*t*t*255 + 0.5*t*255
	g := 15*(1-t)*(1-t)*t*t*255 + 0.6*t*255
	b := 8.5*(1-t)*(1-t)*(1-t)*t*255 + 0.9*t*255
	return color.RGBA{clamp8(r), clamp8(g), clamp8(b), 255}
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

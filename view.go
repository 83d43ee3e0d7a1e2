package deepzoom

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gogpu/deepzoom/board"
	"github.com/gogpu/deepzoom/extfloat"
	"github.com/gogpu/deepzoom/orbit"
	"github.com/gogpu/deepzoom/perturb"
)

// Config describes a view to compute. Center coordinates are decimal
// strings because deep-zoom centers carry far more digits than a float64
// literal can hold; they are parsed at the precision tier the pixel size
// demands.
type Config struct {
	// CenterRe, CenterIm are the view center as decimal strings
	// (e.g. "-0.74364388703715870475").
	CenterRe, CenterIm string

	// Width, Height are the pixel grid dimensions.
	Width, Height int

	// PixelSize is the complex-plane spacing between adjacent pixels.
	PixelSize float64

	// PixelSizeExp extends the pixel size below the float64 range by a
	// power of two: effective spacing = PixelSize·2^PixelSizeExp. Zero
	// for all but extreme magnifications.
	PixelSizeExp int

	// Tier overrides automatic precision selection when non-nil. A tier
	// too shallow for the pixel size is rejected with
	// extfloat.ErrTierInsufficient.
	Tier *extfloat.Tier

	// Board selects an execution substrate by name; empty picks the best
	// available one.
	Board string

	// Workers bounds CPU parallelism; zero means GOMAXPROCS.
	Workers int

	// IterationBudget is the expected total iterations per pixel. When
	// positive the reference orbit is extended that far up front instead
	// of growing batch by batch. Purely a scheduling hint; outcomes do
	// not depend on it.
	IterationBudget int
}

// View is one deep-zoom computation in progress. It owns a reference
// orbit and a board; advance it with Iterate until Active reaches zero or
// the caller's budget runs out.
//
// A View is not safe for concurrent use.
type View struct {
	board board.Board
	tier  extfloat.Tier
	grid  perturb.Grid
}

// NewView validates cfg, selects a precision tier, seeds the reference
// orbit and builds the pixel arena on an execution board.
func NewView(cfg Config) (*View, error) {
	grid := perturb.Grid{
		Width:        cfg.Width,
		Height:       cfg.Height,
		PixelSize:    cfg.PixelSize,
		PixelSizeExp: cfg.PixelSizeExp,
	}
	if err := grid.Validate(); err != nil {
		return nil, err
	}

	tier, err := extfloat.TierForPixelSize(cfg.PixelSize, cfg.PixelSizeExp)
	if err != nil {
		return nil, err
	}
	if cfg.Tier != nil {
		if err := extfloat.CheckTier(*cfg.Tier, cfg.PixelSize, cfg.PixelSizeExp); err != nil {
			return nil, err
		}
		tier = *cfg.Tier
	}

	orb, err := newOrbit(tier, cfg.CenterRe, cfg.CenterIm)
	if err != nil {
		return nil, fmt.Errorf("deepzoom: parse center: %w", err)
	}
	if cfg.IterationBudget > 0 {
		orb.Extend(cfg.IterationBudget + 2)
	}

	// The stored dz mantissa only needs help once the true values fall
	// out of the float64 range.
	rescale := tier == extfloat.TierOct
	pixels, err := perturb.NewArena(grid, rescale)
	if err != nil {
		return nil, err
	}

	params := perturb.DefaultParams()
	params.Rescale = rescale

	bcfg := board.Config{Orbit: orb, Pixels: pixels, Params: params, Workers: cfg.Workers}
	var b board.Board
	if cfg.Board != "" {
		b, err = board.New(cfg.Board, bcfg)
	} else {
		b, err = board.NewDefault(bcfg)
	}
	if err != nil {
		return nil, fmt.Errorf("deepzoom: create board: %w", err)
	}
	board.SetLogger(b, Logger())

	Logger().Info("deepzoom: view created",
		"tier", tier.String(),
		"board", b.Name(),
		"grid", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"pixelSize", cfg.PixelSize,
		"pixelSizeExp", cfg.PixelSizeExp)
	return &View{board: b, tier: tier, grid: grid}, nil
}

func newOrbit(tier extfloat.Tier, re, im string) (orbit.Orbit, error) {
	switch tier {
	case extfloat.TierNative:
		c, err := extfloat.ParseComplex[extfloat.Native](re, im)
		if err != nil {
			return nil, err
		}
		return orbit.New(c), nil
	case extfloat.TierDouble:
		c, err := extfloat.ParseComplex[extfloat.Double](re, im)
		if err != nil {
			return nil, err
		}
		return orbit.New(c), nil
	case extfloat.TierQuad:
		c, err := extfloat.ParseComplex[extfloat.Quad](re, im)
		if err != nil {
			return nil, err
		}
		return orbit.New(c), nil
	case extfloat.TierOct:
		c, err := extfloat.ParseComplex[extfloat.Oct](re, im)
		if err != nil {
			return nil, err
		}
		return orbit.New(c), nil
	default:
		return nil, fmt.Errorf("deepzoom: unknown tier %v", tier)
	}
}

// Iterate advances every active pixel by up to maxIters iterations and
// reports the pixels that terminated during the batch.
func (v *View) Iterate(maxIters int) (board.Report, error) {
	return v.board.Iterate(maxIters)
}

// Active returns the number of pixels still iterating.
func (v *View) Active() int { return v.board.Active() }

// Pixels returns the live pixel arena in row-major order. Callers must
// treat it as read-only.
func (v *View) Pixels() []perturb.Pixel { return v.board.Pixels() }

// Grid returns the view's pixel lattice description.
func (v *View) Grid() perturb.Grid { return v.grid }

// Tier returns the precision tier the reference orbit is computed at.
func (v *View) Tier() extfloat.Tier { return v.tier }

// Board returns the name of the execution substrate in use.
func (v *View) Board() string { return v.board.Name() }

// Serialize captures the view's complete computation state as an opaque
// snapshot restorable with Deserialize, on any substrate, without losing
// progress.
func (v *View) Serialize() ([]byte, error) {
	blob, err := v.board.Serialize()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.Grow(len(blob) + 32)
	buf.Write(viewMagic[:])
	w := func(val any) { binary.Write(&buf, binary.LittleEndian, val) }
	w(int32(v.grid.Width))
	w(int32(v.grid.Height))
	w(v.grid.PixelSize)
	w(int64(v.grid.PixelSizeExp))
	buf.Write(blob)
	return buf.Bytes(), nil
}

// Close releases the view's resources.
func (v *View) Close() { v.board.Close() }

var viewMagic = [4]byte{'d', 'z', 'v', '1'}

// ErrBadSnapshot reports a malformed serialized view.
var ErrBadSnapshot = errors.New("deepzoom: truncated or corrupt snapshot")

// Deserialize restores a serialized view on the best available substrate.
func Deserialize(data []byte) (*View, error) {
	rd := bytes.NewReader(data)
	var magic [4]byte
	if err := binary.Read(rd, binary.LittleEndian, &magic); err != nil || magic != viewMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrBadSnapshot)
	}
	var w, h int32
	var ps float64
	var exp int64
	for _, v := range []any{&w, &h, &ps, &exp} {
		if err := binary.Read(rd, binary.LittleEndian, v); err != nil {
			return nil, fmt.Errorf("%w: grid header: %v", ErrBadSnapshot, err)
		}
	}
	grid := perturb.Grid{Width: int(w), Height: int(h), PixelSize: ps, PixelSizeExp: int(exp)}
	if err := grid.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSnapshot, err)
	}

	b, err := board.Deserialize(data[len(data)-rd.Len():])
	if err != nil {
		return nil, err
	}
	if len(b.Pixels()) != grid.Width*grid.Height {
		b.Close()
		return nil, fmt.Errorf("%w: %d pixels for a %dx%d grid", ErrBadSnapshot, len(b.Pixels()), grid.Width, grid.Height)
	}
	board.SetLogger(b, Logger())
	return &View{board: b, tier: b.Orbit().Tier(), grid: grid}, nil
}

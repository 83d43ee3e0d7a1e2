// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package board

import (
	"errors"
	"log/slog"

	"github.com/gogpu/deepzoom/internal/parallel"
	"github.com/gogpu/deepzoom/orbit"
	"github.com/gogpu/deepzoom/perturb"
)

func init() {
	Register(NameSoftware, func(cfg Config) (Board, error) {
		return NewSoftware(cfg)
	})
}

// Software is the CPU board. It runs the perturbation iterator over the
// arena on a worker pool, one contiguous pixel range per task.
type Software struct {
	orb    orbit.Orbit
	pixels []perturb.Pixel
	it     *perturb.Iterator
	pool   *parallel.Pool
	logger *slog.Logger
	closed bool
}

// NewSoftware creates a CPU board over cfg's orbit and arena.
func NewSoftware(cfg Config) (*Software, error) {
	if cfg.Orbit == nil {
		return nil, errors.New("board: nil orbit")
	}
	if len(cfg.Pixels) == 0 {
		return nil, errors.New("board: empty pixel arena")
	}
	return &Software{
		orb:    cfg.Orbit,
		pixels: cfg.Pixels,
		it:     perturb.NewIterator(cfg.Orbit, cfg.Params),
		pool:   parallel.NewPool(cfg.Workers),
		logger: slog.New(nopHandler{}),
	}, nil
}

// Name returns "software".
func (s *Software) Name() string { return NameSoftware }

// SetLogger configures the board's logger.
func (s *Software) SetLogger(l *slog.Logger) {
	if l != nil {
		s.logger = l
	}
}

// Iterate advances every active pixel by up to maxIters iterations. The
// orbit is extended to the batch ceiling before any pixel runs, so pixel
// iteration never touches the orbit writer mid-batch.
func (s *Software) Iterate(maxIters int) (Report, error) {
	if s.closed {
		return Report{}, ErrClosed
	}
	if maxIters <= 0 {
		return Report{Active: perturb.ActiveCount(s.pixels)}, nil
	}

	// Every active pixel can advance its cursor by at most one per
	// iteration and reads one index ahead of it.
	ceiling := perturb.MaxRefIndex(s.pixels) + maxIters + 2
	s.orb.Extend(ceiling)

	grain := len(s.pixels) / (s.pool.Workers() * 4)
	if grain < 64 {
		grain = 64
	}

	// Ranges are disjoint, so each chunk collects deltas into its own slot
	// with no locking.
	nchunks := (len(s.pixels) + grain - 1) / grain
	chunkResults := make([]batchResult, nchunks)

	s.pool.ExecuteRanges(len(s.pixels), grain, func(start, end int) {
		res := &chunkResults[start/grain]
		for i := start; i < end; i++ {
			p := &s.pixels[i]
			if p.State != perturb.StatusActive {
				continue
			}
			for n := 0; n < maxIters && p.State == perturb.StatusActive; n++ {
				s.it.Step(p)
			}
			switch p.State {
			case perturb.StatusEscaped:
				res.escaped = append(res.escaped, Delta{Index: i, Iter: p.Iter})
			case perturb.StatusConverged:
				res.converged = append(res.converged, Delta{Index: i, Iter: p.Iter, Period: p.Period})
			}
		}
	})

	var rep Report
	for i := range chunkResults {
		rep.Escaped = append(rep.Escaped, chunkResults[i].escaped...)
		rep.Converged = append(rep.Converged, chunkResults[i].converged...)
	}
	rep.Active = perturb.ActiveCount(s.pixels)

	s.logger.Debug("board: batch complete",
		"board", s.Name(),
		"maxIters", maxIters,
		"orbitLen", s.orb.Len(),
		"escaped", len(rep.Escaped),
		"converged", len(rep.Converged),
		"active", rep.Active)
	return rep, nil
}

type batchResult struct {
	escaped   []Delta
	converged []Delta
}

// Active returns the number of pixels still iterating.
func (s *Software) Active() int { return perturb.ActiveCount(s.pixels) }

// Pixels returns the live arena.
func (s *Software) Pixels() []perturb.Pixel { return s.pixels }

// Orbit returns the reference orbit.
func (s *Software) Orbit() orbit.Orbit { return s.orb }

// Serialize captures orbit, arena and thresholds as a snapshot restorable
// by Deserialize.
func (s *Software) Serialize() ([]byte, error) {
	if s.closed {
		return nil, ErrClosed
	}
	return EncodeSnapshot(s.orb, s.pixels, s.it.Params())
}

// Close shuts down the worker pool.
func (s *Software) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.pool.Close()
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package board executes batches of perturbation iterations over a pixel
// arena. A Board owns one reference orbit and one arena; each Iterate call
// advances every active pixel by up to the requested number of iterations
// and reports which pixels terminated during the batch.
//
// Boards are created through the registry: execution substrates (the CPU
// board here, a GPU board from its own package) register factories and the
// highest-priority available one wins. A partially-computed board can be
// serialized and resumed on any substrate without losing progress.
package board

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gogpu/deepzoom/orbit"
	"github.com/gogpu/deepzoom/perturb"
)

// Common board errors.
var (
	// ErrBoardNotAvailable is returned when no registered board can run.
	ErrBoardNotAvailable = errors.New("board: no board available")

	// ErrClosed is returned when operating on a closed board.
	ErrClosed = errors.New("board: closed")
)

// Delta reports one pixel that terminated during a batch.
type Delta struct {
	// Index is the pixel's position in the arena.
	Index int
	// Iter is the exact iteration the pixel terminated at. It is
	// independent of how the caller split the work into batches.
	Iter uint32
	// Period is the detected cycle length, zero for escaped pixels.
	Period uint32
}

// Report is the outcome of one batch.
type Report struct {
	// Escaped lists pixels that left the escape radius this batch.
	Escaped []Delta
	// Converged lists pixels that settled into a cycle this batch.
	Converged []Delta
	// Active is the number of pixels still iterating after the batch.
	Active int
}

// Board is the batch execution contract. Implementations own their pixel
// arena and reference orbit; the caller only ever sees batch reports and
// opaque snapshots.
//
// A Board is not safe for concurrent use. The unit of suspension is the
// batch: callers abandon a board between Iterate calls, never during one.
type Board interface {
	// Name returns the substrate identifier (e.g. "software", "gpu").
	Name() string

	// Iterate advances every active pixel by up to maxIters iterations,
	// extending the reference orbit to the batch ceiling first. Pixels
	// that terminate earlier stop at their exact termination iteration
	// regardless of batch size.
	Iterate(maxIters int) (Report, error)

	// Active returns the number of pixels still iterating.
	Active() int

	// Pixels returns the board's arena. The slice is live: callers must
	// not mutate it, and must not retain it across Iterate calls on
	// substrates that re-upload state.
	Pixels() []perturb.Pixel

	// Orbit returns the board's reference orbit.
	Orbit() orbit.Orbit

	// Serialize captures the complete board state, arena and orbit and
	// every checkpoint bit, as an opaque snapshot.
	Serialize() ([]byte, error)

	// Close releases the board's resources. The board is unusable after.
	Close()
}

// loggerSetter is implemented by boards that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

// nopHandler discards all log records. Enabled returns false so callers
// skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// SetLogger propagates a logger to a board if it accepts one.
func SetLogger(b Board, l *slog.Logger) {
	if s, ok := b.(loggerSetter); ok {
		s.SetLogger(l)
	}
}

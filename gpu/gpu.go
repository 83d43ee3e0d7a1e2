//go:build !nogpu

// Package gpu registers the GPU compute board for hardware-accelerated
// perturbation iteration.
//
// Import this package to make the "gpu" board available to the board
// registry. The board runs the per-pixel perturbation recurrence as a
// wgpu/hal compute shader, one invocation per pixel, and reads the
// arena back after each batch.
//
// The GPU board works at float32 precision, so it only accepts
// non-rescaled arenas; extreme-tier views are rejected at construction
// and the registry falls back to the software board. The same fallback
// applies when no Vulkan adapter is present.
//
// Usage:
//
//	import _ "github.com/gogpu/deepzoom/gpu" // enable GPU iteration
package gpu

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/deepzoom/board"
)

// DeviceHandle provides GPU device access from a host application.
//
// The host (e.g. a gogpu.App) implements DeviceHandle and passes it to
// SetDeviceProvider, letting boards reuse the shared device instead of
// creating their own instance. DeviceHandle is an alias for
// gpucontext.DeviceProvider; for boards to use it, the concrete value
// must also expose HAL types via gpucontext.HalProvider.
type DeviceHandle = gpucontext.DeviceProvider

func init() {
	board.Register(board.NameGPU, func(cfg board.Config) (board.Board, error) {
		return New(cfg)
	})
}

var (
	providerMu sync.Mutex
	provider   DeviceHandle
)

// SetDeviceProvider configures subsequently created GPU boards to share
// a GPU device from an external provider (e.g. a gogpu host) instead of
// creating their own instance.
//
// The provider must expose HalDevice() any and HalQueue() any returning
// hal.Device and hal.Queue, matching gpucontext.HalProvider.
func SetDeviceProvider(p DeviceHandle) {
	providerMu.Lock()
	provider = p
	providerMu.Unlock()
	board.Register(board.NameGPU, func(cfg board.Config) (board.Board, error) {
		b, err := New(cfg)
		if err != nil {
			return nil, err
		}
		providerMu.Lock()
		cur := provider
		providerMu.Unlock()
		if cur != nil {
			if err := b.SetDeviceProvider(cur); err != nil {
				b.Close()
				return nil, err
			}
		}
		return b, nil
	})
}

// nopHandler discards all log records.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package board

import (
	"sync"

	"github.com/gogpu/deepzoom/orbit"
	"github.com/gogpu/deepzoom/perturb"
)

// Well-known board names.
const (
	// NameSoftware is the CPU board, always available.
	NameSoftware = "software"
	// NameGPU is the wgpu compute board, registered by the gpu package.
	NameGPU = "gpu"
)

// Config carries the state a board factory needs. The orbit and arena are
// handed over, not copied: the board owns them afterwards.
type Config struct {
	// Orbit is the reference orbit, already seeded.
	Orbit orbit.Orbit
	// Pixels is the pixel arena.
	Pixels []perturb.Pixel
	// Params are the iteration thresholds.
	Params perturb.Params
	// Workers bounds CPU parallelism; zero means GOMAXPROCS. GPU boards
	// ignore it.
	Workers int
}

// Factory creates a board, or returns an error if the substrate is not
// usable right now (no GPU adapter, for example).
type Factory func(cfg Config) (Board, error)

var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
	// Priority order for board selection, first available wins.
	priority = []string{NameGPU, NameSoftware}
)

// Register registers a board factory under a name. It is typically called
// from init functions in substrate packages. Registering an existing name
// replaces it.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[name] = f
}

// Unregister removes a board factory. Useful for tests.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(factories, name)
}

// Available returns the registered board names.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	return names
}

// IsRegistered reports whether a board name has a factory.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := factories[name]
	return ok
}

// New creates a board by name. It returns ErrBoardNotAvailable if nothing
// is registered under the name.
func New(name string, cfg Config) (Board, error) {
	registryMu.RLock()
	f, ok := factories[name]
	registryMu.RUnlock()
	if !ok {
		return nil, ErrBoardNotAvailable
	}
	return f(cfg)
}

// NewDefault creates the best available board. Substrates are tried in
// priority order; a factory error (a GPU with no adapter) falls through to
// the next substrate rather than failing the construction.
func NewDefault(cfg Config) (Board, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	for _, name := range priority {
		f, ok := factories[name]
		if !ok {
			continue
		}
		b, err := f(cfg)
		if err == nil {
			return b, nil
		}
	}
	for name, f := range factories {
		if inPriority(name) {
			continue
		}
		if b, err := f(cfg); err == nil {
			return b, nil
		}
	}
	return nil, ErrBoardNotAvailable
}

func inPriority(name string) bool {
	for _, n := range priority {
		if n == name {
			return true
		}
	}
	return false
}

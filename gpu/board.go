// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package gpu

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/gogpu/deepzoom/board"
	"github.com/gogpu/deepzoom/orbit"
	"github.com/gogpu/deepzoom/perturb"
)

// ErrRescaleUnsupported is returned when a rescaled (extreme-tier) arena
// is offered to the GPU board. Rescaled iteration needs exponent range a
// float32 kernel cannot provide, so those views stay on the CPU.
var ErrRescaleUnsupported = errors.New("gpu: rescaled iteration not supported on the gpu board")

// Board runs perturbation batches on a wgpu compute queue. The pixel
// arena is mirrored into a float32 storage buffer, one kernel invocation
// per pixel per batch, and read back whole after the fence.
//
// Per the execution-tier contract, pixel state on this board is float32:
// outcomes can differ from the software board in the last ulps, but are
// reproducible for any batch split on this board.
type Board struct {
	mu sync.Mutex

	orb    orbit.Orbit
	pixels []perturb.Pixel
	params perturb.Params

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue

	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.ComputePipeline

	logger         *slog.Logger
	externalDevice bool
	closed         bool
}

var _ board.Board = (*Board)(nil)

// New creates a GPU board over cfg's orbit and arena, or fails if no
// usable adapter is present so the registry can fall back to software.
func New(cfg board.Config) (*Board, error) {
	if cfg.Orbit == nil {
		return nil, errors.New("gpu: nil orbit")
	}
	if len(cfg.Pixels) == 0 {
		return nil, errors.New("gpu: empty pixel arena")
	}
	if cfg.Params.Rescale {
		return nil, ErrRescaleUnsupported
	}
	b := &Board{
		orb:    cfg.Orbit,
		pixels: cfg.Pixels,
		params: cfg.Params,
		logger: slog.New(nopHandler{}),
	}
	if err := b.initGPU(); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

// Name returns "gpu".
func (b *Board) Name() string { return board.NameGPU }

// SetLogger configures the board's logger.
func (b *Board) SetLogger(l *slog.Logger) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if l != nil {
		b.logger = l
	}
}

// gpuPixel mirrors the WGSL Pixel struct: the CPU arena fields at
// float32, in identical order.
type gpuPixel struct {
	DcRe, DcIm     float32
	DzRe, DzIm     float32
	CpDzRe, CpDzIm float32
	RefIndex       uint32
	CpRefIndex     uint32
	CpIter         uint32
	Iter           uint32
	Period         uint32
	State          uint32
	Scale          int32
	ScaleFloor     int32
}

// batchParams mirrors the WGSL Params uniform.
type batchParams struct {
	EscapeRadius2 float32
	Eps           float32
	Eps2          float32
	MaxIters      uint32
	OrbitLen      uint32
	PixelCount    uint32
	_             uint32
	_             uint32
}

// Iterate advances every active pixel by up to maxIters iterations in one
// dispatch, then reads the arena back and reports the new terminals.
func (b *Board) Iterate(maxIters int) (board.Report, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return board.Report{}, board.ErrClosed
	}
	if maxIters <= 0 {
		return board.Report{Active: perturb.ActiveCount(b.pixels)}, nil
	}

	ceiling := perturb.MaxRefIndex(b.pixels) + maxIters + 2
	b.orb.Extend(ceiling)

	prev := make([]perturb.Status, len(b.pixels))
	for i := range b.pixels {
		prev[i] = b.pixels[i].State
	}

	if err := b.dispatchBatch(maxIters); err != nil {
		return board.Report{}, err
	}

	var rep board.Report
	for i := range b.pixels {
		if prev[i] != perturb.StatusActive {
			continue
		}
		switch b.pixels[i].State {
		case perturb.StatusEscaped:
			rep.Escaped = append(rep.Escaped, board.Delta{Index: i, Iter: b.pixels[i].Iter})
		case perturb.StatusConverged:
			rep.Converged = append(rep.Converged, board.Delta{
				Index: i, Iter: b.pixels[i].Iter, Period: b.pixels[i].Period,
			})
		}
	}
	rep.Active = perturb.ActiveCount(b.pixels)

	b.logger.Debug("gpu: batch complete",
		"maxIters", maxIters,
		"orbitLen", b.orb.Len(),
		"escaped", len(rep.Escaped),
		"converged", len(rep.Converged),
		"active", rep.Active)
	return rep, nil
}

// dispatchBatch uploads orbit and arena, runs one compute pass and reads
// the arena back. One submit and one fence wait per batch.
func (b *Board) dispatchBatch(maxIters int) error {
	n := len(b.pixels)
	pixelBytes := b.packPixels()
	orbitBytes := b.packOrbit()
	params := batchParams{
		EscapeRadius2: float32(b.params.EscapeRadius2),
		Eps:           float32(b.params.Eps),
		Eps2:          float32(b.params.Eps2),
		MaxIters:      uint32(maxIters),
		OrbitLen:      uint32(b.orb.Len()),
		PixelCount:    uint32(n),
	}
	paramBytes := structToBytes(unsafe.Pointer(&params), unsafe.Sizeof(params))

	paramBuf, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "deepzoom_params", Size: uint64(len(paramBytes)),
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("gpu: create params buffer: %w", err)
	}
	defer b.device.DestroyBuffer(paramBuf)

	orbitBuf, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "deepzoom_orbit", Size: uint64(len(orbitBytes)),
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("gpu: create orbit buffer: %w", err)
	}
	defer b.device.DestroyBuffer(orbitBuf)

	pixelBuf, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "deepzoom_pixels", Size: uint64(len(pixelBytes)),
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("gpu: create pixel buffer: %w", err)
	}
	defer b.device.DestroyBuffer(pixelBuf)

	stagingBuf, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "deepzoom_staging", Size: uint64(len(pixelBytes)),
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("gpu: create staging buffer: %w", err)
	}
	defer b.device.DestroyBuffer(stagingBuf)

	b.queue.WriteBuffer(paramBuf, 0, paramBytes)
	b.queue.WriteBuffer(orbitBuf, 0, orbitBytes)
	b.queue.WriteBuffer(pixelBuf, 0, pixelBytes)

	bg, err := b.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label: "deepzoom_bind", Layout: b.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: paramBuf.NativeHandle(), Offset: 0, Size: uint64(len(paramBytes))}},
			{Binding: 1, Resource: gputypes.BufferBinding{Buffer: orbitBuf.NativeHandle(), Offset: 0, Size: uint64(len(orbitBytes))}},
			{Binding: 2, Resource: gputypes.BufferBinding{Buffer: pixelBuf.NativeHandle(), Offset: 0, Size: uint64(len(pixelBytes))}},
		},
	})
	if err != nil {
		return fmt.Errorf("gpu: create bind group: %w", err)
	}
	defer b.device.DestroyBindGroup(bg)

	encoder, err := b.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "deepzoom_encoder"})
	if err != nil {
		return fmt.Errorf("gpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("deepzoom_batch"); err != nil {
		return fmt.Errorf("gpu: begin encoding: %w", err)
	}
	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "deepzoom_iterate"})
	pass.SetPipeline(b.pipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.Dispatch(uint32(n+63)/64, 1, 1)
	pass.End()
	encoder.CopyBufferToBuffer(pixelBuf, stagingBuf, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: uint64(len(pixelBytes))},
	})
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("gpu: end encoding: %w", err)
	}
	defer b.device.FreeCommandBuffer(cmdBuf)

	fence, err := b.device.CreateFence()
	if err != nil {
		return fmt.Errorf("gpu: create fence: %w", err)
	}
	defer b.device.DestroyFence(fence)
	if err := b.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("gpu: submit: %w", err)
	}
	fenceOK, err := b.device.Wait(fence, 1, 30*time.Second)
	if err != nil || !fenceOK {
		return fmt.Errorf("gpu: wait for batch: ok=%v err=%w", fenceOK, err)
	}

	readback := make([]byte, len(pixelBytes))
	if err := b.queue.ReadBuffer(stagingBuf, 0, readback); err != nil {
		return fmt.Errorf("gpu: readback: %w", err)
	}
	b.unpackPixels(readback)
	return nil
}

// packOrbit serializes the orbit points as vec2<f32> pairs.
func (b *Board) packOrbit() []byte {
	pts := make([]float32, 2*b.orb.Len())
	for i := 0; i < b.orb.Len(); i++ {
		z := b.orb.At(i)
		pts[2*i] = float32(real(z))
		pts[2*i+1] = float32(imag(z))
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&pts[0])), len(pts)*4)
}

// packPixels converts the float64 arena to the GPU record layout.
func (b *Board) packPixels() []byte {
	recs := make([]gpuPixel, len(b.pixels))
	for i := range b.pixels {
		p := &b.pixels[i]
		recs[i] = gpuPixel{
			DcRe: float32(p.DcRe), DcIm: float32(p.DcIm),
			DzRe: float32(p.DzRe), DzIm: float32(p.DzIm),
			CpDzRe: float32(p.CpDzRe), CpDzIm: float32(p.CpDzIm),
			RefIndex: p.RefIndex, CpRefIndex: p.CpRefIndex,
			CpIter: p.CpIter, Iter: p.Iter,
			Period: p.Period, State: uint32(p.State),
			Scale: p.Scale, ScaleFloor: p.ScaleFloor,
		}
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&recs[0])), len(recs)*int(unsafe.Sizeof(gpuPixel{})))
}

// unpackPixels merges a readback into the arena.
func (b *Board) unpackPixels(raw []byte) {
	recs := unsafe.Slice((*gpuPixel)(unsafe.Pointer(&raw[0])), len(b.pixels))
	for i := range b.pixels {
		p := &b.pixels[i]
		r := &recs[i]
		p.DzRe, p.DzIm = float64(r.DzRe), float64(r.DzIm)
		p.CpDzRe, p.CpDzIm = float64(r.CpDzRe), float64(r.CpDzIm)
		p.RefIndex, p.CpRefIndex = r.RefIndex, r.CpRefIndex
		p.CpIter, p.Iter = r.CpIter, r.Iter
		p.Period = r.Period
		p.State = perturb.Status(r.State)
	}
}

// Active returns the number of pixels still iterating.
func (b *Board) Active() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return perturb.ActiveCount(b.pixels)
}

// Pixels returns the live arena.
func (b *Board) Pixels() []perturb.Pixel { return b.pixels }

// Orbit returns the reference orbit.
func (b *Board) Orbit() orbit.Orbit { return b.orb }

// Serialize captures orbit, arena and thresholds; the snapshot is
// interchangeable with the software board's.
func (b *Board) Serialize() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, board.ErrClosed
	}
	return board.EncodeSnapshot(b.orb, b.pixels, b.params)
}

// Close destroys the pipeline and, unless the device is shared, the
// device and instance.
func (b *Board) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.destroyPipeline()
	if !b.externalDevice {
		if b.device != nil {
			b.device.Destroy()
		}
		if b.instance != nil {
			b.instance.Destroy()
		}
	}
	b.device = nil
	b.instance = nil
	b.queue = nil
}

// SetDeviceProvider switches the board to a shared GPU device from an
// external provider (e.g. a gogpu host application). The provider must
// expose HalDevice() any and HalQueue() any returning hal.Device and
// hal.Queue.
func (b *Board) SetDeviceProvider(provider any) error {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return errors.New("gpu: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return errors.New("gpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return errors.New("gpu: provider HalQueue is not hal.Queue")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.destroyPipeline()
	if !b.externalDevice && b.device != nil {
		b.device.Destroy()
	}
	if b.instance != nil {
		b.instance.Destroy()
		b.instance = nil
	}
	b.device = device
	b.queue = queue
	b.externalDevice = true
	if err := b.createPipeline(); err != nil {
		return fmt.Errorf("gpu: create pipeline with shared device: %w", err)
	}
	b.logger.Info("gpu: switched to shared device")
	return nil
}

func (b *Board) initGPU() error {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return errors.New("gpu: vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("gpu: create instance: %w", err)
	}
	b.instance = instance
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return errors.New("gpu: no adapters found")
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return fmt.Errorf("gpu: open device: %w", err)
	}
	b.device = openDev.Device
	b.queue = openDev.Queue
	if err := b.createPipeline(); err != nil {
		return err
	}
	b.logger.Info("gpu: board initialized", "adapter", selected.Info.Name)
	return nil
}

func (b *Board) createPipeline() error {
	shader, err := compileShader(b.device, "deepzoom_iterate", iterateShaderSource)
	if err != nil {
		return err
	}
	b.shader = shader

	bindLayout, err := b.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "deepzoom_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
			{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
			{Binding: 2, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
		},
	})
	if err != nil {
		return fmt.Errorf("gpu: create bind group layout: %w", err)
	}
	b.bindLayout = bindLayout

	pipeLayout, err := b.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: "deepzoom_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{b.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("gpu: create pipeline layout: %w", err)
	}
	b.pipeLayout = pipeLayout

	pipeline, err := b.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label: "deepzoom_pipeline", Layout: b.pipeLayout,
		Compute: hal.ComputeState{Module: b.shader, EntryPoint: "main"},
	})
	if err != nil {
		return fmt.Errorf("gpu: create compute pipeline: %w", err)
	}
	b.pipeline = pipeline
	return nil
}

func (b *Board) destroyPipeline() {
	if b.device == nil {
		return
	}
	if b.pipeline != nil {
		b.device.DestroyComputePipeline(b.pipeline)
		b.pipeline = nil
	}
	if b.pipeLayout != nil {
		b.device.DestroyPipelineLayout(b.pipeLayout)
		b.pipeLayout = nil
	}
	if b.bindLayout != nil {
		b.device.DestroyBindGroupLayout(b.bindLayout)
		b.bindLayout = nil
	}
	if b.shader != nil {
		b.device.DestroyShaderModule(b.shader)
		b.shader = nil
	}
}

func structToBytes(ptr unsafe.Pointer, size uintptr) []byte {
	return unsafe.Slice((*byte)(ptr), size)
}

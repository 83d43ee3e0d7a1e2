// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package board

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unsafe"

	"github.com/gogpu/deepzoom/orbit"
	"github.com/gogpu/deepzoom/perturb"
)

// Snapshot layout (little endian):
//
//	[4]u8 magic "dzb1"
//	f64   escapeRadius2, eps, eps2
//	u8    rescale
//	u64   orbit blob length, followed by the orbit blob
//	u64   pixel count, followed by count fixed-size pixel records
//
// The pixel block is the arena's memory verbatim: the Pixel layout is
// fixed and padding-free, which makes the snapshot a straight copy and
// keeps it identical to what a GPU board reads back.

var snapshotMagic = [4]byte{'d', 'z', 'b', '1'}

// ErrBadSnapshot reports a malformed board snapshot.
var ErrBadSnapshot = errors.New("board: truncated or corrupt snapshot")

// EncodeSnapshot serializes a board's complete state. It is shared by
// every substrate so snapshots stay interchangeable between them.
func EncodeSnapshot(orb orbit.Orbit, pixels []perturb.Pixel, params perturb.Params) ([]byte, error) {
	orbBlob, err := orb.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("board: serialize orbit: %w", err)
	}

	var buf bytes.Buffer
	buf.Grow(len(orbBlob) + len(pixels)*perturb.PixelBytes + 64)
	w := func(v any) { binary.Write(&buf, binary.LittleEndian, v) }

	buf.Write(snapshotMagic[:])
	w(params.EscapeRadius2)
	w(params.Eps)
	w(params.Eps2)
	if params.Rescale {
		w(uint8(1))
	} else {
		w(uint8(0))
	}
	w(uint64(len(orbBlob)))
	buf.Write(orbBlob)
	w(uint64(len(pixels)))
	buf.Write(unsafe.Slice((*byte)(unsafe.Pointer(&pixels[0])), len(pixels)*perturb.PixelBytes))
	return buf.Bytes(), nil
}

// decodeSnapshot reconstructs a snapshot into a Config ready for any board
// factory.
func decodeSnapshot(data []byte) (Config, error) {
	rd := bytes.NewReader(data)
	r := func(v any) error { return binary.Read(rd, binary.LittleEndian, v) }

	var magic [4]byte
	if err := r(&magic); err != nil || magic != snapshotMagic {
		return Config{}, fmt.Errorf("%w: bad magic", ErrBadSnapshot)
	}

	var params perturb.Params
	var rescale uint8
	if err := r(&params.EscapeRadius2); err != nil {
		return Config{}, fmt.Errorf("%w: params: %v", ErrBadSnapshot, err)
	}
	if err := r(&params.Eps); err != nil {
		return Config{}, fmt.Errorf("%w: params: %v", ErrBadSnapshot, err)
	}
	if err := r(&params.Eps2); err != nil {
		return Config{}, fmt.Errorf("%w: params: %v", ErrBadSnapshot, err)
	}
	if err := r(&rescale); err != nil {
		return Config{}, fmt.Errorf("%w: params: %v", ErrBadSnapshot, err)
	}
	params.Rescale = rescale != 0

	var orbLen uint64
	if err := r(&orbLen); err != nil {
		return Config{}, fmt.Errorf("%w: orbit length: %v", ErrBadSnapshot, err)
	}
	if orbLen > uint64(rd.Len()) {
		return Config{}, fmt.Errorf("%w: orbit blob length %d exceeds snapshot", ErrBadSnapshot, orbLen)
	}
	orbBlob := make([]byte, orbLen)
	if _, err := io.ReadFull(rd, orbBlob); err != nil {
		return Config{}, fmt.Errorf("%w: orbit blob: %v", ErrBadSnapshot, err)
	}
	orb, err := orbit.Unmarshal(orbBlob)
	if err != nil {
		return Config{}, fmt.Errorf("board: restore orbit: %w", err)
	}

	var count uint64
	if err := r(&count); err != nil {
		return Config{}, fmt.Errorf("%w: pixel count: %v", ErrBadSnapshot, err)
	}
	if count == 0 || count > 1<<32 || count*perturb.PixelBytes != uint64(rd.Len()) {
		return Config{}, fmt.Errorf("%w: pixel count %d does not match remaining %d bytes", ErrBadSnapshot, count, rd.Len())
	}

	pixels := make([]perturb.Pixel, count)
	raw := unsafe.Slice((*byte)(unsafe.Pointer(&pixels[0])), int(count)*perturb.PixelBytes)
	if _, err := io.ReadFull(rd, raw); err != nil {
		return Config{}, fmt.Errorf("%w: pixel arena: %v", ErrBadSnapshot, err)
	}
	for i := range pixels {
		if s := pixels[i].State; s > perturb.StatusConverged {
			return Config{}, fmt.Errorf("%w: pixel %d has invalid status %d", ErrBadSnapshot, i, uint32(s))
		}
		if int(pixels[i].RefIndex) >= orb.Len() {
			return Config{}, fmt.Errorf("%w: pixel %d cursor %d beyond orbit length %d", ErrBadSnapshot, i, pixels[i].RefIndex, orb.Len())
		}
	}

	return Config{Orbit: orb, Pixels: pixels, Params: params}, nil
}

// Deserialize restores a snapshot onto the best available board. The
// substrate is chosen at restore time, which is what lets a rebalancer
// move a half-computed view from a GPU host to a CPU host.
func Deserialize(data []byte) (Board, error) {
	cfg, err := decodeSnapshot(data)
	if err != nil {
		return nil, err
	}
	return NewDefault(cfg)
}

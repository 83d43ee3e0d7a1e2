package orbit

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/deepzoom/extfloat"
)

// Serialized layout (little endian):
//
//	u32  tier
//	f64  center, cursor limbs (4 × tier limb count)
//	u8   escaped
//	i64  escapeIndex
//	u64  point count
//	f64  point re/im pairs
//
// The layout is a plain field dump so a snapshot moves between execution
// contexts without re-deriving anything.

// MarshalBinary implements Orbit.
func (r *Reference[T]) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	w := func(v any) { binary.Write(&buf, binary.LittleEndian, v) }

	w(uint32(r.Tier()))
	for _, s := range []T{r.center.Re, r.center.Im, r.cursor.Re, r.cursor.Im} {
		w(s.Limbs())
	}
	if r.escaped {
		w(uint8(1))
	} else {
		w(uint8(0))
	}
	w(int64(r.escapeIndex))
	w(uint64(len(r.points)))
	for _, p := range r.points {
		w(real(p))
		w(imag(p))
	}
	return buf.Bytes(), nil
}

// Unmarshal reconstructs an orbit of whatever tier the blob was written at.
func Unmarshal(data []byte) (Orbit, error) {
	rd := bytes.NewReader(data)
	var tier uint32
	if err := binary.Read(rd, binary.LittleEndian, &tier); err != nil {
		return nil, fmt.Errorf("%w: tier: %v", ErrTruncated, err)
	}
	switch extfloat.Tier(tier) {
	case extfloat.TierNative:
		return unmarshalTier[extfloat.Native](rd)
	case extfloat.TierDouble:
		return unmarshalTier[extfloat.Double](rd)
	case extfloat.TierQuad:
		return unmarshalTier[extfloat.Quad](rd)
	case extfloat.TierOct:
		return unmarshalTier[extfloat.Oct](rd)
	default:
		return nil, fmt.Errorf("%w: unknown tier %d", ErrTruncated, tier)
	}
}

func unmarshalTier[T extfloat.Scalar[T]](rd *bytes.Reader) (*Reference[T], error) {
	var zero T
	n := len(zero.Limbs())

	readScalar := func() (T, error) {
		ls := make([]float64, n)
		if err := binary.Read(rd, binary.LittleEndian, ls); err != nil {
			return zero, err
		}
		return zero.FromLimbs(ls), nil
	}

	var scalars [4]T
	for i := range scalars {
		s, err := readScalar()
		if err != nil {
			return nil, fmt.Errorf("%w: scalar %d: %v", ErrTruncated, i, err)
		}
		scalars[i] = s
	}

	var escaped uint8
	var escapeIndex int64
	var count uint64
	if err := binary.Read(rd, binary.LittleEndian, &escaped); err != nil {
		return nil, fmt.Errorf("%w: escaped flag: %v", ErrTruncated, err)
	}
	if err := binary.Read(rd, binary.LittleEndian, &escapeIndex); err != nil {
		return nil, fmt.Errorf("%w: escape index: %v", ErrTruncated, err)
	}
	if err := binary.Read(rd, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("%w: point count: %v", ErrTruncated, err)
	}
	if count == 0 || count > uint64(rd.Len()/16)+1 {
		return nil, fmt.Errorf("%w: implausible point count %d", ErrTruncated, count)
	}

	points := make([]complex128, count)
	for i := range points {
		var re, im float64
		if err := binary.Read(rd, binary.LittleEndian, &re); err != nil {
			return nil, fmt.Errorf("%w: point %d: %v", ErrTruncated, i, err)
		}
		if err := binary.Read(rd, binary.LittleEndian, &im); err != nil {
			return nil, fmt.Errorf("%w: point %d: %v", ErrTruncated, i, err)
		}
		points[i] = complex(re, im)
	}
	if re, im := real(points[0]), imag(points[0]); re != 0 || im != 0 {
		return nil, fmt.Errorf("%w: first point must be zero, got %g%+gi", ErrTruncated, re, im)
	}
	for _, p := range points {
		if math.IsNaN(real(p)) || math.IsNaN(imag(p)) {
			return nil, fmt.Errorf("%w: NaN point", ErrTruncated)
		}
	}

	return &Reference[T]{
		center:      extfloat.Complex[T]{Re: scalars[0], Im: scalars[1]},
		cursor:      extfloat.Complex[T]{Re: scalars[2], Im: scalars[3]},
		points:      points,
		escaped:     escaped != 0,
		escapeIndex: int(escapeIndex),
		four:        zero.FromFloat64(4),
	}, nil
}

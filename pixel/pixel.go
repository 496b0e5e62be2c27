// Package pixel decodes raw plane bytes into typed element arrays.
//
// A destination array covers the full multidimensional extent and is
// allocated by the caller; each Convert call fills the contiguous
// sub-range belonging to one plane, so a dataset can be loaded
// incrementally plane by plane. Only the byte-to-number step varies per
// element type; the offset and stride bookkeeping is shared.
package pixel

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Sentinel errors.
var (
	// ErrUnsupportedBitDepth is returned when a bit depth is not
	// byte-aligned or is incompatible with the element type.
	ErrUnsupportedBitDepth = errors.New("pixel: unsupported bit depth")

	// ErrTruncatedPlane is returned when a raw buffer is not an exact
	// multiple of the element size. Nothing is written.
	ErrTruncatedPlane = errors.New("pixel: truncated plane")

	// ErrShortDestination is returned when the plane's element range does
	// not fit in the destination array. Nothing is written.
	ErrShortDestination = errors.New("pixel: destination too small")
)

// Type tags the supported element types.
type Type uint8

const (
	Int8 Type = iota
	Int16
	Int32
	Int64
	Float32
	Float64
)

// Bits returns the fixed width of the element type.
func (t Type) Bits() int {
	switch t {
	case Int8:
		return 8
	case Int16:
		return 16
	case Int32, Float32:
		return 32
	case Int64, Float64:
		return 64
	default:
		return 0
	}
}

func (t Type) String() string {
	switch t {
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	default:
		return "unknown"
	}
}

// Element constrains destination element types to the supported
// fixed-width numerics.
type Element interface {
	int8 | int16 | int32 | int64 | float32 | float64
}

// TypeOf returns the tag for the element type T.
func TypeOf[T Element]() Type {
	var zero T
	switch any(zero).(type) {
	case int8:
		return Int8
	case int16:
		return Int16
	case int32:
		return Int32
	case int64:
		return Int64
	case float32:
		return Float32
	default:
		return Float64
	}
}

// Count returns the number of elements covering the given extents, for
// pre-sizing destination arrays.
func Count(dims ...int) int {
	if len(dims) == 0 {
		return 0
	}
	n := 1
	for _, d := range dims {
		n *= d
	}
	return n
}

// Convert decodes raw into dst, writing len(raw)/bytesPerElement elements
// at index planeIndex*(len(raw)/bytesPerElement). Planes are assumed
// equal-sized and laid out contiguously in element order.
//
// Integer elements accept any byte-aligned depth up to their own width;
// values narrower than the element are assembled unsigned. Float elements
// require an exact-width depth. On any error nothing is written.
func Convert[T Element](dst []T, raw []byte, planeIndex, bitsPerPixel int, littleEndian bool) error {
	bpe, err := bytesPerElement(TypeOf[T](), bitsPerPixel)
	if err != nil {
		return err
	}
	if len(raw)%bpe != 0 {
		return fmt.Errorf("%w: %d bytes with %d-byte elements", ErrTruncatedPlane, len(raw), bpe)
	}
	count := len(raw) / bpe
	offset := planeIndex * count
	if planeIndex < 0 || offset+count > len(dst) {
		return fmt.Errorf("%w: plane %d needs elements [%d, %d), destination holds %d",
			ErrShortDestination, planeIndex, offset, offset+count, len(dst))
	}
	for i, idx := 0, offset; i < len(raw); i, idx = i+bpe, idx+1 {
		dst[idx] = decode[T](raw[i:i+bpe], littleEndian)
	}
	return nil
}

func bytesPerElement(t Type, bitsPerPixel int) (int, error) {
	if bitsPerPixel <= 0 || bitsPerPixel%8 != 0 {
		return 0, fmt.Errorf("%w: %d bits per pixel", ErrUnsupportedBitDepth, bitsPerPixel)
	}
	switch t {
	case Float32, Float64:
		if bitsPerPixel != t.Bits() {
			return 0, fmt.Errorf("%w: %d bits per pixel for %s elements", ErrUnsupportedBitDepth, bitsPerPixel, t)
		}
	default:
		if bitsPerPixel > t.Bits() {
			return 0, fmt.Errorf("%w: %d bits per pixel exceeds %s elements", ErrUnsupportedBitDepth, bitsPerPixel, t)
		}
	}
	return bitsPerPixel / 8, nil
}

// decode interprets the bytes as one element honoring the byte order.
func decode[T Element](b []byte, little bool) T {
	u := decodeUint(b, little)
	var zero T
	switch any(zero).(type) {
	case float32:
		return any(math.Float32frombits(uint32(u))).(T)
	case float64:
		return any(math.Float64frombits(u)).(T)
	default:
		return T(u)
	}
}

func decodeUint(b []byte, little bool) uint64 {
	switch len(b) {
	case 2:
		if little {
			return uint64(binary.LittleEndian.Uint16(b))
		}
		return uint64(binary.BigEndian.Uint16(b))
	case 4:
		if little {
			return uint64(binary.LittleEndian.Uint32(b))
		}
		return uint64(binary.BigEndian.Uint32(b))
	case 8:
		if little {
			return binary.LittleEndian.Uint64(b)
		}
		return binary.BigEndian.Uint64(b)
	}
	// Remaining widths (8-bit, 24-bit and friends) assemble byte by byte.
	var u uint64
	if little {
		for i := len(b) - 1; i >= 0; i-- {
			u = u<<8 | uint64(b[i])
		}
		return u
	}
	for _, v := range b {
		u = u<<8 | uint64(v)
	}
	return u
}

package wire

import (
	"fmt"
	"math"
)

// Integer edge-case helpers for generated code. Wire ints are always
// carried as i64 by shape runtimes; these narrow with bounds checks
// instead of silently truncating.

// I32FromI64 narrows v to int32.
func I32FromI64(v int64) (int32, error) {
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %d does not fit in i32", ErrDecode, v)
	}
	return int32(v), nil
}

// I16FromI64 narrows v to int16.
func I16FromI64(v int64) (int16, error) {
	if v < math.MinInt16 || v > math.MaxInt16 {
		return 0, fmt.Errorf("%w: %d does not fit in i16", ErrDecode, v)
	}
	return int16(v), nil
}

// ByteFromI64 narrows v to int8.
func ByteFromI64(v int64) (int8, error) {
	if v < math.MinInt8 || v > math.MaxInt8 {
		return 0, fmt.Errorf("%w: %d does not fit in a byte", ErrDecode, v)
	}
	return int8(v), nil
}

// IntFromI64 converts v to the platform int, erroring on 32-bit
// platforms when v does not fit.
func IntFromI64(v int64) (int, error) {
	if int64(int(v)) != v {
		return 0, fmt.Errorf("%w: %d does not fit in int", ErrDecode, v)
	}
	return int(v), nil
}

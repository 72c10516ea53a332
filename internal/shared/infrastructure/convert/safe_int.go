// Package convert provides checked integer conversions.
package convert

import (
	"fmt"
	"math"
)

// IntToUintSafe converts an int to uint, panicking if negative.
// Use this only for values that are non-negative by construction.
func IntToUintSafe(v int) uint {
	if v < 0 {
		panic(fmt.Sprintf("cannot convert negative int to uint: %d", v))
	}
	return uint(v)
}

// IntToUint32Clamped converts an int to uint32, clamping to [0, MaxUint32].
func IntToUint32Clamped(v int) uint32 {
	if v < 0 {
		return 0
	}
	if uint64(v) > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(v)
}

package convert

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIntToUintSafe(t *testing.T) {
	assert.Equal(t, uint(0), IntToUintSafe(0))
	assert.Equal(t, uint(7), IntToUintSafe(7))
	assert.Panics(t, func() { IntToUintSafe(-1) })
}

func TestIntToUint32Clamped(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want uint32
	}{
		{"zero", 0, 0},
		{"positive", 5, 5},
		{"negative clamps to zero", -3, 0},
		{"max", math.MaxUint32, math.MaxUint32},
		{"overflow clamps", math.MaxUint32 + 1, math.MaxUint32},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IntToUint32Clamped(tt.in))
		})
	}
}

package osc

import (
	"encoding/binary"
	"math"
	"testing"
)

// decodeFloat32Bits must agree with the bit-cast path for every finite value;
// an exponent field of 255 (+Inf, -Inf or NaN) must decode to NaN. This is
// the "portable fallback" described in SPEC_FULL's decoder section,
// exercised rather than left dead.
func TestDecodeFloat32BitsMatchesBitCast(t *testing.T) {
	values := []float32{0, -0, 1, -1, 0.5, -0.5, 3.1415927, 1e30, -1e-30, float32(math.Inf(1)), float32(math.Inf(-1))}
	for _, v := range values {
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], math.Float32bits(v))

		want := decodeFloat32BigEndian(b[:])
		got := decodeFloat32Bits(b[:])

		if math.IsNaN(float64(want)) || math.IsInf(float64(want), 0) {
			if !math.IsNaN(float64(got)) {
				t.Fatalf("decodeFloat32Bits(%v) = %v, want NaN", v, got)
			}
			continue
		}
		if want != got {
			t.Fatalf("decodeFloat32Bits(%v bits) = %v, want %v", v, got, want)
		}
	}
}

func TestDecodeFloat32BitsNaN(t *testing.T) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], math.Float32bits(float32(math.NaN())))
	got := decodeFloat32Bits(b[:])
	if !math.IsNaN(float64(got)) {
		t.Fatalf("expected NaN, got %v", got)
	}
}

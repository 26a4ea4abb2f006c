// Copyright 2024, The bitarchitect Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package value

import (
	"math"
	"math/big"
	"testing"
)

func TestUIntRoundTrip(t *testing.T) {
	raw := big.NewInt(0x1234)
	v, err := Decode(raw, 16, UInt)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got, err := Encode(v, 16, UInt)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if got.Cmp(raw) != 0 {
		t.Fatalf("got %s, want %s", got, raw)
	}
}

func TestSIntNegative(t *testing.T) {
	// 6-bit two's complement encoding of -1 is 0b111111 = 63.
	v, err := Decode(big.NewInt(63), 6, SInt)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if v.Sint.Cmp(big.NewInt(-1)) != 0 {
		t.Fatalf("Sint = %s, want -1", v.Sint)
	}
	raw, err := Encode(v, 6, SInt)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if raw.Cmp(big.NewInt(63)) != 0 {
		t.Fatalf("raw = %s, want 63", raw)
	}
}

func TestSIntPositiveUnchanged(t *testing.T) {
	v, err := Decode(big.NewInt(5), 6, SInt)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if v.Sint.Cmp(big.NewInt(5)) != 0 {
		t.Fatalf("Sint = %s, want 5", v.Sint)
	}
}

func TestF32RoundTrip(t *testing.T) {
	raw := f32ToUint(float32(math.Pi))
	v, err := Decode(raw, 32, F32)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if v.F32 != float32(math.Pi) {
		t.Fatalf("F32 = %v, want %v", v.F32, math.Pi)
	}
	got, err := Encode(v, 32, F32)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if got.Cmp(raw) != 0 {
		t.Fatalf("got %s, want %s", got, raw)
	}
}

func TestF32RejectsWrongWidth(t *testing.T) {
	if _, err := Decode(big.NewInt(0), 16, F32); err == nil {
		t.Fatal("expected error decoding f32 at width 16")
	}
}

func TestF64RoundTrip(t *testing.T) {
	raw := f64ToUint(math.Pi)
	v, err := Decode(raw, 64, F64)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if v.F64 != math.Pi {
		t.Fatalf("F64 = %v, want %v", v.F64, math.Pi)
	}
}

func TestHexLowerAndUpper(t *testing.T) {
	raw := big.NewInt(0xab)
	v, err := Decode(raw, 8, HexLower)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if v.Hex != "ab" {
		t.Fatalf("Hex = %q, want ab", v.Hex)
	}
	v2, err := Decode(raw, 8, HexUpper)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if v2.Hex != "AB" {
		t.Fatalf("Hex = %q, want AB", v2.Hex)
	}
	got, err := Encode(v, 8, HexLower)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if got.Cmp(raw) != 0 {
		t.Fatalf("got %s, want %s", got, raw)
	}
}

func TestBinRoundTrip(t *testing.T) {
	raw := big.NewInt(5) // 0b000101 in 6 bits
	v, err := Decode(raw, 6, Bin)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if v.BinS != "000101" {
		t.Fatalf("BinS = %q, want 000101", v.BinS)
	}
	got, err := Encode(v, 6, Bin)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if got.Cmp(raw) != 0 {
		t.Fatalf("got %s, want %s", got, raw)
	}
}

func TestBytesRoundTrip(t *testing.T) {
	raw := big.NewInt(0x41) // 'A'
	v, err := Decode(raw, 8, Bytes)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if string(v.Bytes) != "A" {
		t.Fatalf("Bytes = %q, want A", v.Bytes)
	}
	got, err := Encode(v, 8, Bytes)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if got.Cmp(raw) != 0 {
		t.Fatalf("got %s, want %s", got, raw)
	}
}

func TestUIntBigWidth(t *testing.T) {
	n := 4096
	raw := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(n)), big.NewInt(1))
	v, err := Decode(raw, n, UInt)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if v.Uint.Cmp(raw) != 0 {
		t.Fatalf("Uint mismatch at width %d", n)
	}
}

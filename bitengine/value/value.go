// Copyright 2024, The bitarchitect Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package value implements the L2 codec: conversion between a raw unsigned
// bit-field (as read from or written to a bitbuf.Buffer) and the tagged
// union of interpreted values a pattern can bind to a label.
package value

import (
	"fmt"
	"math/big"

	"github.com/dsnet/bitarchitect/bitengine/bitbuf"
)

// Encoding names one of the value interpretations a VALUE pattern token can
// request, mirroring bit_utils.Encoding.
type Encoding int

const (
	UInt Encoding = iota
	SInt
	F32
	F64
	HexLower
	HexUpper
	Bin
	Bytes
	Char
)

func (e Encoding) String() string {
	switch e {
	case UInt:
		return "uint"
	case SInt:
		return "sint"
	case F32:
		return "f32"
	case F64:
		return "f64"
	case HexLower:
		return "hex-lower"
	case HexUpper:
		return "hex-upper"
	case Bin:
		return "bin"
	case Bytes:
		return "bytes"
	case Char:
		return "char"
	default:
		return fmt.Sprintf("Encoding(%d)", int(e))
	}
}

// Value is a decoded pattern value: exactly one of its fields is
// meaningful, selected by Encoding.
type Value struct {
	Encoding Encoding
	Width    int // bit width the value occupied on the wire

	Uint  *big.Int // UInt
	Sint  *big.Int // SInt, already converted out of two's complement
	F32   float32
	F64   float64
	Hex   string // HexLower / HexUpper
	BinS  string // Bin
	Bytes []byte // Bytes / Char
}

// Decode interprets a raw width-bit unsigned integer (as produced by
// bitbuf.Buffer.Read) according to enc, mirroring bit_utils.uint_decode.
func Decode(raw *big.Int, width int, enc Encoding) (Value, error) {
	v := Value{Encoding: enc, Width: width}
	switch enc {
	case UInt:
		v.Uint = new(big.Int).Set(raw)
	case SInt:
		v.Sint = sintFromUint(raw, width)
	case F32:
		if width != 32 {
			return Value{}, fmt.Errorf("%w: f32 requires a 32-bit width, got %d", ErrInvalidWidth, width)
		}
		b, err := bitbuf.UintToBytes(raw, width, 0, 0, 0, false, false)
		if err != nil {
			return Value{}, err
		}
		v.F32 = bytesToF32(b)
	case F64:
		if width != 64 {
			return Value{}, fmt.Errorf("%w: f64 requires a 64-bit width, got %d", ErrInvalidWidth, width)
		}
		b, err := bitbuf.UintToBytes(raw, width, 0, 0, 0, false, false)
		if err != nil {
			return Value{}, err
		}
		v.F64 = bytesToF64(b)
	case HexLower:
		v.Hex = fmt.Sprintf("%0*x", hexDigits(width), raw)
	case HexUpper:
		v.Hex = fmt.Sprintf("%0*X", hexDigits(width), raw)
	case Bin:
		v.BinS = binString(raw, width)
	case Bytes, Char:
		totalBits := width + width%8
		b, err := bitbuf.UintToBytes(raw, totalBits, 0, 0, 0, false, false)
		if err != nil {
			return Value{}, err
		}
		v.Bytes = b
	default:
		return Value{}, fmt.Errorf("%w: unknown encoding %v", ErrInvalidWidth, enc)
	}
	return v, nil
}

// Encode converts a decoded Value back into the raw width-bit unsigned
// integer a bitbuf.Buffer.Write expects, mirroring bit_utils.uint_encode.
func Encode(v Value, width int, enc Encoding) (*big.Int, error) {
	switch enc {
	case UInt:
		return new(big.Int).Set(v.Uint), nil
	case SInt:
		return sintToUint(v.Sint, width), nil
	case F32:
		return f32ToUint(v.F32), nil
	case F64:
		return f64ToUint(v.F64), nil
	case HexLower, HexUpper:
		n, ok := new(big.Int).SetString(v.Hex, 16)
		if !ok {
			return nil, fmt.Errorf("%w: %q is not valid hex", ErrInvalidWidth, v.Hex)
		}
		return n, nil
	case Bin:
		n, ok := new(big.Int).SetString(v.BinS, 2)
		if !ok {
			return nil, fmt.Errorf("%w: %q is not a valid binary string", ErrInvalidWidth, v.BinS)
		}
		return n, nil
	case Bytes, Char:
		n, _, err := bitbuf.BytesToUint(v.Bytes, 0, 0, false, false)
		return n, err
	default:
		return nil, fmt.Errorf("%w: unknown encoding %v", ErrInvalidWidth, enc)
	}
}

// Equal reports whether v and other carry the same decoded value. Two
// Values of different Encodings are never equal, mirroring the plain
// Python equality handle_assertion and handle_matchlabel rely on.
func (v Value) Equal(other Value) bool {
	if v.Encoding != other.Encoding {
		return false
	}
	switch v.Encoding {
	case UInt:
		return bigEqual(v.Uint, other.Uint)
	case SInt:
		return bigEqual(v.Sint, other.Sint)
	case F32:
		return v.F32 == other.F32
	case F64:
		return v.F64 == other.F64
	case HexLower, HexUpper:
		return v.Hex == other.Hex
	case Bin:
		return v.BinS == other.BinS
	case Bytes, Char:
		return bytesEqual(v.Bytes, other.Bytes)
	default:
		return false
	}
}

func bigEqual(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Cmp(b) == 0
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func hexDigits(width int) int {
	return (width + 3) / 4
}

func binString(raw *big.Int, width int) string {
	s := raw.Text(2)
	if len(s) < width {
		s = zeros(width-len(s)) + s
	}
	return s
}

func zeros(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = '0'
	}
	return string(b)
}

func sintFromUint(raw *big.Int, width int) *big.Int {
	msb := new(big.Int).Lsh(big.NewInt(1), uint(width-1))
	if raw.Cmp(msb) >= 0 {
		full := new(big.Int).Lsh(big.NewInt(1), uint(width))
		return new(big.Int).Sub(raw, full)
	}
	return new(big.Int).Set(raw)
}

func sintToUint(v *big.Int, width int) *big.Int {
	if v.Sign() >= 0 {
		return new(big.Int).Set(v)
	}
	full := new(big.Int).Lsh(big.NewInt(1), uint(width))
	return new(big.Int).Add(v, full)
}

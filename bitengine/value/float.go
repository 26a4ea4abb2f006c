// Copyright 2024, The bitarchitect Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package value

import (
	"encoding/binary"
	"math"
	"math/big"
)

func bytesToF32(b []byte) float32 {
	return math.Float32frombits(binary.BigEndian.Uint32(b))
}

func bytesToF64(b []byte) float64 {
	return math.Float64frombits(binary.BigEndian.Uint64(b))
}

func f32ToUint(f float32) *big.Int {
	return new(big.Int).SetUint64(uint64(math.Float32bits(f)))
}

func f64ToUint(f float64) *big.Int {
	return new(big.Int).SetUint64(math.Float64bits(f))
}

// Copyright 2024, The bitarchitect Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package bitbuf

import (
	"fmt"
	"math/big"

	"github.com/dsnet/golib/bits"
)

// MinBitsUint returns the minimum number of bits needed to represent v,
// equivalent to Python bit_utils.min_bits_uint. big.Int.BitLen already
// returns exactly this value for non-negative integers.
func MinBitsUint(v *big.Int) int {
	if v.Sign() <= 0 {
		return 0
	}
	return v.BitLen()
}

// BytesToUint decodes a big-endian bytes slice into an unsigned integer,
// optionally stripping lstrip MSBs from the first byte and rstrip LSBs from
// the last byte (counted in the original, pre-reversal byte order), and
// optionally reversing or inverting the bits.
//
// Ported from Python bit_utils.bytes_to_uint.
func BytesToUint(data []byte, lstrip, rstrip int, reverse, invert bool) (*big.Int, int, error) {
	if lstrip < 0 {
		return nil, 0, fmt.Errorf("%w: lstrip (%d) must be non-negative", ErrInvalidWidth, lstrip)
	}
	if rstrip < 0 {
		return nil, 0, fmt.Errorf("%w: rstrip (%d) must be non-negative", ErrInvalidWidth, rstrip)
	}
	buf := append([]byte(nil), data...)
	numBits := len(buf)*8 - lstrip - rstrip

	if invert {
		nb := append([]byte(nil), buf...)
		bits.Invert(nb)
		buf = nb
	}

	if lstrip > 0 {
		if lstrip > len(buf)*8 {
			return nil, 0, fmt.Errorf("%w: lstrip value of %d exceeded number of bits in bytes object (%d)", ErrInvalidWidth, lstrip, len(buf)*8)
		}
		lstripBytes, lstripRem := lstrip/8, lstrip%8
		buf = buf[lstripBytes:]
		if len(buf) > 0 {
			buf[0] = rmaskByte(8-lstripRem, buf[0])
		}
		lstrip = lstripRem
	}

	if rstrip > 0 {
		if rstrip > len(buf)*8 {
			return nil, 0, fmt.Errorf("%w: rstrip value of %d exceeded number of bits in bytes object (%d)", ErrInvalidWidth, rstrip, len(buf)*8)
		}
		rstripBytes, rstripRem := rstrip/8, rstrip%8
		if rstripBytes > 0 {
			buf = buf[:len(buf)-rstripBytes]
		}
		if len(buf) > 0 {
			buf[len(buf)-1] = lmaskByte(8-rstripRem, buf[len(buf)-1])
		}
		rstrip = rstripRem
	}

	if reverse {
		rev := make([]byte, len(buf))
		for i, v := range buf {
			_ = v
			rev[i] = reverseLUT[buf[len(buf)-1-i]]
		}
		buf = rev
	}

	result := new(big.Int).SetBytes(buf)
	if !reverse {
		result.Rsh(result, uint(rstrip))
	} else {
		result.Rsh(result, uint(lstrip))
	}
	return result, numBits, nil
}

// UintToBytes is the inverse of BytesToUint for the same
// (lstrip=loffset, rstrip=roffset, reverse, invert) parameters.
//
// numBits is the number of LSBs of value that are meaningful; it must be at
// least MinBitsUint(value). loffset (0..7) leaves that many leading bits of
// the first output byte occupied by the MSBs of lvalue; any trailing partial
// byte is filled from the LSBs of rvalue.
//
// Ported from Python bit_utils.uint_to_bytes.
func UintToBytes(value *big.Int, numBits, loffset int, lvalue, rvalue byte, reverse, invert bool) ([]byte, error) {
	if value.Sign() < 0 {
		return nil, fmt.Errorf("%w: value must be non-negative", ErrInvalidWidth)
	}
	if loffset < 0 || loffset >= 8 {
		return nil, fmt.Errorf("%w: loffset must be between 0 and 7 inclusive", ErrInvalidWidth)
	}
	minBits := MinBitsUint(value)
	if numBits < minBits {
		return nil, fmt.Errorf("%w: value requires %d bits but numBits is %d", ErrInvalidWidth, minBits, numBits)
	}

	numBytes := (numBits + 7) / 8
	extraBits := numBytes*8 - numBits

	v := new(big.Int).Set(value)
	var roffset int
	if !reverse {
		roffset = extraBits - loffset
		if roffset < 0 {
			numBytes++
			roffset += 8
		}
		v.Lsh(v, uint(roffset))
	} else {
		v.Lsh(v, uint(loffset))
		roffset = extraBits - loffset
		if roffset < 0 {
			numBytes++
			roffset += 8
		}
	}

	// Extract bytes LSB-first: index 0 holds the least significant byte.
	bytesData := make([]byte, numBytes)
	tmp := new(big.Int).Set(v)
	mod := new(big.Int)
	divisor := big.NewInt(256)
	for i := 0; i < numBytes; i++ {
		tmp.DivMod(tmp, divisor, mod)
		bytesData[i] = byte(mod.Int64())
	}

	if reverse {
		rev := make([]byte, numBytes)
		for i := 0; i < numBytes; i++ {
			rev[i] = reverseLUT[bytesData[numBytes-1-i]]
		}
		bytesData = rev
	}
	if invert {
		bits.Invert(bytesData)
	}

	if loffset > 0 {
		firstByteRmask := 8 - loffset
		bytesData[numBytes-1] = rmaskByte(firstByteRmask, bytesData[numBytes-1]) | lmaskByte(loffset, lvalue)
	}
	if roffset > 0 {
		lastByteLmask := 8 - roffset
		bytesData[0] = lmaskByte(lastByteLmask, bytesData[0]) | rmaskByte(roffset, rvalue)
	}

	out := make([]byte, numBytes)
	for i, b := range bytesData {
		out[numBytes-1-i] = b
	}
	return out, nil
}

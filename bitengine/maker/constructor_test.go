// Copyright 2024, The bitarchitect Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package maker

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/dsnet/bitarchitect/bitengine/value"
	"github.com/dsnet/bitarchitect/internal/testutil"
)

func constructAll(t *testing.T, pat string, tree DataTree) *Constructor {
	t.Helper()
	instrs := mustFlatten(t, pat)
	c := NewConstructor(tree)
	if _, err := c.Run(instrs); err != nil {
		t.Fatalf("Run(%q): %v", pat, err)
	}
	if err := c.Finalize(); err != nil {
		t.Fatalf("Finalize(%q): %v", pat, err)
	}
	return c
}

func TestConstructorValues(t *testing.T) {
	tree := DataTree{
		value.Value{Encoding: value.UInt, Width: 8, Uint: big.NewInt(5)},
		value.Value{Encoding: value.UInt, Width: 16, Uint: big.NewInt(0x1234)},
		value.Value{Encoding: value.UInt, Width: 32, Uint: big.NewInt(0x89abcdef)},
		value.Value{Encoding: value.SInt, Width: 8, Sint: big.NewInt(-2)},
		value.Value{Encoding: value.HexLower, Width: 8, Hex: "ab"},
	}
	c := constructAll(t, "u8 u16 u32 s8 x8", tree)

	want := testutil.MustDecodeHex("05123489abcdeffeab")
	if !bytes.Equal(want, c.Bytes()) {
		t.Errorf("Bytes() = %x, want %x", c.Bytes(), want)
	}
}

func TestConstructorNesting(t *testing.T) {
	tree := DataTree{
		DataTree{
			value.Value{Encoding: value.UInt, Width: 8, Uint: big.NewInt(1)},
			value.Value{Encoding: value.UInt, Width: 8, Uint: big.NewInt(2)},
		},
		value.Value{Encoding: value.UInt, Width: 8, Uint: big.NewInt(3)},
	}
	c := constructAll(t, "[ u8 u8 ] u8", tree)

	want := testutil.MustDecodeHex("010203")
	if !bytes.Equal(want, c.Bytes()) {
		t.Errorf("Bytes() = %x, want %x", c.Bytes(), want)
	}
}

func TestConstructorEndianSwap(t *testing.T) {
	tree := DataTree{
		value.Value{Encoding: value.UInt, Width: 32, Uint: big.NewInt(0x78563412)},
	}
	c := constructAll(t, "e32 u32", tree)

	want := testutil.MustDecodeHex("12345678")
	if !bytes.Equal(want, c.Bytes()) {
		t.Errorf("Bytes() = %x, want %x", c.Bytes(), want)
	}
}

func TestConstructorMarkerScan(t *testing.T) {
	// The marker literal is written straight from the instruction's own
	// MarkerLiteral field, not popped off the data stream, so the tree
	// carries only the implicit m/nn pull widths plus what follows. The
	// final u16 is the 16-bit prefix the scan rotated past the marker.
	tree := DataTree{
		DataTree{
			value.Value{Encoding: value.UInt, Width: 5, Uint: big.NewInt(16)},
			value.Value{Encoding: value.UInt, Width: 6, Uint: big.NewInt(32)},
		},
		value.Value{Encoding: value.UInt, Width: 16, Uint: big.NewInt(0xff00)},
		value.Value{Encoding: value.UInt, Width: 16, Uint: big.NewInt(0x0011)},
	}
	c := constructAll(t, `m^"dead" u16 u16`, tree)

	want := testutil.MustDecodeHex("0011deadff00")
	if !bytes.Equal(want, c.Bytes()) {
		t.Errorf("Bytes() = %x, want %x", c.Bytes(), want)
	}
}

// TestRoundTripViaMaker extracts each data vector and constructs it straight
// back, checking the rebuilt bytes match the input exactly. This is the
// maker-level half of the round-trip property the blueprint engine exists
// to provide: a well-formed blueprint run in each direction against the
// other's output is the identity.
func TestRoundTripViaMaker(t *testing.T) {
	vectors := []struct {
		desc string
		pat  string
		data string
	}{
		{desc: "plain values", pat: "u8 u16 u32 s8 x8", data: "05123489abcdeffeab"},
		{desc: "nested group", pat: "[ u8 u8 ] u8", data: "010203"},
		{desc: "endian swap", pat: "e32 u32", data: "12345678"},
		{desc: "marker scan", pat: `m^"dead" u16 u16`, data: "0011deadff00"},
		{desc: "zeros and ones", pat: "z8 o8", data: "00ff"},
	}
	for _, v := range vectors {
		data := testutil.MustDecodeHex(v.data)
		e := extractAll(t, v.pat, data)
		c := constructAll(t, v.pat, e.Tree())
		if !bytes.Equal(data, c.Bytes()) {
			t.Errorf("%s: round trip mismatch:\ngot  %x\nwant %x", v.desc, c.Bytes(), data)
		}
	}
}

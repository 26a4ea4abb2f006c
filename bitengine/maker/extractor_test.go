// Copyright 2024, The bitarchitect Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package maker

import (
	"errors"
	"math/big"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dsnet/bitarchitect/bitengine/pattern"
	"github.com/dsnet/bitarchitect/bitengine/value"
	"github.com/dsnet/bitarchitect/internal/testutil"
)

func mustFlatten(t *testing.T, pat string) []pattern.Instruction {
	t.Helper()
	prog, err := pattern.Compile(pat)
	if err != nil {
		t.Fatalf("Compile(%q): %v", pat, err)
	}
	instrs, err := prog.Flatten()
	if err != nil {
		t.Fatalf("Flatten(%q): %v", pat, err)
	}
	return instrs
}

func extractAll(t *testing.T, pat string, data []byte) *Extractor {
	t.Helper()
	instrs := mustFlatten(t, pat)
	e := NewExtractor(data)
	if _, err := e.Run(instrs); err != nil {
		t.Fatalf("Run(%q): %v", pat, err)
	}
	if err := e.Finalize(); err != nil {
		t.Fatalf("Finalize(%q): %v", pat, err)
	}
	return e
}

func TestExtractorValues(t *testing.T) {
	data := testutil.MustDecodeHex("05123489abcdeffeab")
	e := extractAll(t, "u8 u16 u32 s8 x8", data)

	want := DataTree{
		value.Value{Encoding: value.UInt, Width: 8, Uint: big.NewInt(5)},
		value.Value{Encoding: value.UInt, Width: 16, Uint: big.NewInt(0x1234)},
		value.Value{Encoding: value.UInt, Width: 32, Uint: big.NewInt(0x89abcdef)},
		value.Value{Encoding: value.SInt, Width: 8, Sint: big.NewInt(-2)},
		value.Value{Encoding: value.HexLower, Width: 8, Hex: "ab"},
	}
	if diff := cmp.Diff(want, e.Tree()); diff != "" {
		t.Errorf("Tree() mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractorNesting(t *testing.T) {
	data := testutil.MustDecodeHex("010203")
	e := extractAll(t, "[ u8 u8 ] u8", data)

	want := DataTree{
		DataTree{
			value.Value{Encoding: value.UInt, Width: 8, Uint: big.NewInt(1)},
			value.Value{Encoding: value.UInt, Width: 8, Uint: big.NewInt(2)},
		},
		value.Value{Encoding: value.UInt, Width: 8, Uint: big.NewInt(3)},
	}
	if diff := cmp.Diff(want, e.Tree()); diff != "" {
		t.Errorf("Tree() mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractorZerosOnesBindNothing(t *testing.T) {
	data := testutil.MustDecodeHex("00ff")
	e := extractAll(t, "z8 o8", data)

	if diff := cmp.Diff(DataTree{}, e.Tree()); diff != "" {
		t.Errorf("z8 o8 should bind no leaves, got diff (-want +got):\n%s", diff)
	}
}

func TestExtractorZerosOnesMismatch(t *testing.T) {
	instrs := mustFlatten(t, "z8")
	e := NewExtractor(testutil.MustDecodeHex("01"))
	_, err := e.Run(instrs)
	if !errors.Is(err, ErrZeros) {
		t.Fatalf("Run: got err %v, want ErrZeros", err)
	}
}

func TestExtractorAssertion(t *testing.T) {
	vectors := []struct {
		data    string
		wantErr bool
	}{
		{data: "05", wantErr: false},
		{data: "06", wantErr: true},
	}
	for i, v := range vectors {
		instrs := mustFlatten(t, `u8 =5;`)
		e := NewExtractor(testutil.MustDecodeHex(v.data))
		_, err := e.Run(instrs)
		if gotErr := err != nil; gotErr != v.wantErr {
			t.Errorf("test %d, wantErr=%v, got err=%v", i, v.wantErr, err)
		}
		if v.wantErr && !errors.Is(err, ErrAssertion) {
			t.Errorf("test %d, want ErrAssertion, got %v", i, err)
		}
	}
}

func TestExtractorLabels(t *testing.T) {
	data := testutil.MustDecodeHex("0505")
	instrs := mustFlatten(t, `u8 #"len" u8 =#"len"`)
	e := NewExtractor(data)
	if _, err := e.Run(instrs); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got, err := e.Label("len")
	if err != nil {
		t.Fatalf("Label: %v", err)
	}
	want := value.Value{Encoding: value.UInt, Width: 8, Uint: big.NewInt(5)}
	if !got.Equal(want) {
		t.Errorf("Label(len) = %+v, want %+v", got, want)
	}

	e2 := NewExtractor(testutil.MustDecodeHex("0506"))
	if _, err := e2.Run(instrs); !errors.Is(err, ErrMatchLabel) {
		t.Errorf("mismatched label: got err %v, want ErrMatchLabel", err)
	}
}

func TestExtractorMarkerScan(t *testing.T) {
	data := testutil.MustDecodeHex("0011deadff00")
	e := extractAll(t, `m^"dead" u16`, data)

	// The marker literal itself is consumed off the buffer but never bound
	// into the tree — only the implicit m/nn pull widths and whatever
	// follows the marker are.
	want := DataTree{
		DataTree{
			value.Value{Encoding: value.UInt, Width: 5, Uint: big.NewInt(16)},
			value.Value{Encoding: value.UInt, Width: 6, Uint: big.NewInt(32)},
		},
		value.Value{Encoding: value.UInt, Width: 16, Uint: big.NewInt(0xff00)},
	}
	if diff := cmp.Diff(want, e.Tree()); diff != "" {
		t.Errorf("Tree() mismatch (-want +got):\n%s", diff)
	}
}

// TestExtractorMarkerScanReverseAll builds its input by constructing the
// same tree under the same "Ry m^..." blueprint, so the on-wire marker
// literal is whatever the active reverse-all setting actually produces.
// Extraction must find that literal by reversing the whole search literal
// as one span (byte order and bit order both), not just the bits within
// each byte, or the scan misses the marker entirely. The final u16 holds
// the 16-bit prefix the scan rotates past the marker.
func TestExtractorMarkerScanReverseAll(t *testing.T) {
	pat := `Ry m^"dead" u16 u16`
	tree := DataTree{
		DataTree{
			value.Value{Encoding: value.UInt, Width: 5, Uint: big.NewInt(16)},
			value.Value{Encoding: value.UInt, Width: 6, Uint: big.NewInt(32)},
		},
		value.Value{Encoding: value.UInt, Width: 16, Uint: big.NewInt(0xff00)},
		value.Value{Encoding: value.UInt, Width: 16, Uint: big.NewInt(0x0011)},
	}
	c := constructAll(t, pat, tree)

	e := extractAll(t, pat, c.Bytes())
	if diff := cmp.Diff(tree, e.Tree()); diff != "" {
		t.Errorf("round trip under Ry mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractorEndianSwap(t *testing.T) {
	data := testutil.MustDecodeHex("12345678")
	e := extractAll(t, "e32 u32", data)

	want := DataTree{
		value.Value{Encoding: value.UInt, Width: 32, Uint: big.NewInt(0x78563412)},
	}
	if diff := cmp.Diff(want, e.Tree()); diff != "" {
		t.Errorf("Tree() mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractorOverlappingReverse(t *testing.T) {
	instrs := mustFlatten(t, `r16 r0.8`)
	e := NewExtractor(testutil.MustDecodeHex("0000"))
	_, err := e.Run(instrs)
	if !errors.Is(err, ErrOverlappingReverse) {
		t.Fatalf("Run: got err %v, want ErrOverlappingReverse", err)
	}
}

func TestExtractorIncompleteData(t *testing.T) {
	instrs := mustFlatten(t, "u32")
	e := NewExtractor(testutil.MustDecodeHex("0011"))
	if _, err := e.Run(instrs); !errors.Is(err, ErrIncompleteData) {
		t.Fatalf("Run: got err %v, want ErrIncompleteData", err)
	}
}

// Copyright 2024, The bitarchitect Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package bitengine_test

import (
	"bytes"
	"testing"

	"github.com/dsnet/bitarchitect/bitengine"
	"github.com/dsnet/bitarchitect/bitengine/maker"
	"github.com/dsnet/bitarchitect/bitengine/pattern"
	"github.com/dsnet/bitarchitect/bitengine/value"
	"github.com/dsnet/bitarchitect/internal/testutil"
)

func TestExtractConstructRoundTrip(t *testing.T) {
	data := testutil.MustDecodeHex("051234")
	tree, err := bitengine.ExtractDataTree("u8 u16", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ExtractDataTree: %v", err)
	}
	out, err := bitengine.ConstructByteStream("u8 u16", tree)
	if err != nil {
		t.Fatalf("ConstructByteStream: %v", err)
	}
	if !bytes.Equal(data, out) {
		t.Errorf("round trip mismatch: got %x, want %x", out, data)
	}
}

func TestPatternRoundTrip(t *testing.T) {
	vectors := []struct {
		desc string
		pat  string
		data string
	}{
		{desc: "plain values", pat: "u8 u16 u32 s8 x8", data: "05123489abcdeffeab"},
		{desc: "nested group", pat: "[ u8 u8 ] u8", data: "010203"},
		{desc: "endian swap", pat: "e32 u32", data: "12345678"},
		{desc: "marker scan", pat: `m^"dead" u16 u16`, data: "0011deadff00"},
	}
	for _, v := range vectors {
		data := testutil.MustDecodeHex(v.data)
		tree, err := bitengine.ExtractDataTree(v.pat, bytes.NewReader(data))
		if err != nil {
			t.Errorf("%s: ExtractDataTree: %v", v.desc, err)
			continue
		}
		out, err := bitengine.ConstructByteStream(v.pat, tree)
		if err != nil {
			t.Errorf("%s: ConstructByteStream: %v", v.desc, err)
			continue
		}
		if !bytes.Equal(data, out) {
			t.Errorf("%s: round trip mismatch:\ngot  %x\nwant %x", v.desc, out, data)
		}
	}
}

// TestUnboundedRepeat drives an `{...}$` blueprint, which Flatten refuses to
// materialize, through the Stream-based path in run instead: one u8 per
// iteration until the cursor reaches end of data.
func TestUnboundedRepeat(t *testing.T) {
	data := testutil.MustDecodeHex("0102030405")
	tree, err := bitengine.ExtractDataTree("{u8}$", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ExtractDataTree: %v", err)
	}
	if len(tree) != len(data) {
		t.Fatalf("got %d leaves, want %d", len(tree), len(data))
	}
	for i, item := range tree {
		v, ok := item.(value.Value)
		if !ok {
			t.Fatalf("item %d is not a value.Value: %#v", i, item)
		}
		if v.Uint.Int64() != int64(data[i]) {
			t.Errorf("item %d = %v, want %d", i, v.Uint, data[i])
		}
	}

	out, err := bitengine.ConstructByteStream("{u8}$", tree)
	if err != nil {
		t.Fatalf("ConstructByteStream: %v", err)
	}
	if !bytes.Equal(data, out) {
		t.Errorf("round trip mismatch: got %x, want %x", out, data)
	}
}

func TestRegistry(t *testing.T) {
	r := bitengine.NewRegistry()
	r.Register("point", "u32 u32")

	bp, err := r.Lookup("point")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	data := testutil.MustDecodeHex("0000000100000002")
	tree, err := bitengine.ExtractDataTree(bp, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ExtractDataTree: %v", err)
	}
	if len(tree) != 2 {
		t.Fatalf("got %d leaves, want 2", len(tree))
	}

	if _, err := r.Lookup("missing"); err != bitengine.ErrUnknownFormat {
		t.Errorf("Lookup(missing) = %v, want ErrUnknownFormat", err)
	}
}

// recordBlueprint scans for a "REC0" marker, reads a big-endian uint32
// length, then reads exactly that many bytes as the payload — a
// dynamic-width field no static pattern string can express, so it is driven
// directly off the Maker interface instead of compiled from one. Finally it
// takes the remaining bytes: whatever preceded the marker, which the scan
// rotated to the end.
func recordBlueprint(m maker.Maker) error {
	if _, err := m.Run([]pattern.Instruction{
		{Directive: pattern.MarkerStart, MarkerLiteral: []byte("REC0")},
	}); err != nil {
		return err
	}
	if _, err := m.Run([]pattern.Instruction{
		{Directive: pattern.Value, NumBits: 32, NumBitsSet: true, Encoding: value.UInt},
		{Directive: pattern.SetLabel, Label: "len"},
	}); err != nil {
		return err
	}
	lenVal, err := m.Label("len")
	if err != nil {
		return err
	}
	n := int(lenVal.Uint.Int64())
	_, err = m.Run([]pattern.Instruction{
		{Directive: pattern.Value, NumBits: n * 8, NumBitsSet: true, Encoding: value.Bytes},
		{Directive: pattern.TakeAll, Encoding: value.Bytes},
	})
	return err
}

// TestRecordBlueprintOverCompressedPayload exercises a callback blueprint
// against a ZIP-shaped fixture carrying a real deflate-compressed member,
// driving bitbuf's marker scan against high-entropy bytes rather than an
// all-literal test vector.
func TestRecordBlueprintOverCompressedPayload(t *testing.T) {
	payload := testutil.FlateBlob(testutil.MustLoadFile("../testdata/sample.txt", -1), 6)
	junk := testutil.MustDecodeHex("aabbccddeeff")
	data := append(append([]byte(nil), junk...), testutil.Record([]byte("REC0"), payload)...)

	tree, err := bitengine.ExtractDataTree(recordBlueprint, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ExtractDataTree: %v", err)
	}

	out, err := bitengine.ConstructByteStream(recordBlueprint, tree)
	if err != nil {
		t.Fatalf("ConstructByteStream: %v", err)
	}
	if !bytes.Equal(data, out) {
		t.Errorf("round trip mismatch: got %d bytes, want %d bytes", len(out), len(data))
	}
}

func TestInvalidBlueprint(t *testing.T) {
	_, err := bitengine.ExtractDataTree(42, bytes.NewReader(nil))
	if err != bitengine.ErrInvalidBlueprint {
		t.Errorf("got %v, want ErrInvalidBlueprint", err)
	}
}

func TestBadPattern(t *testing.T) {
	_, err := bitengine.ExtractDataTree("u", bytes.NewReader(nil))
	if err == nil {
		t.Fatal("expected a compile error for a truncated token")
	}
}

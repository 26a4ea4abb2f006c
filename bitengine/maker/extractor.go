// Copyright 2024, The bitarchitect Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package maker

import (
	"fmt"
	"io"
	"math/big"

	"github.com/dsnet/bitarchitect/bitengine/bitbuf"
	"github.com/dsnet/bitarchitect/bitengine/pattern"
	"github.com/dsnet/bitarchitect/bitengine/value"
	"github.com/dsnet/bitarchitect/internal/errs"
)

// Extractor reads a pattern's instructions against a fixed byte stream,
// binding each one to a decoded value.Value.
type Extractor struct {
	base
	buf *bitbuf.Buffer
}

// NewExtractor wraps data in an Extractor with the cursor at bit 0.
func NewExtractor(data []byte) *Extractor {
	e := &Extractor{buf: bitbuf.NewBuffer(data)}
	e.base = initBase(&e.root)
	return e
}

func (e *Extractor) TellBuffer() int { return ToFormat(e.modLog, e.buf.Len(), e.buf.Tell()) }
func (e *Extractor) AtEOF() bool     { return e.buf.AtEOF() }
func (e *Extractor) Bytes() []byte   { return e.buf.Bytes() }

// Tree returns the resolved data tree accumulated across every Run call so
// far.
func (e *Extractor) Tree() DataTree { return Resolve(e.root) }

// Stream returns the flat sequence of values bound so far, in bind order.
func (e *Extractor) Stream() []value.Value { return append([]value.Value(nil), e.stream...) }

// Finalize reports an unbalanced `[`/`]` across the Run calls made so far.
func (e *Extractor) Finalize() error {
	if len(e.treeStack) != 1 {
		return ErrNesting
	}
	return nil
}

// Run executes instrs against the buffer, returning the values bound at
// this call's top level.
func (e *Extractor) Run(instrs []pattern.Instruction) (out []interface{}, err error) {
	defer errs.Recover(&err)
	e.beginRun()
	for _, in := range instrs {
		e.dispatch(in)
	}
	return e.endRun(), nil
}

func (e *Extractor) dispatch(in pattern.Instruction) {
	switch in.Directive {
	case pattern.Value:
		e.handleValue(in)
	case pattern.Next:
		_, err := e.buf.Seek(in.NumBits, io.SeekCurrent)
		errs.Panic(err)
	case pattern.Zeros:
		v := e.consumeBits(in.NumBits, value.UInt)
		errs.Assert(v.Uint.Sign() == 0, fmt.Errorf("%w: %s", ErrZeros, in.Text))
	case pattern.Ones:
		v := e.consumeBits(in.NumBits, value.UInt)
		allOnes := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(in.NumBits)), big.NewInt(1))
		errs.Assert(v.Uint.Cmp(allOnes) == 0, fmt.Errorf("%w: %s", ErrOnes, in.Text))
	case pattern.Mod:
		e.handleMod(in)
	case pattern.ModOff:
		e.handleModOff(in)
	case pattern.ModSet:
		e.applySetting(in.ModType, in.Setting)
	case pattern.SetLabel:
		e.setLabel(in.Label, e.requireLastValue(in))
	case pattern.DefLabel:
		e.setLabel(in.Label, literalValue(in.Literal, e.lastEncoding(), e.lastWidth()))
	case pattern.MatchLabel:
		e.handleMatchLabel(in)
	case pattern.NestOpen:
		e.nestOpen()
	case pattern.NestClose:
		errs.Panic(e.nestClose())
	case pattern.Assertion:
		last := e.requireLastValue(in)
		errs.Assert(literalEquals(last, in.Literal), fmt.Errorf("%w: %s", ErrAssertion, in.Text))
	case pattern.TakeAll:
		e.handleTakeAll(in)
	case pattern.Jump:
		e.handleJump(in)
	case pattern.MarkerStart:
		e.handleMarker(in)
	default:
		errs.Panic(fmt.Errorf("maker: unsupported directive %v", in.Directive))
	}
}

func (e *Extractor) requireLastValue(in pattern.Instruction) value.Value {
	errs.Assert(e.hasLastValue, fmt.Errorf("%w: %s has no preceding value", ErrAssertion, in.Text))
	return e.lastValue
}

func (e *Extractor) lastEncoding() value.Encoding {
	if e.hasLastValue {
		return e.lastValue.Encoding
	}
	return value.UInt
}

func (e *Extractor) lastWidth() int {
	if e.hasLastValue {
		return e.lastValue.Width
	}
	return 0
}

func (e *Extractor) handleValue(in pattern.Instruction) {
	v := e.consumeBits(in.NumBits, in.Encoding)
	e.bindLeaf(v)
}

func (e *Extractor) handleMatchLabel(in pattern.Instruction) {
	want, err := e.Label(in.Label)
	errs.Panic(err)
	last := e.requireLastValue(in)
	errs.Assert(last.Equal(want), fmt.Errorf("%w: %s", ErrMatchLabel, in.Text))
}

func (e *Extractor) handleTakeAll(in pattern.Instruction) {
	pos := e.buf.Tell()
	errs.Assert(pos%8 == 0, fmt.Errorf("%w: %s", ErrAlignment, in.Text))
	numBits := e.buf.Len() - pos
	e.applySettings(numBits, in.Encoding)

	tailValue, tailWidth, rest, err := e.buf.ReadBytes(nil)
	errs.Panic(err)
	data := joinTail(tailValue, tailWidth, rest)
	e.bindLeaf(value.Value{Encoding: in.Encoding, Width: len(data) * 8, Bytes: data})
}

func (e *Extractor) handleMod(in pattern.Instruction) {
	n := in.NumBits
	if !in.NumBitsSet {
		n = e.buf.Len() - e.buf.Tell()
	}
	pos := e.buf.Tell()
	switch in.ModType {
	case pattern.ModReverse:
		errs.Panic(checkOverlap(e.modLog, e.buf.Len(), pos, n))
		e.reverseAt(pos, n)
	case pattern.ModInvert:
		e.invertAt(pos, n)
	case pattern.ModEndianSwap:
		e.endianSwap(n)
	default:
		errs.Panic(fmt.Errorf("maker: invalid mod type for %s", in.Text))
	}
}

func (e *Extractor) handleModOff(in pattern.Instruction) {
	pos := e.buf.Tell()
	switch in.ModType {
	case pattern.ModReverse:
		n := in.NumBits
		if !in.NumBitsSet {
			n = e.buf.Len() - (pos + in.OffsetBits)
			e.bindImplicit(n)
		}
		errs.Panic(checkOverlap(e.modLog, e.buf.Len(), pos+in.OffsetBits, n))
		e.reverseAt(pos+in.OffsetBits, n)
		_, err := e.buf.Seek(pos, io.SeekStart)
		errs.Panic(err)
	case pattern.ModInvert:
		n := in.NumBits
		if !in.NumBitsSet {
			n = e.buf.Len() - (pos + in.OffsetBits)
			e.bindImplicit(n)
		}
		e.invertAt(pos+in.OffsetBits, n)
		_, err := e.buf.Seek(pos, io.SeekStart)
		errs.Panic(err)
	case pattern.ModPull:
		var n *int
		if in.NumBitsSet {
			v := in.NumBits
			n = &v
		}
		e.pull(in.OffsetBits, n)
		_, err := e.buf.Seek(pos, io.SeekStart)
		errs.Panic(err)
	default:
		errs.Panic(fmt.Errorf("maker: invalid modoff type for %s", in.Text))
	}
}

func (e *Extractor) handleJump(in pattern.Instruction) {
	pos := e.buf.Tell()
	L := e.buf.Len()
	var targetFmt int
	switch in.JumpType {
	case pattern.JumpForward, pattern.JumpBackward:
		targetFmt = ToFormat(e.modLog, L, pos)
	case pattern.JumpEnd:
		targetFmt = L
	case pattern.JumpStart:
		targetFmt = 0
	}
	switch in.JumpType {
	case pattern.JumpStart, pattern.JumpForward:
		targetFmt += in.NumBits
	default:
		targetFmt -= in.NumBits
	}
	target := FromFormat(e.modLog, L, targetFmt)
	offset := target - pos
	errs.Assert(offset >= 0, fmt.Errorf("%w: %s", ErrNonConstructible, in.Text))
	if offset > 0 {
		e.pull(offset, nil)
		_, err := e.buf.Seek(pos, io.SeekStart)
		errs.Panic(err)
	}
}

func (e *Extractor) handleMarker(in pattern.Instruction) {
	pos := e.buf.Tell()
	errs.Assert(pos%8 == 0, fmt.Errorf("%w: %s", ErrAlignment, in.Text))

	lit := append([]byte(nil), in.MarkerLiteral...)
	if e.invertAll {
		lit = invertLiteral(lit)
	}
	if e.reverseAll {
		lit = bitbuf.ReverseBytes(lit)
	}
	if e.endianSwapAll {
		lit = reverseLiteralBytes(lit)
	}

	foundAbs, err := e.buf.Find(lit)
	errs.Panic(err)
	m := foundAbs - pos

	e.nestOpen()
	e.bindImplicit(m)
	e.pull(m, nil)
	errs.Panic(e.nestClose())

	marker := e.consumeBits(len(lit)*8, value.Bytes)
	errs.Assert(bytesEqualLocal(marker.Bytes, in.MarkerLiteral),
		fmt.Errorf("maker: marker scan consumption did not match expected literal"))
}

// consumeBits applies the active settings and reads num_bits off the
// buffer, decoding per enc.
func (e *Extractor) consumeBits(numBits int, enc value.Encoding) value.Value {
	e.applySettings(numBits, enc)
	raw, actual, err := e.buf.Read(numBits)
	errs.Panic(err)
	errs.Assert(actual == numBits, fmt.Errorf("%w: expected %d bits, got %d", ErrIncompleteData, numBits, actual))
	v, err := value.Decode(raw, numBits, enc)
	errs.Panic(err)
	return v
}

func (e *Extractor) bindImplicit(n int) {
	e.bindLeaf(implicitValue(n))
}

// applySettings schedules (and, for an Extractor, immediately performs)
// the reverse/invert/endian-swap transforms the active "all" settings
// request over the numBits about to be read.
func (e *Extractor) applySettings(numBits int, enc value.Encoding) {
	pos := e.buf.Tell()
	if e.reverseAll {
		e.reverseAt(pos, numBits)
	}
	if e.invertAll {
		e.invertAt(pos, numBits)
	}
	if e.endianSwapAll && enc != value.Char {
		e.endianSwap(numBits)
	}
}

// reverseAt seeks to bufPos, reverses numBits there, records a ModRecord,
// and leaves the cursor at bufPos (Buffer.Reverse restores it there on its
// own). Callers that were at a different position beforehand are
// responsible for seeking back themselves.
func (e *Extractor) reverseAt(bufPos, numBits int) {
	_, err := e.buf.Seek(bufPos, io.SeekStart)
	errs.Panic(err)
	n := numBits
	errs.Panic(e.buf.Reverse(&n))
	e.modLog = append(e.modLog, ModRecord{Kind: pattern.ModReverse, Pos: bufPos, NumBits: &n})
}

func (e *Extractor) invertAt(bufPos, numBits int) {
	_, err := e.buf.Seek(bufPos, io.SeekStart)
	errs.Panic(err)
	n := numBits
	errs.Panic(e.buf.Invert(&n))
	e.modLog = append(e.modLog, ModRecord{Kind: pattern.ModInvert, Pos: bufPos, NumBits: &n})
}

// endianSwap reverses all n bits and then reverses each byte within that
// span individually, net-swapping byte order while preserving the bit
// order within each byte. n must be a multiple of 8.
func (e *Extractor) endianSwap(n int) {
	errs.Assert(n%8 == 0, fmt.Errorf("%w: endian swap of %d bits", ErrEndianWidth, n))
	pos := e.buf.Tell()

	whole := n
	errs.Panic(e.buf.Reverse(&whole))
	e.modLog = append(e.modLog, ModRecord{Kind: pattern.ModReverse, Pos: pos, NumBits: &whole})

	for i := 0; i < n; i += 8 {
		eight := 8
		errs.Panic(e.buf.Reverse(&eight))
		_, err := e.buf.Seek(8, io.SeekCurrent)
		errs.Panic(err)
		p := pos + i
		e.modLog = append(e.modLog, ModRecord{Kind: pattern.ModReverse, Pos: p, NumBits: &eight})
	}
	_, err := e.buf.Seek(pos, io.SeekStart)
	errs.Panic(err)
}

// pull rotates the m+n bits starting at the cursor so that the trailing n
// bits move in front of the leading m bits, via the three-reversal
// identity: reverse(m+n); reverse(n); reverse(m) (the last over the tail
// m bits only). The cursor is restored to its entry position. If n is nil,
// it is computed as "everything to the end of the buffer" and bound as an
// implicit value.
func (e *Extractor) pull(m int, n *int) int {
	pos := e.buf.Tell()
	var nn int
	if n == nil {
		nn = e.buf.Len() - (pos + m)
		e.bindImplicit(nn)
	} else {
		nn = *n
	}

	mn := m + nn
	errs.Panic(e.buf.Reverse(&mn))
	e.modLog = append(e.modLog, ModRecord{Kind: pattern.ModReverse, Pos: pos, NumBits: &mn})

	n2 := nn
	errs.Panic(e.buf.Reverse(&n2))
	e.modLog = append(e.modLog, ModRecord{Kind: pattern.ModReverse, Pos: pos, NumBits: &n2})

	_, err := e.buf.Seek(nn, io.SeekCurrent)
	errs.Panic(err)
	mm := m
	errs.Panic(e.buf.Reverse(&mm))
	e.modLog = append(e.modLog, ModRecord{Kind: pattern.ModReverse, Pos: pos + nn, NumBits: &mm})

	_, err = e.buf.Seek(pos, io.SeekStart)
	errs.Panic(err)
	return nn
}

func implicitValue(n int) value.Value {
	width := bitbuf.MinBitsUint(big.NewInt(int64(n)))
	if width == 0 {
		width = 1
	}
	return value.Value{Encoding: value.UInt, Width: width, Uint: big.NewInt(int64(n))}
}

func joinTail(tailValue byte, tailWidth int, rest []byte) []byte {
	if tailWidth == 0 {
		return rest
	}
	return append([]byte{tailValue}, rest...)
}

func bytesEqualLocal(a, b []byte) bool {
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

func invertLiteral(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		out[i] = ^c
	}
	return out
}

func reverseLiteralBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		out[len(b)-1-i] = c
	}
	return out
}

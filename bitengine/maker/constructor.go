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

// Constructor writes a pattern's instructions against a growing byte
// buffer, reading each value it needs off a pre-flattened data stream
// instead of decoding it from bits. Reverse/invert/endian-swap transforms
// cannot be performed immediately — the bits they cover haven't been
// written yet — so they are only scheduled in the modification log;
// Finalize replays the log once every byte is in place.
type Constructor struct {
	base
	buf  *bitbuf.Buffer
	data []value.Value
	pos  int
}

// NewConstructor flattens tree (in traversal order; its bracket nesting
// does not matter, only the order of its leaves) into the data stream a
// Run call consumes from.
func NewConstructor(tree DataTree) *Constructor {
	c := &Constructor{buf: bitbuf.NewBuffer(nil), data: flattenValues(tree)}
	c.base = initBase(&c.root)
	return c
}

func flattenValues(t DataTree) []value.Value {
	var out []value.Value
	var walk func(DataTree)
	walk = func(items DataTree) {
		for _, it := range items {
			switch x := it.(type) {
			case value.Value:
				out = append(out, x)
			case DataTree:
				walk(x)
			case *DataTree:
				walk(*x)
			}
		}
	}
	walk(t)
	return out
}

func (c *Constructor) TellBuffer() int { return ToFormat(c.modLog, c.buf.Len(), c.buf.Tell()) }
func (c *Constructor) AtEOF() bool     { return c.pos >= len(c.data) }
func (c *Constructor) Bytes() []byte   { return c.buf.Bytes() }

// Tree returns the resolved data tree accumulated across every Run call so
// far (the values consumed, re-nested the way they were bound).
func (c *Constructor) Tree() DataTree { return Resolve(c.root) }

// Finalize checks the nesting is balanced and replays the deferred
// modification log against the now-complete buffer, most-recently-
// scheduled first (so a nested endian-swap's per-byte reverses apply
// before its enclosing whole-span reverse, undoing exactly what the
// equivalent Extractor run would have performed in the opposite order).
func (c *Constructor) Finalize() (err error) {
	defer errs.Recover(&err)
	errs.Assert(len(c.treeStack) == 1, ErrNesting)

	pos := c.buf.Tell()
	L := c.buf.Len()
	for i := len(c.modLog) - 1; i >= 0; i-- {
		r := c.modLog[i]
		n := r.resolvedBits(L)
		if r.Kind == pattern.ModEndianCheck {
			errs.Assert(n%8 == 0, fmt.Errorf("%w: endian swap of %d bits", ErrEndianWidth, n))
			if r.NumBits == nil {
				// A to-end swap has no per-byte records; reverse each byte
				// here, before its whole-span record is replayed.
				for i := 0; i < n; i += 8 {
					_, serr := c.buf.Seek(r.Pos+i, io.SeekStart)
					errs.Panic(serr)
					eight := 8
					errs.Panic(c.buf.Reverse(&eight))
				}
			}
			continue
		}
		_, serr := c.buf.Seek(r.Pos, io.SeekStart)
		errs.Panic(serr)
		switch r.Kind {
		case pattern.ModReverse:
			errs.Panic(c.buf.Reverse(&n))
		case pattern.ModInvert:
			errs.Panic(c.buf.Invert(&n))
		default:
			errs.Panic(fmt.Errorf("maker: invalid modtype in log: %v", r.Kind))
		}
	}
	_, serr := c.buf.Seek(pos, io.SeekStart)
	errs.Panic(serr)
	return nil
}

// Run executes instrs, returning the values consumed at this call's top
// level.
func (c *Constructor) Run(instrs []pattern.Instruction) (out []interface{}, err error) {
	defer errs.Recover(&err)
	c.beginRun()
	for _, in := range instrs {
		c.dispatch(in)
	}
	return c.endRun(), nil
}

func (c *Constructor) dispatch(in pattern.Instruction) {
	switch in.Directive {
	case pattern.Value:
		c.handleValue(in)
	case pattern.Next:
		errs.Panic(c.buf.Write(big.NewInt(0), in.NumBits))
	case pattern.Zeros:
		c.applySettings(&in.NumBits, value.UInt)
		errs.Panic(c.buf.Write(big.NewInt(0), in.NumBits))
	case pattern.Ones:
		allOnes := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(in.NumBits)), big.NewInt(1))
		c.applySettings(&in.NumBits, value.UInt)
		errs.Panic(c.buf.Write(allOnes, in.NumBits))
	case pattern.Mod:
		c.handleMod(in)
	case pattern.ModOff:
		c.handleModOff(in)
	case pattern.ModSet:
		c.applySetting(in.ModType, in.Setting)
	case pattern.SetLabel:
		c.setLabel(in.Label, c.requireLastValue(in))
	case pattern.DefLabel:
		c.setLabel(in.Label, literalValue(in.Literal, c.lastEncoding(), c.lastWidth()))
	case pattern.MatchLabel:
		c.handleMatchLabel(in)
	case pattern.NestOpen:
		c.nestOpen()
	case pattern.NestClose:
		errs.Panic(c.nestClose())
	case pattern.Assertion:
		last := c.requireLastValue(in)
		errs.Assert(literalEquals(last, in.Literal), fmt.Errorf("%w: %s", ErrAssertion, in.Text))
	case pattern.TakeAll:
		c.handleTakeAll(in)
	case pattern.Jump:
		c.handleJump(in)
	case pattern.MarkerStart:
		c.handleMarker(in)
	default:
		errs.Panic(fmt.Errorf("maker: unsupported directive %v", in.Directive))
	}
}

func (c *Constructor) requireLastValue(in pattern.Instruction) value.Value {
	errs.Assert(c.hasLastValue, fmt.Errorf("%w: %s has no preceding value", ErrAssertion, in.Text))
	return c.lastValue
}

func (c *Constructor) lastEncoding() value.Encoding {
	if c.hasLastValue {
		return c.lastValue.Encoding
	}
	return value.UInt
}

func (c *Constructor) lastWidth() int {
	if c.hasLastValue {
		return c.lastValue.Width
	}
	return 0
}

// consumeData pops the next value off the input stream, binds it into the
// tree/record/stream bookkeeping the same way an Extractor's bindLeaf
// does, and returns it.
func (c *Constructor) consumeData(in pattern.Instruction) value.Value {
	errs.Assert(c.pos < len(c.data), fmt.Errorf("%w: %s", ErrStreamExhausted, in.Text))
	v := c.data[c.pos]
	c.pos++
	c.bindLeaf(v)
	return v
}

// consumeImplicit pops the next stream value as a plain int, for the
// ModOff/Pull/marker "$" forms whose width was emitted as data during
// extraction.
func (c *Constructor) consumeImplicit(in pattern.Instruction) int {
	v := c.consumeData(in)
	errs.Assert(v.Uint != nil, fmt.Errorf("%w: %s expected an implicit width value", ErrStreamExhausted, in.Text))
	return int(v.Uint.Int64())
}

func (c *Constructor) handleValue(in pattern.Instruction) {
	v := c.consumeData(in)
	raw, err := value.Encode(v, in.NumBits, in.Encoding)
	errs.Panic(err)
	numBits := in.NumBits
	c.applySettings(&numBits, in.Encoding)
	errs.Panic(c.buf.Write(raw, in.NumBits))
}

func (c *Constructor) handleMatchLabel(in pattern.Instruction) {
	want, err := c.Label(in.Label)
	errs.Panic(err)
	last := c.requireLastValue(in)
	errs.Assert(last.Equal(want), fmt.Errorf("%w: %s", ErrMatchLabel, in.Text))
}

func (c *Constructor) handleTakeAll(in pattern.Instruction) {
	pos := c.buf.Tell()
	errs.Assert(pos%8 == 0, fmt.Errorf("%w: %s", ErrAlignment, in.Text))
	v := c.consumeData(in)
	c.applySettings(nil, in.Encoding)
	errs.Panic(c.buf.WriteBytes(0, 0, v.Bytes))
}

func (c *Constructor) handleMod(in pattern.Instruction) {
	pos := c.buf.Tell()
	switch in.ModType {
	case pattern.ModEndianSwap:
		var n *int
		if in.NumBitsSet {
			v := in.NumBits
			n = &v
		}
		c.scheduleEndianSwap(pos, n)
	case pattern.ModReverse:
		w := optionalWidth(in)
		if w != nil {
			errs.Panic(checkOverlap(c.modLog, c.buf.Len(), pos, *w))
		}
		c.scheduleReverse(pos, w)
	case pattern.ModInvert:
		c.scheduleInvert(pos, optionalWidth(in))
	default:
		errs.Panic(fmt.Errorf("maker: invalid mod type for %s", in.Text))
	}
}

func optionalWidth(in pattern.Instruction) *int {
	if !in.NumBitsSet {
		return nil
	}
	n := in.NumBits
	return &n
}

func (c *Constructor) handleModOff(in pattern.Instruction) {
	n := in.NumBits
	if !in.NumBitsSet {
		n = c.consumeImplicit(in)
	}
	pos := c.buf.Tell()
	switch in.ModType {
	case pattern.ModReverse:
		errs.Panic(checkOverlap(c.modLog, c.buf.Len(), pos+in.OffsetBits, n))
		c.scheduleReverse(pos+in.OffsetBits, &n)
	case pattern.ModInvert:
		c.scheduleInvert(pos+in.OffsetBits, &n)
	case pattern.ModPull:
		c.pull(in.OffsetBits, &n, in)
	default:
		errs.Panic(fmt.Errorf("maker: invalid modoff type for %s", in.Text))
	}
}

func (c *Constructor) handleJump(in pattern.Instruction) {
	pos := c.buf.Tell()
	L := c.buf.Len()
	var targetFmt int
	switch in.JumpType {
	case pattern.JumpForward, pattern.JumpBackward:
		targetFmt = ToFormat(c.modLog, L, pos)
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
	target := FromFormat(c.modLog, L, targetFmt)
	offset := target - pos
	errs.Assert(offset >= 0, fmt.Errorf("%w: %s", ErrNonConstructible, in.Text))
	if offset > 0 {
		c.pull(offset, nil, in)
	}
}

func (c *Constructor) handleMarker(in pattern.Instruction) {
	pos := c.buf.Tell()
	errs.Assert(pos%8 == 0, fmt.Errorf("%w: %s", ErrAlignment, in.Text))

	c.nestOpen()
	m := c.consumeImplicit(in)
	n := c.consumeImplicit(in)
	errs.Panic(c.nestClose())

	c.pull(m, &n, in)

	lit := in.MarkerLiteral
	numBits := len(lit) * 8
	raw, err := value.Encode(value.Value{Encoding: value.Bytes, Bytes: lit}, numBits, value.Bytes)
	errs.Panic(err)
	c.applySettings(&numBits, value.Bytes)
	errs.Panic(c.buf.Write(raw, numBits))
}

// applySettings schedules the reverse/invert/endian-swap records the
// active "all" settings request over the span about to be written at the
// cursor. numBits may be nil (as for TakeAll, whose width isn't known
// until the bytes are written) to mean "to the end of the buffer",
// resolved only at Finalize.
func (c *Constructor) applySettings(numBits *int, enc value.Encoding) {
	pos := c.buf.Tell()
	if c.reverseAll {
		c.scheduleReverse(pos, numBits)
	}
	if c.invertAll {
		c.scheduleInvert(pos, numBits)
	}
	if c.endianSwapAll && enc != value.Char {
		c.scheduleEndianSwap(pos, numBits)
	}
}

func (c *Constructor) scheduleReverse(pos int, n *int) {
	c.modLog = append(c.modLog, ModRecord{Kind: pattern.ModReverse, Pos: pos, NumBits: n})
}

func (c *Constructor) scheduleInvert(pos int, n *int) {
	c.modLog = append(c.modLog, ModRecord{Kind: pattern.ModInvert, Pos: pos, NumBits: n})
}

// scheduleEndianSwap logs the same record shape an Extractor's endianSwap
// applies immediately: a whole-span reverse, a reverse per 8-bit byte, and
// — appended last, so Finalize's reverse-order replay checks it first,
// before transforming anything — an EndianCheck record validating the
// width is a multiple of 8. When n is nil the per-byte records cannot be
// laid out yet; Finalize performs those per-byte reverses itself when it
// reaches the EndianCheck record and the width is resolved.
func (c *Constructor) scheduleEndianSwap(pos int, n *int) {
	if n != nil {
		errs.Assert(*n%8 == 0, fmt.Errorf("%w: endian swap of %d bits", ErrEndianWidth, *n))
	}
	c.scheduleReverse(pos, n)
	if n != nil {
		for i := 0; i < *n; i += 8 {
			eight := 8
			c.scheduleReverse(pos+i, &eight)
		}
	}
	c.modLog = append(c.modLog, ModRecord{Kind: pattern.ModEndianCheck, Pos: pos, NumBits: n})
}

// pull schedules the three-reversal rotation identity (see Extractor.pull)
// without touching the buffer: the span it covers may not be written yet.
// If n is nil, it is popped off the data stream (the value an Extractor
// would have emitted when it computed the same pull).
func (c *Constructor) pull(m int, n *int, in pattern.Instruction) int {
	pos := c.buf.Tell()
	nn := 0
	if n == nil {
		nn = c.consumeImplicit(in)
	} else {
		nn = *n
	}

	mn := m + nn
	c.scheduleReverse(pos, &mn)
	n2 := nn
	c.scheduleReverse(pos, &n2)
	mm := m
	c.scheduleReverse(pos+nn, &mm)
	return nn
}

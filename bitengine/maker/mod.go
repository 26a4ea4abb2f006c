// Copyright 2024, The bitarchitect Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package maker

import (
	"fmt"

	"github.com/dsnet/bitarchitect/bitengine/pattern"
)

// ModRecord is one entry of the deferred-modification log: a transform of
// NumBits bits starting at Pos. NumBits is nil for a "reverse/invert to the
// end of the buffer" record (the plain r$/i$ tokens), resolved only at
// Finalize against the buffer's eventual length.
type ModRecord struct {
	Kind    pattern.ModType
	Pos     int
	NumBits *int
}

func (r ModRecord) resolvedBits(bufLen int) int {
	if r.NumBits != nil {
		return *r.NumBits
	}
	return bufLen - r.Pos
}

// checkOverlap reports an error if adding a Reverse record at [pos,pos+n)
// would overlap an already-recorded Reverse interval. Records with an
// unresolved (to-end) width are not checked; their true extent is only
// known at Finalize. This mirrors spec.md's documented assumption that
// Reverse intervals are non-overlapping, enforced best-effort as they are
// recorded.
func checkOverlap(log []ModRecord, bufLen int, pos, n int) error {
	for _, r := range log {
		if r.Kind != pattern.ModReverse || r.NumBits == nil {
			continue
		}
		rn := r.resolvedBits(bufLen)
		if pos < r.Pos+rn && r.Pos < pos+n {
			return fmt.Errorf("%w: new reverse [%d,%d) overlaps existing [%d,%d)",
				ErrOverlappingReverse, pos, pos+n, r.Pos, r.Pos+rn)
		}
	}
	return nil
}

// ToFormat translates a buffer bit position to format-spec coordinates by
// reflecting it through every Reverse record in log whose interval
// contains it, undoing the most recently recorded transform first. Invert
// and EndianCheck records have no effect on position and are ignored.
// bufLen is the buffer's length in bits, used to resolve any to-end
// records.
//
// The nested records an endian swap produces (one whole-span reverse plus
// one reverse per byte, deliberately overlapping) make the undo order
// matter: ToFormat must replay them most-recent-first, the reverse of the
// order ModOff/endian-swap scheduling recorded them in.
func ToFormat(log []ModRecord, bufLen int, bufPos int) int {
	pos := bufPos
	for i := len(log) - 1; i >= 0; i-- {
		pos = reflectThrough(log[i], bufLen, pos)
	}
	return pos
}

// FromFormat is the inverse of ToFormat: it replays log oldest-first, the
// same order the transforms were originally applied in, so a nested
// endian-swap's whole-span reverse reflects before its per-byte reverses
// do — exactly undoing what ToFormat did.
func FromFormat(log []ModRecord, bufLen int, fmtPos int) int {
	pos := fmtPos
	for _, r := range log {
		pos = reflectThrough(r, bufLen, pos)
	}
	return pos
}

func reflectThrough(r ModRecord, bufLen int, pos int) int {
	if r.Kind != pattern.ModReverse {
		return pos
	}
	n := r.resolvedBits(bufLen)
	s := r.Pos
	if pos >= s && pos <= s+n {
		pos = s + n - (pos - s)
	}
	return pos
}

// Copyright 2024, The bitarchitect Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package maker implements the L4 engine: Extractor and Constructor, the
// two directions of executing a compiled pattern.Program against a
// bitbuf.Buffer, sharing the bookkeeping spec.md calls for (data tree, data
// stream, label table, modification log, nesting stack, the three "all"
// settings).
package maker

import (
	"github.com/dsnet/bitarchitect/bitengine/pattern"
	"github.com/dsnet/bitarchitect/bitengine/value"
)

// DataTree is a nested list of decoded values: an element is either a
// value.Value (a leaf bound by a VALUE/TAKEALL token) or a *DataTree (a
// bracketed `[ ... ]` group).
type DataTree []interface{}

// Resolve recursively dereferences the *DataTree pointers a tree is built
// with during a run into plain, independently-owned nested DataTrees,
// suitable for a caller to hold onto after the Maker is discarded.
func Resolve(tree DataTree) DataTree {
	out := make(DataTree, len(tree))
	for i, item := range tree {
		if sub, ok := item.(*DataTree); ok {
			out[i] = Resolve(*sub)
		} else {
			out[i] = item
		}
	}
	return out
}

// Maker is the interface a blueprint callback drives: it can run a
// compiled instruction sequence and read back previously bound labels.
// Extractor and Constructor are its two implementations.
type Maker interface {
	// Run executes instrs against the current buffer and returns the
	// values bound directly in this call: each element is a value.Value
	// leaf, or a nested []interface{} reflecting a `[...]` opened and
	// closed within this same call.
	Run(instrs []pattern.Instruction) ([]interface{}, error)

	// Finalize checks that every `[` opened across all Run calls has a
	// matching `]`. Call it once after the blueprint has been fully run.
	Finalize() error

	// Label returns the most recently bound value for name.
	Label(name string) (value.Value, error)

	// TellBuffer returns the current cursor position translated to
	// format-spec coordinates (see ToFormat).
	TellBuffer() int

	// AtEOF reports, for an Extractor, whether the cursor sits at or past
	// the end of the underlying buffer and, for a Constructor, whether
	// every value of its input data stream has been consumed.
	AtEOF() bool

	// Bytes materializes the current state of the underlying buffer.
	Bytes() []byte
}

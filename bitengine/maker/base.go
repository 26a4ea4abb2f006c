// Copyright 2024, The bitarchitect Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package maker

import (
	"fmt"

	"github.com/dsnet/bitarchitect/bitengine/pattern"
	"github.com/dsnet/bitarchitect/bitengine/value"
)

// base holds the bookkeeping Extractor and Constructor share: the data
// tree under construction, the flat data stream, the label table, the
// modification log, and the three "all" settings. Neither type exposes
// base directly; each wraps it behind the Maker interface.
type base struct {
	root      DataTree
	treeStack []*DataTree

	// recordStack mirrors treeStack but is reset at the start of every Run
	// call: it is what Run's return value is built from, so a `[...]`
	// opened and closed within one Run call nests in the return value the
	// same way it nests in the persistent tree. A `]` with no matching `[`
	// within the current call (the tree's nesting predates this call)
	// wraps the call's entire top-level record in one extra list, mirroring
	// handle_nestclose's "expand out as if there were a [ in a previous
	// call" case.
	recordStack []*[]interface{}

	stream []value.Value
	labels map[string][]value.Value

	modLog []ModRecord

	reverseAll, invertAll, endianSwapAll bool

	lastValue    value.Value
	hasLastValue bool
}

// initBase wires up an empty base whose tree root is the caller's own root
// field, so the caller (Extractor or Constructor) can keep a stable
// pointer to its root for the lifetime of the Maker.
func initBase(root *DataTree) base {
	return base{labels: map[string][]value.Value{}, treeStack: []*DataTree{root}}
}

func (b *base) top() *DataTree {
	return b.treeStack[len(b.treeStack)-1]
}

// beginRun resets the call-local record stack; call once at the top of
// Run before dispatching instrs.
func (b *base) beginRun() {
	rec := []interface{}{}
	b.recordStack = []*[]interface{}{&rec}
}

// endRun returns the record this call produced at its top level, with each
// nested group resolved into a plain []interface{}.
func (b *base) endRun() []interface{} {
	var resolve func([]interface{}) []interface{}
	resolve = func(rec []interface{}) []interface{} {
		out := make([]interface{}, len(rec))
		for i, it := range rec {
			switch x := it.(type) {
			case *[]interface{}:
				it = resolve(*x)
			case []interface{}:
				it = resolve(x)
			}
			out[i] = it
		}
		return out
	}
	return resolve(*b.recordStack[0])
}

func (b *base) recordTop() *[]interface{} {
	return b.recordStack[len(b.recordStack)-1]
}

func (b *base) nestOpen() {
	child := DataTree{}
	parent := b.top()
	*parent = append(*parent, &child)
	b.treeStack = append(b.treeStack, &child)

	rec := []interface{}{}
	parentRec := b.recordTop()
	*parentRec = append(*parentRec, &rec)
	b.recordStack = append(b.recordStack, &rec)
}

func (b *base) nestClose() error {
	if len(b.treeStack) <= 1 {
		return ErrNesting
	}
	b.treeStack = b.treeStack[:len(b.treeStack)-1]

	if len(b.recordStack) == 1 {
		wrapped := []interface{}{*b.recordStack[0]}
		b.recordStack[0] = &wrapped
		return nil
	}
	b.recordStack = b.recordStack[:len(b.recordStack)-1]
	return nil
}

func (b *base) bindLeaf(v value.Value) {
	parent := b.top()
	*parent = append(*parent, v)
	b.stream = append(b.stream, v)
	b.lastValue = v
	b.hasLastValue = true

	rec := b.recordTop()
	*rec = append(*rec, v)
}

func (b *base) setLabel(name string, v value.Value) {
	b.labels[name] = append(b.labels[name], v)
}

func (b *base) Label(name string) (value.Value, error) {
	vs, ok := b.labels[name]
	if !ok || len(vs) == 0 {
		return value.Value{}, fmt.Errorf("%w: %q", ErrUnknownLabel, name)
	}
	return vs[len(vs)-1], nil
}

// applySetting mutates the boolean named by kind per setting, mirroring
// handle_modset in both Extractor and Constructor.
func (b *base) applySetting(kind pattern.ModType, setting pattern.Setting) {
	cur := func() bool {
		switch kind {
		case pattern.ModReverse:
			return b.reverseAll
		case pattern.ModInvert:
			return b.invertAll
		default:
			return b.endianSwapAll
		}
	}
	next := cur()
	switch setting {
	case pattern.SettingTrue:
		next = true
	case pattern.SettingFalse:
		next = false
	case pattern.SettingToggle:
		next = !next
	}
	switch kind {
	case pattern.ModReverse:
		b.reverseAll = next
	case pattern.ModInvert:
		b.invertAll = next
	default:
		b.endianSwapAll = next
	}
}

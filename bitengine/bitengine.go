// Copyright 2024, The bitarchitect Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package bitengine wires the four layers (bitbuf, value, pattern, maker)
// into the entry points a caller actually drives: extract a data tree or
// flat stream out of a byte source per a blueprint, or construct bytes back
// out of a data tree per the same blueprint.
package bitengine

import (
	"io"

	"github.com/dsnet/bitarchitect/bitengine/maker"
	"github.com/dsnet/bitarchitect/bitengine/pattern"
	"github.com/dsnet/bitarchitect/bitengine/value"
	"github.com/dsnet/bitarchitect/internal/errs"
)

// DataTree is the nested extraction/construction result: an element is
// either a value.Value leaf or a nested DataTree for a `[...]` group.
type DataTree = maker.DataTree

// Blueprint is either a pattern string (compiled with pattern.Compile) or a
// func(m maker.Maker) error callback driving m directly. Any other dynamic
// type is rejected with ErrInvalidBlueprint.
type Blueprint interface{}

// Extract runs blueprint against the entirety of r, returning the Extractor
// it ran against so a caller can also inspect TellBuffer/Stream/labels.
// r is read fully into memory first; this engine never streams.
func Extract(blueprint Blueprint, r io.Reader) (m *maker.Extractor, err error) {
	defer errs.Recover(&err)
	data, rerr := io.ReadAll(r)
	errs.Panic(rerr)
	m = maker.NewExtractor(data)
	errs.Panic(run(blueprint, m))
	errs.Panic(m.Finalize())
	return m, nil
}

// ExtractDataTree is a convenience wrapper around Extract returning just
// the resolved data tree.
func ExtractDataTree(blueprint Blueprint, r io.Reader) (DataTree, error) {
	m, err := Extract(blueprint, r)
	if err != nil {
		return nil, err
	}
	return m.Tree(), nil
}

// ExtractDataStream is a convenience wrapper around Extract returning the
// flat bind-order sequence of values, ignoring nesting.
func ExtractDataStream(blueprint Blueprint, r io.Reader) ([]value.Value, error) {
	m, err := Extract(blueprint, r)
	if err != nil {
		return nil, err
	}
	return m.Stream(), nil
}

// Construct runs blueprint against data, writing it back out as bytes. The
// Constructor is returned so a caller can inspect TellBuffer/labels before
// discarding it.
func Construct(blueprint Blueprint, data DataTree) (m *maker.Constructor, err error) {
	defer errs.Recover(&err)
	m = maker.NewConstructor(data)
	errs.Panic(run(blueprint, m))
	errs.Panic(m.Finalize())
	return m, nil
}

// ConstructByteStream is a convenience wrapper around Construct returning
// just the materialized bytes.
func ConstructByteStream(blueprint Blueprint, data DataTree) ([]byte, error) {
	m, err := Construct(blueprint, data)
	if err != nil {
		return nil, err
	}
	return m.Bytes(), nil
}

// run dispatches blueprint against m: a callback gets m directly, a pattern
// string is compiled and either run in one shot (the common bounded case)
// or pulled instruction-by-instruction off a pattern.Stream until m reports
// AtEOF (the `{...}$` unbounded-repetition case, which Flatten refuses to
// materialize). Checking AtEOF before pulling each instruction rather than
// after relies on a well-formed blueprint only reaching EOF at an iteration
// boundary, never mid-record.
func run(blueprint Blueprint, m maker.Maker) error {
	switch bp := blueprint.(type) {
	case func(maker.Maker) error:
		return bp(m)
	case string:
		prog, err := pattern.Compile(bp)
		if err != nil {
			return err
		}
		return runProgram(prog, m)
	default:
		return ErrInvalidBlueprint
	}
}

func runProgram(prog pattern.Program, m maker.Maker) error {
	instrs, err := prog.Flatten()
	if err == nil {
		_, err = m.Run(instrs)
		return err
	}
	if err != pattern.ErrUnboundedStream {
		return err
	}
	s := prog.NewStream()
	for !m.AtEOF() {
		instr, ok := s.Next()
		if !ok {
			return nil
		}
		if _, err := m.Run([]pattern.Instruction{instr}); err != nil {
			return err
		}
	}
	return nil
}

// Copyright 2024, The bitarchitect Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package pattern

// Flatten materializes a Program into a plain instruction slice, expanding
// every bounded repetition. It fails if the program contains an unbounded
// ({...}$) repetition anywhere, since that cannot be materialized eagerly;
// use Stream for those.
func (p Program) Flatten() ([]Instruction, error) {
	if hasUnbounded(p.Items) {
		return nil, ErrUnboundedStream
	}
	var out []Instruction
	flattenInto(&out, p.Items)
	return out, nil
}

func hasUnbounded(items []Item) bool {
	for _, it := range items {
		if it.Rep != nil {
			if it.Rep.Count < 0 {
				return true
			}
			if hasUnbounded(it.Rep.Body) {
				return true
			}
		}
	}
	return false
}

func flattenInto(out *[]Instruction, items []Item) {
	for _, it := range items {
		switch {
		case it.Instr != nil:
			*out = append(*out, *it.Instr)
		case it.Rep != nil:
			for i := 0; i < it.Rep.Count; i++ {
				flattenInto(out, it.Rep.Body)
			}
		}
	}
}

// Stream lazily walks a Program's instructions in order, expanding bounded
// repetitions on demand and looping an unbounded ({...}$) repetition
// forever; the caller (typically a maker.Maker driven to end-of-data)
// decides when to stop pulling.
type Stream struct {
	stack []*streamFrame
}

type streamFrame struct {
	items    []Item
	idx      int
	infinite bool
}

// NewStream returns a Stream over p's top-level items.
func (p Program) NewStream() *Stream {
	return &Stream{stack: []*streamFrame{{items: p.Items}}}
}

// Next returns the next instruction and true, or a zero Instruction and
// false once the stream is exhausted (never, for a stream containing an
// unbounded repetition).
func (s *Stream) Next() (Instruction, bool) {
	for len(s.stack) > 0 {
		top := s.stack[len(s.stack)-1]
		if top.idx >= len(top.items) {
			if top.infinite {
				top.idx = 0
				continue
			}
			s.stack = s.stack[:len(s.stack)-1]
			continue
		}
		item := top.items[top.idx]
		top.idx++
		if item.Instr != nil {
			return *item.Instr, true
		}
		if item.Rep.Count < 0 {
			s.stack = append(s.stack, &streamFrame{items: item.Rep.Body, infinite: true})
			continue
		}
		for i := 0; i < item.Rep.Count; i++ {
			s.stack = append(s.stack, &streamFrame{items: item.Rep.Body})
		}
	}
	return Instruction{}, false
}

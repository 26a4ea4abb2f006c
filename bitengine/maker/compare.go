// Copyright 2024, The bitarchitect Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package maker

import (
	"github.com/dsnet/bitarchitect/bitengine/pattern"
	"github.com/dsnet/bitarchitect/bitengine/value"
)

// literalValue converts a parsed pattern.Literal into the value.Value it
// denotes, so handle_assertion/handle_deflabel can compare or bind it
// against a decoded last_value without a second parallel value
// representation. enc/width come from the token bound to it (Assertion has
// none of its own; it borrows the last decoded value's).
func literalValue(lit pattern.Literal, enc value.Encoding, width int) value.Value {
	v := value.Value{Encoding: enc, Width: width}
	switch lit.Kind {
	case pattern.LiteralInt:
		switch enc {
		case value.SInt:
			v.Sint = lit.Int
		default:
			v.Encoding = value.UInt
			v.Uint = lit.Int
		}
	case pattern.LiteralFloat:
		switch enc {
		case value.F64:
			v.F64 = lit.Float
		default:
			v.Encoding = value.F32
			v.F32 = float32(lit.Float)
		}
	case pattern.LiteralBytes:
		v.Encoding = value.Bytes
		v.Bytes = lit.Bytes
	case pattern.LiteralText:
		switch enc {
		case value.HexLower, value.HexUpper:
			v.Hex = lit.Text
		case value.Bin:
			v.BinS = lit.Text
		default:
			v.Encoding = value.Bytes
			v.Bytes = []byte(lit.Text)
		}
	}
	return v
}

// literalEquals reports whether last equals the literal, trying last's own
// encoding first and falling back to UInt/Bytes so `=7;` matches a plain
// decoded integer regardless of the token that produced it.
func literalEquals(last value.Value, lit pattern.Literal) bool {
	if last.Equal(literalValue(lit, last.Encoding, last.Width)) {
		return true
	}
	return last.Equal(literalValue(lit, value.UInt, last.Width))
}

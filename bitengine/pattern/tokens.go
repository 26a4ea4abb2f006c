// Copyright 2024, The bitarchitect Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package pattern implements the L3 compiler: a tokenizer and repetition
// expander that turns a blueprint pattern string into a sequence of
// Instructions a maker.Maker can execute.
package pattern

import (
	"fmt"
	"math/big"

	"github.com/dsnet/bitarchitect/bitengine/value"
)

// Directive names the kind of an Instruction, mirroring pattern.py's
// Directive enum.
type Directive int

const (
	Value Directive = iota
	Next
	Zeros
	Ones
	Mod
	ModOff
	ModSet
	SetLabel
	DefLabel
	MatchLabel
	NestOpen
	NestClose
	Assertion
	TakeAll
	Jump
	MarkerStart
)

func (d Directive) String() string {
	names := [...]string{"Value", "Next", "Zeros", "Ones", "Mod", "ModOff",
		"ModSet", "SetLabel", "DefLabel", "MatchLabel", "NestOpen",
		"NestClose", "Assertion", "TakeAll", "Jump", "MarkerStart"}
	if int(d) < len(names) {
		return names[d]
	}
	return fmt.Sprintf("Directive(%d)", int(d))
}

// ModType names the transformation a Mod/ModOff/ModSet instruction applies,
// mirroring pattern.py's ModType enum.
type ModType int

const (
	ModReverse ModType = iota
	ModInvert
	ModEndianSwap
	ModPull
	ModEndianCheck
)

func (m ModType) String() string {
	names := [...]string{"Reverse", "Invert", "EndianSwap", "Pull", "EndianCheck"}
	if int(m) < len(names) {
		return names[m]
	}
	return fmt.Sprintf("ModType(%d)", int(m))
}

// Setting names the value a ModSet instruction assigns to a boolean
// setting, mirroring pattern.py's Setting enum.
type Setting int

const (
	SettingFalse Setting = iota
	SettingTrue
	SettingToggle
)

// JumpType names the reference point a Jump instruction measures from,
// mirroring pattern.py's JumpType enum.
type JumpType int

const (
	JumpStart JumpType = iota
	JumpForward
	JumpBackward
	JumpEnd
)

// LiteralKind names which field of a Literal is meaningful.
type LiteralKind int

const (
	LiteralInt LiteralKind = iota
	LiteralFloat
	LiteralBytes
	LiteralText
)

// Literal is a parsed value from a restricted expression
// (`!#"L"=expr;` / `=expr;`): a decimal integer, a float, a quoted byte
// string, or quoted text. No arbitrary expression evaluation is supported.
type Literal struct {
	Kind  LiteralKind
	Int   *big.Int
	Float float64
	Bytes []byte
	Text  string
}

// Instruction is one compiled pattern token, carrying exactly the fields
// its Directive uses.
type Instruction struct {
	Text      string // the original token text, for error messages
	Directive Directive

	NumBits    int  // Value/Next/Zeros/Ones/Mod/Jump/ModOff width
	NumBitsSet bool // false for ModOff/Pull's "$" (to end) form
	OffsetBits int  // ModOff

	Encoding value.Encoding // Value/TakeAll

	ModType ModType
	Setting Setting

	Label   string
	Literal Literal // DefLabel/Assertion

	JumpType JumpType

	MarkerLiteral []byte // MarkerStart
}

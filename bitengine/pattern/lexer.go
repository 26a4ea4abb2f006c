// Copyright 2024, The bitarchitect Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package pattern

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dsnet/bitarchitect/bitengine/value"
)

var (
	tokRe         = regexp.MustCompile(`^\s*([rip]\d+\.(?:\d+|\$)|[usfxXbBnpjJrizoeC]\d+|[RIE][ynt]|!#"|#["#]|=#"|[\[\]=\{\}]|[riBC]\$|m[$^]"|j[sfbe]\d+)`)
	labelRe       = regexp.MustCompile(`^([^"]*)"`)
	spaceEqualsRe = regexp.MustCompile(`^\s*=`)
	exprRe        = regexp.MustCompile(`^([^;]*);`)
	numInfRe      = regexp.MustCompile(`^(\d+|\$)`)
	commentRe     = regexp.MustCompile(`^[^\n]*`)
	hexRe         = regexp.MustCompile(`^([A-Fa-f0-9]+)"`)
)

var numAndArgValue = map[byte]value.Encoding{
	'u': value.UInt,
	's': value.SInt,
	'x': value.HexLower,
	'X': value.HexUpper,
	'b': value.Bin,
	'B': value.Bytes,
	'C': value.Char,
}

var numAndArgMod = map[byte]ModType{
	'r': ModReverse,
	'i': ModInvert,
	'e': ModEndianSwap,
}

var modOffCodes = map[byte]ModType{
	'r': ModReverse,
	'i': ModInvert,
	'p': ModPull,
}

var settingCodes = map[byte]ModType{
	'R': ModReverse,
	'I': ModInvert,
	'E': ModEndianSwap,
}

var settingValues = map[byte]Setting{
	'n': SettingFalse,
	'y': SettingTrue,
	't': SettingToggle,
}

var jumpCodes = map[byte]JumpType{
	's': JumpStart,
	'f': JumpForward,
	'b': JumpBackward,
	'e': JumpEnd,
}

// Item is one element of a compiled pattern body: either a plain
// Instruction or a nested Repeat.
type Item struct {
	Instr *Instruction
	Rep   *Repeat
}

// Repeat is a `{ ... }n` / `{ ... }$` capture: its Body repeats Count
// times, or forever if Count is -1.
type Repeat struct {
	Count int
	Body  []Item
}

// Program is the result of compiling a pattern string: a sequence of
// top-level Items, which may include unbounded Repeats.
type Program struct {
	Items []Item
}

// Compile tokenizes and parses src into a Program. It is a pure function:
// the result carries no reference to any buffer or label state, and is
// safe to run repeatedly.
func Compile(src string) (Program, error) {
	c := &compiler{src: src}
	if err := c.run(); err != nil {
		return Program{}, err
	}
	if len(c.stack) != 0 {
		return Program{}, fmt.Errorf("%w: unclosed %d repetition capture(s)", ErrInvalidPattern, len(c.stack))
	}
	return Program{Items: c.top}, nil
}

type compiler struct {
	src   string
	pos   int
	top   []Item
	stack []*Repeat
}

func (c *compiler) emit(it Item) {
	if len(c.stack) > 0 {
		top := c.stack[len(c.stack)-1]
		top.Body = append(top.Body, it)
		return
	}
	c.top = append(c.top, it)
}

func (c *compiler) run() error {
	for {
		m := tokRe.FindStringSubmatchIndex(c.src[c.pos:])
		if m == nil {
			rest := strings.TrimSpace(c.src[c.pos:])
			if rest == "" {
				return nil
			}
			return fmt.Errorf("%w: at position %d: %q", ErrInvalidPattern, c.pos, rest)
		}
		tok := c.src[c.pos:][m[2]:m[3]]
		c.pos += m[1]
		if err := c.handle(tok); err != nil {
			return err
		}
	}
}

func (c *compiler) handle(tok string) error {
	code := tok[0]
	switch {
	case strings.Contains(tok, "."):
		return c.handleModOff(tok, code)
	case tok == "B$":
		c.emit(Item{Instr: &Instruction{Text: tok, Directive: TakeAll, Encoding: value.Bytes}})
		return nil
	case tok == "C$":
		c.emit(Item{Instr: &Instruction{Text: tok, Directive: TakeAll, Encoding: value.Char}})
		return nil
	case tok == "r$":
		c.emit(Item{Instr: &Instruction{Text: tok, Directive: Mod, ModType: ModReverse}})
		return nil
	case tok == "i$":
		c.emit(Item{Instr: &Instruction{Text: tok, Directive: Mod, ModType: ModInvert}})
		return nil
	case tok == "[":
		c.emit(Item{Instr: &Instruction{Text: tok, Directive: NestOpen}})
		return nil
	case tok == "]":
		c.emit(Item{Instr: &Instruction{Text: tok, Directive: NestClose}})
		return nil
	case tok == `#"`:
		return c.handleSetLabel(tok)
	case tok == `!#"`:
		return c.handleDefLabel(tok)
	case tok == `=#"`:
		return c.handleMatchLabel(tok)
	case tok == "=":
		return c.handleAssertion(tok)
	case tok == "{":
		c.stack = append(c.stack, &Repeat{})
		return nil
	case tok == "}":
		return c.handleRepeatClose(tok)
	case tok == "##":
		m := commentRe.FindStringIndex(c.src[c.pos:])
		if m != nil {
			c.pos += m[1]
		}
		return nil
	case strings.HasPrefix(tok, "m^"), strings.HasPrefix(tok, "m$"):
		return c.handleMarker(tok)
	case code == 'j':
		return c.handleJump(tok)
	case code == 'f':
		enc, ok := map[string]value.Encoding{"f32": value.F32, "f64": value.F64}[tok]
		if !ok {
			return fmt.Errorf("%w: %q: float width must be 32 or 64", ErrInvalidPattern, tok)
		}
		n, _ := strconv.Atoi(tok[1:])
		c.emit(Item{Instr: &Instruction{Text: tok, Directive: Value, NumBits: n, NumBitsSet: true, Encoding: enc}})
		return nil
	case isNumAndArgCode(code):
		return c.handleNumAndArg(tok, code)
	case code == 'z' || code == 'o' || code == 'n':
		n, err := strconv.Atoi(tok[1:])
		if err != nil {
			return fmt.Errorf("%w: %q: %v", ErrInvalidPattern, tok, err)
		}
		d := map[byte]Directive{'z': Zeros, 'o': Ones, 'n': Next}[code]
		c.emit(Item{Instr: &Instruction{Text: tok, Directive: d, NumBits: n, NumBitsSet: true}})
		return nil
	case isSettingCode(code):
		modtype := settingCodes[code]
		setting, ok := settingValues[tok[1]]
		if !ok {
			return fmt.Errorf("%w: bad setting in %q", ErrInvalidPattern, tok)
		}
		c.emit(Item{Instr: &Instruction{Text: tok, Directive: ModSet, ModType: modtype, Setting: setting}})
		return nil
	default:
		return fmt.Errorf("%w: unknown token %q", ErrInvalidPattern, tok)
	}
}

func isNumAndArgCode(code byte) bool {
	if _, ok := numAndArgValue[code]; ok {
		return true
	}
	_, ok := numAndArgMod[code]
	return ok
}

func isSettingCode(code byte) bool {
	_, ok := settingCodes[code]
	return ok
}

func (c *compiler) handleNumAndArg(tok string, code byte) error {
	n, err := strconv.Atoi(tok[1:])
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidPattern, tok, err)
	}
	if enc, ok := numAndArgValue[code]; ok {
		c.emit(Item{Instr: &Instruction{Text: tok, Directive: Value, NumBits: n, NumBitsSet: true, Encoding: enc}})
		return nil
	}
	modtype := numAndArgMod[code]
	if code == 'e' && n%8 != 0 {
		return fmt.Errorf("%w: %q: endian-swap size must be a multiple of 8 bits", ErrInvalidPattern, tok)
	}
	c.emit(Item{Instr: &Instruction{Text: tok, Directive: Mod, NumBits: n, NumBitsSet: true, ModType: modtype}})
	return nil
}

func (c *compiler) handleModOff(tok string, code byte) error {
	modtype, ok := modOffCodes[code]
	if !ok {
		return fmt.Errorf("%w: unknown mod-offset token %q", ErrInvalidPattern, tok)
	}
	parts := strings.SplitN(tok[1:], ".", 2)
	m, err := strconv.Atoi(parts[0])
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidPattern, tok, err)
	}
	instr := &Instruction{Text: tok, Directive: ModOff, OffsetBits: m, ModType: modtype}
	if parts[1] == "$" {
		instr.NumBitsSet = false
	} else {
		n, err := strconv.Atoi(parts[1])
		if err != nil {
			return fmt.Errorf("%w: %q: %v", ErrInvalidPattern, tok, err)
		}
		instr.NumBits = n
		instr.NumBitsSet = true
	}
	c.emit(Item{Instr: instr})
	return nil
}

func (c *compiler) handleSetLabel(tok string) error {
	m := labelRe.FindStringSubmatchIndex(c.src[c.pos:])
	if m == nil {
		return fmt.Errorf("%w: unterminated label after %q", ErrInvalidPattern, tok)
	}
	label := c.src[c.pos:][m[2]:m[3]]
	c.pos += m[1]
	c.emit(Item{Instr: &Instruction{Text: tok + label + `"`, Directive: SetLabel, Label: label}})
	return nil
}

func (c *compiler) handleDefLabel(tok string) error {
	m := labelRe.FindStringSubmatchIndex(c.src[c.pos:])
	if m == nil {
		return fmt.Errorf("%w: unterminated label after %q", ErrInvalidPattern, tok)
	}
	label := c.src[c.pos:][m[2]:m[3]]
	c.pos += m[1]

	eq := spaceEqualsRe.FindStringIndex(c.src[c.pos:])
	if eq == nil {
		return fmt.Errorf("%w: expected '=' after label %q", ErrInvalidPattern, label)
	}
	c.pos += eq[1]

	em := exprRe.FindStringSubmatchIndex(c.src[c.pos:])
	if em == nil {
		return fmt.Errorf("%w: unterminated expression for label %q", ErrInvalidPattern, label)
	}
	expr := c.src[c.pos:][em[2]:em[3]]
	c.pos += em[1]

	lit, err := parseLiteral(expr)
	if err != nil {
		return err
	}
	c.emit(Item{Instr: &Instruction{Text: tok, Directive: DefLabel, Label: label, Literal: lit}})
	return nil
}

func (c *compiler) handleMatchLabel(tok string) error {
	m := labelRe.FindStringSubmatchIndex(c.src[c.pos:])
	if m == nil {
		return fmt.Errorf("%w: unterminated label after %q", ErrInvalidPattern, tok)
	}
	label := c.src[c.pos:][m[2]:m[3]]
	c.pos += m[1]
	c.emit(Item{Instr: &Instruction{Text: tok, Directive: MatchLabel, Label: label}})
	return nil
}

func (c *compiler) handleAssertion(tok string) error {
	em := exprRe.FindStringSubmatchIndex(c.src[c.pos:])
	if em == nil {
		return fmt.Errorf("%w: unterminated assertion expression", ErrInvalidPattern)
	}
	expr := c.src[c.pos:][em[2]:em[3]]
	c.pos += em[1]
	lit, err := parseLiteral(expr)
	if err != nil {
		return err
	}
	c.emit(Item{Instr: &Instruction{Text: tok, Directive: Assertion, Literal: lit}})
	return nil
}

func (c *compiler) handleRepeatClose(tok string) error {
	if len(c.stack) == 0 {
		return fmt.Errorf("%w: unmatched '}'", ErrInvalidPattern)
	}
	rep := c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]

	m := numInfRe.FindStringSubmatchIndex(c.src[c.pos:])
	if m == nil {
		return fmt.Errorf("%w: expected repetition count after '}'", ErrInvalidPattern)
	}
	countTok := c.src[c.pos:][m[2]:m[3]]
	c.pos += m[1]
	if countTok == "$" {
		rep.Count = -1
	} else {
		n, err := strconv.Atoi(countTok)
		if err != nil {
			return fmt.Errorf("%w: bad repetition count %q: %v", ErrInvalidPattern, countTok, err)
		}
		rep.Count = n
	}
	c.emit(Item{Rep: rep})
	return nil
}

func (c *compiler) handleMarker(tok string) error {
	m := hexRe.FindStringSubmatchIndex(c.src[c.pos:])
	if m == nil {
		return fmt.Errorf("%w: unterminated hex literal after %q", ErrInvalidPattern, tok)
	}
	hexLit := c.src[c.pos:][m[2]:m[3]]
	c.pos += m[1]
	lit, err := parseLiteral(`x"` + hexLit + `"`)
	if err != nil {
		return err
	}
	if tok == "m^\"" {
		c.emit(Item{Instr: &Instruction{Text: tok + hexLit + `"`, Directive: MarkerStart, MarkerLiteral: lit.Bytes}})
		return nil
	}
	// m$" (MarkerEnd) has no bit-level effect in this implementation; the
	// marker's span is already fully determined by MarkerStart's Pull.
	return nil
}

func (c *compiler) handleJump(tok string) error {
	code2 := tok[1]
	jt, ok := jumpCodes[code2]
	if !ok {
		return fmt.Errorf("%w: unknown jump type in %q", ErrInvalidPattern, tok)
	}
	n, err := strconv.Atoi(tok[2:])
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidPattern, tok, err)
	}
	c.emit(Item{Instr: &Instruction{Text: tok, Directive: Jump, NumBits: n, NumBitsSet: true, JumpType: jt}})
	return nil
}

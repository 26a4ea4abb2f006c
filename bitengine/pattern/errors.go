// Copyright 2024, The bitarchitect Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package pattern

// Error is a description of a pattern compilation failure.
type Error string

func (e Error) Error() string { return string(e) }

// ErrInvalidPattern indicates the tokenizer could not consume a valid token
// at a given position, or a restricted-literal expression was malformed.
const ErrInvalidPattern = Error("pattern: invalid pattern")

// ErrUnboundedStream indicates Flatten was called on a program containing
// an unbounded ({...}$) repetition, which cannot be materialized eagerly.
const ErrUnboundedStream = Error("pattern: program contains an unbounded repetition; use Stream instead of Flatten")

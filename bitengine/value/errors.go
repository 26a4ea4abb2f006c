// Copyright 2024, The bitarchitect Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package value

// Error is a description of a value codec failure.
type Error string

func (e Error) Error() string { return string(e) }

// ErrInvalidWidth indicates a width/encoding combination that cannot be
// decoded or encoded (e.g. F32 requested with a width other than 32).
const ErrInvalidWidth = Error("value: invalid width for encoding")

// Copyright 2024, The bitarchitect Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package bitengine

// Error is a description of a top-level bitengine failure.
type Error string

func (e Error) Error() string { return string(e) }

const (
	// ErrInvalidBlueprint indicates a Blueprint value was neither a pattern
	// string nor a func(maker.Maker) error callback.
	ErrInvalidBlueprint = Error("bitengine: blueprint must be a pattern string or a func(maker.Maker) error")

	// ErrUnknownFormat indicates Registry.Lookup was given a name with no
	// registered Blueprint.
	ErrUnknownFormat = Error("bitengine: unknown format")
)

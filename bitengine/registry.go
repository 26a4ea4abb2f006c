// Copyright 2024, The bitarchitect Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package bitengine

// Registry is a name -> Blueprint dispatch table, the mechanism behind a
// `-format NAME` style CLI flag. It carries no concrete blueprints of its
// own; callers register whatever formats their program knows about.
type Registry struct {
	blueprints map[string]Blueprint
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{blueprints: map[string]Blueprint{}}
}

// Register associates name with blueprint, overwriting any prior entry.
func (r *Registry) Register(name string, blueprint Blueprint) {
	r.blueprints[name] = blueprint
}

// Lookup returns the Blueprint registered under name, or ErrUnknownFormat.
func (r *Registry) Lookup(name string) (Blueprint, error) {
	bp, ok := r.blueprints[name]
	if !ok {
		return nil, ErrUnknownFormat
	}
	return bp, nil
}

// Names returns the registered format names.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.blueprints))
	for name := range r.blueprints {
		out = append(out, name)
	}
	return out
}

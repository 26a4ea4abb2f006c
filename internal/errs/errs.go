// Copyright 2024, The bitarchitect Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package errs provides panic/recover based error plumbing shared by the
// bitbuf, value, pattern, and maker packages. Internal handler methods call
// Panic or Assert freely; public entry points install a single
// `defer errs.Recover(&err)` and turn a panic back into a normal error
// return, the same shape as github.com/dsnet/golib/errs.
package errs

import "runtime"

// Panic panics with err if err is non-nil. It is a no-op otherwise.
func Panic(err error) {
	if err != nil {
		panic(err)
	}
}

// Assert panics with err if cond is false.
func Assert(cond bool, err error) {
	if !cond {
		panic(err)
	}
}

// Recover recovers a panic started by Panic or Assert and stores it in err.
// Runtime errors (nil dereference, index out of range, ...) and non-error
// panic values are re-panicked since they indicate a bug rather than a
// well-formed failure.
func Recover(err *error) {
	switch ex := recover().(type) {
	case nil:
		// Do nothing.
	case runtime.Error:
		panic(ex)
	case error:
		*err = ex
	default:
		panic(ex)
	}
}

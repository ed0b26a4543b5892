// Copyright (c) 2023 Stephan Lukits. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tapsh

import "errors"

// ErrUsage flags a malformed harness invocation: a malformed assert
// call, a missing command, an unreadable expectation file.  Usage
// errors abort the current script without counting as test failures.
var ErrUsage = errors.New("usage error")

// ErrInternal flags a violated harness invariant, e.g. closing a
// nesting level which was never opened or an inclusion-filter entry
// which never ran.  Internal errors are always reported and fail the
// enclosing script.
var ErrInternal = errors.New("internal error")

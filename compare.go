// Copyright (c) 2023 Stephan Lukits. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tapsh

import (
	"fmt"

	"github.com/google/go-cmp/cmp"
)

// Mode selects the comparison semantics of an expectation.
type Mode uint8

const (
	// Exact compares expected and actual byte for byte.
	Exact Mode = iota
	// Pattern interprets the expected value as an extended shell glob
	// which must match the whole actual value.
	Pattern
	// Ignore always matches; non-empty actual content is surfaced as
	// an informational note by the caller, never as a failure.
	Ignore
)

func (m Mode) String() string {
	switch m {
	case Pattern:
		return "pattern"
	case Ignore:
		return "ignore"
	}
	return "exact"
}

// Compare evaluates actual against expected under given mode and
// returns a non-empty human readable mismatch description iff the
// comparison fails.  A returned error is a usage error, i.e. a
// malformed pattern, and no verdict.
func Compare(m Mode, expected, actual string) (diff string, err error) {
	switch m {
	case Ignore:
		return "", nil
	case Pattern:
		match, err := compileGlob(expected)
		if err != nil {
			return "", err
		}
		if match(actual) {
			return "", nil
		}
		return fmt.Sprintf(
			"pattern %q doesn't match %q", expected, actual), nil
	}
	if expected == actual {
		return "", nil
	}
	return cmp.Diff(expected, actual), nil
}

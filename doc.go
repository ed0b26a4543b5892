// Copyright (c) 2023 Stephan Lukits. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package tapsh implements a TAP-inspired test harness for shell test
// scripts.  A test script is an ordinary (bash-dialect) shell file
// declaring test functions, i.e. functions whose name matches a
// configurable glob defaulting to "test_*".  The harness parses the
// script, discovers its test functions in declaration order and runs
// each of them sequentially in an embedded shell interpreter which
// provides the assert builtin:
//
//	test_echo() {
//	    assert "echo prints its arguments" -o "hello" -- echo -n hello
//	}
//
// assert executes the command following the "--" separator as a child
// process, captures its stdout, stderr and exit status into uniquely
// named artifact files and compares each channel against its
// expectation.  Expectations default to empty stdout/stderr and exit
// status zero and may be given per channel as a literal, an extended
// shell glob pattern or a file containing the expected content:
//
//	assert {description} [options] -- {command...}
//	  -o|-op|-O {value}   stdout: literal | pattern | file
//	  -e|-ep|-E {value}   stderr: literal | pattern | file
//	  -r|-rp|-R {value}   exit status: literal | pattern | file
//	  -oi -ei -ri         ignore stdout/stderr/exit status
//	  -p                  preserve trailing newlines
//	  -f                  return the failed-channel count
//
// Results are reported as indented, numbered TAP-like lines; test
// functions and explicit sub-groupings (the group/endgroup builtins)
// form nesting levels whose pass/fail tallies fold into their parent
// level:
//
//	# 1. test_echo
//	    ok 1 - echo prints its arguments
//	    1 PASSED, 0 FAILED
//	ok 1 - test_echo
//
// Each script runs in an isolated child process so that script local
// shell options cannot leak into the driver or sibling scripts; the
// child's error output is additionally retained so failing runs can be
// cross-referenced with the persisted artifacts ("For details, see:"
// markers).  See the command cmd/tapsh for the driver.
package tapsh

// Copyright (c) 2023 Stephan Lukits. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tapsh

import (
	"fmt"
	"os"
	"strings"
)

// Channel identifies one of the three observed output channels of a
// command under test.
type Channel uint8

const (
	ChOut Channel = iota // standard output
	ChErr                // standard error
	ChRet                // exit status
)

func (c Channel) String() string {
	switch c {
	case ChErr:
		return "stderr"
	case ChRet:
		return "exit-status"
	}
	return "stdout"
}

// channels in evaluation order.
var channels = []Channel{ChOut, ChErr, ChRet}

// Expect is the expectation of one channel: a comparison mode and a
// value source which is either an inline literal or the content of a
// file.  The zero value is an exact match against the empty string.
type Expect struct {
	Mode Mode
	// Value is the expected literal, the glob pattern, or the
	// expectation file's path if File is set.
	Value string
	// File marks Value as a file path whose content is expected.
	File bool
}

// defaultExpect returns given channel's expectation if no option was
// given: empty output on stdout/stderr, a zero exit status.
func defaultExpect(c Channel) Expect {
	if c == ChRet {
		return Expect{Mode: Exact, Value: "0"}
	}
	return Expect{Mode: Exact}
}

// Resolve reads the expected value from its source.  Unless preserve
// is set the trailing newline sequence is discarded, mirroring an
// assignment-style read of the expectation.  An unreadable expectation
// file is a usage error.
func (e Expect) Resolve(preserve bool) (string, error) {
	v := e.Value
	if e.File {
		bb, err := os.ReadFile(e.Value)
		if err != nil {
			return "", fmt.Errorf(
				"%w: expectation file: %v", ErrUsage, err)
		}
		v = string(bb)
	}
	if preserve {
		return v, nil
	}
	return strings.TrimRight(v, "\n"), nil
}

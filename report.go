// Copyright (c) 2023 Stephan Lukits. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tapsh

import (
	"fmt"
	"io"
	"strings"
)

// Report keeps the nested pass/fail accounting of one test run and
// renders it as indented, numbered TAP-like lines.  Levels are opened
// with Enter and closed with Exit in strict LIFO order; each Exit
// folds the closed level's aggregate verdict into its parent.  The
// zero depth counters (see Passed, Failed) are the run's result after
// the outermost Exit.  A Report is confined to a single goroutine.
type Report struct {
	w     io.Writer
	root  *frame
	stack []*frame
}

// frame is one nesting level: its name and running counters.  ord is
// the running ordinal of recorded entries, i.e. assertions and folded
// sub-levels.
type frame struct {
	name                string
	ord, passed, failed int
}

// NewReport returns a Report rendering to given writer.
func NewReport(w io.Writer) *Report {
	return &Report{w: w, root: &frame{}}
}

// Depth returns the current nesting depth; zero means no level is
// open.
func (r *Report) Depth() int { return len(r.stack) }

// Passed returns the number of passed entries at depth zero.
func (r *Report) Passed() int { return r.root.passed }

// Failed returns the number of failed entries at depth zero.
func (r *Report) Failed() int { return r.root.failed }

func (r *Report) top() *frame {
	if len(r.stack) == 0 {
		return r.root
	}
	return r.stack[len(r.stack)-1]
}

const indentUnit = "    "

func (r *Report) indent() string {
	return strings.Repeat(indentUnit, len(r.stack))
}

// Enter opens a new nesting level printing a banner with the level's
// 1-based ordinal within its parent and its name.
func (r *Report) Enter(name string) {
	fmt.Fprintf(r.w, "%s# %d. %s\n", r.indent(), r.top().ord+1, name)
	r.stack = append(r.stack, &frame{name: name})
}

// Record counts given verdict in the current level and prints its
// result line.
func (r *Report) Record(name string, passed bool) {
	f := r.top()
	f.ord++
	if passed {
		f.passed++
		fmt.Fprintf(r.w, "%sok %d - %s\n", r.indent(), f.ord, name)
		return
	}
	f.failed++
	fmt.Fprintf(r.w, "%snot ok %d - %s\n", r.indent(), f.ord, name)
}

// Exit closes the current nesting level printing its summary line and
// folding its aggregate verdict, failed iff any entry failed, into the
// parent level.  Exiting with no open level is an internal error, not
// a silent no-op.
func (r *Report) Exit() error {
	if len(r.stack) == 0 {
		return fmt.Errorf(
			"%w: report: level exit without matching enter", ErrInternal)
	}
	f := r.top()
	fmt.Fprintf(r.w, "%s%d PASSED, %d FAILED\n",
		r.indent(), f.passed, f.failed)
	r.stack = r.stack[:len(r.stack)-1]
	r.Record(f.name, f.failed == 0)
	return nil
}

// Summary prints the zero depth summary line.
func (r *Report) Summary() {
	fmt.Fprintf(r.w, "%d PASSED, %d FAILED\n", r.root.passed, r.root.failed)
}

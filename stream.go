// Copyright (c) 2023 Stephan Lukits. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tapsh

import (
	"bytes"
	"io"
)

// newlineTrimmer is a line-buffered writer transform dropping a
// trailing newline sequence at end of stream only: newlines are held
// back until further non-newline content arrives so deliberate blank
// lines inside the output survive while comparisons stay insensitive
// to a final newline.  Close discards held back newlines; it never
// closes the underlying writer.
type newlineTrimmer struct {
	w       io.Writer
	pending int
}

func newNewlineTrimmer(w io.Writer) *newlineTrimmer {
	return &newlineTrimmer{w: w}
}

func (t *newlineTrimmer) Write(p []byte) (int, error) {
	total := len(p)
	for len(p) > 0 {
		if p[0] == '\n' {
			i := 1
			for i < len(p) && p[i] == '\n' {
				i++
			}
			t.pending += i
			p = p[i:]
			continue
		}
		if t.pending > 0 {
			nl := bytes.Repeat([]byte{'\n'}, t.pending)
			if _, err := t.w.Write(nl); err != nil {
				return total - len(p), err
			}
			t.pending = 0
		}
		i := bytes.IndexByte(p, '\n')
		if i < 0 {
			i = len(p)
		}
		if _, err := t.w.Write(p[:i]); err != nil {
			return total - len(p), err
		}
		p = p[i:]
	}
	return total, nil
}

// Close drops a held back trailing newline sequence.
func (t *newlineTrimmer) Close() error {
	t.pending = 0
	return nil
}

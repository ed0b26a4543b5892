// Copyright (c) 2023 Stephan Lukits. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tapsh

import (
	"io"
	"regexp"
	"strings"
)

// Tee fans given reader out into a live writer and a side capture:
// every read chunk is written to both before the next one is read, so
// the live view keeps its interleaving with other streams while the
// side capture retains a replayable copy.  The returned channel
// reports the copy's result once the reader is drained.
func Tee(r io.Reader, live, side io.Writer) <-chan error {
	done := make(chan error, 1)
	go func() {
		_, err := io.Copy(io.MultiWriter(live, side), r)
		done <- err
	}()
	return done
}

var detailRe = regexp.MustCompile(
	regexp.QuoteMeta(DetailMarker) + `(.+)`)

// DetailPaths extracts the artifact locations referenced by detail
// markers from captured error output, deduplicated in order of first
// occurrence.  A referenced location runs to the end of its line so
// paths containing spaces survive.
func DetailPaths(errOut []byte) []string {
	var pp []string
	seen := map[string]bool{}
	for _, m := range detailRe.FindAllSubmatch(errOut, -1) {
		p := strings.TrimSpace(string(m[1]))
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		pp = append(pp, p)
	}
	return pp
}

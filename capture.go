// Copyright (c) 2023 Stephan Lukits. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tapsh

import (
	"fmt"
	"os"
	"path/filepath"
)

// Artifacts holds the capture file locations of one assert invocation,
// one per observed channel.  Artifacts persist on disk after the run
// for post-run inspection.
type Artifacts struct {
	Out string // captured stdout
	Err string // captured stderr
	Ret string // persisted exit status
}

// Of returns the artifact location of given channel.
func (a Artifacts) Of(c Channel) string {
	switch c {
	case ChErr:
		return a.Err
	case ChRet:
		return a.Ret
	}
	return a.Out
}

// allocRange is the number of two-digit disambiguation suffixes tried
// before Allocate fails.
const allocRange = 100

// Allocate claims a fresh set of capture files <base>NN.{out,err,ret}
// in given directory.  The two-digit suffix NN is counted up from 00
// until a candidate is found of which none of the three files exists
// yet; the files are claimed by exclusive creation so concurrent runs
// sharing a directory can't tread on each other's artifacts.  Allocate
// fails deterministically once all 100 candidates are exhausted.
func Allocate(dir, base string) (Artifacts, error) {
	if base == "" {
		base = DefaultName
	}
	for n := 0; n < allocRange; n++ {
		name := fmt.Sprintf("%s%02d", base, n)
		a := Artifacts{
			Out: filepath.Join(dir, name+".out"),
			Err: filepath.Join(dir, name+".err"),
			Ret: filepath.Join(dir, name+".ret"),
		}
		ok, err := claim(a)
		if err != nil {
			return Artifacts{}, err
		}
		if ok {
			return a, nil
		}
	}
	return Artifacts{}, fmt.Errorf(
		"%w: capture: all %d artifact names %q in %q taken",
		ErrInternal, allocRange, base, dir)
}

// claim tries to exclusively create all three files of a; on a
// collision the already created ones are removed again.
func claim(a Artifacts) (bool, error) {
	created := []string{}
	for _, p := range []string{a.Out, a.Err, a.Ret} {
		f, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err != nil {
			for _, c := range created {
				os.Remove(c)
			}
			if os.IsExist(err) {
				return false, nil
			}
			return false, fmt.Errorf("%w: capture: %v", ErrInternal, err)
		}
		f.Close()
		created = append(created, p)
	}
	return true, nil
}

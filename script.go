// Copyright (c) 2023 Stephan Lukits. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tapsh

import (
	"fmt"
	"os"
	"path"

	"golang.org/x/exp/slices"
	"mvdan.cc/sh/v3/syntax"
)

// Script is a parsed test script whose test functions can be
// discovered and executed.
type Script struct {
	// Path is the script's file system location.
	Path string
	file *syntax.File
}

// TestFn is a test function declared in a script.
type TestFn struct {
	// Name is the function's declared name.
	Name string
	// Line is the 1-based line of the declaration.
	Line uint
	pos  uint
}

// LoadScript parses the script at given path in the bash dialect.  A
// script failing to parse is a usage error.
func LoadScript(p string) (*Script, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("%w: script: %v", ErrUsage, err)
	}
	defer f.Close()
	file, err := syntax.NewParser(
		syntax.Variant(syntax.LangBash)).Parse(f, p)
	if err != nil {
		return nil, fmt.Errorf("%w: script: %v", ErrUsage, err)
	}
	return &Script{Path: p, file: file}, nil
}

// TestFns returns the test functions physically declared at the
// script's top level whose name matches given glob, ordered by
// ascending declaration position.  Functions pulled in at run time,
// e.g. by sourcing a shared library, are never test functions.
func (s *Script) TestFns(pattern string) ([]*TestFn, error) {
	var fns []*TestFn
	for _, stmt := range s.file.Stmts {
		fd, ok := stmt.Cmd.(*syntax.FuncDecl)
		if !ok {
			continue
		}
		match, err := path.Match(pattern, fd.Name.Value)
		if err != nil {
			return nil, fmt.Errorf(
				"%w: test name pattern %q: %v", ErrUsage, pattern, err)
		}
		if !match {
			continue
		}
		fns = append(fns, &TestFn{
			Name: fd.Name.Value,
			Line: uint(fd.Pos().Line()),
			pos:  uint(fd.Pos().Offset()),
		})
	}
	slices.SortFunc(fns, func(a, b *TestFn) bool { return a.pos < b.pos })
	return fns, nil
}

// Copyright (c) 2023 Stephan Lukits. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tapsh

import (
	"path/filepath"
	"testing"

	. "github.com/slukits/gounit"
)

type discovery struct{ Suite }

func mkScript(t *T, content string) string {
	td := t.FS().Tmp()
	td.MkFile("script.sh", []byte(content))
	return filepath.Join(td.Path(), "script.sh")
}

func (s *discovery) Finds_test_functions_in_declaration_order(t *T) {
	p := mkScript(t, `
test_b() { :; }
helper() { :; }
test_a() { :; }
`)
	script, err := LoadScript(p)
	t.FatalOn(err)
	fns, err := script.TestFns(DefaultPattern)
	t.FatalOn(err)
	t.Eq(2, len(fns))
	t.Eq("test_b", fns[0].Name)
	t.Eq("test_a", fns[1].Name)
}

func (s *discovery) Reports_declaration_lines(t *T) {
	p := mkScript(t, "test_a() { :; }\n")
	script, err := LoadScript(p)
	t.FatalOn(err)
	fns, err := script.TestFns(DefaultPattern)
	t.FatalOn(err)
	t.Eq(1, len(fns))
	t.Eq(uint(1), fns[0].Line)
}

func (s *discovery) Ignores_nested_function_declarations(t *T) {
	p := mkScript(t, `
test_outer() {
	test_inner() { :; }
	test_inner
}
`)
	script, err := LoadScript(p)
	t.FatalOn(err)
	fns, err := script.TestFns(DefaultPattern)
	t.FatalOn(err)
	t.Eq(1, len(fns))
	t.Eq("test_outer", fns[0].Name)
}

func (s *discovery) Honors_the_function_name_pattern(t *T) {
	p := mkScript(t, `
it_works() { :; }
test_ignored() { :; }
`)
	script, err := LoadScript(p)
	t.FatalOn(err)
	fns, err := script.TestFns("it_*")
	t.FatalOn(err)
	t.Eq(1, len(fns))
	t.Eq("it_works", fns[0].Name)
}

func (s *discovery) Fails_usage_on_a_missing_script(t *T) {
	_, err := LoadScript(filepath.Join(
		t.FS().Tmp().Path(), "no-such-script.sh"))
	t.ErrIs(err, ErrUsage)
}

func (s *discovery) Fails_usage_on_an_unparsable_script(t *T) {
	p := mkScript(t, "test_a() {\n")
	_, err := LoadScript(p)
	t.ErrIs(err, ErrUsage)
}

func (s *discovery) Fails_usage_on_a_malformed_name_pattern(t *T) {
	p := mkScript(t, "test_a() { :; }\n")
	script, err := LoadScript(p)
	t.FatalOn(err)
	_, err = script.TestFns("test_[")
	t.ErrIs(err, ErrUsage)
}

func TestDiscovery(t *testing.T) {
	t.Parallel()
	Run(&discovery{}, t)
}

// Copyright (c) 2023 Stephan Lukits. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tapsh

import (
	"testing"

	. "github.com/slukits/gounit"
)

type comparator struct{ Suite }

func (s *comparator) Exact_matches_identical_values(t *T) {
	for _, v := range []string{"", "foo", "a\nb\n\nc"} {
		diff, err := Compare(Exact, v, v)
		t.FatalOn(err)
		t.Eq("", diff)
	}
}

func (s *comparator) Exact_diffs_distinct_values(t *T) {
	diff, err := Compare(Exact, "hello", "world")
	t.FatalOn(err)
	t.Not.Eq("", diff)
	t.Contains(diff, "hello")
	t.Contains(diff, "world")
}

func (s *comparator) Pattern_matches_extended_globs(t *T) {
	for pattern, actual := range map[string]string{
		"+([0-9])":        "12345",
		"*([a-z])":        "",
		"?(foo)bar":       "bar",
		"@(foo|bar)":      "bar",
		"hello*":          "hello world",
		"h?llo":           "hallo",
		"[0-9]x":          "7x",
		"@(a|+([0-9]))":   "42",
		"exit status +(0)": "exit status 00",
	} {
		diff, err := Compare(Pattern, pattern, actual)
		t.FatalOn(err)
		if diff != "" {
			t.Errorf("expected %q to match %q: %s", pattern, actual, diff)
		}
	}
}

func (s *comparator) Pattern_mismatch_names_pattern_and_actual(t *T) {
	diff, err := Compare(Pattern, "+([0-9])", "12a45")
	t.FatalOn(err)
	t.Contains(diff, "+([0-9])")
	t.Contains(diff, "12a45")
}

func (s *comparator) Pattern_matches_the_whole_value_only(t *T) {
	diff, err := Compare(Pattern, "+([0-9])", "123\n456")
	t.FatalOn(err)
	t.Not.Eq("", diff)
}

func (s *comparator) Negation_matches_anything_but_its_pattern(t *T) {
	diff, err := Compare(Pattern, "!(foo|bar)", "baz")
	t.FatalOn(err)
	t.Eq("", diff)
	diff, err = Compare(Pattern, "!(foo|bar)", "foo")
	t.FatalOn(err)
	t.Not.Eq("", diff)
}

func (s *comparator) Embedded_negation_is_a_usage_error(t *T) {
	_, err := Compare(Pattern, "pre!(foo)post", "prexpost")
	t.ErrIs(err, ErrUsage)
}

func (s *comparator) Unbalanced_group_is_a_usage_error(t *T) {
	_, err := Compare(Pattern, "+([0-9]", "1")
	t.ErrIs(err, ErrUsage)
}

func (s *comparator) Escapes_lift_meta_characters(t *T) {
	diff, err := Compare(Pattern, `\*`, "*")
	t.FatalOn(err)
	t.Eq("", diff)
	diff, err = Compare(Pattern, `\*`, "x")
	t.FatalOn(err)
	t.Not.Eq("", diff)
}

func (s *comparator) Ignore_always_matches(t *T) {
	diff, err := Compare(Ignore, "whatever", "anything")
	t.FatalOn(err)
	t.Eq("", diff)
}

func TestComparator(t *testing.T) {
	t.Parallel()
	Run(&comparator{}, t)
}

// Copyright (c) 2023 Stephan Lukits. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tapsh

import (
	"strings"
	"testing"

	. "github.com/slukits/gounit"
)

type assertParsing struct{ Suite }

func args(s string) []string { return strings.Fields(s) }

func (s *assertParsing) Takes_the_first_positional_as_description(
	t *T,
) {
	inv, err := parseAssert(
		args("desc -o hello -- echo -n hello"), DefaultConfig())
	t.FatalOn(err)
	t.Eq("desc", inv.desc)
	t.Eq(Expect{Mode: Exact, Value: "hello"}, inv.expect(ChOut))
	t.Eq([]string{"echo", "-n", "hello"}, inv.cmd)
}

func (s *assertParsing) Takes_the_description_from_the_d_flag(t *T) {
	inv, err := parseAssert(
		args("-o x -d desc -- true"), DefaultConfig())
	t.FatalOn(err)
	t.Eq("desc", inv.desc)
}

func (s *assertParsing) Knows_the_per_channel_value_options(t *T) {
	inv, err := parseAssert(args(
		"desc -op +([0-9]) -E exp.file -r 1 -- true"), DefaultConfig())
	t.FatalOn(err)
	t.Eq(Expect{Mode: Pattern, Value: "+([0-9])"}, inv.expect(ChOut))
	t.Eq(Expect{Mode: Exact, Value: "exp.file", File: true},
		inv.expect(ChErr))
	t.Eq(Expect{Mode: Exact, Value: "1"}, inv.expect(ChRet))
}

func (s *assertParsing) Knows_the_per_channel_ignore_flags(t *T) {
	inv, err := parseAssert(
		args("desc -oi -ei -ri -- true"), DefaultConfig())
	t.FatalOn(err)
	for _, ch := range channels {
		t.Eq(Ignore, inv.expect(ch).Mode)
	}
}

func (s *assertParsing) Applies_configured_ignore_defaults(t *T) {
	cfg := DefaultConfig()
	cfg.IgnoreErr = true
	inv, err := parseAssert(args("desc -- true"), cfg)
	t.FatalOn(err)
	t.Eq(Ignore, inv.expect(ChErr).Mode)
	t.Eq(Exact, inv.expect(ChOut).Mode)
}

func (s *assertParsing) Lets_call_flags_override_ignore_defaults(
	t *T,
) {
	cfg := DefaultConfig()
	cfg.IgnoreErr = true
	inv, err := parseAssert(args("desc -e oops -- true"), cfg)
	t.FatalOn(err)
	t.Eq(Expect{Mode: Exact, Value: "oops"}, inv.expect(ChErr))
}

func (s *assertParsing) Knows_the_preserve_and_fail_flags(t *T) {
	inv, err := parseAssert(args("desc -p -f -- true"), DefaultConfig())
	t.FatalOn(err)
	t.True(inv.preserve)
	t.True(inv.failRet)
}

func (s *assertParsing) Fails_usage_on_too_few_arguments(t *T) {
	_, err := parseAssert(args("desc"), DefaultConfig())
	t.ErrIs(err, ErrUsage)
}

func (s *assertParsing) Fails_usage_without_command(t *T) {
	_, err := parseAssert(args("desc -o hello"), DefaultConfig())
	t.ErrIs(err, ErrUsage)
}

func (s *assertParsing) Fails_usage_on_empty_command(t *T) {
	_, err := parseAssert(args("desc --"), DefaultConfig())
	t.ErrIs(err, ErrUsage)
}

func (s *assertParsing) Fails_usage_on_missing_option_value(t *T) {
	_, err := parseAssert(args("desc -o"), DefaultConfig())
	t.ErrIs(err, ErrUsage)
}

func (s *assertParsing) Fails_usage_without_description(t *T) {
	_, err := parseAssert(args("-oi -- true"), DefaultConfig())
	t.ErrIs(err, ErrUsage)
}

func (s *assertParsing) Fails_usage_on_unknown_options(t *T) {
	_, err := parseAssert(args("desc -x -- true"), DefaultConfig())
	t.ErrIs(err, ErrUsage)
}

func TestAssertParsing(t *testing.T) {
	t.Parallel()
	Run(&assertParsing{}, t)
}

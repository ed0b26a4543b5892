// Copyright (c) 2023 Stephan Lukits. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tapsh

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// Script-level exit codes.  The usage and internal codes are distinct
// from a test failure so automation can tell "tests failed" apart from
// "the harness malfunctioned".
const (
	ExitPassed   = 0 // all tests passed
	ExitFailed   = 1 // some assertions failed
	ExitUsage    = 2 // malformed invocation, missing command, ...
	ExitInternal = 3 // abnormal termination, violated invariant
)

// killTimeout grants a command under test this long between SIGINT and
// SIGKILL when its context is cancelled.
const killTimeout = 2 * time.Second

// Runner executes one test script.  Test functions run one at a time
// in a single embedded shell so state set up by the script's top level
// is visible to all of them; the isolation of a script against the
// driver and against sibling scripts is the concern of cmd/tapsh which
// runs one Runner per child process.
type Runner struct {
	cfg      *Config
	lg       *zap.Logger
	rep      *Report
	stdin    io.Reader
	stdout   io.Writer
	stderr   io.Writer
	parser   *syntax.Parser
	sh       *interp.Runner
	executed map[string]bool
}

// NewRunner returns a Runner reporting to stdout and noting failure
// details on stderr.  stdin is handed through to asserted commands.
// A nil logger defaults to a no-op logger.
func NewRunner(
	cfg *Config, lg *zap.Logger, stdin io.Reader, stdout, stderr io.Writer,
) *Runner {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Runner{
		cfg:      cfg,
		lg:       lg,
		rep:      NewReport(stdout),
		stdin:    stdin,
		stdout:   stdout,
		stderr:   stderr,
		parser:   syntax.NewParser(syntax.Variant(syntax.LangBash)),
		executed: map[string]bool{},
	}
}

// Report provides the runner's accounting, mainly for inspection after
// a run.
func (r *Runner) Report() *Report { return r.rep }

// RunScript discovers the test functions of the script at given path
// and runs them, restricted to the names in only if only is non-empty.
// The returned code is the script-level exit code, see the Exit*
// constants; every reportable condition is also printed to the
// runner's stderr.
func (r *Runner) RunScript(
	ctx context.Context, path string, only []string,
) int {
	script, err := LoadScript(path)
	if err != nil {
		return r.fail(err)
	}
	fns, err := script.TestFns(r.cfg.Pattern)
	if err != nil {
		return r.fail(err)
	}
	fns, missing := filterFns(fns, only)
	r.lg.Debug("script: discovered",
		zap.String("script", path),
		zap.Int("tests", len(fns)))

	sh, err := interp.New(
		interp.StdIO(r.stdin, r.stdout, r.stderr),
		interp.Env(expand.ListEnviron(os.Environ()...)),
		interp.ExecHandler(r.exec),
	)
	if err != nil {
		return r.fail(fmt.Errorf("%w: interpreter: %v", ErrInternal, err))
	}
	r.sh = sh

	// run the script's top level: functions get defined, setup code
	// runs under the script's own shell options
	if err := sh.Run(ctx, script.file); err != nil {
		return r.fail(abnormal(path, err))
	}

	for _, fn := range fns {
		r.rep.Enter(fn.Name)
		if err := r.call(ctx, fn.Name); err != nil {
			if code, stop := r.failure(err); stop {
				return code
			}
		}
		r.executed[fn.Name] = true
		if err := r.rep.Exit(); err != nil {
			return r.fail(err)
		}
	}

	if r.rep.Depth() != 0 {
		return r.fail(fmt.Errorf(
			"%w: %d grouping level(s) left open; missing endgroup?",
			ErrInternal, r.rep.Depth()))
	}
	if len(missing) > 0 {
		return r.fail(fmt.Errorf(
			"%w: filtered test function(s) not found in %s: %s",
			ErrInternal, path, strings.Join(missing, ", ")))
	}
	for _, name := range only {
		if !r.executed[name] {
			return r.fail(fmt.Errorf(
				"%w: filtered test function %s was never executed",
				ErrInternal, name))
		}
	}
	r.rep.Summary()
	if r.rep.Failed() > 0 {
		return ExitFailed
	}
	return ExitPassed
}

// call invokes the already defined test function with given name in
// the script's shell.
func (r *Runner) call(ctx context.Context, name string) error {
	stmt, err := r.parser.Parse(strings.NewReader(name), name)
	if err != nil {
		return fmt.Errorf("%w: call %s: %v", ErrInternal, name, err)
	}
	return r.sh.Run(ctx, stmt)
}

// failure maps an error of a test function run to either a recorded
// synthetic failure (abnormal return) or, for usage and internal
// errors, to a script-aborting exit code.
func (r *Runner) failure(err error) (code int, stop bool) {
	if errors.Is(err, ErrUsage) || errors.Is(err, ErrInternal) {
		return r.fail(err), true
	}
	if status, ok := interp.IsExitStatus(err); ok {
		r.rep.Record(fmt.Sprintf(
			"abnormal return (exit status %d)", status), false)
		return 0, false
	}
	r.rep.Record("abnormal return: "+err.Error(), false)
	return 0, false
}

// fail reports a script-aborting error and returns its exit code.
func (r *Runner) fail(err error) int {
	fmt.Fprintf(r.stderr, "tapsh: %v\n", err)
	if errors.Is(err, ErrUsage) {
		return ExitUsage
	}
	return ExitInternal
}

// abnormal wraps a failing top-level script run.
func abnormal(path string, err error) error {
	if errors.Is(err, ErrUsage) || errors.Is(err, ErrInternal) {
		return err
	}
	return fmt.Errorf("%w: script %s terminated abnormally: %v",
		ErrInternal, path, err)
}

// exec is the interpreter's exec handler: it provides the assert,
// group and endgroup builtins and delegates everything else to the
// default handler, i.e. to real child processes.
func (r *Runner) exec(ctx context.Context, args []string) error {
	hc := interp.HandlerCtx(ctx)
	switch args[0] {
	case "assert":
		return r.assert(ctx, hc, args[1:])
	case "group":
		if len(args) != 2 {
			return fmt.Errorf(
				"%w: group: exactly one name expected", ErrUsage)
		}
		r.rep.Enter(args[1])
		return nil
	case "endgroup":
		return r.rep.Exit()
	}
	return interp.DefaultExecHandler(killTimeout)(ctx, args)
}

// filterFns restricts fns to the names in only, keeping declaration
// order; missing collects filter entries no discovered function
// matches.  An empty filter selects everything.
func filterFns(
	fns []*TestFn, only []string,
) (selected []*TestFn, missing []string) {
	if len(only) == 0 {
		return fns, nil
	}
	want := map[string]bool{}
	for _, name := range only {
		want[name] = true
	}
	for _, fn := range fns {
		if want[fn.Name] {
			selected = append(selected, fn)
			delete(want, fn.Name)
		}
	}
	for _, name := range only {
		if want[name] {
			missing = append(missing, name)
		}
	}
	return selected, missing
}

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
	"os/exec"
	"strconv"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
)

// DetailMarker prefixes the artifact reference of a failure note; the
// driver cross-references these lines to render error details.
const DetailMarker = "For details, see: "

// invocation is one assert call: the command under test, its resolved
// per-channel expectations and the per-call flags.  It is created
// fresh on each call and discarded after the verdict; only the on-disk
// artifacts outlive it.
type invocation struct {
	desc     string
	expects  map[Channel]Expect
	preserve bool
	failRet  bool
	cmd      []string
}

// expect returns the expectation of given channel falling back to the
// channel's default.
func (inv *invocation) expect(c Channel) Expect {
	if e, ok := inv.expects[c]; ok {
		return e
	}
	return defaultExpect(c)
}

// valueOpts maps value-taking options to the channel and mode they
// select.
var valueOpts = map[string]struct {
	ch   Channel
	mode Mode
	file bool
}{
	"-o": {ChOut, Exact, false}, "-op": {ChOut, Pattern, false},
	"-O": {ChOut, Exact, true},
	"-e": {ChErr, Exact, false}, "-ep": {ChErr, Pattern, false},
	"-E": {ChErr, Exact, true},
	"-r": {ChRet, Exact, false}, "-rp": {ChRet, Pattern, false},
	"-R": {ChRet, Exact, true},
}

var ignoreOpts = map[string]Channel{
	"-oi": ChOut, "-ei": ChErr, "-ri": ChRet,
}

// parseAssert parses an assert call's arguments.  cfg provides the
// per-channel ignore defaults.  All returned errors are usage errors.
func parseAssert(args []string, cfg *Config) (*invocation, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf(
			"%w: assert: a description and a command are required",
			ErrUsage)
	}
	inv := &invocation{expects: map[Channel]Expect{}}
	for _, ch := range channels {
		if cfg.ignored(ch) {
			inv.expects[ch] = Expect{Mode: Ignore}
		}
	}
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			inv.cmd = args[i+1:]
			if len(inv.cmd) == 0 {
				return nil, fmt.Errorf(
					"%w: assert: no command after '--'", ErrUsage)
			}
			break
		}
		if o, ok := valueOpts[a]; ok {
			i++
			if i >= len(args) {
				return nil, fmt.Errorf(
					"%w: assert: option %s requires a value",
					ErrUsage, a)
			}
			inv.expects[o.ch] = Expect{
				Mode: o.mode, Value: args[i], File: o.file}
			continue
		}
		if ch, ok := ignoreOpts[a]; ok {
			inv.expects[ch] = Expect{Mode: Ignore}
			continue
		}
		switch a {
		case "-d":
			i++
			if i >= len(args) {
				return nil, fmt.Errorf(
					"%w: assert: option -d requires a value", ErrUsage)
			}
			inv.desc = args[i]
		case "-p":
			inv.preserve = true
		case "-f":
			inv.failRet = true
		default:
			if !strings.HasPrefix(a, "-") && inv.desc == "" {
				inv.desc = a
				continue
			}
			return nil, fmt.Errorf(
				"%w: assert: unknown argument %q", ErrUsage, a)
		}
	}
	if inv.cmd == nil {
		return nil, fmt.Errorf(
			"%w: assert: missing '--' and command", ErrUsage)
	}
	if inv.desc == "" {
		return nil, fmt.Errorf("%w: assert: no description", ErrUsage)
	}
	return inv, nil
}

// channelFailure is one failed channel comparison of an assert call.
type channelFailure struct {
	ch   Channel
	diff string
	path string
}

// assert implements the assert builtin: it runs the command under
// test with captured channels, evaluates the expectations and records
// the verdict.  A failing assertion is not an error; returned errors
// are usage or internal errors which abort the script.  With -f a
// failing assertion returns the failed-channel count as exit status.
func (r *Runner) assert(
	ctx context.Context, hc interp.HandlerContext, args []string,
) error {
	inv, err := parseAssert(args, r.cfg)
	if err != nil {
		return err
	}
	arts, err := Allocate(r.cfg.OutDir, r.cfg.Name)
	if err != nil {
		return err
	}
	r.lg.Debug("assert: run",
		zap.String("description", inv.desc),
		zap.Strings("command", inv.cmd),
		zap.String("artifacts", arts.Out))
	status, err := captureCommand(ctx, hc, inv, arts)
	if err != nil {
		return err
	}
	failures, err := evaluate(hc.Stderr, inv, arts, status)
	if err != nil {
		return err
	}
	passed := len(failures) == 0
	r.rep.Record(inv.desc, passed)
	if passed {
		return nil
	}
	fmt.Fprintf(hc.Stderr, "# assert failed: %s\n", inv.desc)
	for _, f := range failures {
		fmt.Fprintf(hc.Stderr, "# %s:\n", f.ch)
		for _, ln := range strings.Split(
			strings.TrimRight(f.diff, "\n"), "\n",
		) {
			fmt.Fprintf(hc.Stderr, "#   %s\n", ln)
		}
		fmt.Fprintf(hc.Stderr, "# %s%s\n", DetailMarker, f.path)
	}
	if inv.failRet {
		return interp.NewExitStatus(uint8(len(failures)))
	}
	return nil
}

// captureCommand executes the command under test as a child process:
// stdin is left connected to whatever the caller supplied, stdout and
// stderr are redirected into the capture artifacts, filtered through
// the end-of-stream newline trimmer unless preservation is requested.
// The exit status is persisted as the third artifact.
func captureCommand(
	ctx context.Context, hc interp.HandlerContext, inv *invocation,
	arts Artifacts,
) (int, error) {
	outF, err := os.OpenFile(arts.Out, os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return 0, fmt.Errorf("%w: capture: %v", ErrInternal, err)
	}
	defer outF.Close()
	errF, err := os.OpenFile(arts.Err, os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return 0, fmt.Errorf("%w: capture: %v", ErrInternal, err)
	}
	defer errF.Close()

	var stdout, stderr io.Writer = outF, errF
	var trimmers []*newlineTrimmer
	if !inv.preserve {
		ot, et := newNewlineTrimmer(outF), newNewlineTrimmer(errF)
		stdout, stderr = ot, et
		trimmers = append(trimmers, ot, et)
	}

	cmd := exec.CommandContext(ctx, inv.cmd[0], inv.cmd[1:]...)
	cmd.Dir = hc.Dir
	cmd.Env = environList(hc.Env)
	cmd.Stdin = hc.Stdin
	cmd.Stdout, cmd.Stderr = stdout, stderr
	status := 0
	if err := cmd.Run(); err != nil {
		status = exitStatus(err)
	}
	for _, t := range trimmers {
		t.Close()
	}
	if err := os.WriteFile(
		arts.Ret, []byte(strconv.Itoa(status)+"\n"), 0644,
	); err != nil {
		return 0, fmt.Errorf("%w: capture: %v", ErrInternal, err)
	}
	return status, nil
}

// exitStatus maps a command error to its shell exit status: the
// command's own status, 128+signal for a signal-terminated command and
// 127 if the command could not be started at all.
func exitStatus(err error) int {
	var ee *exec.ExitError
	if !errors.As(err, &ee) {
		return 127
	}
	if ec := ee.ExitCode(); ec >= 0 {
		return ec
	}
	if ws, ok := ee.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return 1
}

// evaluate compares the captured channels against inv's expectations
// returning the failed ones.  Ignored channels with non-empty content
// are surfaced as informational notes on w, never as failures.
func evaluate(
	w io.Writer, inv *invocation, arts Artifacts, status int,
) ([]channelFailure, error) {
	var failures []channelFailure
	for _, ch := range channels {
		e := inv.expect(ch)
		actual, err := readActual(arts, ch, status)
		if err != nil {
			return nil, err
		}
		if e.Mode == Ignore {
			if (ch == ChRet && status != 0) ||
				(ch != ChRet && actual != "") {
				fmt.Fprintf(w, "# note: %s ignored but non-empty\n",
					ch)
				fmt.Fprintf(w, "# %s%s\n", DetailMarker, arts.Of(ch))
			}
			continue
		}
		if ch == ChRet && e.Mode == Exact {
			expected, err := e.Resolve(false)
			if err != nil {
				return nil, err
			}
			expN, err := strconv.Atoi(strings.TrimSpace(expected))
			if err != nil {
				return nil, fmt.Errorf(
					"%w: assert: exit status expectation %q is not "+
						"a number", ErrUsage, expected)
			}
			if expN != status {
				failures = append(failures, channelFailure{
					ch: ch, path: arts.Ret,
					diff: fmt.Sprintf(
						"expected exit status %d, got %d",
						expN, status),
				})
			}
			continue
		}
		expected, err := e.Resolve(inv.preserve)
		if err != nil {
			return nil, err
		}
		diff, err := Compare(e.Mode, expected, actual)
		if err != nil {
			return nil, err
		}
		if diff != "" {
			failures = append(failures, channelFailure{
				ch: ch, diff: diff, path: arts.Of(ch)})
		}
	}
	return failures, nil
}

// readActual provides a channel's captured content for comparison.
func readActual(arts Artifacts, ch Channel, status int) (string, error) {
	if ch == ChRet {
		return strconv.Itoa(status), nil
	}
	bb, err := os.ReadFile(arts.Of(ch))
	if err != nil {
		return "", fmt.Errorf("%w: capture: %v", ErrInternal, err)
	}
	return string(bb), nil
}

// environList flattens the interpreter's environment for a child
// process; only exported string variables are passed along.
func environList(env expand.Environ) []string {
	var ee []string
	env.Each(func(name string, vr expand.Variable) bool {
		if vr.Exported && vr.Kind == expand.String {
			ee = append(ee, name+"="+vr.String())
		}
		return true
	})
	return ee
}

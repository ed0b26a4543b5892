// Copyright (c) 2023 Stephan Lukits. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

/*
Tapsh runs shell test scripts and reports their results in a
TAP-inspired format.

Usage:

	tapsh [flags] {script...}

Each given script is executed in its own child process so that shell
options like 'set -e' or 'set -u' local to one script can't leak into
the driver or into sibling scripts.  The child's combined output is
shown live; its error output is additionally retained so a failing
script's "For details, see:" references can be expanded into an error
detail block after the run.  Standard input is closed before any
script runs: scripts have to be self-contained.

The process exits 0 if no script had failures, 1 if assertions failed,
2 on usage errors and 3 if the harness itself malfunctioned.
*/
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/slukits/tapsh"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	debug   bool
	outDir  string
	runName string
	pattern string
	only    []string

	logger *zap.Logger

	// exitCode is the final process exit code determined by the
	// executed sub-command.
	exitCode int
)

var rootCmd = &cobra.Command{
	Use:           "tapsh {script...}",
	Short:         "tapsh runs shell test scripts",
	Long:          "tapsh discovers and runs the test functions of shell test scripts\nand reports their results in a TAP-inspired format.",
	Args:          cobra.MinimumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config()
		if err != nil {
			return err
		}
		if !cfg.Debug {
			logger = zap.NewNop()
			return nil
		}
		zapCfg := zap.NewProductionConfig()
		zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runAll,
}

// scriptCmd is the hidden per-script child invocation providing the
// process isolation of a script run.
var scriptCmd = &cobra.Command{
	Use:    "script {script}",
	Hidden: true,
	Args:   cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config()
		if err != nil {
			return err
		}
		r := tapsh.NewRunner(cfg, logger, os.Stdin, os.Stdout, os.Stderr)
		exitCode = r.RunScript(context.Background(), args[0], only)
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&debug, "debug", false, "switch on debug logging")
	pf.StringVar(&outDir, "outdir", "", "artifact output directory")
	pf.StringVar(&runName, "name", "", "run-scoped artifact base name")
	pf.StringVar(&pattern, "pattern", "",
		"glob test function names must match")
	pf.StringSliceVar(&only, "only", nil,
		"run only given test function; fn or fn@script")
	rootCmd.AddCommand(scriptCmd)
}

// config loads the run configuration (defaults, .tapsh.yml,
// environment) and applies the command line flags on top.
func config() (*tapsh.Config, error) {
	cfg, err := tapsh.LoadConfig(".")
	if err != nil {
		return nil, err
	}
	if debug {
		cfg.Debug = true
	}
	if outDir != "" {
		cfg.OutDir = outDir
	}
	if runName != "" {
		cfg.Name = runName
	}
	if pattern != "" {
		cfg.Pattern = pattern
	}
	return cfg, nil
}

// runAll runs each given script in an isolated child process, sums up
// their failures and determines the process exit code.
func runAll(cmd *cobra.Command, scripts []string) error {
	// scripts must be self-contained and not rely on inherited input
	os.Stdin.Close()

	cfg, err := config()
	if err != nil {
		return err
	}
	filter, err := parseFilter(only, scripts)
	if err != nil {
		return err
	}
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("%w: executable: %v", tapsh.ErrInternal, err)
	}

	var tl tally
	for _, script := range scripts {
		tl.add(os.Stderr, script, runScript(exe, cfg, script, filter[script]))
	}

	fmt.Printf("tapsh: %d script(s) run, %d with failures\n",
		len(scripts), tl.flawed())
	exitCode = tl.exit()
	return nil
}

// tally folds the per-script exit codes into the process exit code.
// An internal error outranks a usage error outranks ordinary test
// failures so a harness malfunction is never masked by a failing test.
type tally struct{ failed, usage, internal int }

// add counts given script's exit code reporting non-test-failure
// conditions on w.  Codes outside the documented script codes count as
// internal errors.
func (t *tally) add(w io.Writer, script string, code int) {
	switch code {
	case tapsh.ExitPassed:
	case tapsh.ExitFailed:
		t.failed++
	case tapsh.ExitUsage:
		t.usage++
		fmt.Fprintf(w,
			"tapsh: %s: usage error, script aborted\n", script)
	case tapsh.ExitInternal:
		t.internal++
		fmt.Fprintf(w, "tapsh: %s: abnormal termination\n", script)
	default:
		t.internal++
		fmt.Fprintf(w,
			"tapsh: %s: unrecognized error (exit code %d)\n",
			script, code)
	}
}

// flawed returns the number of scripts which didn't pass.
func (t *tally) flawed() int { return t.failed + t.usage + t.internal }

// exit returns the folded process exit code.
func (t *tally) exit() int {
	switch {
	case t.internal > 0:
		return tapsh.ExitInternal
	case t.usage > 0:
		return tapsh.ExitUsage
	case t.failed > 0:
		return tapsh.ExitFailed
	}
	return tapsh.ExitPassed
}

// runScript executes one script in a child process fanning its error
// stream out into the live view and a side capture which is used to
// expand artifact references into an error detail block on failure.
func runScript(exe string, cfg *tapsh.Config, script string, only []string) int {
	args := []string{"script", script}
	for _, fn := range only {
		args = append(args, "--only", fn)
	}
	child := exec.Command(exe, args...)
	child.Env = append(os.Environ(), cfg.Environ()...)
	child.Stdout = os.Stdout
	errPipe, err := child.StderrPipe()
	if err != nil {
		fmt.Fprintf(os.Stderr, "tapsh: %s: %v\n", script, err)
		return tapsh.ExitInternal
	}
	logger.Debug("script: starting child",
		zap.String("script", script), zap.Strings("only", only))

	var side bytes.Buffer
	if err := child.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "tapsh: %s: %v\n", script, err)
		return tapsh.ExitInternal
	}
	teed := tapsh.Tee(errPipe, os.Stderr, &side)
	<-teed
	code := 0
	if err := child.Wait(); err != nil {
		ee, ok := err.(*exec.ExitError)
		if !ok {
			fmt.Fprintf(os.Stderr, "tapsh: %s: %v\n", script, err)
			return tapsh.ExitInternal
		}
		code = ee.ExitCode()
	}
	if code != 0 {
		errorDetail(os.Stdout, script, side.Bytes())
	}
	return code
}

// errorDetail prints the clearly delimited error detail block of a
// failed script: the retained error output followed by the content of
// every artifact the run referenced via detail markers.
func errorDetail(w io.Writer, script string, errOut []byte) {
	fmt.Fprintf(w, "---- error detail: %s ----\n", script)
	if retained := strings.TrimRight(string(errOut), "\n"); retained != "" {
		fmt.Fprintln(w, "-- stderr:")
		for _, ln := range strings.Split(retained, "\n") {
			fmt.Fprintf(w, "   %s\n", ln)
		}
	}
	for _, p := range tapsh.DetailPaths(errOut) {
		fmt.Fprintf(w, "-- %s:\n", p)
		bb, err := os.ReadFile(p)
		if err != nil {
			fmt.Fprintf(w, "   (unreadable: %v)\n", err)
			continue
		}
		content := strings.TrimRight(string(bb), "\n")
		if content == "" {
			fmt.Fprintln(w, "   (empty)")
			continue
		}
		for _, ln := range strings.Split(content, "\n") {
			fmt.Fprintf(w, "   %s\n", ln)
		}
	}
	fmt.Fprintf(w, "---- end error detail: %s ----\n", script)
}

// parseFilter resolves --only entries into a per-script inclusion
// filter.  An entry is either "fn@script", matched against the given
// script arguments by full path or base name, or a bare "fn" which is
// only unambiguous if a single script is run.
func parseFilter(
	only, scripts []string,
) (map[string][]string, error) {
	filter := map[string][]string{}
	for _, entry := range only {
		fn, script, qualified := strings.Cut(entry, "@")
		if !qualified {
			if len(scripts) != 1 {
				return nil, fmt.Errorf(
					"%w: --only %s: qualify as fn@script when "+
						"running multiple scripts", tapsh.ErrUsage, entry)
			}
			filter[scripts[0]] = append(filter[scripts[0]], fn)
			continue
		}
		found := ""
		for _, s := range scripts {
			if s == script || filepath.Base(s) == script {
				found = s
				break
			}
		}
		if found == "" {
			return nil, fmt.Errorf(
				"%w: --only %s: script %s is not run", tapsh.ErrUsage,
				entry, script)
		}
		filter[found] = append(filter[found], fn)
	}
	return filter, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, tapsh.ErrInternal) {
			os.Exit(tapsh.ExitInternal)
		}
		os.Exit(tapsh.ExitUsage)
	}
	os.Exit(exitCode)
}

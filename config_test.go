// Copyright (c) 2023 Stephan Lukits. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tapsh

import (
	"testing"

	. "github.com/slukits/gounit"
)

type configuration struct{ Suite }

func (s *configuration) Defaults_name_and_pattern(t *T) {
	c := DefaultConfig()
	t.Eq(DefaultName, c.Name)
	t.Eq(DefaultPattern, c.Pattern)
	t.Not.Eq("", c.OutDir)
}

func (s *configuration) Is_overwritten_by_the_environment(t *T) {
	t.GoT().Setenv(EnvName, "run42")
	t.GoT().Setenv(EnvPattern, "check_*")
	t.GoT().Setenv(EnvIgnoreErr, "1")
	c := DefaultConfig()
	c.FromEnv()
	t.Eq("run42", c.Name)
	t.Eq("check_*", c.Pattern)
	t.True(c.IgnoreErr)
	t.Not.True(c.IgnoreOut)
}

func (s *configuration) Reads_the_configuration_file(t *T) {
	td := t.FS().Tmp()
	td.MkFile(ConfigFile, []byte("name: filerun\nignore-ret: true\n"))
	c, err := LoadConfig(td.Path())
	t.FatalOn(err)
	t.Eq("filerun", c.Name)
	t.True(c.IgnoreRet)
	t.Eq(DefaultPattern, c.Pattern)
}

func (s *configuration) Lets_the_environment_override_the_file(t *T) {
	td := t.FS().Tmp()
	td.MkFile(ConfigFile, []byte("name: filerun\n"))
	t.GoT().Setenv(EnvName, "envrun")
	c, err := LoadConfig(td.Path())
	t.FatalOn(err)
	t.Eq("envrun", c.Name)
}

func (s *configuration) Fails_usage_on_a_malformed_file(t *T) {
	td := t.FS().Tmp()
	td.MkFile(ConfigFile, []byte(":\tnot yaml ["))
	_, err := LoadConfig(td.Path())
	t.ErrIs(err, ErrUsage)
}

func (s *configuration) Propagates_itself_to_child_processes(t *T) {
	c := &Config{OutDir: "/tmp/x", Name: "n", Pattern: "p",
		Debug: true, IgnoreOut: true}
	ee := c.Environ()
	t.Contains(ee, EnvOutDir+"=/tmp/x")
	t.Contains(ee, EnvName+"=n")
	t.Contains(ee, EnvPattern+"=p")
	t.Contains(ee, EnvDebug+"=1")
	t.Contains(ee, EnvIgnoreOut+"=1")
}

func TestConfiguration(t *testing.T) { Run(&configuration{}, t) }

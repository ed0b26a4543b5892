// Copyright (c) 2023 Stephan Lukits. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tapsh

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Configuration defaults.
const (
	// DefaultName is the artifact base name of a run if no run-scoped
	// name is configured.
	DefaultName = "test"
	// DefaultPattern is the glob test function names must match.
	DefaultPattern = "test_*"
	// ConfigFile is the optional per-directory configuration file.
	ConfigFile = ".tapsh.yml"
)

// Environment variables consumed by the harness.  They override the
// configuration file and are exported to script child processes, i.e.
// configuration is inherited the way exported shell variables are.
const (
	EnvDebug     = "TAPSH_DEBUG"
	EnvOutDir    = "TAPSH_OUTDIR"
	EnvName      = "TAPSH_NAME"
	EnvPattern   = "TAPSH_PATTERN"
	EnvIgnoreOut = "TAPSH_IGNORE_OUT"
	EnvIgnoreErr = "TAPSH_IGNORE_ERR"
	EnvIgnoreRet = "TAPSH_IGNORE_RET"
)

// Config carries the run-scoped configuration of the harness.
type Config struct {
	// Debug switches on debug logging.
	Debug bool `yaml:"debug"`
	// OutDir is the directory artifacts are allocated in.
	OutDir string `yaml:"outdir"`
	// Name is the artifact base name, see Allocate.
	Name string `yaml:"name"`
	// Pattern is the glob test function names must match.
	Pattern string `yaml:"pattern"`
	// IgnoreOut, IgnoreErr and IgnoreRet set a channel's default
	// expectation to ignore, independent of per-call flags.
	IgnoreOut bool `yaml:"ignore-out"`
	IgnoreErr bool `yaml:"ignore-err"`
	IgnoreRet bool `yaml:"ignore-ret"`
}

// DefaultConfig returns the built-in configuration: artifacts go to
// the system's temp directory under the base name "test" and test
// functions are the "test_*" ones.
func DefaultConfig() *Config {
	return &Config{
		OutDir:  os.TempDir(),
		Name:    DefaultName,
		Pattern: DefaultPattern,
	}
}

// LoadConfig determines the configuration of a run: the defaults,
// updated by a ".tapsh.yml" file in given directory if present,
// updated by the environment.
func LoadConfig(dir string) (*Config, error) {
	c := DefaultConfig()
	bb, err := os.ReadFile(filepath.Join(dir, ConfigFile))
	if err == nil {
		if err := yaml.Unmarshal(bb, c); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrUsage, ConfigFile, err)
		}
		c.applyDefaults()
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s: %v", ErrUsage, ConfigFile, err)
	}
	c.FromEnv()
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.OutDir == "" {
		c.OutDir = os.TempDir()
	}
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.Pattern == "" {
		c.Pattern = DefaultPattern
	}
}

// FromEnv overwrites c with the settings found in the environment.
func (c *Config) FromEnv() {
	if v, ok := os.LookupEnv(EnvDebug); ok {
		c.Debug = isTrue(v)
	}
	if v, ok := os.LookupEnv(EnvOutDir); ok && v != "" {
		c.OutDir = v
	}
	if v, ok := os.LookupEnv(EnvName); ok && v != "" {
		c.Name = v
	}
	if v, ok := os.LookupEnv(EnvPattern); ok && v != "" {
		c.Pattern = v
	}
	if v, ok := os.LookupEnv(EnvIgnoreOut); ok {
		c.IgnoreOut = isTrue(v)
	}
	if v, ok := os.LookupEnv(EnvIgnoreErr); ok {
		c.IgnoreErr = isTrue(v)
	}
	if v, ok := os.LookupEnv(EnvIgnoreRet); ok {
		c.IgnoreRet = isTrue(v)
	}
}

// Environ returns the environment entries propagating c to a script
// child process.
func (c *Config) Environ() []string {
	ee := []string{
		EnvOutDir + "=" + c.OutDir,
		EnvName + "=" + c.Name,
		EnvPattern + "=" + c.Pattern,
	}
	if c.Debug {
		ee = append(ee, EnvDebug+"=1")
	}
	if c.IgnoreOut {
		ee = append(ee, EnvIgnoreOut+"=1")
	}
	if c.IgnoreErr {
		ee = append(ee, EnvIgnoreErr+"=1")
	}
	if c.IgnoreRet {
		ee = append(ee, EnvIgnoreRet+"=1")
	}
	return ee
}

// ignored returns given channel's configured default expectation.
func (c *Config) ignored(ch Channel) bool {
	switch ch {
	case ChOut:
		return c.IgnoreOut
	case ChErr:
		return c.IgnoreErr
	}
	return c.IgnoreRet
}

func isTrue(v string) bool {
	switch v {
	case "", "0", "false", "no", "off":
		return false
	}
	return true
}

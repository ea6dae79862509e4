// Copyright (c) 2026 Uber Technologies, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package configflag

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/pmlab/pmview/src/x/config"
)

var _ pflag.Value = (*FlagStringSlice)(nil)

// Options represents the values of config command line flags.
type Options struct {
	// ConfigFiles (-f) is a list of config files to load.
	ConfigFiles FlagStringSlice

	// ShouldDumpConfigAndExit (-d) causes MainLoad to print config to stdout,
	// and then exit.
	ShouldDumpConfigAndExit bool

	// test mocking options
	osFns osIface
}

// RegisterFlagSet registers commandline options with the given flagset.
func (opts *Options) RegisterFlagSet(cmd *pflag.FlagSet) {
	cmd.VarP(&opts.ConfigFiles, "config-file", "f", "Configuration files to load")
	cmd.BoolVarP(&opts.ShouldDumpConfigAndExit, "dump-config", "d", false, "Dump configuration and exit")
}

// MainLoad loads the configured files into target, leaving target untouched
// when no files were given, and dumps the result then exits if -d was passed.
func (opts *Options) MainLoad(target interface{}, loadOpts config.Options) error {
	osFns := opts.osFns
	if osFns == nil {
		osFns = realOS{}
	}

	if len(opts.ConfigFiles.Value) > 0 {
		if err := config.LoadFiles(target, opts.ConfigFiles.Value, loadOpts); err != nil {
			return fmt.Errorf("unable to load config from %s: %w", opts.ConfigFiles.Value, err)
		}
	}

	if opts.ShouldDumpConfigAndExit {
		if err := config.Dump(target, osFns.Stdout()); err != nil {
			return fmt.Errorf("failed to dump config: %w", err)
		}
		osFns.Exit(0)
	}
	return nil
}

// FlagStringSlice represents a slice of strings. When used as a flag variable,
// it allows for multiple string values:
//
//	./pmview -f file1.yaml -f file2.yaml
//
// When the flags are parsed, the variable contains all the values.
type FlagStringSlice struct {
	Value []string

	overridden bool
}

// String returns a string implementation of the slice.
func (i *FlagStringSlice) String() string {
	if i == nil {
		return ""
	}
	return fmt.Sprintf("%v", i.Value)
}

// Set appends a string value to the slice. The first call drops any defaults.
func (i *FlagStringSlice) Set(value string) error {
	if !i.overridden {
		i.overridden = true
		i.Value = nil
	}

	i.Value = append(i.Value, value)
	return nil
}

// Type names the flag value for usage output.
func (i *FlagStringSlice) Type() string {
	return "stringSlice"
}

type osIface interface {
	Exit(status int)
	Stdout() io.Writer
}

type realOS struct{}

func (r realOS) Exit(status int) {
	os.Exit(status)
}

func (r realOS) Stdout() io.Writer {
	return os.Stdout
}

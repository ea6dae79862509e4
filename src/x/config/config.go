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

// Package config loads YAML configuration files into typed structs.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	uconfig "go.uber.org/config"
	validator "gopkg.in/validator.v2"
	yaml "gopkg.in/yaml.v2"
)

var errNoFilesToLoad = errors.New("attempt to load config with no files")

// Options is an options set used when parsing config.
type Options struct {
	// DisableMarshalStrict disables rejecting unknown fields.
	DisableMarshalStrict bool

	// Expand provides values for ${VAR} style variables in the files.
	Expand uconfig.LookupFunc
}

// LoadFile loads a config from a file.
func LoadFile(dst interface{}, file string, opts Options) error {
	return LoadFiles(dst, []string{file}, opts)
}

// LoadFiles loads a config from list of files. If value for a property is
// present in multiple files, the value from the last file will be applied.
// Validation is done after merging all values.
func LoadFiles(dst interface{}, files []string, opts Options) error {
	if len(files) == 0 {
		return errNoFilesToLoad
	}
	yamlOpts := make([]uconfig.YAMLOption, 0, len(files)+2)
	for _, name := range files {
		yamlOpts = append(yamlOpts, uconfig.File(name))
	}
	if opts.DisableMarshalStrict {
		yamlOpts = append(yamlOpts, uconfig.Permissive())
	}
	expand := opts.Expand
	if expand == nil {
		expand = os.LookupEnv
	}
	yamlOpts = append(yamlOpts, uconfig.Expand(expand))

	provider, err := uconfig.NewYAML(yamlOpts...)
	if err != nil {
		return err
	}
	if err := provider.Get(uconfig.Root).Populate(dst); err != nil {
		return err
	}
	return Validate(dst)
}

// Validate checks the validator tags of a populated config.
func Validate(cfg interface{}) error {
	if err := validator.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Dump writes the given configuration to w as YAML.
func Dump(cfg interface{}, w io.Writer) error {
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("unable to marshal config: %w", err)
	}
	_, err = w.Write(b)
	return err
}

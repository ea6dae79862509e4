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

// Package log builds zap loggers from configuration.
package log

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	defaultLevel    = "info"
	defaultEncoding = "json"
)

// Configuration defines configuration for logging.
type Configuration struct {
	File     string                 `json:"file" yaml:"file"`
	Level    string                 `json:"level" yaml:"level"`
	Encoding string                 `json:"encoding" yaml:"encoding"`
	Fields   map[string]interface{} `json:"fields" yaml:"fields"`
}

// BuildLogger builds a new Logger based on the configuration.
func (cfg Configuration) BuildLogger() (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	// Stdout carries the text frames, keep logs on stderr.
	zc.OutputPaths = []string{"stderr"}
	zc.Encoding = defaultEncoding
	if cfg.Encoding != "" {
		zc.Encoding = cfg.Encoding
	}

	if cfg.File != "" {
		zc.OutputPaths = append(zc.OutputPaths, cfg.File)
	}

	level := defaultLevel
	if cfg.Level != "" {
		level = cfg.Level
	}
	var zl zapcore.Level
	if err := zl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("unable to parse log level %s: %w", level, err)
	}
	zc.Level = zap.NewAtomicLevelAt(zl)

	if len(cfg.Fields) != 0 {
		zc.InitialFields = cfg.Fields
	}

	return zc.Build()
}

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

// Package source reads timestamped multi-channel samples from a text feed.
package source

import (
	"errors"
	"fmt"
	"io"
)

// ErrEndOfStream is returned by Read once the underlying feed is exhausted.
// It is a termination signal, not a fault, and matches io.EOF with errors.Is.
var ErrEndOfStream = fmt.Errorf("end of stream: %w", io.EOF)

// Sample is one timestamped reading across every channel.
type Sample struct {
	// Timestamp in seconds.
	Timestamp float64
	Values    []float64
}

// NumChannels returns the number of channel values in the sample.
func (s Sample) NumChannels() int {
	return len(s.Values)
}

// Source produces samples one at a time. Read blocks until the next sample
// is available and returns ErrEndOfStream when the feed is exhausted.
type Source interface {
	Read() (Sample, error)
}

// ParseError is a malformed input line. It is fatal for the run.
type ParseError struct {
	Line   int
	Input  string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("line %d: %s: %q: %v", e.Line, e.Reason, e.Input, e.Err)
	}
	return fmt.Sprintf("line %d: %s: %q", e.Line, e.Reason, e.Input)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsParseError returns true if err is or wraps a ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// IsEndOfStream returns true if err signals the end of the feed.
func IsEndOfStream(err error) bool {
	return errors.Is(err, io.EOF)
}

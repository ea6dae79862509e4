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

package source

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/uber-go/tally"
	"go.uber.org/zap"
)

type readerMetrics struct {
	samplesRead tally.Counter
	parseErrors tally.Counter
	blankLines  tally.Counter
}

func newReaderMetrics(scope tally.Scope) readerMetrics {
	return readerMetrics{
		samplesRead: scope.Counter("samples-read"),
		parseErrors: scope.Counter("parse-errors"),
		blankLines:  scope.Counter("blank-lines"),
	}
}

// reader parses whitespace separated lines: a timestamp followed by one
// raw reading per channel.
type reader struct {
	scanner     *bufio.Scanner
	transform   Transform
	logger      *zap.Logger
	metrics     readerMetrics
	line        int
	numChannels int
	done        bool
}

// NewReader returns a Source reading lines from r. The channel count is
// fixed by the first line read.
func NewReader(r io.Reader, opts Options) Source {
	if opts == nil {
		opts = NewOptions()
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), opts.MaxLineBytes())
	iOpts := opts.InstrumentOptions()
	return &reader{
		scanner:   scanner,
		transform: opts.Transform(),
		logger:    iOpts.Logger(),
		metrics:   newReaderMetrics(iOpts.MetricsScope().SubScope("source")),
	}
}

func (r *reader) Read() (Sample, error) {
	if r.done {
		return Sample{}, ErrEndOfStream
	}
	for r.scanner.Scan() {
		r.line++
		text := r.scanner.Text()
		fields := strings.Fields(text)
		if len(fields) == 0 {
			r.metrics.blankLines.Inc(1)
			continue
		}
		sample, err := r.parse(text, fields)
		if err != nil {
			r.metrics.parseErrors.Inc(1)
			return Sample{}, err
		}
		r.metrics.samplesRead.Inc(1)
		return sample, nil
	}
	r.done = true
	if err := r.scanner.Err(); err != nil {
		r.logger.Error("input feed failed", zap.Int("line", r.line), zap.Error(err))
		return Sample{}, fmt.Errorf("reading input line %d: %w", r.line+1, err)
	}
	return Sample{}, ErrEndOfStream
}

func (r *reader) parse(text string, fields []string) (Sample, error) {
	if len(fields) < 2 {
		return Sample{}, &ParseError{Line: r.line, Input: text, Reason: "no channel values"}
	}
	if r.numChannels != 0 && len(fields)-1 != r.numChannels {
		return Sample{}, &ParseError{
			Line:   r.line,
			Input:  text,
			Reason: fmt.Sprintf("expected %d channels, got %d", r.numChannels, len(fields)-1),
		}
	}

	ts, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return Sample{}, &ParseError{Line: r.line, Input: text, Reason: "invalid timestamp", Err: err}
	}

	values := make([]float64, len(fields)-1)
	for i, tok := range fields[1:] {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return Sample{}, &ParseError{
				Line:   r.line,
				Input:  text,
				Reason: fmt.Sprintf("invalid value for channel %d", i+1),
				Err:    err,
			}
		}
		values[i] = r.transform.Apply(v)
	}

	if r.numChannels == 0 {
		r.numChannels = len(values)
		r.logger.Debug("channel count fixed by first sample", zap.Int("channels", r.numChannels))
	}
	return Sample{Timestamp: ts, Values: values}, nil
}

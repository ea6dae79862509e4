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

package engine

import (
	"errors"

	"github.com/pmlab/pmview/src/chart/rangetrack"
	"github.com/pmlab/pmview/src/chart/stats"
	"github.com/pmlab/pmview/src/x/instrument"
)

const (
	defaultTimeFrame = 10.0
	defaultCapacity  = 640
	defaultTickCount = 4
)

var (
	errNonPositiveTimeFrame = errors.New("window time frame must be positive")
	errNonPositiveCapacity  = errors.New("window capacity must be positive")
	errNonPositiveTickCount = errors.New("tick count must be positive")
)

// Options configures an engine.
type Options interface {
	// Validate validates the options.
	Validate() error

	// SetInstrumentOptions sets the instrument options.
	SetInstrumentOptions(value instrument.Options) Options

	// InstrumentOptions returns the instrument options.
	InstrumentOptions() instrument.Options

	// SetTimeFrame sets the duration in seconds spanned by a full window.
	SetTimeFrame(value float64) Options

	// TimeFrame returns the duration in seconds spanned by a full window.
	TimeFrame() float64

	// SetCapacity sets the number of intervals held by the window.
	SetCapacity(value int) Options

	// Capacity returns the number of intervals held by the window.
	Capacity() int

	// SetTickCount sets the number of horizontal ticks.
	SetTickCount(value int) Options

	// TickCount returns the number of horizontal ticks.
	TickCount() int

	// SetRangePolicy sets the range tracking policy.
	SetRangePolicy(value rangetrack.Policy) Options

	// RangePolicy returns the range tracking policy.
	RangePolicy() rangetrack.Policy

	// SetStatsRecorder sets an optional recorder for run statistics.
	SetStatsRecorder(value *stats.Recorder) Options

	// StatsRecorder returns the recorder for run statistics, nil if unset.
	StatsRecorder() *stats.Recorder
}

type options struct {
	instrumentOpts instrument.Options
	timeFrame      float64
	capacity       int
	tickCount      int
	rangePolicy    rangetrack.Policy
	stats          *stats.Recorder
}

// NewOptions creates a new set of engine options.
func NewOptions() Options {
	return &options{
		instrumentOpts: instrument.NewOptions(),
		timeFrame:      defaultTimeFrame,
		capacity:       defaultCapacity,
		tickCount:      defaultTickCount,
		rangePolicy:    rangetrack.PolicyHistory,
	}
}

func (o *options) Validate() error {
	if !(o.timeFrame > 0) {
		return errNonPositiveTimeFrame
	}
	if o.capacity <= 0 {
		return errNonPositiveCapacity
	}
	if o.tickCount <= 0 {
		return errNonPositiveTickCount
	}
	return nil
}

func (o *options) SetInstrumentOptions(value instrument.Options) Options {
	opts := *o
	opts.instrumentOpts = value
	return &opts
}

func (o *options) InstrumentOptions() instrument.Options {
	return o.instrumentOpts
}

func (o *options) SetTimeFrame(value float64) Options {
	opts := *o
	opts.timeFrame = value
	return &opts
}

func (o *options) TimeFrame() float64 {
	return o.timeFrame
}

func (o *options) SetCapacity(value int) Options {
	opts := *o
	opts.capacity = value
	return &opts
}

func (o *options) Capacity() int {
	return o.capacity
}

func (o *options) SetTickCount(value int) Options {
	opts := *o
	opts.tickCount = value
	return &opts
}

func (o *options) TickCount() int {
	return o.tickCount
}

func (o *options) SetRangePolicy(value rangetrack.Policy) Options {
	opts := *o
	opts.rangePolicy = value
	return &opts
}

func (o *options) RangePolicy() rangetrack.Policy {
	return o.rangePolicy
}

func (o *options) SetStatsRecorder(value *stats.Recorder) Options {
	opts := *o
	opts.stats = value
	return &opts
}

func (o *options) StatsRecorder() *stats.Recorder {
	return o.stats
}

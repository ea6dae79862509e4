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

// Package averager turns an irregularly timestamped sample stream into
// fixed-size, time-weighted interval averages.
//
// The signal is reconstructed with a zero-order hold: the time between two
// consumed samples is charged at the newer sample's value, and the time from
// the last consumed sample to the interval boundary is charged at the value
// of the sample currently held at the read cursor, even if that sample lies
// beyond the boundary. Sparse input therefore holds a reading flat across
// several intervals, and dense input folds many readings into one.
package averager

import (
	"errors"
	"fmt"
	"math"

	"github.com/uber-go/tally"
	"go.uber.org/zap"

	"github.com/pmlab/pmview/src/resample/source"
)

var (
	// ErrInvalidIntervalSize is returned for interval sizes that are not
	// positive and finite.
	ErrInvalidIntervalSize = errors.New("interval size must be positive")

	errChannelCountChanged = errors.New("channel count changed")
)

// IntervalAverage is the time-weighted mean of every channel over one
// output interval.
type IntervalAverage []float64

type averagerMetrics struct {
	intervals          tally.Counter
	samplesPerInterval tally.Histogram
}

func newAveragerMetrics(scope tally.Scope) averagerMetrics {
	return averagerMetrics{
		intervals: scope.Counter("intervals"),
		samplesPerInterval: scope.Histogram("samples-per-interval",
			tally.MustMakeExponentialValueBuckets(1, 2, 16)),
	}
}

// Averager owns the read cursor over a Source. It is not safe for
// concurrent use.
type Averager struct {
	src     source.Source
	logger  *zap.Logger
	metrics averagerMetrics

	numChannels int

	// Cursor: the two most recently fetched samples bracketing the
	// integration frontier, and the start of the next interval.
	lastTime      float64
	lastValues    []float64
	nextTime      float64
	nextValues    []float64
	intervalStart float64

	consumedTime float64
	consumed     int64
}

// New creates an averager and primes its cursor with the first two samples
// of src. The first interval starts at the first sample's timestamp. Read
// failures, including end of stream, are returned unchanged.
func New(src source.Source, opts Options) (*Averager, error) {
	if opts == nil {
		opts = NewOptions()
	}
	iOpts := opts.InstrumentOptions()

	first, err := src.Read()
	if err != nil {
		return nil, err
	}
	second, err := src.Read()
	if err != nil {
		return nil, err
	}
	if len(first.Values) != len(second.Values) {
		return nil, fmt.Errorf("%w: first sample has %d, second has %d",
			errChannelCountChanged, len(first.Values), len(second.Values))
	}

	a := &Averager{
		src:           src,
		logger:        iOpts.Logger(),
		metrics:       newAveragerMetrics(iOpts.MetricsScope().SubScope("averager")),
		numChannels:   len(first.Values),
		lastTime:      first.Timestamp,
		lastValues:    first.Values,
		nextTime:      second.Timestamp,
		nextValues:    second.Values,
		intervalStart: first.Timestamp,
		consumedTime:  first.Timestamp,
		consumed:      1,
	}
	a.logger.Info("averager cursor primed",
		zap.Int("channels", a.numChannels),
		zap.Float64("intervalStart", a.intervalStart),
		zap.Float64("nextTime", a.nextTime))
	return a, nil
}

// Next returns the average over [IntervalStart(), IntervalStart()+intervalSize)
// and advances the interval start by intervalSize. It reads as many samples
// as needed to move the cursor past the interval end and no further. A
// failing read is returned unchanged and the interval is not produced.
func (a *Averager) Next(intervalSize float64) (IntervalAverage, error) {
	if !(intervalSize > 0) || math.IsInf(intervalSize, 1) {
		return nil, ErrInvalidIntervalSize
	}

	var (
		end    = a.intervalStart + intervalSize
		sums   = make([]float64, a.numChannels)
		folded int64
	)

	// Time before intervalStart was charged to the previous interval.
	a.lastTime = a.intervalStart
	for a.nextTime < end {
		weight := a.nextTime - a.lastTime
		for c, v := range a.nextValues {
			sums[c] += v * weight
		}
		a.lastTime, a.lastValues = a.nextTime, a.nextValues
		a.consumedTime = a.nextTime
		a.consumed++
		folded++

		s, err := a.src.Read()
		if err != nil {
			return nil, err
		}
		if len(s.Values) != a.numChannels {
			return nil, fmt.Errorf("%w: expected %d, got %d",
				errChannelCountChanged, a.numChannels, len(s.Values))
		}
		a.nextTime, a.nextValues = s.Timestamp, s.Values
	}

	remaining := end - a.lastTime
	avg := make(IntervalAverage, a.numChannels)
	for c, v := range a.nextValues {
		avg[c] = (sums[c] + v*remaining) / intervalSize
	}
	a.intervalStart += intervalSize

	a.metrics.intervals.Inc(1)
	a.metrics.samplesPerInterval.RecordValue(float64(folded))
	return avg, nil
}

// NumChannels returns the channel count fixed by the first sample.
func (a *Averager) NumChannels() int {
	return a.numChannels
}

// IntervalStart returns the start time of the next interval to be produced.
func (a *Averager) IntervalStart() float64 {
	return a.intervalStart
}

// LastTime returns the timestamp of the most recently consumed raw sample.
func (a *Averager) LastTime() float64 {
	return a.consumedTime
}

// Frontier returns how far integration has reached within the interval last
// produced: the timestamp of the last sample it consumed, or its start when
// it consumed none.
func (a *Averager) Frontier() float64 {
	return a.lastTime
}

// NextTime returns the timestamp of the sample held at the read cursor.
func (a *Averager) NextTime() float64 {
	return a.nextTime
}

// SamplesConsumed returns how many raw samples the cursor has moved past.
func (a *Averager) SamplesConsumed() int64 {
	return a.consumed
}

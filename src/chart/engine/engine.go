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

// Package engine wires the interval averager to the chart window and its
// range and tick trackers. Each Step produces exactly one interval.
package engine

import (
	"context"

	"github.com/uber-go/tally"
	"go.uber.org/zap"

	"github.com/pmlab/pmview/src/chart/rangetrack"
	"github.com/pmlab/pmview/src/chart/stats"
	"github.com/pmlab/pmview/src/chart/ticks"
	"github.com/pmlab/pmview/src/chart/window"
	"github.com/pmlab/pmview/src/resample/averager"
	"github.com/pmlab/pmview/src/resample/source"
)

// FrameFn is called after every successful step.
type FrameFn func(Snapshot) error

// Snapshot is the output surface consumed by a renderer after a step.
type Snapshot struct {
	// Window holds the interval averages, oldest first.
	Window [][]float64
	Range  rangetrack.Range
	Ticks  []ticks.Mark
	// LastTime is the timestamp of the most recently consumed raw sample.
	LastTime float64
	// Frontier is how far the last step integrated: its last consumed
	// sample, or the interval start when it consumed none.
	Frontier      float64
	IntervalStart float64
	IntervalSize  float64
	Capacity      int
}

type engineMetrics struct {
	steps        tally.Counter
	endOfStream  tally.Counter
	failures     tally.Counter
	stepLatency  tally.Timer
	rangeMin     tally.Gauge
	rangeMax     tally.Gauge
	windowLength tally.Gauge
}

func newEngineMetrics(scope tally.Scope) engineMetrics {
	return engineMetrics{
		steps:        scope.Counter("steps"),
		endOfStream:  scope.Counter("end-of-stream"),
		failures:     scope.Counter("failures"),
		stepLatency:  scope.Timer("step-latency"),
		rangeMin:     scope.Gauge("range-min"),
		rangeMax:     scope.Gauge("range-max"),
		windowLength: scope.Gauge("window-length"),
	}
}

// Engine owns one run of the resampling pipeline. It is single threaded:
// Step and Snapshot must not be called concurrently.
type Engine struct {
	avg          *averager.Averager
	window       *window.Window
	rng          *rangetrack.Tracker
	ticks        *ticks.Tracker
	stats        *stats.Recorder
	intervalSize float64
	logger       *zap.Logger
	metrics      engineMetrics
}

// New creates an engine reading from src. The cursor is primed immediately,
// so New blocks until two samples are available.
func New(src source.Source, opts Options) (*Engine, error) {
	if opts == nil {
		opts = NewOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	var (
		iOpts    = opts.InstrumentOptions()
		scope    = iOpts.MetricsScope()
		logger   = iOpts.Logger()
		capacity = opts.Capacity()
		rec      = opts.StatsRecorder()
	)

	w, err := window.New(capacity)
	if err != nil {
		return nil, err
	}
	tt, err := ticks.New(capacity, opts.TickCount())
	if err != nil {
		return nil, err
	}

	if rec != nil {
		src = stats.ObserveSource(src, rec)
	}
	a, err := averager.New(src, averager.NewOptions().SetInstrumentOptions(iOpts))
	if err != nil {
		return nil, err
	}

	e := &Engine{
		avg:          a,
		window:       w,
		rng:          rangetrack.New(opts.RangePolicy()),
		ticks:        tt,
		stats:        rec,
		intervalSize: opts.TimeFrame() / float64(capacity),
		logger:       logger,
		metrics:      newEngineMetrics(scope.SubScope("engine")),
	}
	logger.Info("engine started",
		zap.Float64("timeFrame", opts.TimeFrame()),
		zap.Int("capacity", capacity),
		zap.Float64("intervalSize", e.intervalSize),
		zap.Int("tickCount", opts.TickCount()),
		zap.Stringer("rangePolicy", opts.RangePolicy()))
	return e, nil
}

// Step produces one interval and pushes it through the window and trackers.
// Errors from the source, including end of stream, are returned unchanged
// and leave the window untouched.
func (e *Engine) Step() error {
	sw := e.metrics.stepLatency.Start()
	defer sw.Stop()

	avg, err := e.avg.Next(e.intervalSize)
	if err != nil {
		return err
	}

	e.window.Push(avg)
	e.rng.Update(e.window)
	e.ticks.Update(e.window.Len(), e.avg.IntervalStart())
	if e.stats != nil {
		e.stats.ObserveAverage(avg)
	}

	r := e.rng.Range()
	e.metrics.steps.Inc(1)
	e.metrics.rangeMin.Update(r.Min)
	e.metrics.rangeMax.Update(r.Max)
	e.metrics.windowLength.Update(float64(e.window.Len()))
	return nil
}

// Run steps until the source ends, a step fails, onFrame returns an error or
// ctx is cancelled. Cancellation is observed between steps only. End of
// stream is a clean stop and returns nil.
func (e *Engine) Run(ctx context.Context, onFrame FrameFn) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := e.Step(); err != nil {
			if source.IsEndOfStream(err) {
				e.metrics.endOfStream.Inc(1)
				e.logger.Info("input ended", zap.Float64("lastTime", e.avg.LastTime()))
				return nil
			}
			e.metrics.failures.Inc(1)
			e.logger.Error("step failed", zap.Error(err))
			return err
		}

		if onFrame != nil {
			if err := onFrame(e.Snapshot()); err != nil {
				return err
			}
		}
	}
}

// Snapshot returns the current output surface.
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		Window:        e.window.Values(),
		Range:         e.rng.Range(),
		Ticks:         e.ticks.Marks(),
		LastTime:      e.avg.LastTime(),
		Frontier:      e.avg.Frontier(),
		IntervalStart: e.avg.IntervalStart(),
		IntervalSize:  e.intervalSize,
		Capacity:      e.window.Cap(),
	}
}

// IntervalSize returns the duration of one output interval in seconds.
func (e *Engine) IntervalSize() float64 {
	return e.intervalSize
}

// NumChannels returns the channel count of the input.
func (e *Engine) NumChannels() int {
	return e.avg.NumChannels()
}

// PointerTime maps a horizontal fraction of the chart width, 0 at the left
// edge, to the timestamp shown at that position.
func (s Snapshot) PointerTime(frac float64) float64 {
	return frac*float64(s.Capacity)*s.IntervalSize + s.Frontier - float64(len(s.Window))*s.IntervalSize
}

// PointerValue maps a vertical fraction of the plotted height, 0 at the
// bottom, to the value shown at that height.
func (s Snapshot) PointerValue(frac float64) float64 {
	return frac*s.Range.Span() + s.Range.Min
}

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

// Package stats summarises a run: the spacing of raw samples and the
// distribution of interval averages per channel.
package stats

import (
	"github.com/DataDog/sketches-go/ddsketch"
	"github.com/DataDog/sketches-go/ddsketch/mapping"
	"github.com/DataDog/sketches-go/ddsketch/store"
	"github.com/HdrHistogram/hdrhistogram-go"
	"go.uber.org/zap"

	"github.com/pmlab/pmview/src/resample/source"
)

const (
	gapMinMicros = 1
	// One hour between samples is the longest gap tracked precisely.
	gapMaxMicros  = 3600 * 1000 * 1000
	gapSigFigs    = 3
	microsPerSec  = 1e6
	defaultAlpha  = 0.01
	quantileP50   = 0.5
	quantileP99   = 0.99
	percentileP50 = 50
	percentileP90 = 90
	percentileP99 = 99
)

// Recorder accumulates run statistics. It is not safe for concurrent use.
type Recorder struct {
	alpha    float64
	gaps     *hdrhistogram.Histogram
	sketches []*ddsketch.DDSketch

	samples      int64
	intervals    int64
	lastTs       float64
	haveLast     bool
	negativeGaps int64
	clampedGaps  int64
}

// NewRecorder creates a recorder whose value sketches have the given
// relative accuracy. Non-positive alpha selects the default of 1%.
func NewRecorder(alpha float64) *Recorder {
	if alpha <= 0 || alpha >= 1 {
		alpha = defaultAlpha
	}
	return &Recorder{
		alpha: alpha,
		gaps:  hdrhistogram.New(gapMinMicros, gapMaxMicros, gapSigFigs),
	}
}

func (r *Recorder) newSketch() *ddsketch.DDSketch {
	m, err := mapping.NewLogarithmicMapping(r.alpha)
	if err != nil {
		// alpha is range checked in NewRecorder.
		panic(err)
	}
	return ddsketch.NewDDSketch(m, store.NewDenseStore(), store.NewDenseStore())
}

// ObserveSample records the gap since the previous raw sample.
func (r *Recorder) ObserveSample(s source.Sample) {
	r.samples++
	if r.haveLast {
		gap := s.Timestamp - r.lastTs
		if gap < 0 {
			r.negativeGaps++
		} else {
			micros := int64(gap * microsPerSec)
			if micros < gapMinMicros {
				micros = gapMinMicros
			}
			if micros > gapMaxMicros {
				micros = gapMaxMicros
				r.clampedGaps++
			}
			_ = r.gaps.RecordValue(micros)
		}
	}
	r.lastTs = s.Timestamp
	r.haveLast = true
}

// ObserveAverage records one interval average vector.
func (r *Recorder) ObserveAverage(values []float64) {
	r.intervals++
	for len(r.sketches) < len(values) {
		r.sketches = append(r.sketches, r.newSketch())
	}
	for c, v := range values {
		// Errors are only returned for values outside the mapping range.
		_ = r.sketches[c].Add(v)
	}
}

// ChannelSummary holds quantiles of one channel's interval averages.
type ChannelSummary struct {
	Count float64
	P50   float64
	P99   float64
}

// Summary is a snapshot of the run statistics.
type Summary struct {
	Samples      int64
	Intervals    int64
	Gaps         int64
	NegativeGaps int64
	ClampedGaps  int64
	GapMean      float64
	GapP50       float64
	GapP90       float64
	GapP99       float64
	GapMax       float64
	Channels     []ChannelSummary
}

// Summary returns the current statistics. Gap values are in seconds.
func (r *Recorder) Summary() Summary {
	s := Summary{
		Samples:      r.samples,
		Intervals:    r.intervals,
		Gaps:         r.gaps.TotalCount(),
		NegativeGaps: r.negativeGaps,
		ClampedGaps:  r.clampedGaps,
	}
	if s.Gaps > 0 {
		s.GapMean = r.gaps.Mean() / microsPerSec
		s.GapP50 = float64(r.gaps.ValueAtQuantile(percentileP50)) / microsPerSec
		s.GapP90 = float64(r.gaps.ValueAtQuantile(percentileP90)) / microsPerSec
		s.GapP99 = float64(r.gaps.ValueAtQuantile(percentileP99)) / microsPerSec
		s.GapMax = float64(r.gaps.Max()) / microsPerSec
	}
	for _, sk := range r.sketches {
		cs := ChannelSummary{Count: sk.GetCount()}
		if cs.Count > 0 {
			cs.P50, _ = sk.GetValueAtQuantile(quantileP50)
			cs.P99, _ = sk.GetValueAtQuantile(quantileP99)
		}
		s.Channels = append(s.Channels, cs)
	}
	return s
}

// Log writes the summary to logger.
func (s Summary) Log(logger *zap.Logger) {
	logger.Info("run statistics",
		zap.Int64("samples", s.Samples),
		zap.Int64("intervals", s.Intervals),
		zap.Int64("negativeGaps", s.NegativeGaps),
		zap.Float64("gapMean", s.GapMean),
		zap.Float64("gapP50", s.GapP50),
		zap.Float64("gapP90", s.GapP90),
		zap.Float64("gapP99", s.GapP99),
		zap.Float64("gapMax", s.GapMax))
	for c, cs := range s.Channels {
		logger.Info("channel statistics",
			zap.Int("channel", c+1),
			zap.Float64("count", cs.Count),
			zap.Float64("p50", cs.P50),
			zap.Float64("p99", cs.P99))
	}
}

type observedSource struct {
	src source.Source
	rec *Recorder
}

// ObserveSource returns a Source that records every sample read from src.
func ObserveSource(src source.Source, rec *Recorder) source.Source {
	return &observedSource{src: src, rec: rec}
}

func (o *observedSource) Read() (source.Sample, error) {
	s, err := o.src.Read()
	if err != nil {
		return s, err
	}
	o.rec.ObserveSample(s)
	return s, nil
}

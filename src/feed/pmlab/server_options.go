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

package pmlab

import (
	"time"

	"github.com/pmlab/pmview/src/x/instrument"
)

const (
	defaultServerSamplingRate    = 1000
	defaultServerSamplesPerFrame = 100
	defaultServerFrameInterval   = 100 * time.Millisecond
)

// ServerOptions configures a simulated PM Lab daemon.
type ServerOptions interface {
	// SetInstrumentOptions sets the instrument options.
	SetInstrumentOptions(value instrument.Options) ServerOptions

	// InstrumentOptions returns the instrument options.
	InstrumentOptions() instrument.Options

	// SetSamplingRate sets the advertised per-channel sampling rate in Hertz.
	SetSamplingRate(value uint32) ServerOptions

	// SamplingRate returns the advertised per-channel sampling rate in Hertz.
	SamplingRate() uint32

	// SetSamplesPerFrame sets the number of samples per channel in each frame.
	SetSamplesPerFrame(value int) ServerOptions

	// SamplesPerFrame returns the number of samples per channel in each frame.
	SamplesPerFrame() int

	// SetFrameInterval sets the pause between frames, zero streams as fast
	// as the connection allows.
	SetFrameInterval(value time.Duration) ServerOptions

	// FrameInterval returns the pause between frames.
	FrameInterval() time.Duration

	// SetMaxFrames sets the number of frames sent before the connection is
	// closed, zero means unlimited.
	SetMaxFrames(value int) ServerOptions

	// MaxFrames returns the number of frames sent before the connection is
	// closed.
	MaxFrames() int

	// SetNowFn sets the clock used to stamp the first frame.
	SetNowFn(value func() time.Time) ServerOptions

	// NowFn returns the clock used to stamp the first frame.
	NowFn() func() time.Time
}

type serverOptions struct {
	instrumentOpts  instrument.Options
	samplingRate    uint32
	samplesPerFrame int
	frameInterval   time.Duration
	maxFrames       int
	nowFn           func() time.Time
}

// NewServerOptions creates a new set of server options.
func NewServerOptions() ServerOptions {
	return &serverOptions{
		instrumentOpts:  instrument.NewOptions(),
		samplingRate:    defaultServerSamplingRate,
		samplesPerFrame: defaultServerSamplesPerFrame,
		frameInterval:   defaultServerFrameInterval,
		nowFn:           time.Now,
	}
}

func (o *serverOptions) SetInstrumentOptions(value instrument.Options) ServerOptions {
	opts := *o
	opts.instrumentOpts = value
	return &opts
}

func (o *serverOptions) InstrumentOptions() instrument.Options {
	return o.instrumentOpts
}

func (o *serverOptions) SetSamplingRate(value uint32) ServerOptions {
	opts := *o
	opts.samplingRate = value
	return &opts
}

func (o *serverOptions) SamplingRate() uint32 {
	return o.samplingRate
}

func (o *serverOptions) SetSamplesPerFrame(value int) ServerOptions {
	opts := *o
	opts.samplesPerFrame = value
	return &opts
}

func (o *serverOptions) SamplesPerFrame() int {
	return o.samplesPerFrame
}

func (o *serverOptions) SetFrameInterval(value time.Duration) ServerOptions {
	opts := *o
	opts.frameInterval = value
	return &opts
}

func (o *serverOptions) FrameInterval() time.Duration {
	return o.frameInterval
}

func (o *serverOptions) SetMaxFrames(value int) ServerOptions {
	opts := *o
	opts.maxFrames = value
	return &opts
}

func (o *serverOptions) MaxFrames() int {
	return o.maxFrames
}

func (o *serverOptions) SetNowFn(value func() time.Time) ServerOptions {
	opts := *o
	opts.nowFn = value
	return &opts
}

func (o *serverOptions) NowFn() func() time.Time {
	return o.nowFn
}

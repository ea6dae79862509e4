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
	defaultDialTimeout      = 10 * time.Second
	defaultHandshakeTimeout = 10 * time.Second
	defaultMaxFrameBytes    = 64 << 20
	defaultReadBufferSize   = 65536
)

// Options configures a PM Lab client.
type Options interface {
	// SetInstrumentOptions sets the instrument options.
	SetInstrumentOptions(value instrument.Options) Options

	// InstrumentOptions returns the instrument options.
	InstrumentOptions() instrument.Options

	// SetDialTimeout sets the connect timeout.
	SetDialTimeout(value time.Duration) Options

	// DialTimeout returns the connect timeout.
	DialTimeout() time.Duration

	// SetHandshakeTimeout sets the deadline for the subscription handshake.
	SetHandshakeTimeout(value time.Duration) Options

	// HandshakeTimeout returns the deadline for the subscription handshake.
	HandshakeTimeout() time.Duration

	// SetMaxFrameBytes sets the largest accepted data set frame.
	SetMaxFrameBytes(value int) Options

	// MaxFrameBytes returns the largest accepted data set frame.
	MaxFrameBytes() int

	// SetReadBufferSize sets the connection read buffer size.
	SetReadBufferSize(value int) Options

	// ReadBufferSize returns the connection read buffer size.
	ReadBufferSize() int
}

type options struct {
	instrumentOpts   instrument.Options
	dialTimeout      time.Duration
	handshakeTimeout time.Duration
	maxFrameBytes    int
	readBufferSize   int
}

// NewOptions creates a new set of client options.
func NewOptions() Options {
	return &options{
		instrumentOpts:   instrument.NewOptions(),
		dialTimeout:      defaultDialTimeout,
		handshakeTimeout: defaultHandshakeTimeout,
		maxFrameBytes:    defaultMaxFrameBytes,
		readBufferSize:   defaultReadBufferSize,
	}
}

func (o *options) SetInstrumentOptions(value instrument.Options) Options {
	opts := *o
	opts.instrumentOpts = value
	return &opts
}

func (o *options) InstrumentOptions() instrument.Options {
	return o.instrumentOpts
}

func (o *options) SetDialTimeout(value time.Duration) Options {
	opts := *o
	opts.dialTimeout = value
	return &opts
}

func (o *options) DialTimeout() time.Duration {
	return o.dialTimeout
}

func (o *options) SetHandshakeTimeout(value time.Duration) Options {
	opts := *o
	opts.handshakeTimeout = value
	return &opts
}

func (o *options) HandshakeTimeout() time.Duration {
	return o.handshakeTimeout
}

func (o *options) SetMaxFrameBytes(value int) Options {
	opts := *o
	opts.maxFrameBytes = value
	return &opts
}

func (o *options) MaxFrameBytes() int {
	return o.maxFrameBytes
}

func (o *options) SetReadBufferSize(value int) Options {
	opts := *o
	opts.readBufferSize = value
	return &opts
}

func (o *options) ReadBufferSize() int {
	return o.readBufferSize
}

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
	"github.com/pmlab/pmview/src/x/instrument"
)

const defaultMaxLineBytes = 1 << 20

// Options configures a line reader.
type Options interface {
	// SetInstrumentOptions sets the instrument options.
	SetInstrumentOptions(value instrument.Options) Options

	// InstrumentOptions returns the instrument options.
	InstrumentOptions() instrument.Options

	// SetTransform sets the per-channel transform.
	SetTransform(value Transform) Options

	// Transform returns the per-channel transform.
	Transform() Transform

	// SetMaxLineBytes sets the longest accepted input line.
	SetMaxLineBytes(value int) Options

	// MaxLineBytes returns the longest accepted input line.
	MaxLineBytes() int
}

type options struct {
	instrumentOpts instrument.Options
	transform      Transform
	maxLineBytes   int
}

// NewOptions creates a new set of reader options.
func NewOptions() Options {
	return &options{
		instrumentOpts: instrument.NewOptions(),
		transform:      IdentityTransform(),
		maxLineBytes:   defaultMaxLineBytes,
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

func (o *options) SetTransform(value Transform) Options {
	opts := *o
	opts.transform = value
	return &opts
}

func (o *options) Transform() Transform {
	return o.transform
}

func (o *options) SetMaxLineBytes(value int) Options {
	opts := *o
	opts.maxLineBytes = value
	return &opts
}

func (o *options) MaxLineBytes() int {
	return o.maxLineBytes
}

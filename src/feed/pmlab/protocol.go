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

// Package pmlab speaks the PM Lab acquisition daemon protocol: a channel
// subscription handshake followed by framed protobuf data sets.
package pmlab

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Channel identifiers understood by the daemon.
const (
	ChannelCPU1     uint32 = 0
	ChannelTrigger1 uint32 = 1
	ChannelCPU2     uint32 = 2
	ChannelTrigger2 uint32 = 3
	Channel5        uint32 = 4
	Channel6        uint32 = 5
	Channel7        uint32 = 6
	Channel8        uint32 = 7

	// MaxChannels is the number of channels the hardware exposes.
	MaxChannels = 8
)

const (
	// WelcomeMessage is sent by the daemon, NUL terminated, after it has
	// read the channel subscription.
	WelcomeMessage = "WELCOME HOME NEO\x00"
	// DataSetMagic precedes every data set frame, NUL terminated.
	DataSetMagic = "THE MATRIX HAS YOU!!\x00"
)

const (
	dataSetTimestampField protowire.Number = 1
	dataSetChannelsField  protowire.Number = 2
	pointsAnalogField     protowire.Number = 1
	pointsDigitalField    protowire.Number = 2
)

var (
	errUnevenChannels   = errors.New("channels carry different sample counts")
	errTruncatedMessage = errors.New("truncated message")
)

// DataPoints holds the samples of one channel within a data set.
type DataPoints struct {
	Analog  []float64
	Digital []bool
}

// DataSet is one frame of samples for every subscribed channel. The first
// sample was taken at TimestampNanos; the rest follow at the sampling rate.
type DataSet struct {
	TimestampNanos uint64
	Channels       []DataPoints
}

// SampleCount returns the number of samples per channel, validating that all
// channels agree.
func (ds DataSet) SampleCount() (int, error) {
	if len(ds.Channels) == 0 {
		return 0, nil
	}
	n := len(ds.Channels[0].Analog)
	for i, ch := range ds.Channels {
		if len(ch.Analog) != n {
			return 0, fmt.Errorf("%w: channel %d has %d, channel 0 has %d",
				errUnevenChannels, i, len(ch.Analog), n)
		}
		if len(ch.Digital) != 0 && len(ch.Digital) != n {
			return 0, fmt.Errorf("%w: channel %d has %d digital and %d analog",
				errUnevenChannels, i, len(ch.Digital), n)
		}
	}
	return n, nil
}

// Marshal appends the protobuf encoding of ds to b. Repeated scalars are
// packed.
func (ds DataSet) Marshal(b []byte) []byte {
	b = protowire.AppendTag(b, dataSetTimestampField, protowire.VarintType)
	b = protowire.AppendVarint(b, ds.TimestampNanos)

	var scratch []byte
	for _, ch := range ds.Channels {
		scratch = ch.marshal(scratch[:0])
		b = protowire.AppendTag(b, dataSetChannelsField, protowire.BytesType)
		b = protowire.AppendBytes(b, scratch)
	}
	return b
}

func (dp DataPoints) marshal(b []byte) []byte {
	if len(dp.Analog) > 0 {
		b = protowire.AppendTag(b, pointsAnalogField, protowire.BytesType)
		b = protowire.AppendVarint(b, uint64(len(dp.Analog)*8))
		for _, v := range dp.Analog {
			b = protowire.AppendFixed64(b, math.Float64bits(v))
		}
	}
	if len(dp.Digital) > 0 {
		b = protowire.AppendTag(b, pointsDigitalField, protowire.BytesType)
		b = protowire.AppendVarint(b, uint64(len(dp.Digital)))
		for _, v := range dp.Digital {
			b = protowire.AppendVarint(b, protowire.EncodeBool(v))
		}
	}
	return b
}

// UnmarshalDataSet decodes a protobuf encoded data set. Packed and unpacked
// repeated fields are both accepted and unknown fields are skipped.
func UnmarshalDataSet(b []byte) (DataSet, error) {
	var ds DataSet
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return DataSet{}, protowire.ParseError(n)
		}
		b = b[n:]

		switch {
		case num == dataSetTimestampField && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return DataSet{}, protowire.ParseError(n)
			}
			ds.TimestampNanos = v
			b = b[n:]
		case num == dataSetChannelsField && typ == protowire.BytesType:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return DataSet{}, protowire.ParseError(n)
			}
			dp, err := unmarshalDataPoints(raw)
			if err != nil {
				return DataSet{}, err
			}
			ds.Channels = append(ds.Channels, dp)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return DataSet{}, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return ds, nil
}

func unmarshalDataPoints(b []byte) (DataPoints, error) {
	var dp DataPoints
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return DataPoints{}, protowire.ParseError(n)
		}
		b = b[n:]

		switch {
		case num == pointsAnalogField && typ == protowire.BytesType:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return DataPoints{}, protowire.ParseError(n)
			}
			if len(raw)%8 != 0 {
				return DataPoints{}, errTruncatedMessage
			}
			for len(raw) > 0 {
				v, m := protowire.ConsumeFixed64(raw)
				dp.Analog = append(dp.Analog, math.Float64frombits(v))
				raw = raw[m:]
			}
			b = b[n:]
		case num == pointsAnalogField && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return DataPoints{}, protowire.ParseError(n)
			}
			dp.Analog = append(dp.Analog, math.Float64frombits(v))
			b = b[n:]
		case num == pointsDigitalField && typ == protowire.BytesType:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return DataPoints{}, protowire.ParseError(n)
			}
			for len(raw) > 0 {
				v, m := protowire.ConsumeVarint(raw)
				if m < 0 {
					return DataPoints{}, protowire.ParseError(m)
				}
				dp.Digital = append(dp.Digital, protowire.DecodeBool(v))
				raw = raw[m:]
			}
			b = b[n:]
		case num == pointsDigitalField && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return DataPoints{}, protowire.ParseError(n)
			}
			dp.Digital = append(dp.Digital, protowire.DecodeBool(v))
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return DataPoints{}, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return dp, nil
}

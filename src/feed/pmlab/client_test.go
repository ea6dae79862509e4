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
	"context"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/pmlab/pmview/src/resample/source"
	"github.com/pmlab/pmview/src/x/instrument"
)

func testInstrumentOptions(scope tally.Scope) instrument.Options {
	return instrument.NewOptions().
		SetLogger(zap.NewNop()).
		SetMetricsScope(scope)
}

// startTestServer serves on a loopback listener and returns its address with
// a shutdown func.
func startTestServer(t *testing.T, opts ServerOptions) (string, func()) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := NewServer(SineGenerator{Amplitude: 1, Frequency: 1}, opts.
		SetInstrumentOptions(testInstrumentOptions(tally.NoopScope)))
	served := make(chan error, 1)
	go func() { served <- srv.Serve(l) }()

	return l.Addr().String(), func() {
		srv.Close()
		require.NoError(t, <-served)
	}
}

func testServerOptions() ServerOptions {
	return NewServerOptions().
		SetSamplingRate(100).
		SetSamplesPerFrame(4).
		SetFrameInterval(0).
		SetMaxFrames(3).
		SetNowFn(func() time.Time { return time.Unix(10, 0) })
}

func TestClientReadsServerFrames(t *testing.T) {
	defer goleak.VerifyNone(t)

	addr, stop := startTestServer(t, testServerOptions())
	defer stop()

	scope := tally.NewTestScope("", nil)
	c, err := Dial(context.Background(), addr,
		[]uint32{ChannelCPU1, ChannelTrigger1},
		NewOptions().SetInstrumentOptions(testInstrumentOptions(scope)))
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, uint32(100), c.SamplingRate())
	assert.Equal(t, []uint32{ChannelCPU1, ChannelTrigger1}, c.Channels())

	for i := 0; i < 3; i++ {
		ds, err := c.ReadDataSet()
		require.NoError(t, err)
		assert.Equal(t, uint64(10e9+i*4e7), ds.TimestampNanos)
		require.Len(t, ds.Channels, 2)
		n, err := ds.SampleCount()
		require.NoError(t, err)
		assert.Equal(t, 4, n)
	}

	_, err = c.ReadDataSet()
	require.Equal(t, io.EOF, err)

	counters := scope.Snapshot().Counters()
	assert.Equal(t, int64(3), counters["pmlab-client.frames+"].Value())
	assert.Equal(t, int64(12), counters["pmlab-client.samples+"].Value())
	assert.Equal(t, int64(0), counters["pmlab-client.errors+"].Value())
}

func TestLineReaderFeedsSampleSource(t *testing.T) {
	defer goleak.VerifyNone(t)

	addr, stop := startTestServer(t, testServerOptions())
	defer stop()

	c, err := Dial(context.Background(), addr, []uint32{ChannelCPU1}, nil)
	require.NoError(t, err)

	lr := NewLineReader(context.Background(), c)
	defer lr.Close()

	src := source.NewReader(lr, nil)
	for i := 0; i < 12; i++ {
		s, err := src.Read()
		require.NoError(t, err)
		require.Equal(t, 1, s.NumChannels())
		assert.InDelta(t, 10+float64(i)/100, s.Timestamp, 1e-6)
	}
	_, err = src.Read()
	assert.True(t, source.IsEndOfStream(err))
}

func TestLineReaderCloseStopsFeed(t *testing.T) {
	defer goleak.VerifyNone(t)

	opts := testServerOptions().
		SetMaxFrames(0).
		SetFrameInterval(time.Millisecond)
	addr, stop := startTestServer(t, opts)
	defer stop()

	c, err := Dial(context.Background(), addr, []uint32{ChannelCPU1}, nil)
	require.NoError(t, err)

	lr := NewLineReader(context.Background(), c)
	buf := make([]byte, 16)
	_, err = io.ReadFull(lr, buf)
	require.NoError(t, err)
	require.NoError(t, lr.Close())
	require.NoError(t, lr.Close())
}

func TestLineReaderContextCancelEndsStream(t *testing.T) {
	defer goleak.VerifyNone(t)

	opts := testServerOptions().
		SetMaxFrames(0).
		SetFrameInterval(time.Millisecond)
	addr, stop := startTestServer(t, opts)
	defer stop()

	c, err := Dial(context.Background(), addr, []uint32{ChannelCPU1}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	lr := NewLineReader(ctx, c)
	defer lr.Close()

	cancel()
	_, err = io.ReadAll(lr)
	require.NoError(t, err)
}

func TestDialValidatesChannels(t *testing.T) {
	ctx := context.Background()
	_, err := Dial(ctx, "127.0.0.1:1", nil, nil)
	assert.Equal(t, errNoChannels, err)

	_, err = Dial(ctx, "127.0.0.1:1", make([]uint32, MaxChannels+1), nil)
	assert.Equal(t, errTooManyChannels, err)

	_, err = Dial(ctx, "127.0.0.1:1", []uint32{MaxChannels}, nil)
	assert.True(t, errors.Is(err, errUnknownChannelID))
}

// fakeDaemon accepts one connection, consumes the subscription and replies
// with resp.
func fakeDaemon(t *testing.T, resp []byte) (string, <-chan struct{}) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer l.Close()
		conn, err := l.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		if _, err := readSubscription(conn); err != nil {
			return
		}
		conn.Write(resp)
		// Hold the connection until the client hangs up.
		io.Copy(io.Discard, conn)
	}()
	return l.Addr().String(), done
}

func TestDialRejectsBadWelcome(t *testing.T) {
	defer goleak.VerifyNone(t)

	resp := make([]byte, len(WelcomeMessage)+4)
	copy(resp, "WELCOME HOME TRINITY")
	addr, done := fakeDaemon(t, resp)

	_, err := Dial(context.Background(), addr, []uint32{ChannelCPU1}, nil)
	assert.Equal(t, errBadWelcome, err)
	<-done
}

func TestDialRejectsZeroSamplingRate(t *testing.T) {
	defer goleak.VerifyNone(t)

	resp := make([]byte, len(WelcomeMessage)+4)
	copy(resp, WelcomeMessage)
	addr, done := fakeDaemon(t, resp)

	_, err := Dial(context.Background(), addr, []uint32{ChannelCPU1}, nil)
	assert.Equal(t, errZeroSamplingRate, err)
	<-done
}

func TestReadDataSetRejectsBadFrames(t *testing.T) {
	defer goleak.VerifyNone(t)

	resp := make([]byte, len(WelcomeMessage)+4)
	copy(resp, WelcomeMessage)
	binary.BigEndian.PutUint32(resp[len(WelcomeMessage):], 1000)
	// Two channels when one was requested.
	resp = appendFrame(resp, DataSet{Channels: []DataPoints{
		{Analog: []float64{1}},
		{Analog: []float64{2}},
	}})
	addr, done := fakeDaemon(t, resp)

	c, err := Dial(context.Background(), addr, []uint32{ChannelCPU1}, nil)
	require.NoError(t, err)
	_, err = c.ReadDataSet()
	assert.True(t, errors.Is(err, errChannelMismatch))
	require.NoError(t, c.Close())
	<-done
}

func TestReadDataSetRejectsOversizedFrame(t *testing.T) {
	defer goleak.VerifyNone(t)

	resp := make([]byte, len(WelcomeMessage)+4)
	copy(resp, WelcomeMessage)
	binary.BigEndian.PutUint32(resp[len(WelcomeMessage):], 1000)
	resp = append(resp, DataSetMagic...)
	resp = append(resp, 0, 0, 1, 0)
	addr, done := fakeDaemon(t, resp)

	c, err := Dial(context.Background(), addr, []uint32{ChannelCPU1},
		NewOptions().SetMaxFrameBytes(128))
	require.NoError(t, err)
	_, err = c.ReadDataSet()
	assert.True(t, errors.Is(err, errFrameTooLarge))
	require.NoError(t, c.Close())
	<-done
}

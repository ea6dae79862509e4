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
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/uber-go/tally"
	"go.uber.org/zap"
)

var (
	errNoChannels       = errors.New("no channels requested")
	errTooManyChannels  = fmt.Errorf("more than %d channels requested", MaxChannels)
	errBadWelcome       = errors.New("unexpected welcome message")
	errBadMagic         = errors.New("unexpected data set magic")
	errZeroSamplingRate = errors.New("server reported a zero sampling rate")
	errFrameTooLarge    = errors.New("data set frame too large")
	errChannelMismatch  = errors.New("data set channel count differs from subscription")
	errUnknownChannelID = errors.New("unknown channel id")
)

type clientMetrics struct {
	frames  tally.Counter
	bytes   tally.Counter
	samples tally.Counter
	errors  tally.Counter
}

func newClientMetrics(scope tally.Scope) clientMetrics {
	return clientMetrics{
		frames:  scope.Counter("frames"),
		bytes:   scope.Counter("bytes"),
		samples: scope.Counter("samples"),
		errors:  scope.Counter("errors"),
	}
}

// Client is a subscription to a PM Lab daemon. ReadDataSet must be called
// from a single goroutine; Close may be called from any.
type Client struct {
	conn          net.Conn
	r             *bufio.Reader
	channels      []uint32
	samplingRate  uint32
	maxFrameBytes int
	logger        *zap.Logger
	metrics       clientMetrics

	magic  [len(DataSetMagic)]byte
	header [4]byte
	body   []byte

	closeOnce sync.Once
	closeErr  error
}

// Dial connects to the daemon at address, subscribes to channels and waits
// for the welcome message and sampling rate.
func Dial(ctx context.Context, address string, channels []uint32, opts Options) (*Client, error) {
	if opts == nil {
		opts = NewOptions()
	}
	if err := validateChannels(channels); err != nil {
		return nil, err
	}

	d := net.Dialer{Timeout: opts.DialTimeout()}
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to connect to %s", address)
	}

	iOpts := opts.InstrumentOptions()
	c := &Client{
		conn:          conn,
		r:             bufio.NewReaderSize(conn, opts.ReadBufferSize()),
		channels:      append([]uint32(nil), channels...),
		maxFrameBytes: opts.MaxFrameBytes(),
		logger:        iOpts.Logger().With(zap.String("server", address)),
		metrics:       newClientMetrics(iOpts.MetricsScope().SubScope("pmlab-client")),
	}
	if err := c.handshake(opts.HandshakeTimeout()); err != nil {
		conn.Close()
		return nil, err
	}
	c.logger.Info("subscribed to pmlab daemon",
		zap.Int("channels", len(channels)),
		zap.Uint32("samplingRate", c.samplingRate))
	return c, nil
}

func validateChannels(channels []uint32) error {
	if len(channels) == 0 {
		return errNoChannels
	}
	if len(channels) > MaxChannels {
		return errTooManyChannels
	}
	for _, id := range channels {
		if id >= MaxChannels {
			return fmt.Errorf("%w: %d", errUnknownChannelID, id)
		}
	}
	return nil
}

func (c *Client) handshake(timeout time.Duration) error {
	if timeout > 0 {
		if err := c.conn.SetDeadline(time.Now().Add(timeout)); err != nil {
			return err
		}
		defer c.conn.SetDeadline(time.Time{})
	}

	req := make([]byte, 4+4*len(c.channels))
	binary.BigEndian.PutUint32(req, uint32(len(c.channels)))
	for i, id := range c.channels {
		binary.BigEndian.PutUint32(req[4+4*i:], id)
	}
	if _, err := c.conn.Write(req); err != nil {
		return errors.Wrap(err, "unable to send channel subscription")
	}

	resp := make([]byte, len(WelcomeMessage)+4)
	if _, err := io.ReadFull(c.r, resp); err != nil {
		return errors.Wrap(err, "unable to read welcome")
	}
	if string(resp[:len(WelcomeMessage)]) != WelcomeMessage {
		return errBadWelcome
	}
	c.samplingRate = binary.BigEndian.Uint32(resp[len(WelcomeMessage):])
	if c.samplingRate == 0 {
		return errZeroSamplingRate
	}
	return nil
}

// SamplingRate returns the per-channel sampling rate in Hertz.
func (c *Client) SamplingRate() uint32 {
	return c.samplingRate
}

// Channels returns the subscribed channel ids.
func (c *Client) Channels() []uint32 {
	return append([]uint32(nil), c.channels...)
}

// ReadDataSet blocks until the next frame arrives. It returns io.EOF when
// the daemon closes the connection between frames.
func (c *Client) ReadDataSet() (DataSet, error) {
	ds, err := c.readDataSet()
	if err != nil && err != io.EOF {
		c.metrics.errors.Inc(1)
	}
	return ds, err
}

func (c *Client) readDataSet() (DataSet, error) {
	if _, err := io.ReadFull(c.r, c.magic[:]); err != nil {
		if err == io.EOF {
			return DataSet{}, io.EOF
		}
		return DataSet{}, errors.Wrap(err, "unable to read frame magic")
	}
	if string(c.magic[:]) != DataSetMagic {
		return DataSet{}, errBadMagic
	}

	if _, err := io.ReadFull(c.r, c.header[:]); err != nil {
		return DataSet{}, errors.Wrap(err, "unable to read frame length")
	}
	size := int(binary.BigEndian.Uint32(c.header[:]))
	if size > c.maxFrameBytes {
		return DataSet{}, fmt.Errorf("%w: %d bytes", errFrameTooLarge, size)
	}
	if cap(c.body) < size {
		c.body = make([]byte, size)
	}
	body := c.body[:size]
	if _, err := io.ReadFull(c.r, body); err != nil {
		return DataSet{}, errors.Wrap(err, "unable to read frame body")
	}

	ds, err := UnmarshalDataSet(body)
	if err != nil {
		return DataSet{}, errors.Wrap(err, "unable to decode data set")
	}
	if len(ds.Channels) != len(c.channels) {
		return DataSet{}, fmt.Errorf("%w: got %d, subscribed to %d",
			errChannelMismatch, len(ds.Channels), len(c.channels))
	}
	n, err := ds.SampleCount()
	if err != nil {
		return DataSet{}, err
	}

	c.metrics.frames.Inc(1)
	c.metrics.bytes.Inc(int64(len(DataSetMagic) + 4 + size))
	c.metrics.samples.Inc(int64(n))
	return ds, nil
}

// Close closes the connection. It is safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

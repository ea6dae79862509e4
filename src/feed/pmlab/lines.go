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
	"errors"
	"io"
	"strconv"
	"sync"

	"go.uber.org/zap"
)

const nanosPerSecond = 1e9

// WriteLines writes one text line per sample of ds: the sample timestamp in
// seconds followed by every channel's analog value. Sample i is stamped
// TimestampNanos/1e9 + i/rate.
func WriteLines(w io.Writer, ds DataSet, rate uint32) error {
	n, err := ds.SampleCount()
	if err != nil {
		return err
	}
	if rate == 0 {
		return errZeroSamplingRate
	}

	var (
		bw   = bufio.NewWriter(w)
		base = float64(ds.TimestampNanos) / nanosPerSecond
		line []byte
	)
	for i := 0; i < n; i++ {
		ts := base + float64(i)/float64(rate)
		line = strconv.AppendFloat(line[:0], ts, 'f', 6, 64)
		for _, ch := range ds.Channels {
			line = append(line, ' ')
			line = strconv.AppendFloat(line, ch.Analog[i], 'f', 6, 64)
		}
		line = append(line, '\n')
		if _, err := bw.Write(line); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// lineReader streams a client's data sets as text lines.
type lineReader struct {
	pr     *io.PipeReader
	client *Client
	cancel context.CancelFunc
	done   chan struct{}

	closeOnce sync.Once
}

// NewLineReader returns a reader producing the text form of every data set
// read from c, suitable as input for a sample source. The reader reports
// io.EOF when the daemon closes the connection or ctx is cancelled, and the
// transport error otherwise. Closing the reader closes c.
func NewLineReader(ctx context.Context, c *Client) io.ReadCloser {
	ctx, cancel := context.WithCancel(ctx)
	pr, pw := io.Pipe()
	lr := &lineReader{
		pr:     pr,
		client: c,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		<-ctx.Done()
		// Unblocks a pending ReadDataSet.
		c.Close()
	}()
	go func() {
		defer close(lr.done)
		defer func() { <-watchDone }()
		defer cancel()
		lr.pump(ctx, pw)
	}()
	return lr
}

func (lr *lineReader) pump(ctx context.Context, pw *io.PipeWriter) {
	rate := lr.client.SamplingRate()
	for {
		ds, err := lr.client.ReadDataSet()
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				pw.Close()
				return
			}
			lr.client.logger.Error("pmlab feed failed", zap.Error(err))
			pw.CloseWithError(err)
			return
		}
		if err := WriteLines(pw, ds, rate); err != nil {
			pw.CloseWithError(err)
			return
		}
	}
}

func (lr *lineReader) Read(p []byte) (int, error) {
	return lr.pr.Read(p)
}

// Close stops the feed and waits for its goroutines to exit.
func (lr *lineReader) Close() error {
	lr.closeOnce.Do(func() {
		lr.cancel()
		lr.pr.Close()
		<-lr.done
	})
	return nil
}

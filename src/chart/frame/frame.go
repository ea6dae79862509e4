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

// Package frame renders engine snapshots as single text lines for headless
// runs and piping into other tools.
package frame

import (
	"bufio"
	"io"
	"strconv"

	"github.com/pmlab/pmview/src/chart/engine"
)

// Writer writes one line for every Nth snapshot it is given.
type Writer struct {
	w     *bufio.Writer
	every int
	seen  int
	buf   []byte
}

// NewWriter returns a Writer emitting every Nth frame; every < 1 means all.
func NewWriter(w io.Writer, every int) *Writer {
	if every < 1 {
		every = 1
	}
	return &Writer{w: bufio.NewWriter(w), every: every}
}

// Write renders s if it is due. It has the engine.FrameFn signature.
func (fw *Writer) Write(s engine.Snapshot) error {
	fw.seen++
	if (fw.seen-1)%fw.every != 0 {
		return nil
	}
	fw.buf = AppendLine(fw.buf[:0], s)
	if _, err := fw.w.Write(fw.buf); err != nil {
		return err
	}
	return fw.w.Flush()
}

// AppendLine appends the text form of s to dst:
//
//	t=<last> max=<max> mid=<mid> min=<min> avg=<c1>,<c2>,... ticks=<pos>@<label>,...
func AppendLine(dst []byte, s engine.Snapshot) []byte {
	dst = append(dst, "t="...)
	dst = strconv.AppendFloat(dst, s.LastTime, 'f', 6, 64)
	dst = append(dst, " max="...)
	dst = strconv.AppendFloat(dst, s.Range.Max, 'f', 6, 64)
	dst = append(dst, " mid="...)
	dst = strconv.AppendFloat(dst, s.Range.Mid(), 'f', 6, 64)
	dst = append(dst, " min="...)
	dst = strconv.AppendFloat(dst, s.Range.Min, 'f', 6, 64)

	dst = append(dst, " avg="...)
	if n := len(s.Window); n > 0 {
		for c, v := range s.Window[n-1] {
			if c > 0 {
				dst = append(dst, ',')
			}
			dst = strconv.AppendFloat(dst, v, 'f', 6, 64)
		}
	}

	dst = append(dst, " ticks="...)
	for i, m := range s.Ticks {
		if i > 0 {
			dst = append(dst, ',')
		}
		dst = strconv.AppendInt(dst, int64(m.Position), 10)
		dst = append(dst, '@')
		dst = strconv.AppendFloat(dst, m.Label, 'g', -1, 64)
	}
	return append(dst, '\n')
}

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

// Package window implements the fixed-capacity sliding window of interval
// averages shown by the chart.
package window

import (
	"errors"
)

var errNonPositiveCapacity = errors.New("window capacity must be positive")

// Window is a FIFO of interval average vectors. Once full, each push evicts
// the oldest entry. It is not safe for concurrent use.
type Window struct {
	entries [][]float64
	start   int
	size    int
}

// New creates an empty window that holds up to capacity entries.
func New(capacity int) (*Window, error) {
	if capacity <= 0 {
		return nil, errNonPositiveCapacity
	}
	return &Window{entries: make([][]float64, capacity)}, nil
}

// Push appends values, evicting the oldest entry if the window is full.
func (w *Window) Push(values []float64) {
	capacity := len(w.entries)
	if w.size < capacity {
		w.entries[(w.start+w.size)%capacity] = values
		w.size++
		return
	}
	w.entries[w.start] = values
	w.start = (w.start + 1) % capacity
}

// Len returns the number of entries currently held.
func (w *Window) Len() int {
	return w.size
}

// Cap returns the window capacity.
func (w *Window) Cap() int {
	return len(w.entries)
}

// Full returns true once the window holds Cap() entries.
func (w *Window) Full() bool {
	return w.size == len(w.entries)
}

// At returns the i-th entry, oldest first.
func (w *Window) At(i int) []float64 {
	if i < 0 || i >= w.size {
		return nil
	}
	return w.entries[(w.start+i)%len(w.entries)]
}

// Values returns the entries, oldest first. The outer slice is a copy.
func (w *Window) Values() [][]float64 {
	out := make([][]float64, 0, w.size)
	w.ForEach(func(_ int, values []float64) {
		out = append(out, values)
	})
	return out
}

// ForEach visits every entry, oldest first.
func (w *Window) ForEach(fn func(i int, values []float64)) {
	capacity := len(w.entries)
	for i := 0; i < w.size; i++ {
		fn(i, w.entries[(w.start+i)%capacity])
	}
}

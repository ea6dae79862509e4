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

// Package ticks tracks labelled horizontal tick positions for a scrolling
// window.
package ticks

import (
	"errors"
)

var (
	errNonPositiveCapacity  = errors.New("window capacity must be positive")
	errNonPositiveTickCount = errors.New("tick count must be positive")
)

// Mark is a labelled position within the window.
type Mark struct {
	Position int
	Label    float64
}

// Tracker keeps tick marks at a fixed cadence of window positions. While the
// window fills, ticks are appended; once it is full they scroll left with
// every push and the leftmost is recycled at the right edge.
type Tracker struct {
	capacity int
	cadence  int
	maxMarks int
	marks    []Mark
}

// New returns a tracker for a window of the given capacity showing roughly
// tickCount ticks and never more than tickCount+1.
func New(capacity, tickCount int) (*Tracker, error) {
	if capacity <= 0 {
		return nil, errNonPositiveCapacity
	}
	if tickCount <= 0 {
		return nil, errNonPositiveTickCount
	}
	cadence := capacity / tickCount
	if cadence < 1 {
		cadence = 1
	}
	return &Tracker{
		capacity: capacity,
		cadence:  cadence,
		maxMarks: tickCount + 1,
		marks:    make([]Mark, 0, tickCount+1),
	}, nil
}

// Update must be called after every window push with the window length after
// the push and the label of the interval just produced.
func (t *Tracker) Update(windowLen int, label float64) {
	if windowLen < t.capacity {
		// Integer cadence can fit more than tickCount+1 marks in a narrow
		// window; the surplus is dropped.
		if (windowLen-1)%t.cadence == 0 && len(t.marks) < t.maxMarks {
			t.marks = append(t.marks, Mark{Position: windowLen, Label: label})
		}
		return
	}

	for i := range t.marks {
		t.marks[i].Position--
	}
	if len(t.marks) > 0 && t.marks[0].Position == 0 {
		copy(t.marks, t.marks[1:])
		t.marks[len(t.marks)-1] = Mark{Position: t.capacity, Label: label}
	}
}

// Marks returns a copy of the current marks, leftmost first.
func (t *Tracker) Marks() []Mark {
	out := make([]Mark, len(t.marks))
	copy(out, t.marks)
	return out
}

// Cadence returns the number of window positions between ticks.
func (t *Tracker) Cadence() int {
	return t.cadence
}

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

// Package rangetrack tracks the vertical value range of the chart.
package rangetrack

import (
	"fmt"
	"math"
)

const (
	widenUp   = 1.001
	widenDown = 0.999
)

// Policy selects how the range reacts to entries leaving the window.
type Policy int

const (
	// PolicyHistory merges every window scan into the running range, so
	// extremes are never relaxed even after they scroll out of view.
	PolicyHistory Policy = iota
	// PolicyWindowLocal recomputes the range from the visible window only.
	PolicyWindowLocal
)

func (p Policy) String() string {
	switch p {
	case PolicyHistory:
		return "history"
	case PolicyWindowLocal:
		return "window"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParsePolicy parses a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "history":
		return PolicyHistory, nil
	case "window":
		return PolicyWindowLocal, nil
	}
	return PolicyHistory, fmt.Errorf("unknown range policy: %s", s)
}

// Range is a closed value interval.
type Range struct {
	Min float64
	Max float64
}

// Span returns Max - Min.
func (r Range) Span() float64 {
	return r.Max - r.Min
}

// Mid returns the midpoint of the range.
func (r Range) Mid() float64 {
	return (r.Max + r.Min) / 2
}

// Valid returns true once at least one finite value has been seen.
func (r Range) Valid() bool {
	return r.Min <= r.Max
}

// Values is a scannable sequence of value vectors, such as a window.
type Values interface {
	ForEach(fn func(i int, values []float64))
}

// Tracker maintains the running min and max of pushed values.
type Tracker struct {
	policy Policy
	r      Range
}

// New returns a tracker with an empty range.
func New(policy Policy) *Tracker {
	return &Tracker{
		policy: policy,
		r:      Range{Min: math.Inf(1), Max: math.Inf(-1)},
	}
}

// Update rescans every value in w and merges the result into the range.
// NaN values are ignored. An empty scan leaves the range unchanged.
func (t *Tracker) Update(w Values) {
	candidate := Range{Min: math.Inf(1), Max: math.Inf(-1)}
	w.ForEach(func(_ int, values []float64) {
		for _, v := range values {
			if v < candidate.Min {
				candidate.Min = v
			}
			if v > candidate.Max {
				candidate.Max = v
			}
		}
	})
	if !candidate.Valid() {
		return
	}

	switch t.policy {
	case PolicyWindowLocal:
		t.r = candidate
	default:
		if candidate.Min < t.r.Min {
			t.r.Min = candidate.Min
		}
		if candidate.Max > t.r.Max {
			t.r.Max = candidate.Max
		}
	}

	if t.r.Min == t.r.Max {
		t.r = widen(t.r)
	}
}

// widen opens a degenerate range by a proportional epsilon. A zero range
// stays degenerate.
func widen(r Range) Range {
	if r.Max < 0 {
		// Scaling a negative value down moves it up.
		return Range{Min: r.Min * widenUp, Max: r.Max * widenDown}
	}
	return Range{Min: r.Min * widenDown, Max: r.Max * widenUp}
}

// Range returns the current range.
func (t *Tracker) Range() Range {
	return t.r
}

// Degenerate returns true when the range has collapsed to a single value
// that widening cannot open, i.e. every value seen is zero.
func (t *Tracker) Degenerate() bool {
	return t.r.Min == t.r.Max
}

// Policy returns the tracker policy.
func (t *Tracker) Policy() Policy {
	return t.policy
}

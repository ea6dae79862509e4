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

package rangetrack

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rows [][]float64

func (r rows) ForEach(fn func(i int, values []float64)) {
	for i, v := range r {
		fn(i, v)
	}
}

func TestUpdateMergesHistory(t *testing.T) {
	tr := New(PolicyHistory)
	require.False(t, tr.Range().Valid())

	tr.Update(rows{{1, 5}, {2, 3}})
	assert.Equal(t, Range{Min: 1, Max: 5}, tr.Range())

	// Extremes survive even after they leave the scanned window.
	tr.Update(rows{{2, 3}})
	assert.Equal(t, Range{Min: 1, Max: 5}, tr.Range())

	tr.Update(rows{{-4, 9}})
	assert.Equal(t, Range{Min: -4, Max: 9}, tr.Range())
	assert.Equal(t, 13.0, tr.Range().Span())
	assert.Equal(t, 2.5, tr.Range().Mid())
}

func TestUpdateWindowLocal(t *testing.T) {
	tr := New(PolicyWindowLocal)
	tr.Update(rows{{1, 5}})
	tr.Update(rows{{2, 3}})
	assert.Equal(t, Range{Min: 2, Max: 3}, tr.Range())
}

func TestUpdateWidensDegenerateRange(t *testing.T) {
	tr := New(PolicyHistory)
	tr.Update(rows{{4}, {4}})
	r := tr.Range()
	assert.InDelta(t, 4*0.999, r.Min, 1e-12)
	assert.InDelta(t, 4*1.001, r.Max, 1e-12)
	assert.False(t, tr.Degenerate())

	// Same value again does not widen a second time.
	tr.Update(rows{{4}})
	assert.Equal(t, r, tr.Range())
}

func TestUpdateWidensNegativeDegenerateRange(t *testing.T) {
	tr := New(PolicyHistory)
	tr.Update(rows{{-2}})
	r := tr.Range()
	assert.True(t, r.Min < r.Max)
	assert.InDelta(t, -2*1.001, r.Min, 1e-12)
	assert.InDelta(t, -2*0.999, r.Max, 1e-12)
}

func TestUpdateZeroRangeIsDegenerate(t *testing.T) {
	tr := New(PolicyHistory)
	tr.Update(rows{{0, 0}})
	assert.Equal(t, Range{}, tr.Range())
	assert.True(t, tr.Degenerate())

	tr.Update(rows{{0, 1}})
	assert.False(t, tr.Degenerate())
}

func TestUpdateIgnoresEmptyAndNaN(t *testing.T) {
	tr := New(PolicyHistory)
	tr.Update(rows{})
	assert.False(t, tr.Range().Valid())

	tr.Update(rows{{math.NaN(), 3}, {1}})
	assert.Equal(t, Range{Min: 1, Max: 3}, tr.Range())
}

func TestHistoryIsMonotonic(t *testing.T) {
	tr := New(PolicyHistory)
	values := []float64{3, 1, 4, 1, 5, 9, 2, 6, 5, 3, 5, -8, 9, 7, 9}
	var window rows
	prev := tr.Range()
	for _, v := range values {
		window = append(window, []float64{v})
		if len(window) > 3 {
			window = window[1:]
		}
		tr.Update(window)
		cur := tr.Range()
		require.True(t, cur.Min <= prev.Min)
		require.True(t, cur.Max >= prev.Max)
		require.True(t, cur.Min <= cur.Max)
		prev = cur
	}
	assert.Equal(t, Range{Min: -8, Max: 9}, tr.Range())
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("window")
	require.NoError(t, err)
	assert.Equal(t, PolicyWindowLocal, p)
	assert.Equal(t, "window", p.String())

	p, err = ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyHistory, p)

	_, err = ParsePolicy("auto")
	require.Error(t, err)
}

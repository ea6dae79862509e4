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

package frame

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmlab/pmview/src/chart/engine"
	"github.com/pmlab/pmview/src/chart/rangetrack"
	"github.com/pmlab/pmview/src/chart/ticks"
)

func testSnapshot() engine.Snapshot {
	return engine.Snapshot{
		Window:   [][]float64{{1, 2}, {3, 4.5}},
		Range:    rangetrack.Range{Min: 1, Max: 5},
		Ticks:    []ticks.Mark{{Position: 1, Label: 0}, {Position: 3, Label: 1.25}},
		LastTime: 1.5,
		Capacity: 4,
	}
}

func TestAppendLine(t *testing.T) {
	line := string(AppendLine(nil, testSnapshot()))
	assert.Equal(t,
		"t=1.500000 max=5.000000 mid=3.000000 min=1.000000 avg=3.000000,4.500000 ticks=1@0,3@1.25\n",
		line)
}

func TestAppendLineEmptyWindow(t *testing.T) {
	line := string(AppendLine(nil, engine.Snapshot{}))
	assert.Equal(t, "t=0.000000 max=0.000000 mid=0.000000 min=0.000000 avg= ticks=\n", line)
}

func TestWriterEveryNth(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, 3)
	for i := 0; i < 7; i++ {
		require.NoError(t, w.Write(testSnapshot()))
	}
	assert.Equal(t, 3, bytes.Count(buf.Bytes(), []byte("\n")))
}

func TestWriterDefaultsToEveryFrame(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, 0)
	var fn engine.FrameFn = w.Write
	for i := 0; i < 4; i++ {
		require.NoError(t, fn(testSnapshot()))
	}
	assert.Equal(t, 4, bytes.Count(buf.Bytes(), []byte("\n")))
}

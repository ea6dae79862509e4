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

package ticks

import (
	"os"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

const (
	testRandomSeed         int64 = 9182736
	testMinSuccessfulTests       = 500
)

func TestTickCountBoundProp(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(testRandomSeed)
	parameters.MinSuccessfulTests = testMinSuccessfulTests
	props := gopter.NewProperties(parameters)

	props.Property("marks stay ordered, in range and at most tickCount+1", prop.ForAll(
		func(capacity, tickCount int) bool {
			tr, err := New(capacity, tickCount)
			if err != nil {
				return false
			}
			prevMin := -1
			for push := 1; push <= 3*capacity; push++ {
				windowLen := push
				if windowLen > capacity {
					windowLen = capacity
				}
				tr.Update(windowLen, float64(push))

				marks := tr.Marks()
				if len(marks) > tickCount+1 {
					return false
				}
				for i, m := range marks {
					if m.Position < 1 || m.Position > capacity {
						return false
					}
					if i > 0 && m.Position <= marks[i-1].Position {
						return false
					}
				}
				if len(marks) == 0 {
					continue
				}
				minPos := marks[0].Position
				if windowLen == capacity && prevMin > 0 && minPos != prevMin-1 &&
					marks[len(marks)-1].Position != capacity {
					return false
				}
				prevMin = minPos
			}
			return true
		},
		gen.IntRange(1, 300),
		gen.IntRange(1, 60),
	))

	props.Property("narrow windows never exceed the bound", prop.ForAll(
		func(tickCount, extra int) bool {
			capacity := tickCount + 3 + extra%tickCount
			tr, err := New(capacity, tickCount)
			if err != nil {
				return false
			}
			for n := 1; n <= capacity; n++ {
				tr.Update(n, float64(n))
			}
			return len(tr.Marks()) <= tickCount+1
		},
		gen.IntRange(4, 60),
		gen.IntRange(0, 1000),
	))

	reporter := gopter.NewFormatedReporter(true, 160, os.Stdout)
	if !props.Run(reporter) {
		t.Errorf("failed with initial seed: %d", testRandomSeed)
	}
}

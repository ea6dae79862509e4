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

package source

import (
	"errors"
	"fmt"
)

// TransformMode selects how raw channel readings are converted.
type TransformMode int

const (
	// TransformIdentity passes raw readings through unchanged.
	TransformIdentity TransformMode = iota
	// TransformPower converts a voltage drop across a shunt into power.
	TransformPower
)

var errNonPositiveResistance = errors.New("resistance must be positive")

func (m TransformMode) String() string {
	switch m {
	case TransformIdentity:
		return "identity"
	case TransformPower:
		return "power"
	}
	return fmt.Sprintf("TransformMode(%d)", int(m))
}

// ParseTransformMode parses a mode name.
func ParseTransformMode(s string) (TransformMode, error) {
	switch s {
	case "", "identity":
		return TransformIdentity, nil
	case "power":
		return TransformPower, nil
	}
	return TransformIdentity, fmt.Errorf("unknown transform mode: %s", s)
}

// Transform is a per-channel conversion chosen once at configuration time.
type Transform struct {
	mode               TransformMode
	voltage            float64
	resistanceMilliohm float64
}

// IdentityTransform returns the transform that leaves readings as they are.
func IdentityTransform() Transform {
	return Transform{mode: TransformIdentity}
}

// PowerTransform returns raw * voltage / (resistanceMilliohm / 1000).
func PowerTransform(voltage, resistanceMilliohm float64) (Transform, error) {
	if resistanceMilliohm <= 0 {
		return Transform{}, errNonPositiveResistance
	}
	return Transform{
		mode:               TransformPower,
		voltage:            voltage,
		resistanceMilliohm: resistanceMilliohm,
	}, nil
}

// Mode returns the transform mode.
func (t Transform) Mode() TransformMode {
	return t.mode
}

// Apply converts one raw reading.
func (t Transform) Apply(raw float64) float64 {
	switch t.mode {
	case TransformPower:
		return raw * t.voltage / (t.resistanceMilliohm / 1000.0)
	default:
		return raw
	}
}

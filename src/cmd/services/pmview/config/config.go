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

// Package config holds the pmview service configuration.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/multierr"

	"github.com/pmlab/pmview/src/chart/rangetrack"
	"github.com/pmlab/pmview/src/feed/mqttfeed"
	"github.com/pmlab/pmview/src/feed/pmlab"
	"github.com/pmlab/pmview/src/resample/source"
	"github.com/pmlab/pmview/src/x/instrument"
	xlog "github.com/pmlab/pmview/src/x/log"
)

const (
	defaultQuality       = 1
	defaultColumns       = 640
	defaultTickCount     = 4
	defaultFramesEvery   = 1
	defaultStatsAccuracy = 0.01
	defaultPMLabAddress  = "localhost:12345"
	defaultPMLabTimeout  = 10 * time.Second
)

// FeedType selects where raw sample lines come from.
type FeedType string

// Supported feed types.
const (
	StdinFeed FeedType = "stdin"
	FileFeed  FeedType = "file"
	PMLabFeed FeedType = "pmlab"
	MQTTFeed  FeedType = "mqtt"
)

var (
	errNoTimeFrame      = errors.New("chart.timeFrame must be positive")
	errBadQuality       = errors.New("chart.quality must be positive")
	errBadColumns       = errors.New("chart.columns must not be negative")
	errBadTickCount     = errors.New("chart.tickCount must be positive")
	errCapacityTooSmall = errors.New("chart.columns / chart.quality leaves an empty window")
	errFileFeedNoPath   = errors.New("feed.file is required for the file feed")
	errMQTTFeedNoConfig = errors.New("feed.mqtt is required for the mqtt feed")
	errBadFramesEvery   = errors.New("frames.every must not be negative")
	errBadStatsAccuracy = errors.New("stats.relativeAccuracy must be in (0, 1)")
)

// Configuration is the pmview configuration.
type Configuration struct {
	// Logging configuration.
	Logging xlog.Configuration `yaml:"logging"`

	// Metrics configuration.
	Metrics instrument.MetricsConfiguration `yaml:"metrics"`

	// Chart configures the resampled window.
	Chart ChartConfiguration `yaml:"chart"`

	// Transform configures the raw value conversion.
	Transform TransformConfiguration `yaml:"transform"`

	// Feed configures the sample input.
	Feed FeedConfiguration `yaml:"feed"`

	// Frames configures text frame output.
	Frames FramesConfiguration `yaml:"frames"`

	// Stats configures the run summary.
	Stats StatsConfiguration `yaml:"stats"`
}

// ChartConfiguration configures the window.
type ChartConfiguration struct {
	// TimeFrame is the span of input time the window covers.
	TimeFrame float64 `yaml:"timeFrame"`

	// Quality is the number of columns per window slot.
	Quality int `yaml:"quality"`

	// Columns is the chart width, zero detects the terminal width.
	Columns int `yaml:"columns"`

	// TickCount is the number of time axis ticks across the window.
	TickCount int `yaml:"tickCount"`

	// RangePolicy is either "history" or "window".
	RangePolicy string `yaml:"rangePolicy"`
}

// ColumnsFn reports the detected display width.
type ColumnsFn func() (int, bool)

// Capacity returns the window capacity: columns / quality. Columns of zero
// are resolved with detect, falling back to the default width.
func (c ChartConfiguration) Capacity(detect ColumnsFn) int {
	columns := c.Columns
	if columns == 0 {
		columns = defaultColumns
		if detect != nil {
			if w, ok := detect(); ok && w > 0 {
				columns = w
			}
		}
	}
	quality := c.Quality
	if quality <= 0 {
		quality = defaultQuality
	}
	return columns / quality
}

// Policy returns the parsed range policy.
func (c ChartConfiguration) Policy() (rangetrack.Policy, error) {
	if c.RangePolicy == "" {
		return rangetrack.PolicyHistory, nil
	}
	return rangetrack.ParsePolicy(c.RangePolicy)
}

// TransformConfiguration configures the raw value conversion.
type TransformConfiguration struct {
	// Mode is "identity" or "power".
	Mode string `yaml:"mode"`

	// Voltage is the supply voltage in volts.
	Voltage float64 `yaml:"voltage"`

	// ResistanceMilliohm is the shunt resistance in milliohms.
	ResistanceMilliohm float64 `yaml:"resistanceMilliohm"`
}

// NewTransform builds the configured transform.
func (c TransformConfiguration) NewTransform() (source.Transform, error) {
	if c.Mode == "" {
		return source.IdentityTransform(), nil
	}
	mode, err := source.ParseTransformMode(c.Mode)
	if err != nil {
		return source.Transform{}, err
	}
	if mode == source.TransformIdentity {
		return source.IdentityTransform(), nil
	}
	return source.PowerTransform(c.Voltage, c.ResistanceMilliohm)
}

// FeedConfiguration selects and configures the sample input.
type FeedConfiguration struct {
	// Type is one of stdin, file, pmlab or mqtt.
	Type FeedType `yaml:"type"`

	// File is the input path of the file feed.
	File string `yaml:"file"`

	// PMLab configures the PM Lab daemon feed.
	PMLab *PMLabConfiguration `yaml:"pmlab"`

	// MQTT configures the MQTT feed.
	MQTT *mqttfeed.Configuration `yaml:"mqtt"`
}

// PMLabConfiguration configures a PM Lab daemon subscription.
type PMLabConfiguration struct {
	// Address is the daemon host:port.
	Address string `yaml:"address"`

	// Channels are channel names or ids, defaults to CPU1 and TRIGGER1.
	Channels []string `yaml:"channels"`

	// DialTimeout bounds the connect and handshake.
	DialTimeout time.Duration `yaml:"dialTimeout"`
}

// ChannelIDs returns the parsed channel list.
func (c PMLabConfiguration) ChannelIDs() ([]uint32, error) {
	if len(c.Channels) == 0 {
		return []uint32{pmlab.ChannelCPU1, pmlab.ChannelTrigger1}, nil
	}
	return pmlab.ParseChannels(c.Channels)
}

// Open opens the configured feed. The stdin feed reads from stdin and is
// not closed by the returned reader.
func (c FeedConfiguration) Open(
	ctx context.Context,
	stdin io.Reader,
	iOpts instrument.Options,
) (io.ReadCloser, error) {
	switch c.Type {
	case "", StdinFeed:
		return io.NopCloser(stdin), nil
	case FileFeed:
		f, err := os.Open(c.File)
		if err != nil {
			return nil, err
		}
		return f, nil
	case PMLabFeed:
		pc := PMLabConfiguration{}
		if c.PMLab != nil {
			pc = *c.PMLab
		}
		return pc.open(ctx, iOpts)
	case MQTTFeed:
		if c.MQTT == nil {
			return nil, errMQTTFeedNoConfig
		}
		return mqttfeed.Subscribe(ctx, *c.MQTT, iOpts)
	default:
		return nil, fmt.Errorf("unknown feed type: %q", c.Type)
	}
}

func (c PMLabConfiguration) open(ctx context.Context, iOpts instrument.Options) (io.ReadCloser, error) {
	channels, err := c.ChannelIDs()
	if err != nil {
		return nil, err
	}
	address := c.Address
	if address == "" {
		address = defaultPMLabAddress
	}
	timeout := c.DialTimeout
	if timeout <= 0 {
		timeout = defaultPMLabTimeout
	}
	opts := pmlab.NewOptions().
		SetInstrumentOptions(iOpts).
		SetDialTimeout(timeout).
		SetHandshakeTimeout(timeout)
	client, err := pmlab.Dial(ctx, address, channels, opts)
	if err != nil {
		return nil, err
	}
	return pmlab.NewLineReader(ctx, client), nil
}

// FramesConfiguration configures text frame output on stdout.
type FramesConfiguration struct {
	// Enabled turns frame output on.
	Enabled bool `yaml:"enabled"`

	// Every emits one frame out of every N refreshes.
	Every int `yaml:"every"`
}

// StatsConfiguration configures the run summary logged at exit.
type StatsConfiguration struct {
	// Enabled turns statistics collection on.
	Enabled bool `yaml:"enabled"`

	// RelativeAccuracy is the quantile sketch relative accuracy.
	RelativeAccuracy float64 `yaml:"relativeAccuracy"`
}

// InitDefaultsAndValidate fills unset values with defaults and validates
// the whole configuration, reporting every problem found.
func (c *Configuration) InitDefaultsAndValidate() error {
	if c.Chart.Quality == 0 {
		c.Chart.Quality = defaultQuality
	}
	if c.Chart.TickCount == 0 {
		c.Chart.TickCount = defaultTickCount
	}
	if c.Feed.Type == "" {
		c.Feed.Type = StdinFeed
	}
	if c.Frames.Every == 0 {
		c.Frames.Every = defaultFramesEvery
	}
	if c.Stats.RelativeAccuracy == 0 {
		c.Stats.RelativeAccuracy = defaultStatsAccuracy
	}

	var multiErr error
	if !(c.Chart.TimeFrame > 0) {
		multiErr = multierr.Append(multiErr, errNoTimeFrame)
	}
	if c.Chart.Quality < 0 {
		multiErr = multierr.Append(multiErr, errBadQuality)
	}
	if c.Chart.Columns < 0 {
		multiErr = multierr.Append(multiErr, errBadColumns)
	} else if c.Chart.Columns > 0 && c.Chart.Quality > 0 && c.Chart.Columns/c.Chart.Quality == 0 {
		multiErr = multierr.Append(multiErr, errCapacityTooSmall)
	}
	if c.Chart.TickCount < 0 {
		multiErr = multierr.Append(multiErr, errBadTickCount)
	}
	if _, err := c.Chart.Policy(); err != nil {
		multiErr = multierr.Append(multiErr, err)
	}
	if _, err := c.Transform.NewTransform(); err != nil {
		multiErr = multierr.Append(multiErr, err)
	}

	switch c.Feed.Type {
	case StdinFeed:
	case FileFeed:
		if c.Feed.File == "" {
			multiErr = multierr.Append(multiErr, errFileFeedNoPath)
		}
	case PMLabFeed:
		if c.Feed.PMLab != nil {
			if _, err := c.Feed.PMLab.ChannelIDs(); err != nil {
				multiErr = multierr.Append(multiErr, err)
			}
		}
	case MQTTFeed:
		if c.Feed.MQTT == nil {
			multiErr = multierr.Append(multiErr, errMQTTFeedNoConfig)
		}
	default:
		multiErr = multierr.Append(multiErr, fmt.Errorf("unknown feed type: %q", c.Feed.Type))
	}

	if c.Frames.Every < 0 {
		multiErr = multierr.Append(multiErr, errBadFramesEvery)
	}
	if !(c.Stats.RelativeAccuracy > 0 && c.Stats.RelativeAccuracy < 1) {
		multiErr = multierr.Append(multiErr, errBadStatsAccuracy)
	}
	return multiErr
}

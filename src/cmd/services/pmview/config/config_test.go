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

package config

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/pmlab/pmview/src/chart/rangetrack"
	"github.com/pmlab/pmview/src/resample/source"
	xconfig "github.com/pmlab/pmview/src/x/config"
	"github.com/pmlab/pmview/src/x/instrument"
)

func writeConfig(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "pmview.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestConfiguration(t *testing.T) {
	in := `
logging:
  level: debug
  encoding: console

metrics:
  prefix: pmview
  listenAddress: 0.0.0.0:7203
  reportInterval: 5s

chart:
  timeFrame: 2.5
  quality: 2
  columns: 800
  tickCount: 5
  rangePolicy: window

transform:
  mode: power
  voltage: 5
  resistanceMilliohm: 100

feed:
  type: pmlab
  pmlab:
    address: daemon:12345
    channels: [CPU1, CPU2]
    dialTimeout: 3s

frames:
  enabled: true
  every: 10

stats:
  enabled: true
  relativeAccuracy: 0.02
`

	var cfg Configuration
	require.NoError(t, xconfig.LoadFile(&cfg, writeConfig(t, in), xconfig.Options{}))
	require.NoError(t, cfg.InitDefaultsAndValidate())

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Encoding)
	assert.Equal(t, "0.0.0.0:7203", cfg.Metrics.ListenAddress)
	assert.Equal(t, 5*time.Second, cfg.Metrics.ReportInterval)
	assert.Equal(t, 400, cfg.Chart.Capacity(nil))
	assert.Equal(t, 5, cfg.Chart.TickCount)

	policy, err := cfg.Chart.Policy()
	require.NoError(t, err)
	assert.Equal(t, rangetrack.PolicyWindowLocal, policy)

	tr, err := cfg.Transform.NewTransform()
	require.NoError(t, err)
	assert.Equal(t, source.TransformPower, tr.Mode())
	assert.InDelta(t, 100, tr.Apply(2), 1e-9)

	require.NotNil(t, cfg.Feed.PMLab)
	ids, err := cfg.Feed.PMLab.ChannelIDs()
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 2}, ids)
	assert.Equal(t, 3*time.Second, cfg.Feed.PMLab.DialTimeout)

	assert.True(t, cfg.Frames.Enabled)
	assert.Equal(t, 10, cfg.Frames.Every)
	assert.Equal(t, 0.02, cfg.Stats.RelativeAccuracy)
}

func TestConfigurationDefaults(t *testing.T) {
	cfg := Configuration{Chart: ChartConfiguration{TimeFrame: 10}}
	require.NoError(t, cfg.InitDefaultsAndValidate())

	assert.Equal(t, StdinFeed, cfg.Feed.Type)
	assert.Equal(t, defaultQuality, cfg.Chart.Quality)
	assert.Equal(t, defaultTickCount, cfg.Chart.TickCount)
	assert.Equal(t, defaultFramesEvery, cfg.Frames.Every)
	assert.Equal(t, defaultStatsAccuracy, cfg.Stats.RelativeAccuracy)

	tr, err := cfg.Transform.NewTransform()
	require.NoError(t, err)
	assert.Equal(t, source.TransformIdentity, tr.Mode())

	ids, err := PMLabConfiguration{}.ChannelIDs()
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 1}, ids)
}

func TestChartCapacity(t *testing.T) {
	detected := func() (int, bool) { return 120, true }
	failed := func() (int, bool) { return 0, false }

	assert.Equal(t, defaultColumns, ChartConfiguration{}.Capacity(nil))
	assert.Equal(t, defaultColumns, ChartConfiguration{}.Capacity(failed))
	assert.Equal(t, 120, ChartConfiguration{}.Capacity(detected))
	assert.Equal(t, 40, ChartConfiguration{Quality: 3}.Capacity(detected))
	assert.Equal(t, 100, ChartConfiguration{Columns: 200, Quality: 2}.Capacity(detected))
}

func TestConfigurationValidateReportsEveryError(t *testing.T) {
	cfg := Configuration{
		Chart: ChartConfiguration{
			Columns:     -1,
			RangePolicy: "sometimes",
		},
		Transform: TransformConfiguration{Mode: "power"},
		Feed:      FeedConfiguration{Type: "carrier-pigeon"},
		Stats:     StatsConfiguration{RelativeAccuracy: 2},
	}

	err := cfg.InitDefaultsAndValidate()
	require.Error(t, err)
	errs := multierr.Errors(err)
	assert.Len(t, errs, 6)
	assert.Contains(t, errs, errNoTimeFrame)
	assert.Contains(t, errs, errBadColumns)
	assert.Contains(t, errs, errBadStatsAccuracy)
	assert.True(t, strings.Contains(err.Error(), "unknown range policy"))
	assert.True(t, strings.Contains(err.Error(), "unknown feed type"))
}

func TestConfigurationValidateFeeds(t *testing.T) {
	base := ChartConfiguration{TimeFrame: 1}

	cfg := Configuration{Chart: base, Feed: FeedConfiguration{Type: FileFeed}}
	assert.Equal(t, errFileFeedNoPath, cfg.InitDefaultsAndValidate())

	cfg = Configuration{Chart: base, Feed: FeedConfiguration{Type: MQTTFeed}}
	assert.Equal(t, errMQTTFeedNoConfig, cfg.InitDefaultsAndValidate())

	cfg = Configuration{Chart: base, Feed: FeedConfiguration{
		Type:  PMLabFeed,
		PMLab: &PMLabConfiguration{Channels: []string{"CPU9"}},
	}}
	assert.Error(t, cfg.InitDefaultsAndValidate())

	cfg = Configuration{Chart: ChartConfiguration{TimeFrame: 1, Columns: 3, Quality: 4}}
	assert.Equal(t, errCapacityTooSmall, cfg.InitDefaultsAndValidate())
}

func TestFeedOpen(t *testing.T) {
	iOpts := instrument.NewOptions().
		SetLogger(zap.NewNop()).
		SetMetricsScope(tally.NoopScope)
	ctx := context.Background()

	stdin := bytes.NewBufferString("0 1\n")
	rc, err := FeedConfiguration{Type: StdinFeed}.Open(ctx, stdin, iOpts)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "0 1\n", string(data))
	require.NoError(t, rc.Close())

	path := writeConfig(t, "1 2\n")
	rc, err = FeedConfiguration{Type: FileFeed, File: path}.Open(ctx, nil, iOpts)
	require.NoError(t, err)
	data, err = io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "1 2\n", string(data))
	require.NoError(t, rc.Close())

	_, err = FeedConfiguration{Type: FileFeed, File: path + ".missing"}.Open(ctx, nil, iOpts)
	assert.Error(t, err)

	_, err = FeedConfiguration{Type: MQTTFeed}.Open(ctx, nil, iOpts)
	assert.Equal(t, errMQTTFeedNoConfig, err)

	_, err = FeedConfiguration{Type: "nope"}.Open(ctx, nil, iOpts)
	assert.Error(t, err)
}

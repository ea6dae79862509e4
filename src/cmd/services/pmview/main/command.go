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

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/pmlab/pmview/src/chart/engine"
	"github.com/pmlab/pmview/src/chart/frame"
	"github.com/pmlab/pmview/src/chart/stats"
	"github.com/pmlab/pmview/src/cmd/services/pmview/config"
	"github.com/pmlab/pmview/src/resample/source"
	xconfig "github.com/pmlab/pmview/src/x/config"
	"github.com/pmlab/pmview/src/x/config/configflag"
	"github.com/pmlab/pmview/src/x/instrument"
)

const usageLine = "pmview <window-time-frame> [<quality> [<voltage V> <resistance mOhm>]]"

var errUsage = errors.New("usage: " + usageLine)

type command struct {
	cfgOpts configflag.Options
	stdin   io.Reader
	stdout  io.Writer
	columns config.ColumnsFn
}

func newRootCommand(stdin io.Reader, stdout io.Writer, columns config.ColumnsFn) *cobra.Command {
	c := &command{stdin: stdin, stdout: stdout, columns: columns}
	cmd := &cobra.Command{
		Use:   usageLine,
		Short: "Resample a sample stream into a scrolling chart window",
		Long: `pmview reads "<timestamp> <value>..." lines, averages them over
fixed intervals and maintains a scrolling window with axis range and time
ticks. Input comes from stdin, a file, a PM Lab daemon or an MQTT topic.`,
		Example: `# Ten second window from a PM Lab client, power from a 5V rail over a 100mOhm shunt:
pmlabclient localhost 12345 | pmview 10 1 5 100

# Everything from configuration:
pmview -f pmview.yml`,
		Args:         validateArgs,
		RunE:         c.run,
		SilenceUsage: true,
	}
	c.cfgOpts.RegisterFlagSet(cmd.Flags())
	return cmd
}

func validateArgs(_ *cobra.Command, args []string) error {
	switch len(args) {
	case 0, 1, 2, 4:
		return nil
	}
	return errUsage
}

// applyArgs overrides cfg with the positional arguments.
func applyArgs(cfg *config.Configuration, args []string) error {
	if len(args) == 0 {
		return nil
	}
	timeFrame, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("invalid window time frame %q: %w", args[0], err)
	}
	cfg.Chart.TimeFrame = timeFrame

	if len(args) >= 2 {
		quality, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid quality %q: %w", args[1], err)
		}
		cfg.Chart.Quality = quality
	}

	if len(args) == 4 {
		voltage, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return fmt.Errorf("invalid voltage %q: %w", args[2], err)
		}
		resistance, err := strconv.ParseFloat(args[3], 64)
		if err != nil {
			return fmt.Errorf("invalid resistance %q: %w", args[3], err)
		}
		cfg.Transform = config.TransformConfiguration{
			Mode:               source.TransformPower.String(),
			Voltage:            voltage,
			ResistanceMilliohm: resistance,
		}
	}
	return nil
}

func (c *command) run(_ *cobra.Command, args []string) error {
	if len(args) == 0 && len(c.cfgOpts.ConfigFiles.Value) == 0 {
		return errUsage
	}

	// Dump after positional overrides are applied.
	dump := c.cfgOpts.ShouldDumpConfigAndExit
	c.cfgOpts.ShouldDumpConfigAndExit = false

	var cfg config.Configuration
	if err := c.cfgOpts.MainLoad(&cfg, xconfig.Options{}); err != nil {
		return err
	}
	if err := applyArgs(&cfg, args); err != nil {
		return err
	}
	if err := cfg.InitDefaultsAndValidate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if dump {
		return xconfig.Dump(cfg, c.stdout)
	}

	logger, err := cfg.Logging.BuildLogger()
	if err != nil {
		return fmt.Errorf("unable to create logger: %w", err)
	}
	defer logger.Sync()

	scope, closer, err := cfg.Metrics.NewRootScope(logger)
	if err != nil {
		logger.Error("unable to create metrics scope", zap.Error(err))
		return err
	}
	defer closer.Close()

	iOpts := instrument.NewOptions().
		SetLogger(logger).
		SetMetricsScope(scope).
		SetReportInterval(cfg.Metrics.ReportIntervalOrDefault())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = runChart(ctx, cfg, c.stdin, c.stdout, c.columns, iOpts)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return nil
	case source.IsParseError(err):
		logger.Error("malformed input", zap.Error(err))
	default:
		logger.Error("pmview failed", zap.Error(err))
	}
	return err
}

func runChart(
	ctx context.Context,
	cfg config.Configuration,
	stdin io.Reader,
	stdout io.Writer,
	columns config.ColumnsFn,
	iOpts instrument.Options,
) (err error) {
	logger := iOpts.Logger()

	transform, err := cfg.Transform.NewTransform()
	if err != nil {
		return err
	}
	policy, err := cfg.Chart.Policy()
	if err != nil {
		return err
	}

	feed, err := cfg.Feed.Open(ctx, stdin, iOpts)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, feed.Close())
	}()

	src := source.NewReader(feed, source.NewOptions().
		SetInstrumentOptions(iOpts).
		SetTransform(transform))

	opts := engine.NewOptions().
		SetInstrumentOptions(iOpts).
		SetTimeFrame(cfg.Chart.TimeFrame).
		SetCapacity(cfg.Chart.Capacity(columns)).
		SetTickCount(cfg.Chart.TickCount).
		SetRangePolicy(policy)

	var rec *stats.Recorder
	if cfg.Stats.Enabled {
		rec = stats.NewRecorder(cfg.Stats.RelativeAccuracy)
		opts = opts.SetStatsRecorder(rec)
	}

	eng, err := engine.New(src, opts)
	if err != nil {
		if source.IsEndOfStream(err) {
			logger.Info("input ended before the first interval")
			return nil
		}
		return err
	}

	var onFrame engine.FrameFn
	if cfg.Frames.Enabled {
		onFrame = frame.NewWriter(stdout, cfg.Frames.Every).Write
	}
	err = eng.Run(ctx, onFrame)

	if rec != nil {
		rec.Summary().Log(logger)
	}
	return err
}

// terminalColumns reports the width of w when it is a terminal.
func terminalColumns(w io.Writer) config.ColumnsFn {
	return func() (int, bool) {
		f, ok := w.(*os.File)
		if !ok || !term.IsTerminal(int(f.Fd())) {
			return 0, false
		}
		width, _, err := term.GetSize(int(f.Fd()))
		if err != nil {
			return 0, false
		}
		return width, true
	}
}

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
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pmlab/pmview/src/feed/pmlab"
	"github.com/pmlab/pmview/src/x/instrument"
	xlog "github.com/pmlab/pmview/src/x/log"
)

type flags struct {
	listenAddress   string
	metricsAddress  string
	samplingRate    uint32
	samplesPerFrame int
	frameInterval   time.Duration
	maxFrames       int
	amplitude       float64
	frequency       float64
	offset          float64
	logLevel        string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:   "pmlabsim",
		Short: "Serve a synthetic PM Lab data stream",
		Long: `pmlabsim speaks the PM Lab daemon protocol and streams a sine wave on
every subscribed channel, for running pmlabclient and pmview without the
acquisition hardware.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(*cobra.Command, []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			l, err := net.Listen("tcp", f.listenAddress)
			if err != nil {
				return err
			}
			return run(ctx, l, f)
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&f.listenAddress, "listen", ":12345", "address to accept subscriptions on")
	fs.StringVar(&f.metricsAddress, "metrics-listen", "", "address to serve Prometheus metrics on")
	fs.Uint32Var(&f.samplingRate, "rate", 1000, "per-channel sampling rate in Hertz")
	fs.IntVar(&f.samplesPerFrame, "samples-per-frame", 100, "samples per channel in each frame")
	fs.DurationVar(&f.frameInterval, "frame-interval", 100*time.Millisecond, "pause between frames")
	fs.IntVar(&f.maxFrames, "max-frames", 0, "frames per connection, zero is unlimited")
	fs.Float64Var(&f.amplitude, "amplitude", 1, "sine amplitude")
	fs.Float64Var(&f.frequency, "frequency", 1, "sine frequency in Hertz")
	fs.Float64Var(&f.offset, "offset", 0, "sine midpoint")
	fs.StringVar(&f.logLevel, "log-level", "info", "log level")
	return cmd
}

// run serves on l until ctx is cancelled.
func run(ctx context.Context, l net.Listener, f flags) error {
	logger, err := xlog.Configuration{Level: f.logLevel}.BuildLogger()
	if err != nil {
		l.Close()
		return fmt.Errorf("unable to create logger: %w", err)
	}
	defer logger.Sync()

	metricsCfg := instrument.MetricsConfiguration{
		Prefix:        "pmlabsim",
		ListenAddress: f.metricsAddress,
	}
	scope, closer, err := metricsCfg.NewRootScope(logger)
	if err != nil {
		l.Close()
		return err
	}
	defer closer.Close()

	opts := pmlab.NewServerOptions().
		SetInstrumentOptions(instrument.NewOptions().
			SetLogger(logger).
			SetMetricsScope(scope)).
		SetSamplingRate(f.samplingRate).
		SetSamplesPerFrame(f.samplesPerFrame).
		SetFrameInterval(f.frameInterval).
		SetMaxFrames(f.maxFrames)
	gen := pmlab.SineGenerator{
		Amplitude: f.amplitude,
		Frequency: f.frequency,
		Offset:    f.offset,
	}
	srv := pmlab.NewServer(gen, opts)

	served := make(chan error, 1)
	go func() { served <- srv.Serve(l) }()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		srv.Close()
		return <-served
	case err := <-served:
		if err != nil {
			logger.Error("server stopped", zap.Error(err))
		}
		srv.Close()
		return err
	}
}

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
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
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
	channels    []string
	dialTimeout time.Duration
	logLevel    string
}

func main() {
	if err := newRootCommand(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand(stdout io.Writer) *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:   "pmlabclient <server> <port>",
		Short: "Print a PM Lab daemon's samples as text lines",
		Long: `pmlabclient subscribes to channels of a PM Lab daemon and prints one
"<timestamp> <value>..." line per sample until the daemon hangs up.`,
		Example:      `pmlabclient localhost 12345 | pmview 10`,
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, net.JoinHostPort(args[0], args[1]), f, stdout)
		},
	}
	cmd.Flags().StringSliceVarP(&f.channels, "channels", "c",
		[]string{"CPU1", "TRIGGER1"}, "channel names or ids to subscribe to")
	cmd.Flags().DurationVar(&f.dialTimeout, "dial-timeout", 10*time.Second, "connect and handshake timeout")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "info", "log level")
	return cmd
}

func run(ctx context.Context, address string, f flags, stdout io.Writer) error {
	logger, err := xlog.Configuration{Level: f.logLevel}.BuildLogger()
	if err != nil {
		return fmt.Errorf("unable to create logger: %w", err)
	}
	defer logger.Sync()

	channels, err := pmlab.ParseChannels(f.channels)
	if err != nil {
		return err
	}

	opts := pmlab.NewOptions().
		SetInstrumentOptions(instrument.NewOptions().SetLogger(logger)).
		SetDialTimeout(f.dialTimeout).
		SetHandshakeTimeout(f.dialTimeout)
	client, err := pmlab.Dial(ctx, address, channels, opts)
	if err != nil {
		logger.Error("server connect failed", zap.Error(err))
		return err
	}
	defer client.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			client.Close()
		case <-done:
		}
	}()

	out := bufio.NewWriter(stdout)
	defer out.Flush()
	rate := client.SamplingRate()
	for {
		ds, err := client.ReadDataSet()
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			logger.Error("error reading from network", zap.Error(err))
			return err
		}
		if err := pmlab.WriteLines(out, ds, rate); err != nil {
			return err
		}
		if err := out.Flush(); err != nil {
			return err
		}
	}
}

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

package mqttfeed

import (
	"context"
	"io"
	"net"
	"sync"

	"github.com/eclipse/paho.golang/paho"
	"github.com/pkg/errors"
	"github.com/uber-go/tally"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/pmlab/pmview/src/x/instrument"
)

type feedMetrics struct {
	messages tally.Counter
	bytes    tally.Counter
	dropped  tally.Counter
}

func newFeedMetrics(scope tally.Scope) feedMetrics {
	return feedMetrics{
		messages: scope.Counter("messages"),
		bytes:    scope.Counter("bytes"),
		dropped:  scope.Counter("dropped"),
	}
}

type feed struct {
	client  *paho.Client
	pr      *io.PipeReader
	pw      *io.PipeWriter
	logger  *zap.Logger
	metrics feedMetrics

	closed    chan struct{}
	watchDone chan struct{}

	disconnectOnce sync.Once
	disconnectErr  error
	closeOnce      sync.Once
	closeErr       error
}

// Subscribe connects to the broker and subscribes to cfg.Topic. The returned
// reader yields every payload received, each terminated by a newline. It
// reports io.EOF once the broker disconnects or ctx is cancelled. Closing it
// disconnects from the broker.
func Subscribe(
	ctx context.Context,
	cfg Configuration,
	iOpts instrument.Options,
) (io.ReadCloser, error) {
	if iOpts == nil {
		iOpts = instrument.NewOptions()
	}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeoutOrDefault())
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(dialCtx, "tcp", cfg.Address)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to connect to broker %s", cfg.Address)
	}

	pr, pw := io.Pipe()
	clientID := cfg.ClientIDOrDefault()
	f := &feed{
		pr: pr,
		pw: pw,
		logger: iOpts.Logger().With(
			zap.String("broker", cfg.Address),
			zap.String("topic", cfg.Topic),
			zap.String("clientID", clientID)),
		metrics:   newFeedMetrics(iOpts.MetricsScope().SubScope("mqtt-feed")),
		closed:    make(chan struct{}),
		watchDone: make(chan struct{}),
	}
	f.client = paho.NewClient(paho.ClientConfig{
		ClientID: clientID,
		Conn:     conn,
		OnPublishReceived: []func(paho.PublishReceived) (bool, error){
			f.onPublish,
		},
		OnServerDisconnect: func(d *paho.Disconnect) {
			f.logger.Info("broker disconnected", zap.Uint8("reasonCode", d.ReasonCode))
			f.pw.Close()
		},
		OnClientError: func(err error) {
			f.logger.Error("mqtt client error", zap.Error(err))
			f.pw.CloseWithError(err)
		},
	})

	if _, err := f.client.Connect(dialCtx, &paho.Connect{
		ClientID:   clientID,
		KeepAlive:  cfg.KeepAliveOrDefault(),
		CleanStart: true,
	}); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "unable to establish mqtt session")
	}

	if _, err := f.client.Subscribe(dialCtx, &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{{
			Topic: cfg.Topic,
			QoS:   cfg.QoS,
		}},
	}); err != nil {
		f.pw.Close()
		f.disconnect()
		return nil, errors.Wrapf(err, "unable to subscribe to %s", cfg.Topic)
	}

	go f.watch(ctx)
	f.logger.Info("subscribed to mqtt feed")
	return f, nil
}

func (f *feed) onPublish(pr paho.PublishReceived) (bool, error) {
	payload := pr.Packet.Payload
	if len(payload) == 0 {
		f.metrics.dropped.Inc(1)
		return true, nil
	}
	if payload[len(payload)-1] != '\n' {
		payload = append(payload[:len(payload):len(payload)], '\n')
	}
	if _, err := f.pw.Write(payload); err != nil {
		// Reader is gone.
		f.metrics.dropped.Inc(1)
		return true, nil
	}
	f.metrics.messages.Inc(1)
	f.metrics.bytes.Inc(int64(len(payload)))
	return true, nil
}

func (f *feed) watch(ctx context.Context) {
	defer close(f.watchDone)
	select {
	case <-ctx.Done():
		f.pw.Close()
		f.disconnect()
	case <-f.closed:
	}
}

func (f *feed) Read(p []byte) (int, error) {
	return f.pr.Read(p)
}

func (f *feed) disconnect() error {
	f.disconnectOnce.Do(func() {
		f.disconnectErr = f.client.Disconnect(&paho.Disconnect{ReasonCode: 0})
	})
	return f.disconnectErr
}

// Close disconnects from the broker.
func (f *feed) Close() error {
	f.closeOnce.Do(func() {
		close(f.closed)
		<-f.watchDone
		// Unblocks a handler stuck writing to the pipe.
		f.pr.Close()
		f.closeErr = multierr.Append(f.disconnect(), f.pw.Close())
	})
	return f.closeErr
}

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
	"bufio"
	"context"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/eclipse/paho.golang/paho"
	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"
	"go.uber.org/zap"

	"github.com/pmlab/pmview/src/x/instrument"
)

const testTopic = "pmlab/samples"

func freeAddress(t *testing.T) string {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

// startBroker runs an in-process broker accepting every client.
func startBroker(t *testing.T) string {
	addr := freeAddress(t)
	broker := mochi.New(nil)
	require.NoError(t, broker.AddHook(&auth.AllowHook{}, nil))
	require.NoError(t, broker.AddListener(listeners.NewTCP(listeners.Config{
		Type:    "tcp",
		Address: addr,
	})))
	require.NoError(t, broker.Serve())
	t.Cleanup(func() { broker.Close() })
	return addr
}

func newPublisher(ctx context.Context, t *testing.T, addr string) *paho.Client {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	require.NoError(t, err)

	c := paho.NewClient(paho.ClientConfig{
		ClientID: "publisher",
		Conn:     conn,
	})
	_, err = c.Connect(ctx, &paho.Connect{
		ClientID:   "publisher",
		KeepAlive:  5,
		CleanStart: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { c.Disconnect(&paho.Disconnect{}) })
	return c
}

func publish(ctx context.Context, t *testing.T, c *paho.Client, payload string) {
	_, err := c.Publish(ctx, &paho.Publish{
		Topic:   testTopic,
		QoS:     1,
		Payload: []byte(payload),
	})
	require.NoError(t, err)
}

func testInstrumentOptions(scope tally.Scope) instrument.Options {
	return instrument.NewOptions().
		SetLogger(zap.NewNop()).
		SetMetricsScope(scope)
}

func TestSubscribeStreamsPayloadLines(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	addr := startBroker(t)
	scope := tally.NewTestScope("", nil)
	rd, err := Subscribe(ctx, Configuration{
		Address:  addr,
		Topic:    testTopic,
		QoS:      1,
		ClientID: "subscriber",
	}, testInstrumentOptions(scope))
	require.NoError(t, err)

	pub := newPublisher(ctx, t, addr)
	publish(ctx, t, pub, "0 1")
	publish(ctx, t, pub, "1 3\n2 5\n")
	publish(ctx, t, pub, "")
	publish(ctx, t, pub, "3 7\n")

	scanner := bufio.NewScanner(rd)
	var lines []string
	for len(lines) < 4 && scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, []string{"0 1", "1 3", "2 5", "3 7"}, lines)

	require.NoError(t, rd.Close())
	require.NoError(t, rd.Close())

	counters := scope.Snapshot().Counters()
	assert.Equal(t, int64(3), counters["mqtt-feed.messages+"].Value())
	assert.Equal(t, int64(1), counters["mqtt-feed.dropped+"].Value())
}

func TestSubscribeContextCancelEndsStream(t *testing.T) {
	addr := startBroker(t)

	ctx, cancel := context.WithCancel(context.Background())
	rd, err := Subscribe(ctx, Configuration{
		Address: addr,
		Topic:   testTopic,
	}, testInstrumentOptions(tally.NoopScope))
	require.NoError(t, err)
	defer rd.Close()

	cancel()
	data, err := io.ReadAll(rd)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestSubscribeUnreachableBroker(t *testing.T) {
	_, err := Subscribe(context.Background(), Configuration{
		Address:        freeAddress(t),
		Topic:          testTopic,
		ConnectTimeout: time.Second,
	}, nil)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "unable to connect to broker"))
}

func TestConfigurationDefaults(t *testing.T) {
	var cfg Configuration
	assert.Equal(t, uint16(defaultKeepAlive), cfg.KeepAliveOrDefault())
	assert.Equal(t, defaultConnectTimeout, cfg.ConnectTimeoutOrDefault())

	id := cfg.ClientIDOrDefault()
	assert.True(t, strings.HasPrefix(id, clientIDPrefix))
	assert.NotEqual(t, id, cfg.ClientIDOrDefault())

	cfg = Configuration{ClientID: "fixed", KeepAlive: 5, ConnectTimeout: time.Second}
	assert.Equal(t, "fixed", cfg.ClientIDOrDefault())
	assert.Equal(t, uint16(5), cfg.KeepAliveOrDefault())
	assert.Equal(t, time.Second, cfg.ConnectTimeoutOrDefault())
}

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

// Package mqttfeed reads sample lines published on an MQTT topic.
package mqttfeed

import (
	"time"

	"github.com/google/uuid"
)

const (
	defaultKeepAlive      = 30
	defaultConnectTimeout = 10 * time.Second
	clientIDPrefix        = "pmview-"
)

// Configuration describes an MQTT subscription carrying sample lines.
type Configuration struct {
	// Address is the broker host:port.
	Address string `yaml:"address" validate:"nonzero"`

	// Topic is the topic filter to subscribe to.
	Topic string `yaml:"topic" validate:"nonzero"`

	// QoS is the requested subscription quality of service.
	QoS byte `yaml:"qos" validate:"max=2"`

	// ClientID identifies the session, a random one is generated when empty.
	ClientID string `yaml:"clientID"`

	// KeepAlive is the keep alive interval in seconds.
	KeepAlive uint16 `yaml:"keepAlive"`

	// ConnectTimeout bounds the dial and CONNECT exchange.
	ConnectTimeout time.Duration `yaml:"connectTimeout"`
}

// ClientIDOrDefault returns the configured client id or a random one.
func (c Configuration) ClientIDOrDefault() string {
	if c.ClientID != "" {
		return c.ClientID
	}
	return clientIDPrefix + uuid.NewString()
}

// KeepAliveOrDefault returns the configured keep alive or the default.
func (c Configuration) KeepAliveOrDefault() uint16 {
	if c.KeepAlive != 0 {
		return c.KeepAlive
	}
	return defaultKeepAlive
}

// ConnectTimeoutOrDefault returns the configured connect timeout or the
// default.
func (c Configuration) ConnectTimeoutOrDefault() time.Duration {
	if c.ConnectTimeout > 0 {
		return c.ConnectTimeout
	}
	return defaultConnectTimeout
}

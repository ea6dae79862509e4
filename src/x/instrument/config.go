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

package instrument

import (
	"io"
	"net/http"
	"time"

	"github.com/uber-go/tally"
	"github.com/uber-go/tally/prometheus"
	"go.uber.org/zap"
)

const (
	defaultMetricsPrefix  = "pmview"
	defaultMetricsHandler = "/metrics"
)

// MetricsConfiguration configures the root metrics scope.
type MetricsConfiguration struct {
	// Prefix is prepended to every metric name.
	Prefix string `yaml:"prefix"`

	// ListenAddress, when set, serves a Prometheus scrape endpoint.
	ListenAddress string `yaml:"listenAddress"`

	// HandlerPath is the scrape path, defaults to /metrics.
	HandlerPath string `yaml:"handlerPath"`

	// ReportInterval is how often the scope flushes to its reporter.
	ReportInterval time.Duration `yaml:"reportInterval"`
}

// ReportIntervalOrDefault returns the configured report interval or the
// default one.
func (c MetricsConfiguration) ReportIntervalOrDefault() time.Duration {
	if c.ReportInterval <= 0 {
		return defaultReportInterval
	}
	return c.ReportInterval
}

// NewRootScope creates a new tally root scope. Without a listen address the
// scope reports nowhere and only serves in-process counters.
func (c MetricsConfiguration) NewRootScope(logger *zap.Logger) (tally.Scope, io.Closer, error) {
	prefix := c.Prefix
	if prefix == "" {
		prefix = defaultMetricsPrefix
	}

	if c.ListenAddress == "" {
		scope, closer := tally.NewRootScope(tally.ScopeOptions{
			Prefix: prefix,
		}, c.ReportIntervalOrDefault())
		return scope, closer, nil
	}

	reporter := prometheus.NewReporter(prometheus.Options{})
	scope, closer := tally.NewRootScope(tally.ScopeOptions{
		Prefix:         prefix,
		CachedReporter: reporter,
		Separator:      prometheus.DefaultSeparator,
	}, c.ReportIntervalOrDefault())

	path := c.HandlerPath
	if path == "" {
		path = defaultMetricsHandler
	}
	mux := http.NewServeMux()
	mux.Handle(path, reporter.HTTPHandler())
	go func() {
		if err := http.ListenAndServe(c.ListenAddress, mux); err != nil {
			logger.Error("metrics listener stopped", zap.String("address", c.ListenAddress), zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("address", c.ListenAddress), zap.String("path", path))

	return scope, closer, nil
}

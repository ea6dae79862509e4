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
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"
	"go.uber.org/zap"
)

func TestOptionsSettersCopy(t *testing.T) {
	scope := tally.NewTestScope("", nil)
	logger := zap.NewNop()

	base := NewOptions()
	opts := base.
		SetLogger(logger).
		SetMetricsScope(scope).
		SetReportInterval(5 * time.Second)

	require.Equal(t, logger, opts.Logger())
	require.Equal(t, scope, opts.MetricsScope())
	require.Equal(t, 5*time.Second, opts.ReportInterval())

	require.Equal(t, tally.NoopScope, base.MetricsScope())
	require.Equal(t, defaultReportInterval, base.ReportInterval())
}

func TestMetricsConfigurationNoListener(t *testing.T) {
	cfg := MetricsConfiguration{Prefix: "test"}
	require.Equal(t, defaultReportInterval, cfg.ReportIntervalOrDefault())

	scope, closer, err := cfg.NewRootScope(zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, scope)
	scope.Counter("frames").Inc(1)
	require.NoError(t, closer.Close())
}

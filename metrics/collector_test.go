// Copyright 2024 The TChannel-Go Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 1)
	c.Collect(ch)
	m := &dto.Metric{}
	require.NoError(t, (<-ch).Write(m))
	if m.Counter != nil {
		return m.Counter.GetValue()
	}
	return m.Gauge.GetValue()
}

func TestCollectorObserveCallLifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.ObserveCallStart(Outbound)
	c.ObserveCallFinish(Outbound, "ok", 12*time.Millisecond)
	c.ObserveCallStart(Inbound)
	c.ObserveCallFinish(Inbound, "timeout", 0)

	require.Equal(t, float64(1), counterValue(t, c.callsStarted.WithLabelValues(Outbound)))
	require.Equal(t, float64(1), counterValue(t, c.callsFinished.WithLabelValues(Outbound, "ok")))
	require.Equal(t, float64(1), counterValue(t, c.callsFinished.WithLabelValues(Inbound, "timeout")))
}

func TestCollectorObserveFrameAndBytes(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.ObserveFrame(Outbound, "CallRequest", 128)
	c.ObserveFrame(Outbound, "CallRequest", 64)

	require.Equal(t, float64(2), counterValue(t, c.framesTotal.WithLabelValues(Outbound, "CallRequest")))
	require.Equal(t, float64(192), counterValue(t, c.bytesTotal.WithLabelValues(Outbound)))
}

func TestCollectorConnectionGaugeTracksOpenClose(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.ConnectionOpened()
	c.ConnectionOpened()
	require.Equal(t, float64(2), counterValue(t, c.connections))

	c.ConnectionClosed()
	require.Equal(t, float64(1), counterValue(t, c.connections))
}

func TestCollectorTimeoutsAndIDAllocFailures(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.ObserveTimeout()
	c.ObserveTimeout()
	c.ObserveIDAllocFailure()

	require.Equal(t, float64(2), counterValue(t, c.timeouts))
	require.Equal(t, float64(1), counterValue(t, c.idAllocFails))
}

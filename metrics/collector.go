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

// Package metrics observes frame and call lifecycle events (§4.3, §4.4)
// without touching wire behavior. It is purely additive: §1's Non-goals
// exclude flow control and persistence, not observability, so this is
// carried per the ambient-stack rule the same way the teacher carries
// Prometheus collectors alongside its RPC paths.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Direction labels a call or frame as outbound (this side originated it)
// or inbound (the peer did). The hook methods below take a plain string
// rather than this type so that channel.MetricsHook can declare the same
// method signatures without importing this package (mirrors how
// channel.TraceHook stays import-free of the tracing package).
const (
	Outbound = "outbound"
	Inbound  = "inbound"
)

// Collector is the connection-level metrics sink, grounded on
// blobstore/common/rpc/auditlog's PrometheusSender: a set of CounterVec/
// HistogramVec fields built once and registered against a caller-supplied
// registerer, rather than the package-global MustRegister the teacher
// uses elsewhere, so tests can use their own registry.
type Collector struct {
	callsStarted  *prometheus.CounterVec
	callsFinished *prometheus.CounterVec
	callDuration  *prometheus.HistogramVec
	framesTotal   *prometheus.CounterVec
	bytesTotal    *prometheus.CounterVec
	timeouts      prometheus.Counter
	idAllocFails  prometheus.Counter
	connections   prometheus.Gauge
}

// Buckets is the call-duration histogram in milliseconds, matching the
// teacher's response-duration buckets in magnitude.
var Buckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}

// New builds a Collector and registers its vectors against reg. Pass
// prometheus.DefaultRegisterer for process-wide metrics, or a fresh
// prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		callsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tchannel",
			Name:      "calls_started_total",
			Help:      "calls submitted or dispatched, by direction",
		}, []string{"direction"}),
		callsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tchannel",
			Name:      "calls_finished_total",
			Help:      "calls completed, by direction and result code",
		}, []string{"direction", "code"}),
		callDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tchannel",
			Name:      "call_duration_ms",
			Help:      "call duration in milliseconds, by direction",
			Buckets:   Buckets,
		}, []string{"direction"}),
		framesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tchannel",
			Name:      "frames_total",
			Help:      "frames encoded/decoded, by direction and frame type",
		}, []string{"direction", "type"}),
		bytesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tchannel",
			Name:      "bytes_total",
			Help:      "bytes written/read at the frame layer, by direction",
		}, []string{"direction"}),
		timeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tchannel",
			Name:      "call_timeouts_total",
			Help:      "calls or pending responses evicted by the deadline sweep",
		}),
		idAllocFails: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tchannel",
			Name:      "id_allocation_failures_total",
			Help:      "outbound call submissions that failed to allocate a frame id",
		}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tchannel",
			Name:      "connections_open",
			Help:      "connections currently past the init handshake",
		}),
	}
	reg.MustRegister(
		c.callsStarted, c.callsFinished, c.callDuration,
		c.framesTotal, c.bytesTotal, c.timeouts, c.idAllocFails, c.connections,
	)
	return c
}

// ObserveCallStart implements channel.MetricsHook.
func (c *Collector) ObserveCallStart(direction string) {
	c.callsStarted.WithLabelValues(direction).Inc()
}

// ObserveCallFinish implements channel.MetricsHook.
func (c *Collector) ObserveCallFinish(direction, code string, d time.Duration) {
	c.callsFinished.WithLabelValues(direction, code).Inc()
	c.callDuration.WithLabelValues(direction).Observe(float64(d) / float64(time.Millisecond))
}

// ObserveFrame implements channel.MetricsHook.
func (c *Collector) ObserveFrame(direction, frameType string, size int) {
	c.framesTotal.WithLabelValues(direction, frameType).Inc()
	c.bytesTotal.WithLabelValues(direction).Add(float64(size))
}

// ObserveTimeout implements channel.MetricsHook.
func (c *Collector) ObserveTimeout() {
	c.timeouts.Inc()
}

// ObserveIDAllocFailure implements channel.MetricsHook.
func (c *Collector) ObserveIDAllocFailure() {
	c.idAllocFails.Inc()
}

// ConnectionOpened implements channel.MetricsHook.
func (c *Collector) ConnectionOpened() {
	c.connections.Inc()
}

// ConnectionClosed implements channel.MetricsHook.
func (c *Collector) ConnectionClosed() {
	c.connections.Dec()
}

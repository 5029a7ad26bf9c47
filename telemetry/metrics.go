// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/axle-run/axle/axerr"
)

// Metrics collects Prometheus instrumentation for the DAG scheduler and the
// agent turn-loop. It is entirely optional: the core never constructs one,
// callers wire it in at the edges (dag.Scheduler, agent.Agent) the same way
// they wire in a trace.Tracer.
type Metrics struct {
	registry *prometheus.Registry

	nodesInFlight   prometheus.Gauge
	nodeDuration    *prometheus.HistogramVec
	nodeErrors      *prometheus.CounterVec
	stagesCompleted prometheus.Counter

	agentTurns     *prometheus.CounterVec
	agentTurnDur   *prometheus.HistogramVec
	toolCalls      *prometheus.CounterVec
	toolErrors     *prometheus.CounterVec
	tokensInput    *prometheus.CounterVec
	tokensOutput   *prometheus.CounterVec
}

// NewMetrics builds a fresh registry and registers every collector.
func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.nodesInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "axle", Subsystem: "dag", Name: "nodes_in_flight",
		Help: "Number of DAG node executions currently running.",
	})
	m.nodeDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "axle", Subsystem: "dag", Name: "node_duration_seconds",
		Help:    "Wall-clock duration of one DAG node's full step list.",
		Buckets: prometheus.DefBuckets,
	}, []string{"node"})
	m.nodeErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "axle", Subsystem: "dag", Name: "node_errors_total",
		Help: "DAG node executions that ended in error, by error kind.",
	}, []string{"node", "kind"})
	m.stagesCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "axle", Subsystem: "dag", Name: "stages_completed_total",
		Help: "Number of DAG stages that finished executing.",
	})

	m.agentTurns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "axle", Subsystem: "agent", Name: "turns_total",
		Help: "Agent turn-loop iterations, by terminal finish reason.",
	}, []string{"finish_reason"})
	m.agentTurnDur = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "axle", Subsystem: "agent", Name: "turn_duration_seconds",
		Help:    "Duration of one model generation call within a turn.",
		Buckets: prometheus.DefBuckets,
	}, []string{"model"})
	m.toolCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "axle", Subsystem: "agent", Name: "tool_calls_total",
		Help: "Tool invocations issued by the agent loop, by tool name.",
	}, []string{"tool"})
	m.toolErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "axle", Subsystem: "agent", Name: "tool_errors_total",
		Help: "Tool invocations that returned an error, by tool name.",
	}, []string{"tool"})
	m.tokensInput = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "axle", Subsystem: "llm", Name: "input_tokens_total",
		Help: "Cumulative input tokens billed, by model.",
	}, []string{"model"})
	m.tokensOutput = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "axle", Subsystem: "llm", Name: "output_tokens_total",
		Help: "Cumulative output tokens billed, by model.",
	}, []string{"model"})

	m.registry.MustRegister(
		m.nodesInFlight, m.nodeDuration, m.nodeErrors, m.stagesCompleted,
		m.agentTurns, m.agentTurnDur, m.toolCalls, m.toolErrors,
		m.tokensInput, m.tokensOutput,
	)
	return m
}

// Handler exposes the registry in the Prometheus text exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// NodeStarted increments the in-flight gauge; callers defer the returned
// func to record duration and decrement the gauge when the node finishes.
func (m *Metrics) NodeStarted(nodeID string) func(err error) {
	if m == nil {
		return func(error) {}
	}
	m.nodesInFlight.Inc()
	start := time.Now()
	return func(err error) {
		m.nodesInFlight.Dec()
		m.nodeDuration.WithLabelValues(nodeID).Observe(time.Since(start).Seconds())
		if err != nil {
			kind := "unknown"
			if k, ok := axerr.KindOf(err); ok {
				kind = string(k)
			}
			m.nodeErrors.WithLabelValues(nodeID, kind).Inc()
		}
	}
}

// StageCompleted records one finished DAG stage.
func (m *Metrics) StageCompleted() {
	if m == nil {
		return
	}
	m.stagesCompleted.Inc()
}

// RecordTurn records one agent turn-loop iteration's model call.
func (m *Metrics) RecordTurn(model string, finishReason string, dur time.Duration, inputTokens, outputTokens int) {
	if m == nil {
		return
	}
	m.agentTurns.WithLabelValues(finishReason).Inc()
	m.agentTurnDur.WithLabelValues(model).Observe(dur.Seconds())
	m.tokensInput.WithLabelValues(model).Add(float64(inputTokens))
	m.tokensOutput.WithLabelValues(model).Add(float64(outputTokens))
}

// RecordToolCall records one tool invocation and whether it errored.
func (m *Metrics) RecordToolCall(toolName string, err error) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(toolName).Inc()
	if err != nil {
		m.toolErrors.WithLabelValues(toolName).Inc()
	}
}

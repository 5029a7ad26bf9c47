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

// Package telemetry wires the trace.Tracer contract to a real
// OpenTelemetry backend, and provides a parallel Prometheus metrics
// recorder. Neither is required by the core: both are optional concerns,
// set as the Tracer and Metrics fields of agent.Agent and dag.Scheduler.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/axle-run/axle/trace"
)

// Config controls how the OpenTelemetry tracer provider is constructed.
type Config struct {
	Enabled      bool
	ServiceName  string
	SamplingRate float64
	PrettyPrint  bool
}

// InitGlobalTracerProvider configures otel's global TracerProvider from cfg.
// When cfg.Enabled is false the otel SDK's default no-op provider is left in
// place and callers should use trace.Noop() for the core contract instead.
func InitGlobalTracerProvider(ctx context.Context, cfg Config) (*sdktrace.TracerProvider, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	exporterOpts := []stdouttrace.Option{}
	if cfg.PrettyPrint {
		exporterOpts = append(exporterOpts, stdouttrace.WithPrettyPrint())
	}
	exporter, err := stdouttrace.New(exporterOpts...)
	if err != nil {
		return nil, fmt.Errorf("telemetry: new stdout exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)))
	if err != nil {
		return nil, fmt.Errorf("telemetry: build resource: %w", err)
	}

	sampler := sdktrace.TraceIDRatioBased(cfg.SamplingRate)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sampler),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp, nil
}

// otelTracer adapts an otel/trace.Tracer to the core trace.Tracer contract.
type otelTracer struct {
	inner oteltrace.Tracer
}

// NewTracer returns a trace.Tracer backed by the named otel tracer.
func NewTracer(name string) trace.Tracer {
	return otelTracer{inner: otel.Tracer(name)}
}

func (t otelTracer) Start(ctx context.Context, name string, kind trace.Kind) (context.Context, trace.Span) {
	childCtx, span := t.inner.Start(ctx, name, oteltrace.WithAttributes(
		attribute.String("axle.span.kind", string(kind)),
	))
	return childCtx, &otelSpan{tracer: t.inner, span: span}
}

type otelSpan struct {
	tracer oteltrace.Tracer
	span   oteltrace.Span
}

func (s *otelSpan) Start(ctx context.Context, name string, kind trace.Kind) (context.Context, trace.Span) {
	childCtx, span := s.tracer.Start(ctx, name, oteltrace.WithAttributes(
		attribute.String("axle.span.kind", string(kind)),
	))
	return childCtx, &otelSpan{tracer: s.tracer, span: span}
}

func (s *otelSpan) Event(name string, attrs map[string]any) {
	opts := make([]oteltrace.EventOption, 0, 1)
	if len(attrs) > 0 {
		kvs := make([]attribute.KeyValue, 0, len(attrs))
		for k, v := range attrs {
			kvs = append(kvs, attribute.String(k, fmt.Sprintf("%v", v)))
		}
		opts = append(opts, oteltrace.WithAttributes(kvs...))
	}
	s.span.AddEvent(name, opts...)
}

func (s *otelSpan) SetAttr(key string, value any) {
	s.span.SetAttributes(attribute.String(key, fmt.Sprintf("%v", value)))
}

func (s *otelSpan) End(status trace.Status) {
	if status == trace.StatusError {
		s.span.SetStatus(codes.Error, "error")
	} else {
		s.span.SetStatus(codes.Ok, "")
	}
	s.span.End()
}

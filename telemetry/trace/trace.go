//
// FinSight AI is pleased to support the open source community by making finsight available.
//
// Copyright (C) 2025 FinSight AI.  All rights reserved.
//
// finsight is licensed under the Apache License Version 2.0.
//
//

// Package trace provides distributed tracing for finsight. It integrates with
// OpenTelemetry; by default a noop tracer is installed so instrumented code
// carries no cost until Start is called.
package trace

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/finsight-ai/finsight"

// Protocol selects the OTLP transport.
type Protocol string

// Supported OTLP protocols.
const (
	ProtocolGRPC Protocol = "grpc"
	ProtocolHTTP Protocol = "http"
)

// TracerProvider is the global tracer provider for telemetry.
var TracerProvider trace.TracerProvider = noop.NewTracerProvider()

// Tracer is the global tracer instance for telemetry.
var Tracer trace.Tracer = TracerProvider.Tracer(instrumentationName)

type options struct {
	serviceName string
	endpoint    string
	protocol    Protocol
}

// Option configures Start.
type Option func(*options)

// WithServiceName sets the reported service name.
func WithServiceName(name string) Option {
	return func(o *options) { o.serviceName = name }
}

// WithEndpoint sets the OTLP traces endpoint.
func WithEndpoint(endpoint string) Option {
	return func(o *options) { o.endpoint = endpoint }
}

// WithProtocol sets the OTLP transport protocol ("grpc" or "http").
func WithProtocol(p Protocol) Option {
	return func(o *options) { o.protocol = p }
}

// Start installs an OTLP-exporting tracer provider as the process-wide
// default. The returned clean function flushes and shuts the provider down.
func Start(ctx context.Context, opts ...Option) (func() error, error) {
	o := &options{
		serviceName: "finsight",
		protocol:    ProtocolGRPC,
	}
	for _, opt := range opts {
		opt(o)
	}

	exporter, err := newExporter(ctx, o)
	if err != nil {
		return nil, fmt.Errorf("create otlp trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(o.serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("create trace resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	TracerProvider = provider
	Tracer = provider.Tracer(instrumentationName)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	return func() error {
		return provider.Shutdown(context.Background())
	}, nil
}

func newExporter(ctx context.Context, o *options) (sdktrace.SpanExporter, error) {
	switch o.protocol {
	case ProtocolHTTP:
		var opts []otlptracehttp.Option
		if o.endpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpoint(o.endpoint), otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	default:
		var opts []otlptracegrpc.Option
		if o.endpoint != "" {
			opts = append(opts, otlptracegrpc.WithEndpoint(o.endpoint), otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, opts...)
	}
}

// Package telemetry wires OpenTelemetry tracing and metrics for notesd.
//
// Spans and OTel metrics are exported over OTLP (gRPC or HTTP) to a
// collector. Telemetry is disabled by default; enable it in the
// observability section:
//
//	observability:
//	  enable_telemetry: true
//	  otlp_endpoint: "localhost:4317"
//	  otlp_protocol: grpc
//	  sample_rate: 0.25
//
// New installs the providers as OpenTelemetry globals, so packages that
// call otel.Tracer or otel.Meter (notes, enhance, http) pick them up.
// If an exporter cannot be created the instance is marked degraded and
// notesd keeps running.
//
// Tests use NewTestTelemetry, which records spans and metrics in memory:
//
//	tt := telemetry.NewTestTelemetry()
//	tt.Install(t)
//	// ... exercise code ...
//	tt.AssertSpanExists(t, "notes.create")
package telemetry

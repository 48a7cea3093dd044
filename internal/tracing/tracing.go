// Package tracing provides OpenTelemetry tracing for editor bindings.
//
// It exports spans for editor creation, input emission and teardown. The
// trace ID is derived from the binding ID so every span of one binding
// lands in the same trace.
package tracing

import (
	"cmp"
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation name of every span.
const TracerName = "editorbind"

// Protocol selects the OTLP transport.
type Protocol string

const (
	ProtocolGRPC Protocol = "grpc"
	ProtocolHTTP Protocol = "http"
)

// Config holds the configuration for tracing.
type Config struct {
	// Endpoint is the OTLP collector address, e.g. "localhost:4317".
	Endpoint string `yaml:"endpoint"`
	// Protocol is "grpc" (default) or "http".
	Protocol    Protocol `yaml:"protocol"`
	ServiceName string   `yaml:"service_name"`
	// ServiceVersion is filled in by the app from the build version.
	ServiceVersion string `yaml:"-"`
	// Insecure disables TLS.
	Insecure bool `yaml:"insecure"`
	// RecordPreview attaches the first bytes of each emitted document to
	// input spans. Off by default since documents may hold private text.
	RecordPreview bool `yaml:"record_preview"`
}

// previewLen bounds the editor.preview attribute in bytes.
const previewLen = 200

type provider struct {
	sdk           *sdktrace.TracerProvider
	tracer        trace.Tracer
	recordPreview bool
}

var (
	active   atomic.Pointer[provider]
	initOnce sync.Once
)

// Init sets up the global tracer. An empty endpoint leaves tracing disabled.
// Only the first call has any effect.
func Init(cfg Config) error {
	var err error
	initOnce.Do(func() {
		if cfg.Endpoint == "" {
			slog.Debug("Tracing disabled: no endpoint configured")
			return
		}
		err = start(cfg)
	})
	return err
}

func start(cfg Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		slog.Warn("Failed to create OTLP exporter", "protocol", cfg.Protocol, "error", err)
		return err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(newResource(cfg)),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	install(tp, cfg)

	slog.Info("Tracing initialized", "endpoint", cfg.Endpoint, "protocol", cmp.Or(cfg.Protocol, ProtocolGRPC))
	return nil
}

func install(tp *sdktrace.TracerProvider, cfg Config) {
	active.Store(&provider{
		sdk:           tp,
		tracer:        tp.Tracer(TracerName),
		recordPreview: cfg.RecordPreview,
	})
}

func newResource(cfg Config) *resource.Resource {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cmp.Or(cfg.ServiceName, TracerName)),
		semconv.ServiceVersion(cmp.Or(cfg.ServiceVersion, "unknown")),
		attribute.String("host.name", hostname()),
	)
}

func newExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	switch cfg.Protocol {
	case "", ProtocolGRPC:
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, opts...)
	case ProtocolHTTP:
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unknown tracing protocol %q", cfg.Protocol)
	}
}

// Shutdown flushes pending spans and disables tracing.
func Shutdown(ctx context.Context) error {
	p := active.Swap(nil)
	if p == nil {
		return nil
	}
	return p.sdk.Shutdown(ctx)
}

// Enabled reports whether spans are exported.
func Enabled() bool {
	return active.Load() != nil
}

// Span wraps an optional span. All methods are no-ops when tracing is
// disabled.
type Span struct {
	span trace.Span
	ctx  context.Context
}

// End ends the span.
func (s *Span) End() {
	if s.span != nil {
		s.span.End()
	}
}

// SetError records err on the span.
func (s *Span) SetError(err error) {
	if s.span != nil && err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	}
}

// SetAttributes sets additional attributes on the span.
func (s *Span) SetAttributes(attrs ...attribute.KeyValue) {
	if s.span != nil {
		s.span.SetAttributes(attrs...)
	}
}

// Context returns the context carrying the span.
func (s *Span) Context() context.Context {
	return s.ctx
}

// bindingContext roots ctx in the trace derived from bindingID.
func bindingContext(ctx context.Context, bindingID string) context.Context {
	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    deriveTraceID(bindingID),
		SpanID:     trace.SpanID{},
		TraceFlags: trace.FlagsSampled,
	})
	return trace.ContextWithSpanContext(ctx, spanCtx)
}

func startSpan(ctx context.Context, bindingID, name string, attrs ...attribute.KeyValue) *Span {
	p := active.Load()
	if p == nil {
		return &Span{ctx: ctx}
	}

	attrs = append(attrs, attribute.String("binding.id", bindingID))
	ctx, span := p.tracer.Start(bindingContext(ctx, bindingID), name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	return &Span{span: span, ctx: ctx}
}

// StartCreate starts a span around editor creation.
func StartCreate(ctx context.Context, bindingID string, initialBytes int) *Span {
	return startSpan(ctx, bindingID, "editor.create",
		attribute.Int("editor.initial_bytes", initialBytes),
	)
}

// StartDestroy starts a span around editor teardown.
func StartDestroy(ctx context.Context, bindingID string) *Span {
	return startSpan(ctx, bindingID, "editor.destroy")
}

// RecordInput records a single debounced input emission. The document
// itself is only attached when RecordPreview is set.
func RecordInput(ctx context.Context, bindingID string, version uint64, data string) {
	attrs := []attribute.KeyValue{
		attribute.Int64("editor.version", int64(version)),
		attribute.Int("editor.bytes", len(data)),
	}
	if p := active.Load(); p != nil && p.recordPreview {
		attrs = append(attrs, attribute.String("editor.preview", truncate(data, previewLen)))
	}
	startSpan(ctx, bindingID, "editor.input", attrs...).End()
}

// deriveTraceID creates a deterministic trace ID from a binding ID.
func deriveTraceID(id string) trace.TraceID {
	var traceID trace.TraceID

	// A UUID without hyphens is a valid 16-byte trace ID.
	cleaned := strings.ReplaceAll(id, "-", "")
	if len(cleaned) == 32 {
		if decoded, err := hex.DecodeString(cleaned); err == nil && len(decoded) == 16 {
			copy(traceID[:], decoded)
			return traceID
		}
	}

	hash := make([]byte, 16)
	for i, c := range []byte(id) {
		hash[i%16] ^= c
	}
	copy(traceID[:], hash)

	return traceID
}

// hostname returns the hostname or a default value.
func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}

// truncate cuts s to at most maxLen bytes without splitting a rune.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	for maxLen > 0 && !utf8.RuneStart(s[maxLen]) {
		maxLen--
	}
	return s[:maxLen] + "..."
}

package observe

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// OperationMeta identifies an instrumented store operation for telemetry.
type OperationMeta struct {
	Namespace string // Owner of the operation, e.g. "Cache" (may be empty)
	Name      string // Operation name, e.g. "store" (required)
	Backend   string // Backing store kind, e.g. "redis" (optional)
}

// ParseOperationID splits an operation identity of the form
// "<namespace>.<name>" at its last dot. An identity without a dot is a bare
// name.
func ParseOperationID(id string) OperationMeta {
	i := strings.LastIndexByte(id, '.')
	if i < 0 {
		return OperationMeta{Name: id}
	}
	return OperationMeta{Namespace: id[:i], Name: id[i+1:]}
}

// ID returns the fully qualified operation identity.
func (m OperationMeta) ID() string {
	if m.Namespace != "" {
		return m.Namespace + "." + m.Name
	}
	return m.Name
}

// SpanName returns the deterministic span name for this operation.
// Format: cache.op.<namespace>.<name> or cache.op.<name>
func (m OperationMeta) SpanName() string {
	return "cache.op." + m.ID()
}

// Validate reports whether the metadata names an operation.
func (m OperationMeta) Validate() error {
	if m.Name == "" {
		return ErrMissingOperationName
	}
	return nil
}

func (m OperationMeta) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("op.id", m.ID()),
		attribute.String("op.name", m.Name),
	}
	if m.Namespace != "" {
		attrs = append(attrs, attribute.String("op.namespace", m.Namespace))
	}
	if m.Backend != "" {
		attrs = append(attrs, attribute.String("op.backend", m.Backend))
	}
	return attrs
}

// Tracer wraps OpenTelemetry tracing with operation-scoped span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for an operation.
	StartSpan(ctx context.Context, meta OperationMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, meta OperationMeta) (context.Context, trace.Span) {
	attrs := append(meta.attributes(), attribute.Bool("op.error", false))

	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("op.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

type noopTracer struct {
	noop trace.Tracer
}

func newNoopTracer() Tracer {
	return &noopTracer{noop: tracenoop.NewTracerProvider().Tracer("noop")}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta OperationMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, _ error) {
	span.End()
}

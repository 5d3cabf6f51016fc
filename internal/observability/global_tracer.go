package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var globalTracer trace.Tracer

// InitGlobalTracer initializes the global tracer for the application.
func InitGlobalTracer() {
	globalTracer = otel.Tracer("examprep")
}

// GetGlobalTracer returns the global tracer instance for the application.
func GetGlobalTracer() trace.Tracer {
	if globalTracer == nil {
		globalTracer = otel.Tracer("examprep")
	}
	return globalTracer
}

// TraceFunction starts a new span with a descriptive name for the given service and function.
func TraceFunction(ctx context.Context, serviceName, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := GetGlobalTracer()
	spanName := fmt.Sprintf("%s.%s", serviceName, functionName)
	return tracer.Start(ctx, spanName, trace.WithAttributes(attributes...))
}

// FinishSpan ends a span, recording the error pointed to by errPtr when one
// is set. Pair it with a named error return:
//
//	defer observability.FinishSpan(span, &err)
func FinishSpan(span trace.Span, errPtr *error) {
	if span == nil {
		return
	}
	if errPtr != nil && *errPtr != nil {
		span.RecordError(*errPtr, trace.WithStackTrace(true))
		span.SetStatus(codes.Error, (*errPtr).Error())
	}
	span.End()
}

// TraceUpstreamFunction starts a new span for an upstream client function.
func TraceUpstreamFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "upstream", functionName, attributes...)
}

// TraceExamFunction starts a new span for an exam pipeline function.
func TraceExamFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "exam", functionName, attributes...)
}

// TraceLimiterFunction starts a new span for an admission gate function.
func TraceLimiterFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "ratelimit", functionName, attributes...)
}

// TraceHandlerFunction starts a new span for a handler function.
func TraceHandlerFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "handler", functionName, attributes...)
}

// TraceDatabaseFunction starts a new span for a database function.
func TraceDatabaseFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "database", functionName, attributes...)
}

// AttributeExamType returns a tracing attribute for an exam type.
func AttributeExamType(examType string) attribute.KeyValue {
	return attribute.String("exam.type", examType)
}

// AttributeSubject returns a tracing attribute for a subject.
func AttributeSubject(subject string) attribute.KeyValue {
	return attribute.String("exam.subject", subject)
}

// AttributeTaskKind returns a tracing attribute for a generation task kind.
func AttributeTaskKind(kind string) attribute.KeyValue {
	return attribute.String("task.kind", kind)
}

// AttributeClientIP returns a tracing attribute for the client address.
func AttributeClientIP(ip string) attribute.KeyValue {
	return attribute.String("client.ip", ip)
}

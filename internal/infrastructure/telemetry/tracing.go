// Package telemetry provides OpenTelemetry integration for distributed tracing.
// This file holds the helpers application services use for business-level spans.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the tracer name business spans are created under
const TracerName = "agencydesk-backend"

// Attribute keys shared between the payment and automation spans
const (
	SpanAttrAgencyID      = "agency_id"
	SpanAttrInstallmentID = "installment_id"
	SpanAttrPlanID        = "plan_id"
	SpanAttrAmount        = "amount"
	SpanAttrJobRunID      = "job_run_id"
)

// StartServiceSpan opens an internal span named {service}.{method}, the
// convention the application layer uses. Initial attributes are given as
// alternating key/value pairs, the same shape SetAttributes takes:
//
//	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "record",
//	    telemetry.SpanAttrAgencyID, agencyID.String(),
//	)
//	defer span.End()
func StartServiceSpan(ctx context.Context, service, method string, keyValues ...interface{}) (context.Context, trace.Span) {
	opts := []trace.SpanStartOption{trace.WithSpanKind(trace.SpanKindInternal)}
	if attrs := pairsToAttributes(keyValues); len(attrs) > 0 {
		opts = append(opts, trace.WithAttributes(attrs...))
	}

	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, service+"."+method, opts...)
}

// SetAttributes adds key-value pairs to an existing span. Keys must be
// strings; a pair with a non-string key is skipped.
//
//	telemetry.SetAttributes(span,
//	    telemetry.SpanAttrInstallmentID, installmentID.String(),
//	    telemetry.SpanAttrAmount, amount.StringFixed(2),
//	)
func SetAttributes(span trace.Span, keyValues ...interface{}) {
	if span == nil {
		return
	}
	span.SetAttributes(pairsToAttributes(keyValues)...)
}

// RecordError records the error on the span and marks its status as errored.
//
//	if err := s.planRepo.Save(ctx, plan); err != nil {
//	    telemetry.RecordError(span, err)
//	    return nil, err
//	}
func RecordError(span trace.Span, err error, opts ...trace.EventOption) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err, opts...)
	span.SetStatus(codes.Error, err.Error())
}

func pairsToAttributes(keyValues []interface{}) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(keyValues)/2)
	for i := 0; i+1 < len(keyValues); i += 2 {
		key, ok := keyValues[i].(string)
		if !ok {
			continue
		}
		attrs = append(attrs, toAttribute(key, keyValues[i+1]))
	}
	return attrs
}

func toAttribute(key string, value interface{}) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case bool:
		return attribute.Bool(key, v)
	case fmt.Stringer:
		return attribute.String(key, v.String())
	default:
		return attribute.String(key, fmt.Sprintf("%v", v))
	}
}

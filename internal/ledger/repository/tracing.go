package repository

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tair/produce-ledger/internal/ledger/domain"
)

var tracer = otel.Tracer("ledger-repository")

// startSpan opens a repository span tagged with the partition.
func startSpan(ctx context.Context, name string, p domain.PartitionKey, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("ledger.partition", string(p)))
	return tracer.Start(ctx, "repository."+name, trace.WithAttributes(attrs...))
}

// endSpan records err on the span and closes it. Not-found results are
// expected outcomes and leave the span status unset.
func endSpan(span trace.Span, err error) {
	if err != nil && !domain.IsNotFound(err) {
		span.RecordError(err)
		if errors.Is(err, domain.ErrConflict) {
			span.SetStatus(codes.Error, "write conflict")
		} else {
			span.SetStatus(codes.Error, fmt.Sprintf("database error: %v", err))
		}
	}
	span.End()
}

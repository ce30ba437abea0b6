// Copyright (c) 2023 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package common

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const (
	traceIdLogField = "traceID"
	tracerName      = "casino-retention"
)

// Scope carries the span of one pipeline chain and a logger tagged with its
// trace and actor.
type Scope struct {
	Ctx     context.Context
	TraceID string
	Log     *log.Entry
	span    oteltrace.Span
}

// StartScope opens a chain span for actorID under whatever span ctx carries.
func StartScope(ctx context.Context, name string, actorID int) *Scope {
	tracerCtx, span := otel.Tracer(tracerName).Start(ctx, name,
		oteltrace.WithAttributes(attribute.Int("actor_id", actorID)))
	traceID := span.SpanContext().TraceID().String()

	return &Scope{
		Ctx:     tracerCtx,
		TraceID: traceID,
		Log:     log.WithFields(log.Fields{traceIdLogField: traceID, "actor_id": actorID}),
		span:    span,
	}
}

// Stage marks the chain entering a pipeline stage.
func (s *Scope) Stage(stage string) {
	s.span.AddEvent("stage", oteltrace.WithAttributes(attribute.String("stage", stage)))
}

// Tag sets a string attribute on the span.
func (s *Scope) Tag(key, value string) {
	s.span.SetAttributes(attribute.String(key, value))
}

// Fail records err on the span and returns it unchanged. Invariant
// violations are tagged so they can be filtered from ordinary failures.
func (s *Scope) Fail(err error) error {
	if err == nil {
		return nil
	}
	invariant := errors.Is(err, ErrInvariantViolation)
	s.span.RecordError(err)
	s.span.SetAttributes(attribute.Bool("invariant", invariant))
	s.span.SetStatus(codes.Error, err.Error())
	if invariant {
		s.Log.WithError(err).Error("chain stopped on invariant violation")
	}
	return err
}

// Finish ends the span.
func (s *Scope) Finish() {
	s.span.End()
}

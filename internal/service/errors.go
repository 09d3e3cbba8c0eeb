package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var ErrForbidden = fmt.Errorf("forbidden: insufficient permissions: %w", domain.ErrAccessDenied)

// failure passes caller-facing errors through and turns everything else
// into the opaque ErrInternal after logging the cause.
type failure struct {
	log     *zap.Logger
	onFatal func(op string)
}

func (f failure) wrap(ctx context.Context, op string, err error, fields ...zap.Field) error {
	if err == nil {
		return nil
	}
	span := trace.SpanFromContext(ctx)
	if domain.IsKnown(err) {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, "internal error")

	if errors.Is(err, context.Canceled) {
		f.log.Warn(op+" cancelled", append(fields, zap.Error(err))...)
	} else {
		f.log.Error(op+" failed", append(fields, zap.Error(err))...)
	}
	if f.onFatal != nil {
		f.onFatal(op)
	}
	return domain.ErrInternal
}

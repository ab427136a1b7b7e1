package grpcsvc

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// toStatus переводит доменную ошибку в gRPC-статус. Внутренние ошибки
// логируются, клиенту уходит только общий текст.
func toStatus(err error, logger *log.Entry, op string) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}

	switch domain.KindOf(err) {
	case domain.KindInvalidState, domain.KindInsufficientStock:
		return status.Error(codes.FailedPrecondition, err.Error())
	case domain.KindNotFound:
		return status.Error(codes.NotFound, err.Error())
	case domain.KindValidation:
		return status.Error(codes.InvalidArgument, err.Error())
	case domain.KindConflict:
		return status.Error(codes.Aborted, err.Error())
	}

	logger.WithError(err).WithField("operation", op).Error("fulfillment call failed")
	return status.Error(codes.Internal, "internal error")
}

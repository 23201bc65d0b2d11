package handler

import (
	"context"
	"errors"

	"github.com/ogurasousui/dp-roster-sync/internal/core/audit"
	"github.com/ogurasousui/dp-roster-sync/internal/core/snapshot"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func toStatusError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, audit.ErrInvalidDatasetKey),
		errors.Is(err, audit.ErrInvalidLimit),
		errors.Is(err, snapshot.ErrInvalidReferenceDate),
		errors.Is(err, snapshot.ErrNoReferenceDates):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

package snapshot

import "errors"

var (
	ErrInvalidReferenceDate = errors.New("snapshot: invalid reference date")
	ErrInvalidCompanyID     = errors.New("snapshot: invalid company id")
	ErrInvalidEmployeeCode  = errors.New("snapshot: invalid employee code")
	ErrNoReferenceDates     = errors.New("snapshot: no reference dates given")
)

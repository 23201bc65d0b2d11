package audit

import "errors"

var (
	ErrInvalidDatasetKey = errors.New("audit: invalid dataset key")
	ErrInvalidLimit      = errors.New("audit: invalid limit")
)

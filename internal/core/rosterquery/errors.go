package rosterquery

import "errors"

var ErrInvalidConfig = errors.New("rosterquery: sync use case, repositories and audit log are required")

package rostersync

import "errors"

var (
	ErrInvalidConfig = errors.New("rostersync: snapshot repository, resumo repository, audit log and extractors are required")
	ErrNoKeyedRows   = errors.New("rostersync: extract returned rows but none carried company and employee code")
)

package audit

import (
	"context"
	"time"
)

// Log は同期監査ログの抽象です。
type Log interface {
	Record(ctx context.Context, datasetKey string, refDate time.Time, rowCount int, ok bool, message string) error
	LastSuccess(ctx context.Context, datasetKey string) (*time.Time, error)
	ListRecent(ctx context.Context, datasetKey string, limit int) ([]*Run, error)
}

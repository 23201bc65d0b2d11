package rostersync

import (
	"context"
	"time"

	"github.com/ogurasousui/dp-roster-sync/internal/core/leave"
	"github.com/ogurasousui/dp-roster-sync/internal/core/snapshot"
)

// RosterExtractor は参照月時点の quadro de funcionários を抽出元から読み出します。
type RosterExtractor interface {
	ExtractRoster(ctx context.Context, refDate time.Time) ([]snapshot.RawRow, error)
}

// LeaveExtractor は参照月時点で afastado の社員を抽出元から読み出します。
type LeaveExtractor interface {
	ExtractLeaves(ctx context.Context, refDate time.Time) ([]leave.Row, error)
}

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

// Recorder は参照月ごとの同期結果を計測します。
type Recorder interface {
	ObserveWindow(dataset string, status Status, rows int, elapsed time.Duration)
}

type noopRecorder struct{}

func (noopRecorder) ObserveWindow(string, Status, int, time.Duration) {}

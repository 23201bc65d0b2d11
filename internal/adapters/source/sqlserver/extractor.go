package sqlserver

import (
	"context"
	"fmt"
	"time"

	"github.com/ogurasousui/dp-roster-sync/internal/core/leave"
	"github.com/ogurasousui/dp-roster-sync/internal/core/snapshot"
)

// QueryExecutor は読み取り専用のテンプレート実行を提供します。
type QueryExecutor interface {
	ExecuteReadOnlyQuery(ctx context.Context, query string, refDate time.Time) ([]Row, error)
}

// RosterExtractor は RM から参照月時点の quadro を抽出します。
type RosterExtractor struct {
	exec  QueryExecutor
	query string
}

// NewRosterExtractor は RosterExtractor を生成します。
func NewRosterExtractor(exec QueryExecutor, query string) *RosterExtractor {
	return &RosterExtractor{exec: exec, query: query}
}

// ExtractRoster は参照月の quadro を生の行として返します。
func (x *RosterExtractor) ExtractRoster(ctx context.Context, refDate time.Time) ([]snapshot.RawRow, error) {
	rows, err := x.exec.ExecuteReadOnlyQuery(ctx, x.query, refDate)
	if err != nil {
		return nil, fmt.Errorf("extract roster %s: %w", snapshot.FormatDate(refDate), err)
	}
	out := make([]snapshot.RawRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, snapshot.RawRow(r))
	}
	return out, nil
}

// LeaveExtractor は RM から参照月時点の afastados を抽出します。
type LeaveExtractor struct {
	exec  QueryExecutor
	query string
}

// NewLeaveExtractor は LeaveExtractor を生成します。
func NewLeaveExtractor(exec QueryExecutor, query string) *LeaveExtractor {
	return &LeaveExtractor{exec: exec, query: query}
}

// ExtractLeaves は参照月に afastado の社員を 1 人 1 行で返します。
func (x *LeaveExtractor) ExtractLeaves(ctx context.Context, refDate time.Time) ([]leave.Row, error) {
	rows, err := x.exec.ExecuteReadOnlyQuery(ctx, x.query, refDate)
	if err != nil {
		return nil, fmt.Errorf("extract leaves %s: %w", snapshot.FormatDate(refDate), err)
	}
	out := make([]leave.Row, 0, len(rows))
	for _, r := range rows {
		out = append(out, leave.MapRow(r))
	}
	return out, nil
}

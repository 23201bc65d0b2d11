package snapshot

import (
	"context"
	"time"
)

// Repository はスナップショット永続化の抽象です。
type Repository interface {
	Exists(ctx context.Context, refDate time.Time) (bool, error)
	Upsert(ctx context.Context, refDate time.Time, records []*Record) (int, error)
	ListByReferenceDate(ctx context.Context, refDate time.Time) ([]*Record, error)
	ListByReferenceDates(ctx context.Context, refDates []time.Time) ([]*Record, error)
	CountBySituation(ctx context.Context, refDates []time.Time) ([]SituationCount, error)
}

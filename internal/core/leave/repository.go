package leave

import (
	"context"
	"time"
)

// ResumoRepository は afastados 集計の永続化の抽象です。
type ResumoRepository interface {
	Exists(ctx context.Context, refDate time.Time) (bool, error)
	Upsert(ctx context.Context, resumo *Resumo) error
	ListByReferenceDates(ctx context.Context, refDates []time.Time) ([]*Resumo, error)
}

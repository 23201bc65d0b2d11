package scheduler

import (
	"context"

	"github.com/ogurasousui/dp-roster-sync/internal/core/rostersync"
	"go.uber.org/zap"
)

// NewSyncJob は 4 参照月の quadro と afastados 集計を強制的に再同期する Job を返します。
func NewSyncJob(uc rostersync.UseCase, log *zap.Logger) Job {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("sync-job")

	return func(ctx context.Context) {
		roster := uc.EnsureSnapshots(ctx, true)
		logResult(log, "roster", roster)

		afastados := uc.EnsureAfastadosResumo(ctx, true)
		logResult(log, "afastados", afastados)
	}
}

func logResult(log *zap.Logger, dataset string, res rostersync.Result) {
	fields := []zap.Field{
		zap.String("dataset", dataset),
		zap.Int("processed", res.Processed),
		zap.Any("stats", res.Stats),
	}
	if failed := res.Failed(); len(failed) > 0 {
		log.Warn("scheduled sync finished with errors", append(fields, zap.Strings("failed", failed))...)
		return
	}
	log.Info("scheduled sync finished", fields...)
}

package rosterquery

import (
	"context"
	"fmt"
	"time"

	"github.com/ogurasousui/dp-roster-sync/internal/core/snapshot"
	"go.uber.org/zap"
)

// afastadosTier は参照月ごとの afastados を 1 つの保存先から読み出します。
// 値を持たない参照月は結果のマップに含めません。
type afastadosTier func(ctx context.Context, refDates []time.Time) (map[string]AfastadosEntry, error)

// resolveAfastados は primary を優先し、primary に無い参照月のみ secondary で補います。
// primary の失敗は警告に留め、全参照月を secondary で解決します。
func resolveAfastados(ctx context.Context, refDates []time.Time, log *zap.Logger, primary, secondary afastadosTier) ([]AfastadosEntry, error) {
	found, err := primary(ctx, refDates)
	if err != nil {
		log.Warn("afastados resumo unavailable, counting snapshots instead", zap.Error(err))
		found = nil
	}

	var missing []time.Time
	for _, d := range refDates {
		if _, ok := found[snapshot.FormatDate(d)]; !ok {
			missing = append(missing, d)
		}
	}

	var fallback map[string]AfastadosEntry
	if len(missing) > 0 {
		fallback, err = secondary(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("rosterquery: afastados fallback: %w", err)
		}
	}

	entries := make([]AfastadosEntry, 0, len(refDates))
	for _, d := range refDates {
		key := snapshot.FormatDate(d)
		if e, ok := found[key]; ok {
			entries = append(entries, e)
			continue
		}
		e, ok := fallback[key]
		if !ok {
			e = AfastadosEntry{RefDate: d, Source: SourceSnapshot}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *Service) resumoTier(ctx context.Context, refDates []time.Time) (map[string]AfastadosEntry, error) {
	resumos, err := s.resumos.ListByReferenceDates(ctx, refDates)
	if err != nil {
		return nil, err
	}
	out := make(map[string]AfastadosEntry, len(resumos))
	for _, r := range resumos {
		inss, apInvalidez := r.INSS, r.APInvalidez
		out[snapshot.FormatDate(r.RefDate)] = AfastadosEntry{
			RefDate:     r.RefDate,
			Source:      SourceResumo,
			INSS:        &inss,
			APInvalidez: &apInvalidez,
			Total:       r.Total,
		}
	}
	return out, nil
}

func (s *Service) snapshotTier(ctx context.Context, refDates []time.Time) (map[string]AfastadosEntry, error) {
	counts, err := s.snapshots.CountBySituation(ctx, refDates)
	if err != nil {
		return nil, err
	}
	out := make(map[string]AfastadosEntry, len(refDates))
	for _, c := range counts {
		if c.Situation != string(snapshot.SituationOnLeave) {
			continue
		}
		key := snapshot.FormatDate(c.RefDate)
		e := out[key]
		e.RefDate = c.RefDate
		e.Source = SourceSnapshot
		e.Total += c.Count
		out[key] = e
	}
	return out, nil
}

package handler

import (
	"fmt"
	"sort"
	"time"

	"github.com/ogurasousui/dp-roster-sync/internal/core/audit"
	"github.com/ogurasousui/dp-roster-sync/internal/core/rosterquery"
	"github.com/ogurasousui/dp-roster-sync/internal/core/rostersync"
	"github.com/ogurasousui/dp-roster-sync/internal/core/snapshot"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const dateLayout = "2006-01-02"

func toStruct(m map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	return s, nil
}

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func optDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatDate(*t)
}

func optTimestamp(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func optString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func optInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func optDecimal(d decimal.NullDecimal) any {
	if !d.Valid {
		return nil
	}
	return d.Decimal.String()
}

func encodeSyncResult(res rostersync.Result) map[string]any {
	dates := make([]string, 0, len(res.Stats))
	for date := range res.Stats {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	stats := make(map[string]any, len(res.Stats))
	for _, date := range dates {
		st := res.Stats[date]
		entry := map[string]any{
			"status": string(st.Status),
			"rows":   st.Rows,
		}
		if st.Message != "" {
			entry["message"] = st.Message
		}
		stats[date] = entry
	}

	failed := make([]any, 0)
	for _, date := range res.Failed() {
		failed = append(failed, date)
	}

	return map[string]any{
		"processed": res.Processed,
		"stats":     stats,
		"failed":    failed,
	}
}

func encodeRecord(r *snapshot.Record) map[string]any {
	var situation any
	if r.Situation != nil {
		situation = string(*r.Situation)
	}
	return map[string]any{
		"company_id":       r.CompanyID,
		"employee_code":    r.EmployeeCode,
		"ref_date":         formatDate(r.RefDate),
		"chapa":            optString(r.Chapa),
		"badge":            optString(r.Badge),
		"name":             optString(r.Name),
		"cpf":              optString(r.CPF),
		"function":         optString(r.Function),
		"department":       optString(r.Department),
		"area":             optString(r.Area),
		"city":             optString(r.City),
		"admission_date":   optDate(r.AdmissionDate),
		"situation":        situation,
		"base_salary":      optDecimal(r.BaseSalary),
		"aux_salary":       optDecimal(r.AuxSalary),
		"termination_date": optDate(r.TerminationAt),
		"settlement_date":  optDate(r.SettlementAt),
		"age_years":        optInt(r.AgeYears),
		"tenure_days":      optInt(r.TenureDays),
		"tenure_years":     optInt(r.TenureYears),
		"synced_at":        r.SyncedAt.UTC().Format(time.RFC3339),
	}
}

func encodeRoster(res *rosterquery.RosterResult) map[string]any {
	records := make([]any, 0, len(res.Records))
	for _, r := range res.Records {
		if r == nil {
			continue
		}
		records = append(records, encodeRecord(r))
	}
	return map[string]any{
		"ref_date":       formatDate(res.RefDate),
		"last_synced_at": optTimestamp(res.LastSyncedAt),
		"total":          len(records),
		"records":        records,
		"sync":           encodeSyncResult(res.Sync),
	}
}

func encodeResumo(res *rosterquery.ResumoResult) map[string]any {
	groups := make([]any, 0, len(res.Groups))
	for _, g := range res.Groups {
		groups = append(groups, map[string]any{
			"ref_date":   formatDate(g.RefDate),
			"label":      g.Label,
			"department": g.Department,
			"area":       g.Area,
			"situation":  g.Situation,
			"count":      g.Count,
		})
	}
	return map[string]any{
		"last_synced_at": optTimestamp(res.LastSyncedAt),
		"groups":         groups,
	}
}

func encodeTurnover(res *rosterquery.TurnoverResult) map[string]any {
	entries := make([]any, 0, len(res.Entries))
	for _, e := range res.Entries {
		entries = append(entries, map[string]any{
			"ref_date":   formatDate(e.RefDate),
			"label":      e.Label,
			"admitted":   e.Admitted,
			"terminated": e.Terminated,
		})
	}
	return map[string]any{
		"last_synced_at": optTimestamp(res.LastSyncedAt),
		"entries":        entries,
	}
}

func encodeAfastados(res *rosterquery.AfastadosResult) map[string]any {
	entries := make([]any, 0, len(res.Entries))
	for _, e := range res.Entries {
		entries = append(entries, map[string]any{
			"ref_date":     formatDate(e.RefDate),
			"label":        e.Label,
			"source":       string(e.Source),
			"inss":         optInt(e.INSS),
			"ap_invalidez": optInt(e.APInvalidez),
			"total":        e.Total,
		})
	}
	return map[string]any{
		"last_synced_at": optTimestamp(res.LastSyncedAt),
		"entries":        entries,
	}
}

func encodeCategories(res *rosterquery.CategoryResult) map[string]any {
	categories := make([]any, 0, len(res.Categories))
	for _, c := range res.Categories {
		categories = append(categories, map[string]any{
			"category": string(c.Category),
			"count":    c.Count,
		})
	}
	return map[string]any{
		"ref_date":   formatDate(res.RefDate),
		"total":      res.Total,
		"categories": categories,
	}
}

func encodeRuns(runs []*audit.Run) map[string]any {
	items := make([]any, 0, len(runs))
	for _, r := range runs {
		if r == nil {
			continue
		}
		items = append(items, map[string]any{
			"id":          r.ID,
			"dataset_key": r.DatasetKey,
			"ref_date":    formatDate(r.RefDate),
			"row_count":   r.RowCount,
			"ok":          r.OK,
			"message":     optString(r.Message),
			"created_at":  r.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return map[string]any{"runs": items}
}

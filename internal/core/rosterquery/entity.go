package rosterquery

import (
	"time"

	"github.com/ogurasousui/dp-roster-sync/internal/core/rostersync"
	"github.com/ogurasousui/dp-roster-sync/internal/core/snapshot"
)

// 表示順での参照月ラベルです。
const (
	LabelM0  = "m0"
	LabelM1  = "m1"
	LabelM2  = "m2"
	LabelM12 = "m12"
)

// RosterResult は当月の quadro です。
type RosterResult struct {
	RefDate      time.Time
	Records      []*snapshot.Record
	LastSyncedAt *time.Time
	Sync         rostersync.Result
}

// ResumoGroup は (参照月, 部署, エリア, 状態) ごとの人数です。
type ResumoGroup struct {
	RefDate    time.Time
	Label      string
	Department string
	Area       string
	Situation  string
	Count      int
}

// ResumoResult は 4 参照月分の部署別集計です。
type ResumoResult struct {
	Groups       []ResumoGroup
	LastSyncedAt *time.Time
}

// TurnoverEntry は参照月ごとの入退社件数です。
// Admitted は状態 A の人数を入社数の代替指標として用います。
type TurnoverEntry struct {
	RefDate    time.Time
	Label      string
	Admitted   int
	Terminated int
}

// TurnoverResult は [m2, m1, m0, m12] 順の turnover です。
type TurnoverResult struct {
	Entries      []TurnoverEntry
	LastSyncedAt *time.Time
}

// AfastadosSource は afastados の値をどの読み出し段から得たかを表します。
type AfastadosSource string

const (
	SourceResumo   AfastadosSource = "resumo"
	SourceSnapshot AfastadosSource = "snapshot"
)

// AfastadosEntry は参照月ごとの afastados 件数です。
// Source が snapshot の場合、INSS と APInvalidez は不明のため nil になります。
type AfastadosEntry struct {
	RefDate     time.Time
	Label       string
	Source      AfastadosSource
	INSS        *int
	APInvalidez *int
	Total       int
}

// AfastadosResult は [m2, m1, m0, m12] 順の afastados です。
type AfastadosResult struct {
	Entries      []AfastadosEntry
	LastSyncedAt *time.Time
}

// CategoryCount はカテゴリごとの在籍者数です。
type CategoryCount struct {
	Category Category
	Count    int
}

// CategoryResult は当月の在籍者カテゴリ別集計です。
type CategoryResult struct {
	RefDate    time.Time
	Categories []CategoryCount
	Total      int
}

package audit

import "time"

// データセットキーは同期パイプラインを識別します。
const (
	DatasetRoster          = "dp_funcionarios"
	DatasetAfastadosResumo = "dp_afastados_resumo"
)

// Run は同期試行 1 回分の監査記録です。追記のみで更新されません。
type Run struct {
	ID         string
	DatasetKey string
	RefDate    time.Time
	RowCount   int
	OK         bool
	Message    *string
	CreatedAt  time.Time
}

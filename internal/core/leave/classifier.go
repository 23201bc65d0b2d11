package leave

import "github.com/ogurasousui/dp-roster-sync/internal/platform/textnorm"

var (
	invalidezTokens = []string{"INVALIDEZ"}
	inssTokens      = []string{"INSS", "AUXILIO", "PREVIDENCIARIO", "ACIDENTE DE TRABALHO"}
)

// Classify は afastamento の理由テキストを分類します。
// INVALIDEZ を含むものを優先し、該当しないテキストは OTHER になります。
func Classify(reason string) Category {
	text := textnorm.Fold(reason)
	switch {
	case text == "":
		return CategoryOther
	case textnorm.ContainsAny(text, invalidezTokens...):
		return CategoryAPInvalidez
	case textnorm.ContainsAny(text, inssTokens...):
		return CategoryINSS
	default:
		return CategoryOther
	}
}

// Summarize は抽出行を分類し、参照月の集計を生成します。
func Summarize(rows []Row) Resumo {
	var r Resumo
	for _, row := range rows {
		r.Add(Classify(row.Reason))
	}
	return r
}

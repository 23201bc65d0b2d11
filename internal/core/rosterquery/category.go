package rosterquery

import "github.com/ogurasousui/dp-roster-sync/internal/platform/textnorm"

// Category は在籍者の区分です。
type Category string

const (
	CategoryOperacao      Category = "OPERACAO"
	CategoryManutencao    Category = "MANUTENCAO"
	CategoryAdministracao Category = "ADMINISTRACAO"
	CategoryAprendiz      Category = "APRENDIZ"
)

// Categories は集計結果の固定表示順です。
var Categories = []Category{CategoryOperacao, CategoryManutencao, CategoryAdministracao, CategoryAprendiz}

var (
	aprendizTokens   = []string{"APRENDIZ", "JOVEM APRENDIZ"}
	operacaoTokens   = []string{"MOTORISTA", "COBRADOR", "FISCAL", "DESPACHANTE", "TRAFEGO", "OPERACAO", "PLANTONISTA", "MANOBRISTA", "INSPETOR"}
	manutencaoTokens = []string{"MANUTENCAO", "MECANIC", "ELETRICISTA", "FUNILEIR", "BORRACHEIR", "LANTERNEIR", "SOLDADOR", "ALMOXARIF", "LAVADOR"}
)

// Categorize は職務と部署から区分を決定します。職務の判定を部署より優先します。
func Categorize(function, department string) Category {
	fn := textnorm.Fold(function)
	dept := textnorm.Fold(department)

	if textnorm.ContainsAny(fn, aprendizTokens...) {
		return CategoryAprendiz
	}
	for _, field := range []string{fn, dept} {
		switch {
		case textnorm.ContainsAny(field, operacaoTokens...):
			return CategoryOperacao
		case textnorm.ContainsAny(field, manutencaoTokens...):
			return CategoryManutencao
		}
	}
	return CategoryAdministracao
}

package sqlserver

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

//go:embed queries/roster.sql
var defaultRosterQuery string

//go:embed queries/leaves.sql
var defaultLeaveQuery string

// ErrUnsafeQuery は読み取り専用とみなせない SQL テンプレートです。
var ErrUnsafeQuery = errors.New("sqlserver: query template must be a single read-only SELECT bound to @ref_date")

var (
	lineComment  = regexp.MustCompile(`--[^\n]*`)
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	writeKeyword = regexp.MustCompile(`(?i)\b(INSERT|UPDATE|DELETE|MERGE|DROP|ALTER|CREATE|TRUNCATE|EXEC|EXECUTE|GRANT|REVOKE|INTO)\b`)
)

// Queries は抽出に使う SQL テンプレートです。
type Queries struct {
	Roster string
	Leaves string
}

// LoadQueries は組み込みのテンプレートを返します。パスが指定された場合はファイルの内容で置き換えます。
func LoadQueries(rosterFile, leaveFile string) (Queries, error) {
	q := Queries{Roster: defaultRosterQuery, Leaves: defaultLeaveQuery}

	if rosterFile != "" {
		b, err := os.ReadFile(rosterFile)
		if err != nil {
			return Queries{}, fmt.Errorf("sqlserver: read roster query %s: %w", rosterFile, err)
		}
		q.Roster = string(b)
	}
	if leaveFile != "" {
		b, err := os.ReadFile(leaveFile)
		if err != nil {
			return Queries{}, fmt.Errorf("sqlserver: read leave query %s: %w", leaveFile, err)
		}
		q.Leaves = string(b)
	}

	if err := ValidateReadOnly(q.Roster); err != nil {
		return Queries{}, fmt.Errorf("roster: %w", err)
	}
	if err := ValidateReadOnly(q.Leaves); err != nil {
		return Queries{}, fmt.Errorf("leaves: %w", err)
	}
	return q, nil
}

// ValidateReadOnly はテンプレートが @ref_date を参照する SELECT 文のみであることを確認します。
func ValidateReadOnly(query string) error {
	body := blockComment.ReplaceAllString(query, " ")
	body = lineComment.ReplaceAllString(body, " ")
	body = strings.TrimSpace(body)
	body = strings.TrimSuffix(body, ";")

	upper := strings.ToUpper(body)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return ErrUnsafeQuery
	}
	if strings.Contains(body, ";") {
		return ErrUnsafeQuery
	}
	if writeKeyword.MatchString(body) {
		return ErrUnsafeQuery
	}
	if !strings.Contains(strings.ToLower(body), "@"+refDateParam) {
		return ErrUnsafeQuery
	}
	return nil
}

package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold は文字列を大文字化し、アクセント記号を取り除いて返します。
// 比較用の正規化であり、表示用途には使用しません。
func Fold(s string) string {
	if s == "" {
		return ""
	}

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}

	return strings.ToUpper(strings.Join(strings.Fields(stripped), " "))
}

// ContainsAny は正規化済みの text がいずれかのトークンを含むかを判定します。
func ContainsAny(text string, tokens ...string) bool {
	for _, token := range tokens {
		if token != "" && strings.Contains(text, token) {
			return true
		}
	}
	return false
}

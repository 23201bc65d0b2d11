// Package rowconv は抽出元の汎用行 (map[string]any) から型付きの値を取り出すヘルパーです。
// いずれの関数も失敗時は nil を返し、panic しません。
package rowconv

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// String は空白を除去した文字列を返します。空文字は nil になります。
func String(v any) *string {
	var s string
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		s = x
	case []byte:
		s = string(x)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		s = strconv.FormatInt(toInt64(x), 10)
	case float32:
		s = strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		s = strconv.FormatFloat(x, 'f', -1, 64)
	case decimal.Decimal:
		s = x.String()
	case time.Time:
		s = x.Format(time.RFC3339)
	case *string:
		if x == nil {
			return nil
		}
		s = *x
	default:
		return nil
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Int は整数値を返します。小数は切り捨てます。
func Int(v any) *int {
	var n int64
	switch x := v.(type) {
	case nil:
		return nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		n = toInt64(x)
	case float32:
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return nil
		}
		n = int64(x)
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
		n = int64(x)
	case decimal.Decimal:
		n = x.IntPart()
	case string, []byte:
		s := String(x)
		if s == nil {
			return nil
		}
		d, err := decimal.NewFromString(strings.ReplaceAll(*s, ",", "."))
		if err != nil {
			return nil
		}
		n = d.IntPart()
	default:
		return nil
	}

	out := int(n)
	return &out
}

// Date は日付部分のみを UTC で返します。
func Date(v any) *time.Time {
	var t time.Time
	switch x := v.(type) {
	case nil:
		return nil
	case time.Time:
		t = x
	case *time.Time:
		if x == nil {
			return nil
		}
		t = *x
	case string, []byte:
		s := String(x)
		if s == nil {
			return nil
		}
		parsed, ok := parseTime(*s)
		if !ok {
			return nil
		}
		t = parsed
	default:
		return nil
	}

	if t.IsZero() {
		return nil
	}
	date := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &date
}

// Decimal は金額などの数値を decimal で返します。
func Decimal(v any) decimal.NullDecimal {
	switch x := v.(type) {
	case nil:
		return decimal.NullDecimal{}
	case decimal.Decimal:
		return decimal.NullDecimal{Decimal: x, Valid: true}
	case float32:
		return decimal.NullDecimal{Decimal: decimal.NewFromFloat32(x), Valid: true}
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.NullDecimal{}
		}
		return decimal.NullDecimal{Decimal: decimal.NewFromFloat(x), Valid: true}
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return decimal.NullDecimal{Decimal: decimal.NewFromInt(toInt64(x)), Valid: true}
	case string, []byte:
		s := String(x)
		if s == nil {
			return decimal.NullDecimal{}
		}
		d, err := decimal.NewFromString(strings.ReplaceAll(*s, ",", "."))
		if err != nil {
			return decimal.NullDecimal{}
		}
		return decimal.NullDecimal{Decimal: d, Valid: true}
	default:
		return decimal.NullDecimal{}
	}
}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func toInt64(v any) int64 {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	case uint:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		if x > math.MaxInt64 {
			return math.MaxInt64
		}
		return int64(x)
	default:
		return 0
	}
}

package suite

import (
	"encoding/json"
	"fmt"
	"math/big"
	"slices"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
)

// numericPlaces is the precision numbers are compared at.
const numericPlaces = 6

// number is the canonical text of a numeric cell, rounded to numericPlaces
// without trailing zeros.
type number string

func newNumber(d decimal.Decimal) number {
	return number(d.Round(numericPlaces).String())
}

// normalize turns a numeric cell into a number and anything else into its
// string form.
func normalize(v any) any {
	switch n := v.(type) {
	case nil:
		return nil
	case decimal.Decimal:
		return newNumber(n)
	case int:
		return newNumber(decimal.NewFromInt(int64(n)))
	case int8:
		return newNumber(decimal.NewFromInt(int64(n)))
	case int16:
		return newNumber(decimal.NewFromInt(int64(n)))
	case int32:
		return newNumber(decimal.NewFromInt32(n))
	case int64:
		return newNumber(decimal.NewFromInt(n))
	case uint:
		return newNumber(decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(n)), 0))
	case uint32:
		return newNumber(decimal.NewFromInt(int64(n)))
	case uint64:
		return newNumber(decimal.NewFromBigInt(new(big.Int).SetUint64(n), 0))
	case float32:
		return newNumber(decimal.NewFromFloat32(n))
	case float64:
		return newNumber(decimal.NewFromFloat(n))
	case *big.Int:
		return newNumber(decimal.NewFromBigInt(n, 0))
	case json.Number:
		return normalize(n.String())
	case []byte:
		return normalize(string(n))
	case string:
		if d, err := decimal.NewFromString(strings.TrimSpace(n)); err == nil {
			return newNumber(d)
		}
		return n
	default:
		return fmt.Sprint(v)
	}
}

func normalizeRows(rows [][]any) [][]any {
	out := make([][]any, len(rows))
	for i, row := range rows {
		out[i] = make([]any, len(row))
		for j, v := range row {
			out[i][j] = normalize(v)
		}
	}
	slices.SortFunc(out, func(a, b []any) int {
		return strings.Compare(rowKey(a), rowKey(b))
	})
	return out
}

func rowKey(row []any) string {
	parts := make([]string, len(row))
	for i, v := range row {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, "\x00")
}

// CompareRows returns nil when actual holds exactly the rows of expected,
// in any order, and a diff otherwise.
func CompareRows(expected, actual [][]any) error {
	want, got := normalizeRows(expected), normalizeRows(actual)
	if diff := cmp.Diff(want, got); diff != "" {
		return fmt.Errorf("unexpected rows (-want +got):\n%s", diff)
	}
	return nil
}

package suite

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestCompareRows_DriverTypes(t *testing.T) {
	tests := []struct {
		name   string
		actual [][]any
	}{
		{"native", [][]any{{"COMPLETED", 2, 250.75}, {"PENDING", 2, 500.75}}},
		{"trino", [][]any{{"COMPLETED", int64(2), "250.75"}, {"PENDING", int64(2), "500.75"}}},
		{"snowflake", [][]any{{"COMPLETED", "2", "250.750000"}, {"PENDING", "2", "500.750000"}}},
		{"bytes", [][]any{{[]byte("COMPLETED"), []byte("2"), []byte("250.75")}, {"PENDING", uint64(2), json.Number("500.75")}}},
		{"decimal", [][]any{{"COMPLETED", big.NewInt(2), decimal.RequireFromString("250.75")}, {"PENDING", int32(2), float32(500.75)}}},
		{"unordered", [][]any{{"PENDING", 2, 500.75}, {"COMPLETED", 2, 250.75}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, CompareRows(ExpectedInitial, tt.actual))
		})
	}
}

func TestCompareRows_Mismatch(t *testing.T) {
	tests := []struct {
		name   string
		actual [][]any
	}{
		{"wrong total", [][]any{{"COMPLETED", 2, 250.76}, {"PENDING", 2, 500.75}}},
		{"wrong count", [][]any{{"COMPLETED", 3, 250.75}, {"PENDING", 2, 500.75}}},
		{"missing row", [][]any{{"COMPLETED", 2, 250.75}}},
		{"extra row", [][]any{{"COMPLETED", 2, 250.75}, {"PENDING", 2, 500.75}, {"CANCELLED", 1, 1}}},
		{"empty", [][]any{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CompareRows(ExpectedInitial, tt.actual)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "(-want +got)")
		})
	}
}

func TestCompareRows_NonNumericStrings(t *testing.T) {
	assert.NoError(t, CompareRows([][]any{{"a", nil}}, [][]any{{"a", nil}}))
	assert.Error(t, CompareRows([][]any{{"a"}}, [][]any{{"b"}}))
}

func TestCompareRows_OrderIndependent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		orders := rapid.SliceOfN(rapid.Custom(func(t *rapid.T) Order {
			return Order{
				OrderID:     rapid.Int64Range(1, 1_000_000).Draw(t, "id"),
				TotalAmount: float64(rapid.IntRange(0, 1_000_000).Draw(t, "cents")) / 100,
				Status:      rapid.SampledFrom([]string{"COMPLETED", "PENDING", "CANCELLED"}).Draw(t, "status"),
			}
		}), 0, 20).Draw(t, "orders")

		rows := Aggregate(orders)
		shuffled := rapid.Permutation(rows).Draw(t, "shuffled")
		if err := CompareRows(rows, shuffled); err != nil {
			t.Fatal(err)
		}
	})
}

package suite

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate_Seed(t *testing.T) {
	assert.NoError(t, CompareRows(ExpectedInitial, Aggregate(SeedOrders)))
}

func TestAggregate_AfterModify(t *testing.T) {
	modified := Complete(SeedOrders, ModifiedOrderID)
	assert.NoError(t, CompareRows(ExpectedModified, Aggregate(modified)))
	assert.Equal(t, "PENDING", SeedOrders[1].Status, "Complete copies")
}

func TestAggregate_DoubledSeed(t *testing.T) {
	doubled := append(append([]Order(nil), SeedOrders...), SeedOrders...)
	assert.NoError(t, CompareRows([][]any{{"COMPLETED", 4, 501.50}, {"PENDING", 4, 1001.50}}, Aggregate(doubled)))
}

func TestInsertSQL(t *testing.T) {
	want := "INSERT INTO iceberg_test.regression.customer_orders\n" +
		"VALUES\n" +
		"    (1, 1001, DATE '2024-01-01', 100.50, 'COMPLETED'),\n" +
		"    (1, 1002, DATE '2024-01-02', 200.75, 'PENDING'),\n" +
		"    (2, 1003, DATE '2024-01-03', 150.25, 'COMPLETED'),\n" +
		"    (2, 1004, DATE '2024-01-04', 300.00, 'PENDING')"
	assert.Equal(t, want, InsertSQL(TestTable, SeedOrders))
}

func TestStatementsTargetTable(t *testing.T) {
	assert.Contains(t, CreateTableSQL(TestTable), "CREATE TABLE iceberg_test.regression.customer_orders (")
	assert.Contains(t, CreateTableSQL(TestTable), "total_amount DECIMAL(10,2)")
	assert.Contains(t, VerifySQL(TestTable), "FROM iceberg_test.regression.customer_orders\nGROUP BY status\nORDER BY status")
	assert.Equal(t, "UPDATE iceberg_test.regression.customer_orders\nSET status = 'COMPLETED'\nWHERE order_id = 1002", UpdateSQL(TestTable, ModifiedOrderID))
}

func TestSchemaFields(t *testing.T) {
	s := Schema()
	require.Equal(t, 5, s.NumFields())
	f, ok := s.FindFieldByName("order_date")
	require.True(t, ok)
	assert.Equal(t, "date", f.Type.String())
}

func TestArrowTable(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	tbl := ArrowTable(mem, SeedOrders)
	defer tbl.Release()

	require.Equal(t, int64(4), tbl.NumRows())
	require.Equal(t, int64(5), tbl.NumCols())
	assert.Equal(t, "status", tbl.Schema().Field(4).Name)

	status := tbl.Column(4).Data().Chunk(0).(*array.String)
	assert.Equal(t, "PENDING", status.Value(3))
	amounts := tbl.Column(3).Data().Chunk(0).(*array.Float64)
	assert.InDelta(t, 200.75, amounts.Value(1), 1e-9)
}

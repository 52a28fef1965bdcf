package suite

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/iceberg-go"
	"github.com/shopspring/decimal"
)

const (
	// TestCatalog is the catalog name query engines expose the stack under.
	TestCatalog = "iceberg_test"
	// TestSchema is the namespace tables are queried in.
	TestSchema = TestCatalog + ".regression"
	// TestTableName is the unqualified table name.
	TestTableName = "customer_orders"
	// TestTable is the fully qualified table queried through the engine.
	TestTable = TestSchema + "." + TestTableName
)

// Order is one row of the customer orders fixture.
type Order struct {
	CustomerID  int64
	OrderID     int64
	OrderDate   time.Time
	TotalAmount float64
	Status      string
}

func day(d int) time.Time {
	return time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC)
}

// SeedOrders are the four rows every table starts with.
var SeedOrders = []Order{
	{CustomerID: 1, OrderID: 1001, OrderDate: day(1), TotalAmount: 100.50, Status: "COMPLETED"},
	{CustomerID: 1, OrderID: 1002, OrderDate: day(2), TotalAmount: 200.75, Status: "PENDING"},
	{CustomerID: 2, OrderID: 1003, OrderDate: day(3), TotalAmount: 150.25, Status: "COMPLETED"},
	{CustomerID: 2, OrderID: 1004, OrderDate: day(4), TotalAmount: 300.00, Status: "PENDING"},
}

// ModifiedOrderID is the order whose status the modify step completes.
const ModifiedOrderID = 1002

var (
	// ExpectedInitial is the verify query result over SeedOrders.
	ExpectedInitial = [][]any{{"COMPLETED", 2, 250.75}, {"PENDING", 2, 500.75}}
	// ExpectedModified is the verify query result after the modify step.
	ExpectedModified = [][]any{{"COMPLETED", 3, 451.50}, {"PENDING", 1, 300.00}}
)

// Aggregate computes the verify query over orders in memory, sorted by
// status. Amounts are summed as decimals.
func Aggregate(orders []Order) [][]any {
	type agg struct {
		count int
		total decimal.Decimal
	}
	byStatus := map[string]*agg{}
	var statuses []string
	for _, o := range orders {
		a, ok := byStatus[o.Status]
		if !ok {
			a = &agg{}
			byStatus[o.Status] = a
			statuses = append(statuses, o.Status)
		}
		a.count++
		a.total = a.total.Add(decimal.NewFromFloat(o.TotalAmount))
	}
	slices.Sort(statuses)

	rows := make([][]any, 0, len(statuses))
	for _, s := range statuses {
		total, _ := byStatus[s].total.Float64()
		rows = append(rows, []any{s, byStatus[s].count, total})
	}
	return rows
}

// Complete returns a copy of orders with orderID marked COMPLETED.
func Complete(orders []Order, orderID int64) []Order {
	out := make([]Order, len(orders))
	copy(out, orders)
	for i := range out {
		if out[i].OrderID == orderID {
			out[i].Status = "COMPLETED"
		}
	}
	return out
}

// Schema is the iceberg schema of the catalog-created table.
func Schema() *iceberg.Schema {
	return iceberg.NewSchema(0,
		iceberg.NestedField{ID: 1, Name: "customer_id", Type: iceberg.PrimitiveTypes.Int64},
		iceberg.NestedField{ID: 2, Name: "order_id", Type: iceberg.PrimitiveTypes.Int64},
		iceberg.NestedField{ID: 3, Name: "order_date", Type: iceberg.PrimitiveTypes.Date},
		iceberg.NestedField{ID: 4, Name: "total_amount", Type: iceberg.PrimitiveTypes.Float64},
		iceberg.NestedField{ID: 5, Name: "status", Type: iceberg.PrimitiveTypes.String},
	)
}

var arrowSchema = arrow.NewSchema([]arrow.Field{
	{Name: "customer_id", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
	{Name: "order_id", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
	{Name: "order_date", Type: arrow.FixedWidthTypes.Date32, Nullable: true},
	{Name: "total_amount", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: "status", Type: arrow.BinaryTypes.String, Nullable: true},
}, nil)

// ArrowTable builds an arrow table holding orders. The caller releases it.
func ArrowTable(mem memory.Allocator, orders []Order) arrow.Table {
	b := array.NewRecordBuilder(mem, arrowSchema)
	defer b.Release()

	for _, o := range orders {
		b.Field(0).(*array.Int64Builder).Append(o.CustomerID)
		b.Field(1).(*array.Int64Builder).Append(o.OrderID)
		b.Field(2).(*array.Date32Builder).Append(arrow.Date32FromTime(o.OrderDate))
		b.Field(3).(*array.Float64Builder).Append(o.TotalAmount)
		b.Field(4).(*array.StringBuilder).Append(o.Status)
	}

	rec := b.NewRecord()
	defer rec.Release()
	return array.NewTableFromRecords(arrowSchema, []arrow.Record{rec})
}

// CreateTableSQL is the engine DDL for the orders table.
func CreateTableSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE %s (
    customer_id BIGINT,
    order_id BIGINT,
    order_date DATE,
    total_amount DECIMAL(10,2),
    status VARCHAR
)`, table)
}

// InsertSQL inserts orders into table.
func InsertSQL(table string, orders []Order) string {
	values := make([]string, len(orders))
	for i, o := range orders {
		values[i] = fmt.Sprintf("    (%d, %d, DATE '%s', %s, '%s')",
			o.CustomerID, o.OrderID, o.OrderDate.Format(time.DateOnly),
			decimal.NewFromFloat(o.TotalAmount).StringFixed(2), o.Status)
	}
	return fmt.Sprintf("INSERT INTO %s\nVALUES\n%s", table, strings.Join(values, ",\n"))
}

// VerifySQL aggregates the orders table by status.
func VerifySQL(table string) string {
	return fmt.Sprintf(`SELECT status, COUNT(*) as count, SUM(total_amount) as total
FROM %s
GROUP BY status
ORDER BY status`, table)
}

// UpdateSQL completes one order.
func UpdateSQL(table string, orderID int64) string {
	return fmt.Sprintf(`UPDATE %s
SET status = 'COMPLETED'
WHERE order_id = %d`, table, orderID)
}

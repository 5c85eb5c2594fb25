package shared

import (
	"testing"

	"github.com/cevaris/ordered_map"
	"github.com/relloyd/batchetl/constants"
	"github.com/relloyd/batchetl/logger"
)

func newTestInsertGenerator(t *testing.T, dbType string) *SqlInsertTxtBatch {
	log := logger.NewLogger("batchetl", "info", false)
	d, err := GetDialect(dbType)
	if err != nil {
		t.Fatal(err)
	}
	cols := ordered_map.NewOrderedMap()
	cols.Set("order_id", "order_id")
	cols.Set("customer_id", "customer_id")
	cols.Set("freight", "freight")
	o, err := NewInsertGenerator(&SqlStatementGeneratorConfig{
		Log:          log,
		Dialect:      d,
		OutputSchema: "public",
		OutputTable:  "orders_final",
		TargetCols:   cols,
	})
	if err != nil {
		t.Fatal(err)
	}
	return o
}

func TestSqlInsertBatch(t *testing.T) {
	o := newTestInsertGenerator(t, constants.ConnectionTypePostgres)

	// Create new batch of values size 2.
	o.InitBatch(2)
	batchIsFull, err := o.AddValuesToBatch([]interface{}{int64(1), "ALFKI", 32.38}) // first row should succeed.
	if err != nil {
		t.Fatal(err)
	}
	if batchIsFull {
		t.Fatal("The batch should have room for another row.")
	}
	batchIsFull, err = o.AddValuesToBatch([]interface{}{int64(2), "ANATR", nil}) // second row should succeed.
	if err != nil {
		t.Fatal(err)
	}
	if !batchIsFull {
		t.Fatal("The batch *should* be full but it is not.")
	}
	if _, err = o.AddValuesToBatch([]interface{}{int64(3), "x", 1.0}); err == nil {
		t.Fatal("expected an error adding to a full batch")
	}
	expected := `insert into "public"."orders_final" ("order_id","customer_id","freight") values ($1, $2, $3), ($4, $5, $6)`
	if got := o.GetStatement(); got != expected {
		t.Fatalf("unexpected SQL:\nexpected = %v\ngot      = %v", expected, got)
	}
	if len(o.GetValues()) != 6 {
		t.Fatalf("expected 6 values; got %v", len(o.GetValues()))
	}

	// A short final batch regenerates the SQL.
	o.InitBatch(2)
	if _, err = o.AddValuesToBatch([]interface{}{int64(3), "ANTON", 1.5}); err != nil {
		t.Fatal(err)
	}
	expected = `insert into "public"."orders_final" ("order_id","customer_id","freight") values ($1, $2, $3)`
	if got := o.GetStatement(); got != expected {
		t.Fatalf("unexpected SQL:\nexpected = %v\ngot      = %v", expected, got)
	}

	// Wrong number of values.
	o.InitBatch(1)
	if _, err = o.AddValuesToBatch([]interface{}{"a", "b"}); err == nil {
		t.Fatal("There should have been an error. Incorrect number of values deliberately supplied in batch.")
	}
}

func TestSqlInsertBatchPlaceholders(t *testing.T) {
	cases := map[string]string{
		constants.ConnectionTypeSqlServer: `insert into [public].[orders_final] ([order_id],[customer_id],[freight]) values (@p1, @p2, @p3)`,
		constants.ConnectionTypeMySql:     "insert into `public`.`orders_final` (`order_id`,`customer_id`,`freight`) values (?, ?, ?)",
		constants.ConnectionTypeSqlite:    `insert into "orders_final" ("order_id","customer_id","freight") values (?, ?, ?)`,
	}
	for dbType, expected := range cases {
		o := newTestInsertGenerator(t, dbType)
		o.InitBatch(5)
		if _, err := o.AddValuesToBatch([]interface{}{1, 2, 3}); err != nil {
			t.Fatal(err)
		}
		if got := o.GetStatement(); got != expected {
			t.Fatalf("%v: unexpected SQL:\nexpected = %v\ngot      = %v", dbType, expected, got)
		}
	}
}

func TestNewInsertGeneratorRequiresColumns(t *testing.T) {
	d, _ := GetDialect(constants.ConnectionTypeSqlite)
	_, err := NewInsertGenerator(&SqlStatementGeneratorConfig{
		Log:         logger.NewLogger("batchetl", "info", false),
		Dialect:     d,
		OutputTable: "t",
		TargetCols:  ordered_map.NewOrderedMap(),
	})
	if err == nil {
		t.Fatal("expected an error without target columns")
	}
}

func TestMaxRowsPerBatch(t *testing.T) {
	d, _ := GetDialect(constants.ConnectionTypeSqlite)
	if got := MaxRowsPerBatch(d, 10, 500); got != 99 {
		t.Fatalf("expected 99 rows for 10 columns under 999 binds; got %v", got)
	}
	if got := MaxRowsPerBatch(d, 2000, 500); got != 1 {
		t.Fatalf("expected at least one row; got %v", got)
	}
	if got := MaxRowsPerBatch(d, 3, 0); got != 1 {
		t.Fatalf("expected 1 for a zero request; got %v", got)
	}
}

package rdbms

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/relloyd/batchetl/constants"
	"github.com/relloyd/batchetl/logger"
	"github.com/relloyd/batchetl/rdbms/shared"
	"github.com/relloyd/batchetl/stream"
)

func openTestSqlite(t *testing.T) shared.Connector {
	t.Helper()
	log := logger.NewLogger("batchetl", "error", false)
	db, err := OpenDbConnection(context.Background(), log, shared.DsnConnectionDetails{Dsn: "sqlite:" + filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func mustExec(t *testing.T, db shared.Connector, stmts ...string) {
	t.Helper()
	for _, s := range stmts {
		if _, err := db.ExecContext(context.Background(), s); err != nil {
			t.Fatalf("error executing %q: %v", s, err)
		}
	}
}

func TestListTablesAndQueryFrame(t *testing.T) {
	ctx := context.Background()
	log := logger.NewLogger("batchetl", "error", false)
	db := openTestSqlite(t)
	mustExec(t, db,
		"create table orders (order_id integer, customer_id text, freight real, order_date timestamp)",
		"insert into orders values (1, 'ALFKI', 32.38, '2024-06-01 10:00:00'), (2, 'ANATR', null, null)",
		"create table customers (customer_id text, company_name text)",
		"create view v_orders as select * from orders",
	)
	tables, err := ListTables(ctx, log, db, "public")
	if err != nil {
		t.Fatal(err)
	}
	if len(tables) != 2 || tables[0] != "customers" || tables[1] != "orders" {
		t.Fatalf("expected [customers orders]; got %v", tables)
	}
	f, err := QueryFrame(ctx, log, db, "select * from orders order by order_id")
	if err != nil {
		t.Fatal(err)
	}
	if f.NumRows() != 2 {
		t.Fatalf("expected 2 rows; got %v", f.NumRows())
	}
	expectedKinds := []stream.Kind{stream.KindInt64, stream.KindString, stream.KindFloat64, stream.KindTimestamp}
	for i, k := range expectedKinds {
		if f.Columns[i].Kind != k {
			t.Fatalf("column %v: expected kind %v; got %v", f.Columns[i].Name, k, f.Columns[i].Kind)
		}
	}
	if f.Rows[1][2] != nil {
		t.Fatalf("expected a null freight; got %v", f.Rows[1][2])
	}
	if f.Rows[0][0] != int64(1) {
		t.Fatalf("expected order_id 1; got %v (%T)", f.Rows[0][0], f.Rows[0][0])
	}
}

func TestReplaceTableIsIdempotent(t *testing.T) {
	ctx := context.Background()
	log := logger.NewLogger("batchetl", "error", false)
	db := openTestSqlite(t)
	ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	f := &stream.Frame{
		Columns: []stream.Column{
			{Name: "order_id", Kind: stream.KindInt64},
			{Name: "customer_id", Kind: stream.KindString},
			{Name: "shipped", Kind: stream.KindTimestamp},
		},
	}
	for i := 0; i < 250; i++ { // more rows than one batch allows with a small batch size
		f.Rows = append(f.Rows, []interface{}{int64(i), "C", ts})
	}
	for run := 0; run < 2; run++ {
		n, err := ReplaceTable(ctx, log, db, "", "orders_final", f, 100)
		if err != nil {
			t.Fatal(err)
		}
		if n != 250 {
			t.Fatalf("expected 250 rows inserted; got %v", n)
		}
	}
	got, err := QueryFrame(ctx, log, db, "select count(*) as n from orders_final")
	if err != nil {
		t.Fatal(err)
	}
	if got.Rows[0][0] != int64(250) {
		t.Fatalf("expected 250 rows after two replaces; got %v", got.Rows[0][0])
	}
}

func TestReplaceTableEmptyFrame(t *testing.T) {
	ctx := context.Background()
	log := logger.NewLogger("batchetl", "error", false)
	db := openTestSqlite(t)
	f := &stream.Frame{Columns: []stream.Column{{Name: "a", Kind: stream.KindString}}}
	n, err := ReplaceTable(ctx, log, db, "", "empty_final", f, 10)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("expected 0 rows; got %v", n)
	}
	tables, _ := ListTables(ctx, log, db, "")
	if len(tables) != 1 || tables[0] != "empty_final" {
		t.Fatalf("expected the empty table to exist; got %v", tables)
	}
}

func TestReplaceView(t *testing.T) {
	ctx := context.Background()
	log := logger.NewLogger("batchetl", "error", false)
	db := openTestSqlite(t)
	mustExec(t, db, "create table a (x integer)", "insert into a values (1), (2)")
	for run := 0; run < 2; run++ {
		if err := ReplaceView(ctx, log, db, "", "v", `select x from "a"`); err != nil {
			t.Fatal(err)
		}
	}
	f, err := QueryFrame(ctx, log, db, "select * from v")
	if err != nil {
		t.Fatal(err)
	}
	if f.NumRows() != 2 {
		t.Fatalf("expected 2 rows from the view; got %v", f.NumRows())
	}
}

func TestReplaceTableRollsBackOnInsertFailure(t *testing.T) {
	log := logger.NewLogger("batchetl", "error", false)
	sqlDb, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer sqlDb.Close()
	d, _ := shared.GetDialect(constants.ConnectionTypePostgres)
	db := &shared.DbConnection{DbSql: sqlDb, Dialect: d, DbType: constants.ConnectionTypePostgres}
	mock.ExpectBegin()
	mock.ExpectExec(`drop table if exists "public"."orders_final" cascade`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`create table "public"."orders_final"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`insert into "public"."orders_final"`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()
	f := &stream.Frame{
		Columns: []stream.Column{{Name: "order_id", Kind: stream.KindInt64}},
		Rows:    [][]interface{}{{int64(1)}},
	}
	if _, err = ReplaceTable(context.Background(), log, db, "public", "orders_final", f, 10); err == nil {
		t.Fatal("expected an error from the failed insert")
	}
	if err = mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

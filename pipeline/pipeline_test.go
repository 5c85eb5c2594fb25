package pipeline

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/relloyd/batchetl/aws/s3/mocks"
	"github.com/relloyd/batchetl/file"
	"github.com/relloyd/batchetl/logger"
	"github.com/relloyd/batchetl/rdbms"
	"github.com/relloyd/batchetl/rdbms/shared"
	"github.com/relloyd/batchetl/stream"
	tabledefinition "github.com/relloyd/batchetl/table-definition"
)

const testDate = "2024-06-01"

const orderDetailsCsv = `order_id,product_id,unit_price,quantity,discount
1,11,14.0,12,0
2,42,9.8,10,0.05
3,72,34.8,5,0
4,14,18.6,9,0
5,51,42.4,40,0.1
`

type testEnv struct {
	dir string
	dsn string
	cfg Config
}

// newTestEnv creates a SQLite source holding orders(5) and customers(3) plus a CSV of 5 order details.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	e := &testEnv{dir: dir, dsn: "sqlite:" + filepath.Join(dir, "northwind.db")}
	log := logger.NewLogger("batchetl", "error", false)
	db, err := rdbms.OpenDbConnection(context.Background(), log, shared.DsnConnectionDetails{Dsn: e.dsn})
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	for _, s := range []string{
		"create table orders (order_id integer, customer_id text, order_date timestamp, freight real)",
		`insert into orders values
			(1, 'ALFKI', '2024-05-30 09:00:00', 32.38),
			(2, 'ANATR', '2024-05-30 10:30:00', 11.61),
			(3, 'ALFKI', '2024-05-31 08:15:00', null),
			(4, 'BERGS', '2024-05-31 16:45:00', 41.34),
			(5, 'ANATR', '2024-06-01 11:00:00', 51.30)`,
		"create table customers (customer_id text, company_name text)",
		"insert into customers values ('ALFKI', 'Alfreds Futterkiste'), ('ANATR', 'Ana Trujillo'), ('BERGS', 'Berglunds snabbkop')",
	} {
		if _, err := db.ExecContext(context.Background(), s); err != nil {
			t.Fatalf("error executing %q: %v", s, err)
		}
	}
	csvPath := filepath.Join(dir, "order_details.csv")
	if err := os.WriteFile(csvPath, []byte(orderDetailsCsv), 0644); err != nil {
		t.Fatal(err)
	}
	e.cfg = Config{
		SourceDsn:    e.dsn,
		FlatFilePath: csvPath,
		LogicalDate:  testDate,
		Layout: file.Layout{
			DataDir:    filepath.Join(dir, "data"),
			ResultsDir: filepath.Join(dir, "results"),
		},
	}
	return e
}

func newTestBatchETL(t *testing.T, cfg Config) *BatchETL {
	t.Helper()
	b, err := New(cfg, logger.NewLogger("batchetl", "error", false))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func countRows(t *testing.T, b *BatchETL, table string) int {
	t.Helper()
	conn, err := b.targetConn(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	f, err := rdbms.QueryFrame(context.Background(), b.log, conn, "select count(*) from "+table)
	if err != nil {
		t.Fatal(err)
	}
	return int(f.Rows[0][0].(int64))
}

// assertFinalColumnsMatchSnapshots checks each <table>_final has exactly the columns of its snapshot.
func assertFinalColumnsMatchSnapshots(t *testing.T, b *BatchETL) {
	t.Helper()
	ctx := context.Background()
	conn, err := b.targetConn(ctx)
	if err != nil {
		t.Fatal(err)
	}
	l := b.cfg.Layout
	for table, path := range map[string]string{
		"orders":        l.RelationalSnapshot("orders", testDate),
		"customers":     l.RelationalSnapshot("customers", testDate),
		"order_details": l.FlatFileSnapshot(testDate),
	} {
		f, err := file.ReadSnapshot(b.log, path)
		if err != nil {
			t.Fatal(err)
		}
		def, err := tabledefinition.GetTableDefinition(ctx, b.log, conn, b.schemaFor(conn), table+"_final")
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(def.ColumnNames(), f.ColumnNames()) {
			t.Fatalf("%v_final columns %v do not match snapshot columns %v", table, def.ColumnNames(), f.ColumnNames())
		}
	}
}

// assertCsvValue compares one exported CSV field with the value the view returned.
func assertCsvValue(t *testing.T, col string, field string, v interface{}) {
	t.Helper()
	ok := false
	switch x := v.(type) {
	case nil:
		ok = field == ""
	case int64:
		n, err := strconv.ParseInt(field, 10, 64)
		ok = err == nil && n == x
	case float64:
		n, err := strconv.ParseFloat(field, 64)
		ok = err == nil && n == x
	case time.Time:
		ts, err := time.Parse("2006-01-02 15:04:05.999999", field)
		ok = err == nil && ts.Equal(x)
	default:
		ok = field == stream.ToString(x)
	}
	if !ok {
		t.Fatalf("column %v: CSV field %q does not match view value %v (%T)", col, field, v, v)
	}
}

// assertJsonValue compares one exported JSON value with the value the view returned.
func assertJsonValue(t *testing.T, col string, j interface{}, v interface{}) {
	t.Helper()
	ok := false
	switch x := v.(type) {
	case nil:
		ok = j == nil
	case int64:
		ok = j == float64(x)
	case float64:
		ok = j == x
	case time.Time:
		s, isString := j.(string)
		ts, err := time.Parse(time.RFC3339Nano, s)
		ok = isString && err == nil && ts.Equal(x)
	default:
		ok = j == stream.ToString(x)
	}
	if !ok {
		t.Fatalf("column %v: JSON value %v (%T) does not match view value %v (%T)", col, j, j, v, v)
	}
}

func TestNewValidatesConfig(t *testing.T) {
	log := logger.NewLogger("batchetl", "error", false)
	if _, err := New(Config{FlatFilePath: "x.csv", LogicalDate: testDate}, log); err == nil {
		t.Fatal("expected an error for a missing source connection")
	}
	if _, err := New(Config{SourceDsn: "sqlite:x.db", FlatFilePath: "x.csv", LogicalDate: "2024-13-01"}, log); err == nil {
		t.Fatal("expected an error for an invalid date")
	}
	b, err := New(Config{SourceDsn: "sqlite:x.db", FlatFilePath: "x.csv", LogicalDate: testDate}, log)
	if err != nil {
		t.Fatal(err)
	}
	cfg := b.Config()
	if cfg.TargetDsn != "sqlite:x.db" || cfg.View.Name != "orders_complete" || cfg.Layout.RelationalDir != "postgres" || cfg.BatchSize <= 0 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestEndToEnd(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	b := newTestBatchETL(t, e.cfg)

	if b.VerifyExtractionComplete() {
		t.Fatal("expected the gate to fail before extraction")
	}
	if err := b.ExtractRelational(ctx); err != nil {
		t.Fatal(err)
	}
	if b.VerifyExtractionComplete() {
		t.Fatal("expected the gate to fail without the flat file snapshot")
	}
	if err := b.ExtractFlatFile(ctx); err != nil {
		t.Fatal(err)
	}
	if !b.VerifyExtractionComplete() {
		t.Fatal("expected the gate to pass")
	}
	for _, p := range []string{
		"data/postgres/orders/2024-06-01/orders.parquet",
		"data/postgres/customers/2024-06-01/customers.parquet",
		"data/csv/2024-06-01/order_details.parquet",
	} {
		if _, err := os.Stat(filepath.Join(e.dir, p)); err != nil {
			t.Fatalf("expected snapshot %v: %v", p, err)
		}
	}

	for run := 0; run < 2; run++ { // reloading must replace, not append...
		if err := b.Reload(ctx); err != nil {
			t.Fatal(err)
		}
		for table, n := range map[string]int{"orders_final": 5, "customers_final": 3, "order_details_final": 5, "orders_complete": 5} {
			if got := countRows(t, b, table); got != n {
				t.Fatalf("run %v: expected %v rows in %v; got %v", run, n, table, got)
			}
		}
		assertFinalColumnsMatchSnapshots(t, b)
	}

	// Own outputs are not extracted on the next run.
	tables, err := b.DiscoverTables(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(tables, ",") != "customers,orders" {
		t.Fatalf("expected [customers orders]; got %v", tables)
	}

	if err := b.ExportResults(ctx); err != nil {
		t.Fatal(err)
	}
	conn, err := b.targetConn(ctx)
	if err != nil {
		t.Fatal(err)
	}
	view, err := rdbms.QueryFrame(ctx, b.log, conn, "select * from orders_complete")
	if err != nil {
		t.Fatal(err)
	}
	expectedHeader := "order_id,customer_id,order_date,freight,product_id,unit_price,quantity,discount"
	if strings.Join(view.ColumnNames(), ",") != expectedHeader {
		t.Fatalf("unexpected view columns: %v", view.ColumnNames())
	}
	fh, err := os.Open(filepath.Join(e.dir, "results", "orders_complete_2024-06-01.csv"))
	if err != nil {
		t.Fatal(err)
	}
	defer fh.Close()
	lines, err := csv.NewReader(fh).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != view.NumRows()+1 || strings.Join(lines[0], ",") != expectedHeader {
		t.Fatalf("unexpected CSV export: %v", lines)
	}
	for i, row := range view.Rows { // for each view row compare the CSV fields...
		for j, v := range row {
			assertCsvValue(t, view.Columns[j].Name, lines[i+1][j], v)
		}
	}
	data, err := os.ReadFile(filepath.Join(e.dir, "results", "orders_complete_2024-06-01.json"))
	if err != nil {
		t.Fatal(err)
	}
	var records []map[string]interface{}
	if err = json.Unmarshal(data, &records); err != nil {
		t.Fatal(err)
	}
	if len(records) != view.NumRows() {
		t.Fatalf("expected %v JSON records; got %v", view.NumRows(), len(records))
	}
	for i, row := range view.Rows { // for each view row compare the JSON record...
		if len(records[i]) != len(view.Columns) {
			t.Fatalf("expected %v keys in record %v; got %v", len(view.Columns), i, records[i])
		}
		for j, v := range row {
			c := view.Columns[j].Name
			jv, ok := records[i][c]
			if !ok {
				t.Fatalf("record %v is missing key %v", i, c)
			}
			assertJsonValue(t, c, jv, v)
		}
	}

	summary := b.Summary()
	if len(summary) == 0 || summary[0].StepName != "extract customers" || summary[0].TotalRows != 3 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestMissingFlatFileBlocksReload(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.cfg.FlatFilePath = filepath.Join(e.dir, "missing.csv")
	b := newTestBatchETL(t, e.cfg)

	if err := b.ExtractRelational(ctx); err != nil {
		t.Fatal(err)
	}
	err := b.ExtractFlatFile(ctx)
	if !IsKind(err, KindReadFailed) {
		t.Fatalf("expected %v; got %v", KindReadFailed, err)
	}
	if _, err := os.Stat(filepath.Join(e.dir, "data/postgres/orders/2024-06-01/orders.parquet")); err != nil {
		t.Fatal("expected the relational snapshot to be kept")
	}
	err = b.Reload(ctx)
	if !IsKind(err, KindPreconditionUnmet) {
		t.Fatalf("expected %v; got %v", KindPreconditionUnmet, err)
	}
	tables, err := b.DiscoverTables(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, tab := range tables {
		if strings.HasSuffix(tab, "_final") {
			t.Fatalf("reload must not write anything when the gate fails; found %v", tab)
		}
	}
}

func TestDiscoverTablesExcludes(t *testing.T) {
	e := newTestEnv(t)
	e.cfg.Exclude = []string{"customers"}
	b := newTestBatchETL(t, e.cfg)
	tables, err := b.DiscoverTables(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(tables) != 1 || tables[0] != "orders" {
		t.Fatalf("expected [orders]; got %v", tables)
	}
}

func TestDiscoverTablesUnreachable(t *testing.T) {
	e := newTestEnv(t)
	e.cfg.SourceDsn = "postgres://nobody@127.0.0.1:1/nowhere?connect_timeout=1"
	b := newTestBatchETL(t, e.cfg)
	_, err := b.DiscoverTables(context.Background())
	if !IsKind(err, KindCatalogUnreachable) {
		t.Fatalf("expected %v; got %v", KindCatalogUnreachable, err)
	}
}

func TestCreateCombinedViewMissingTables(t *testing.T) {
	e := newTestEnv(t)
	b := newTestBatchETL(t, e.cfg)
	err := b.CreateCombinedView(context.Background())
	if !IsKind(err, KindPreconditionUnmet) {
		t.Fatalf("expected %v; got %v", KindPreconditionUnmet, err)
	}
}

func TestPublishResults(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	b := newTestBatchETL(t, e.cfg)
	for _, p := range b.ExportFiles() {
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	m := mocks.NewMockBasicClient(ctrl)
	gomock.InOrder(
		m.EXPECT().BufferPut(gomock.Any(), "results/orders_complete_2024-06-01.csv", gomock.Any()).Return(nil),
		m.EXPECT().BufferPut(gomock.Any(), "results/orders_complete_2024-06-01.json", gomock.Any()).Return(nil),
	)
	if err := b.PublishResults(ctx, m); err != nil {
		t.Fatal(err)
	}
}

func TestPublishResultsMissingExport(t *testing.T) {
	e := newTestEnv(t)
	b := newTestBatchETL(t, e.cfg)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	m := mocks.NewMockBasicClient(ctrl) // no calls expected
	if err := b.PublishResults(context.Background(), m); !IsKind(err, KindWriteFailed) {
		t.Fatalf("expected %v; got %v", KindWriteFailed, err)
	}
}

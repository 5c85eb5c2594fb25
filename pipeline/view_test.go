package pipeline

import (
	"errors"
	"testing"

	"github.com/relloyd/batchetl/constants"
	"github.com/relloyd/batchetl/rdbms/shared"
)

func TestBuildViewSelect(t *testing.T) {
	d, err := shared.GetDialect(constants.ConnectionTypePostgres)
	if err != nil {
		t.Fatal(err)
	}
	in := viewInput{
		schema:     "public",
		leftTable:  "orders_final",
		rightTable: "order_details_final",
		rightAlias: "order_details",
		leftCols:   []string{"order_id", "status", "order_details_status"},
		rightCols:  []string{"ORDER_ID", "product_id", "Status"},
		joinKey:    "order_id",
	}
	got, err := buildViewSelect(d, in)
	if err != nil {
		t.Fatal(err)
	}
	expected := `select o."order_id", o."status", o."order_details_status", d."product_id", d."Status" as "order_details_Status_2" ` +
		`from "public"."orders_final" o inner join "public"."order_details_final" d on o."order_id" = d."ORDER_ID"`
	if got != expected {
		t.Fatalf("unexpected view SQL:\n got: %v\nwant: %v", got, expected)
	}
}

func TestBuildViewSelectMissingKey(t *testing.T) {
	d, err := shared.GetDialect(constants.ConnectionTypeSqlite)
	if err != nil {
		t.Fatal(err)
	}
	in := viewInput{
		leftTable:  "orders_final",
		rightTable: "order_details_final",
		rightAlias: "order_details",
		leftCols:   []string{"order_id"},
		rightCols:  []string{"product_id"},
		joinKey:    "order_id",
	}
	if _, err = buildViewSelect(d, in); err == nil {
		t.Fatal("expected an error when the join key is missing")
	}
}

var errTest = errors.New("boom")

func TestStepError(t *testing.T) {
	err := error(&StepError{Op: OpReload, Kind: KindPreconditionUnmet, Err: errTest})
	if !IsKind(err, KindPreconditionUnmet) || IsKind(err, KindReadFailed) {
		t.Fatalf("unexpected kind match for %v", err)
	}
	if err.Error() != "reload: precondition unmet: boom" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	err = &StepError{Op: OpExtractRelational, Kind: KindReadFailed, Table: "orders", Err: errTest}
	if err.Error() != "extract_relational orders: read failed: boom" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

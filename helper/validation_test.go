package helper

import (
	"strings"
	"testing"
)

func TestValidateStructIsPopulated(t *testing.T) {
	type nested struct {
		Path string `mandatory:"yes" errorTxt:"csv-path"`
	}
	type cfg struct {
		Conn   string `mandatory:"yes" errorTxt:"postgres-conn"`
		Date   string
		Nested nested
		Tables []string `mandatory:"yes" errorTxt:"ignored"`
	}
	err := ValidateStructIsPopulated(&cfg{})
	if err == nil {
		t.Fatal("expected an error for missing values")
	}
	if !strings.Contains(err.Error(), "postgres-conn") || !strings.Contains(err.Error(), "csv-path") {
		t.Fatalf("unexpected error text: %v", err)
	}
	if strings.Contains(err.Error(), "ignored") {
		t.Fatalf("slices should be ignored: %v", err)
	}
	if err = ValidateStructIsPopulated(cfg{Conn: "x", Nested: nested{Path: "y"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateLogicalDate(t *testing.T) {
	for _, d := range []string{"2024-06-01", "2024-02-29"} {
		if err := ValidateLogicalDate(d); err != nil {
			t.Fatalf("expected %v to be valid: %v", d, err)
		}
	}
	for _, d := range []string{"", "2024-6-1", "2023-02-29", "20240601", "2024-06-01T00:00:00Z"} {
		if err := ValidateLogicalDate(d); err == nil {
			t.Fatalf("expected %q to be invalid", d)
		}
	}
}

func TestValidateStep(t *testing.T) {
	for _, s := range []string{"extract", "load", "all"} {
		if err := ValidateStep(s); err != nil {
			t.Fatal(err)
		}
	}
	if err := ValidateStep("publish"); err == nil {
		t.Fatal("expected error for unknown step")
	}
}

func TestFlagNameToEnvVar(t *testing.T) {
	if got := FlagNameToEnvVar("csv-path"); got != "BATCHETL_CSV_PATH" {
		t.Fatalf("unexpected env var name: %v", got)
	}
}

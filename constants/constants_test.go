package constants

import (
	"regexp"
	"testing"
	"time"
)

func TestLogicalDateFormat(t *testing.T) {
	// Check that the global regexp can match a date formatted with LogicalDateFormat.
	re := regexp.MustCompile(LogicalDateRegex)
	d := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC).Format(LogicalDateFormat)
	if !re.MatchString(d) {
		t.Fatalf("Mismatch between LogicalDateFormat and regexp in constant LogicalDateRegex: %v", d)
	}
	if d != "2024-06-01" {
		t.Fatalf("unexpected logical date format: %v", d)
	}
}

func TestTimeFormat(t *testing.T) {
	// Check that a time zone component exists in the log time format.
	re := regexp.MustCompile("^.*0700$")
	if !re.MatchString(TimeFormatYearSecondsTZ) {
		t.Fatal("Unexpected time format - missing time zone component.")
	}
}

package helper

import (
	"strings"
)

// CsvToStringSliceTrimSpaces converts a string of the form 'f1, f2,f3' into a slice of values.
// Empty tokens are dropped.
func CsvToStringSliceTrimSpaces(s string) []string {
	retval := make([]string, 0)
	for _, t := range strings.Split(s, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			retval = append(retval, t)
		}
	}
	return retval
}

// StringsToCsv joins the strings by ","
func StringsToCsv(s []string) string {
	return strings.Join(s, ",")
}

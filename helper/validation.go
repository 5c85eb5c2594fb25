package helper

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/relloyd/batchetl/constants"
)

var reLogicalDate = regexp.MustCompile(constants.LogicalDateRegex)

// ValidateStructIsPopulated will check if any mandatory fields in cfg are missing.
// It uses struct tags to determine which fields are mandatory and the error text to fetch.
// The error text returned is just a list of the struct tags with key "errorTxt".
func ValidateStructIsPopulated(cfg interface{}) (err error) {
	errs := make([]string, 0)
	GetStructErrorTxt4UnsetFields(cfg, &errs)
	if len(errs) > 0 {
		err = fmt.Errorf("please supply values for %v", strings.Join(errs, ", "))
	}
	return
}

// GetStructErrorTxt4UnsetFields will reflect over interface i and build a slice containing error text strings for any
// exported struct fields that are their zero value and are tagged mandatory:"yes".
// Nested structs are walked; slices and maps are ignored.
func GetStructErrorTxt4UnsetFields(i interface{}, errTags *[]string) {
	val := reflect.ValueOf(i)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	typ := val.Type()
	for idx := 0; idx < val.NumField(); idx++ {
		sf := typ.Field(idx)
		if sf.PkgPath != "" { // unexported
			continue
		}
		f := val.Field(idx)
		switch f.Kind() {
		case reflect.Slice, reflect.Map:
			continue
		case reflect.Struct:
			if _, isTime := f.Interface().(time.Time); !isTime {
				GetStructErrorTxt4UnsetFields(f.Interface(), errTags)
				continue
			}
		}
		if sf.Tag.Get("mandatory") == "yes" && f.IsZero() {
			*errTags = append(*errTags, sf.Tag.Get("errorTxt"))
		}
	}
}

// ValidateLogicalDate checks that d is a real calendar day in YYYY-MM-DD form.
func ValidateLogicalDate(d string) error {
	if !reLogicalDate.MatchString(d) {
		return fmt.Errorf("invalid date %q: expected YYYY-MM-DD", d)
	}
	if _, err := time.Parse(constants.LogicalDateFormat, d); err != nil {
		return fmt.Errorf("invalid date %q: %v", d, err)
	}
	return nil
}

// ValidateStep checks that s is one of the pipeline steps.
func ValidateStep(s string) error {
	switch s {
	case constants.StepExtract, constants.StepLoad, constants.StepAll:
		return nil
	}
	return fmt.Errorf("invalid step %q: expected one of %v, %v, %v", s, constants.StepExtract, constants.StepLoad, constants.StepAll)
}

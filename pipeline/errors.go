package pipeline

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies why an operation failed.
type Kind int

const (
	KindCatalogUnreachable Kind = iota + 1 // connecting to the source or listing its tables failed
	KindReadFailed                         // reading a source table, the flat file or a snapshot failed
	KindWriteFailed                        // writing a snapshot, target table, view or export failed
	KindPreconditionUnmet                  // the extraction gate did not pass or view inputs are missing
)

func (k Kind) String() string {
	switch k {
	case KindCatalogUnreachable:
		return "catalog unreachable"
	case KindReadFailed:
		return "read failed"
	case KindWriteFailed:
		return "write failed"
	case KindPreconditionUnmet:
		return "precondition unmet"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// StepError is returned by every failed BatchETL operation.
type StepError struct {
	Op    string // operation name e.g. extract_relational
	Kind  Kind
	Table string // table or file the failure relates to, if any
	Err   error
}

func (e *StepError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("%v %v: %v: %v", e.Op, e.Table, e.Kind, e.Err)
	}
	return fmt.Sprintf("%v: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// IsKind reports whether any StepError in err's chain has kind k.
func IsKind(err error, k Kind) bool {
	var se *StepError
	return errors.As(err, &se) && se.Kind == k
}

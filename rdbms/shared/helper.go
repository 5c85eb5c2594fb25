package shared

import (
	"errors"
)

// CheckSqlStatementGeneratorConfig returns an error if cfg can't be used to generate SQL.
func CheckSqlStatementGeneratorConfig(cfg *SqlStatementGeneratorConfig) error {
	if cfg.OutputTable == "" {
		return errors.New("missing output table name")
	}
	if cfg.Dialect == nil {
		return errors.New("missing SQL dialect")
	}
	if cfg.TargetCols == nil || cfg.TargetCols.Len() == 0 {
		return errors.New("missing target columns")
	}
	return nil
}

// MaxRowsPerBatch caps the requested batch size so that one statement stays within the dialect's bind limit.
func MaxRowsPerBatch(d *Dialect, numCols int, requested int) int {
	if requested <= 0 {
		requested = 1
	}
	if numCols <= 0 {
		return requested
	}
	max := d.MaxBindVars / numCols
	if max < 1 {
		max = 1
	}
	if requested > max {
		return max
	}
	return requested
}

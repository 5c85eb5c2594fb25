package shared

import (
	"strings"

	"github.com/pkg/errors"
	h "github.com/relloyd/batchetl/helper"
)

// SqlInsertTxtBatch implements interface SqlStmtTxtBatcher.
// It generates multi-row INSERT statements with bind variables in the style of the target dialect.
type SqlInsertTxtBatch struct {
	SqlStatementGeneratorConfig // mandatory to be populated.
	sqlCoreCfg
	ColList []string // list of target columns extracted from SqlStatementGeneratorConfig.
}

// NewInsertGenerator creates a new SqlStmtTxtBatcher for INSERT statements.
func NewInsertGenerator(cfg *SqlStatementGeneratorConfig) (*SqlInsertTxtBatch, error) {
	if err := CheckSqlStatementGeneratorConfig(cfg); err != nil {
		return nil, errors.Wrap(err, "unable to create INSERT generator")
	}
	o := &SqlInsertTxtBatch{SqlStatementGeneratorConfig: *cfg}
	o.setupSqlStatement()
	return o, nil
}

func (o *SqlInsertTxtBatch) setupSqlStatement() {
	// Build the list of quoted column names.
	o.ColList = make([]string, 0, o.TargetCols.Len())
	iter := o.TargetCols.IterFunc()
	for kv, ok := iter(); ok; kv, ok = iter() {
		o.ColList = append(o.ColList, o.Dialect.QuoteIdentifier(kv.Value.(string)))
	}
	// Populate the SQL template.
	o.sqlStmtTemplate = `insert into <TABLE> (<TGT-COLS>) values <VALUES>`
	o.sqlStmtTemplate = strings.Replace(o.sqlStmtTemplate, "<TABLE>", o.Dialect.QualifiedName(o.OutputSchema, o.OutputTable), 1)
	o.sqlStmtTemplate = strings.Replace(o.sqlStmtTemplate, "<TGT-COLS>", h.StringsToCsv(o.ColList), 1)
	o.Log.Debug("setup INSERT generator with SQL (VALUES pending): ", o.sqlStmtTemplate)
}

func (o *SqlInsertTxtBatch) InitBatch(batchSize int) {
	o.batchSize = batchSize
	o.rowsInBatch = 0
	// Allocate a new buffer to hold all values (args) to exec.
	o.sqlValues = make([]interface{}, 0, o.batchSize*len(o.ColList)) // many values per row in a batch.
}

func (o *SqlInsertTxtBatch) AddValuesToBatch(values []interface{}) (batchIsFull bool, err error) {
	if o.rowsInBatch >= o.batchSize {
		err = errors.New("no more rows allowed in INSERT batch")
		batchIsFull = true
		return
	}
	if len(values) != len(o.ColList) {
		err = errors.New("the number of values supplied does not match the number of table columns")
		return
	}
	o.sqlValues = append(o.sqlValues, values...)
	o.rowsInBatch++
	batchIsFull = o.rowsInBatch >= o.batchSize // caller should exec SQL when full.
	return
}

func (o *SqlInsertTxtBatch) GetValues() []interface{} {
	return o.sqlValues
}

func (o *SqlInsertTxtBatch) GetRowsInBatch() int {
	return o.rowsInBatch
}

// GetStatement returns the INSERT for the rows added so far.
// The statement is cached while the number of rows stays the same.
func (o *SqlInsertTxtBatch) GetStatement() string {
	if o.previousNumRowsInBatch != o.rowsInBatch || o.sqlStmt == "" {
		allRows := strings.Builder{}
		valIdx := 1
		for rowIdx := 0; rowIdx < o.rowsInBatch; rowIdx++ {
			// Build the current row of bind variables: ( $1, $2, $n )
			binds := make([]string, len(o.ColList))
			for idy := range o.ColList {
				binds[idy] = o.Dialect.Placeholder(valIdx)
				valIdx++
			}
			if rowIdx > 0 {
				allRows.WriteString(", ")
			}
			allRows.WriteString("(" + strings.Join(binds, ", ") + ")")
		}
		o.sqlStmt = strings.Replace(o.sqlStmtTemplate, "<VALUES>", allRows.String(), 1)
		o.previousNumRowsInBatch = o.rowsInBatch
	} // else we have the same number of rows and can use cached SQL...
	return o.sqlStmt
}

package shared

import (
	om "github.com/cevaris/ordered_map"
	"github.com/relloyd/batchetl/logger"
)

type SqlStatementGeneratorConfig struct {
	Log          logger.Logger
	Dialect      *Dialect
	OutputSchema string
	OutputTable  string
	TargetCols   *om.OrderedMap // ordered map of: key = frame column name; value = target table column name
}

type sqlCoreCfg struct {
	sqlStmt                string
	sqlStmtTemplate        string
	sqlValues              []interface{} // slice to hold data values for all rows in batch
	batchSize              int
	rowsInBatch            int
	previousNumRowsInBatch int
}

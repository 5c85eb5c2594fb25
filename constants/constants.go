package constants

// Pipeline

const (
	LogicalDateFormat           = "2006-01-02" // partition key for snapshots, exports and log files
	LogicalDateRegex            = "^[0-9]{4}-[0-9]{2}-[0-9]{2}$"
	TimeFormatYearSecondsTZ     = "2006-01-02 15:04:05,000 -0700" // log file time stamps
	DataDirDefault              = "data"
	ResultsDirDefault           = "results"
	LogsDirDefault              = "logs"
	RelationalDirDefault        = "postgres"
	FlatFileDirDefault          = "csv"
	FlatFileNameDefault         = "order_details"
	SnapshotFileExt             = "parquet"
	TargetTableSuffix           = "_final"
	ViewNameDefault             = "orders_complete"
	ViewLeftTableDefault        = "orders"
	ViewRightTableDefault       = "order_details"
	ViewJoinKeyDefault          = "order_id"
	ExportCsvExt                = "csv"
	ExportJsonExt               = "json"
	LogFilePrefix               = "etl_"
	SchemaDefaultPostgres       = "public"
	InsertBatchSizeDefault      = 500
	ParquetParallelWriters      = 1
	ParquetColumnsMetadataKey   = "batchetl.columns"
	StepExtract                 = "extract"
	StepLoad                    = "load"
	StepAll                     = "all"
	ScheduleCronDefault         = "0 0 * * *" // daily at midnight
	ScheduleRetriesDefault      = 1
	ScheduleRetryDelayDefault   = "5m"
	EnvVarPrefix                = "BATCHETL" // prefixed for environment variables in twelveFactorMode
	EnvVarTwelveFactorMode      = EnvVarPrefix + "_12FACTOR_MODE"
	TwelveFactorModeLambda      = "lambda"
	ConfigDirDefault            = "~/.batchetl"
	ConfigFileDefault           = "config.yaml"
	ConnectionTypePostgres      = "postgres"
	ConnectionTypeMySql         = "mysql"
	ConnectionTypeSqlServer     = "sqlserver"
	ConnectionTypeSnowflake     = "snowflake"
	ConnectionTypeSqlite        = "sqlite3"
	ConnectionTypeS3            = "s3"
	DriverNamePostgres          = "pgx"
	DriverNameSqlite            = "sqlite"
	ServiceName                 = "batchetl"
	WebServerPortDefault        = 8080
	WebServerShutdownTimeoutSec = 15
)

package actions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/relloyd/batchetl/aws/s3"
	"github.com/relloyd/batchetl/constants"
	"github.com/relloyd/batchetl/file"
	"github.com/relloyd/batchetl/helper"
	"github.com/relloyd/batchetl/logger"
	"github.com/relloyd/batchetl/pipeline"
	"github.com/rs/xid"
)

// RunConfig is everything needed to run the pipeline for one logical date.
type RunConfig struct {
	Pipeline         pipeline.Config
	Step             string `errorTxt:"step" mandatory:"yes"`
	LogLevel         string `errorTxt:"log level" mandatory:"yes"`
	LogsDir          string
	StackDumpOnPanic bool
	S3               *s3.AwsS3Bucket // optional bucket to publish exports to
	Uploader         s3.BufferPutter // optional; built from S3 when nil
}

// Validate checks the step and the pipeline settings.
func (c *RunConfig) Validate() error {
	if err := helper.ValidateStructIsPopulated(c); err != nil {
		return err
	}
	if err := helper.ValidateStep(c.Step); err != nil {
		return err
	}
	if c.S3 != nil {
		if err := helper.ValidateStructIsPopulated(c.S3); err != nil {
			return err
		}
	}
	return nil
}

// RunPipeline runs cfg.Step for cfg.Pipeline.LogicalDate.
// Extraction attempts both the database and the flat file and fails if either failed, in which case
// nothing is loaded. Loading exports the view only after a successful reload.
// Each run logs to stdout and to logs/etl_<date>.log with a new run id.
func RunPipeline(ctx context.Context, cfg *RunConfig) (err error) {
	if cfg == nil {
		return errors.New("nil pointer to run config supplied")
	}
	if err = cfg.Validate(); err != nil {
		return err
	}
	date := cfg.Pipeline.LogicalDate
	if err = helper.ValidateLogicalDate(date); err != nil {
		return err
	}
	logsDir := cfg.LogsDir
	if logsDir == "" {
		logsDir = constants.LogsDirDefault
	}
	base, err := logger.NewRunLogger(constants.ServiceName, cfg.LogLevel, cfg.StackDumpOnPanic, file.LogFile(logsDir, date))
	if err != nil {
		return err
	}
	defer base.Close()
	runId := xid.New().String()
	log := base.WithFields(map[string]interface{}{"runId": runId, "date": date})
	log.Info("starting run; step = ", cfg.Step)
	b, err := pipeline.New(cfg.Pipeline, log)
	if err != nil {
		log.Error(err)
		return err
	}
	defer func() {
		if e := b.Close(); e != nil {
			log.Warn("error closing connections: ", e)
		}
		b.LogSummary()
		if err != nil {
			log.Error("run failed")
		} else {
			log.Info("run complete")
		}
	}()
	if cfg.Step == constants.StepExtract || cfg.Step == constants.StepAll {
		errRel := b.ExtractRelational(ctx)
		errFlat := b.ExtractFlatFile(ctx)
		if err = errors.Join(errRel, errFlat); err != nil {
			return err
		}
	}
	if cfg.Step == constants.StepLoad || cfg.Step == constants.StepAll {
		if err = b.Reload(ctx); err != nil {
			return err
		}
		if err = b.ExportResults(ctx); err != nil {
			return err
		}
		var up s3.BufferPutter
		if up, err = cfg.uploader(); err != nil {
			return err
		}
		if up != nil {
			if err = b.PublishResults(ctx, up); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *RunConfig) uploader() (s3.BufferPutter, error) {
	if c.Uploader != nil {
		return c.Uploader, nil
	}
	if c.S3 == nil {
		return nil, nil
	}
	return s3.NewBasicClient(c.S3.Name, c.S3.Region, c.S3.Prefix)
}

// RunBackfill runs the pipeline for every date from start to end inclusive, oldest first.
// It stops at the first failed date.
func RunBackfill(ctx context.Context, cfg *RunConfig, start string, end string) error {
	if cfg == nil {
		return errors.New("nil pointer to run config supplied")
	}
	dates, err := DateRange(start, end)
	if err != nil {
		return err
	}
	for _, d := range dates { // for each logical date...
		if err = ctx.Err(); err != nil {
			return err
		}
		c := *cfg
		c.Pipeline.LogicalDate = d
		if err = RunPipeline(ctx, &c); err != nil {
			return fmt.Errorf("backfill stopped at %v: %w", d, err)
		}
	}
	return nil
}

// DateRange returns the logical dates from start to end inclusive.
func DateRange(start string, end string) ([]string, error) {
	s, err := time.Parse(constants.LogicalDateFormat, start)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q: %v", start, err)
	}
	e, err := time.Parse(constants.LogicalDateFormat, end)
	if err != nil {
		return nil, fmt.Errorf("invalid end date %q: %v", end, err)
	}
	if e.Before(s) {
		return nil, fmt.Errorf("end date %v is before start date %v", end, start)
	}
	var retval []string
	for d := s; !d.After(e); d = d.AddDate(0, 0, 1) {
		retval = append(retval, d.Format(constants.LogicalDateFormat))
	}
	return retval, nil
}

// Today returns the current local date as a logical date.
func Today() string {
	return time.Now().Format(constants.LogicalDateFormat)
}

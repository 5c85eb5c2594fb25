package actions

import (
	"context"
	"time"

	"github.com/relloyd/batchetl/constants"
	"github.com/relloyd/batchetl/helper"
)

// LambdaEvent is the payload of an AWS Lambda invocation, typically from an EventBridge schedule.
// Empty fields default to the day before the invocation and step all.
type LambdaEvent struct {
	Date string `json:"date"`
	Step string `json:"step"`
}

type LambdaResponse struct {
	Status  WebServerResponse `json:"status"`
	Message string            `json:"message"`
	Run     *RunSummary       `json:"run,omitempty"`
}

// LambdaHandler returns a handler for lambda.Start that runs the pipeline using cfg as a template.
func LambdaHandler(cfg RunConfig) func(ctx context.Context, e LambdaEvent) (LambdaResponse, error) {
	return lambdaHandler(cfg, RunPipeline, time.Now)
}

func lambdaHandler(cfg RunConfig, run runFunc, now func() time.Time) func(ctx context.Context, e LambdaEvent) (LambdaResponse, error) {
	return func(ctx context.Context, e LambdaEvent) (LambdaResponse, error) {
		c := cfg
		c.Pipeline.LogicalDate = e.Date
		if c.Pipeline.LogicalDate == "" {
			c.Pipeline.LogicalDate = LogicalDateForTick(now())
		}
		c.Step = e.Step
		if c.Step == "" {
			c.Step = constants.StepAll
		}
		if err := helper.ValidateLogicalDate(c.Pipeline.LogicalDate); err != nil {
			return LambdaResponse{Status: Error, Message: err.Error()}, err
		}
		if err := helper.ValidateStep(c.Step); err != nil {
			return LambdaResponse{Status: Error, Message: err.Error()}, err
		}
		s := &RunSummary{Date: c.Pipeline.LogicalDate, Step: c.Step, Started: now()}
		err := run(ctx, &c)
		s.Finished = now()
		if err != nil {
			s.Error = err.Error()
			return LambdaResponse{Status: Error, Message: "run failed", Run: s}, err
		}
		return LambdaResponse{Status: Okay, Message: "run complete", Run: s}, nil
	}
}

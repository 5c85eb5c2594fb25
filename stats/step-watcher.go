package stats

import (
	"fmt"
	"sync"
	"time"

	"github.com/relloyd/batchetl/logger"
)

// StepWatcher records the row count and duration of one step of a run, e.g. extracting one table.
type StepWatcher struct {
	mu        sync.Mutex
	log       logger.Logger
	stepName  string
	startTime time.Time
	endTime   time.Time
	rows      int64
	err       error
	isRunning bool
	now       func() time.Time
}

type Stats struct {
	StepName       string  `json:"stepName"`
	StatusText     string  `json:"statusText"`
	ElapsedTimeSec float64 `json:"elapsedTimeSec"`
	TotalRows      int64   `json:"totalRows"`
	RowsPerSecond  int64   `json:"rowsPerSecond"`
	Error          string  `json:"error,omitempty"`
}

func newStepWatcher(log logger.Logger, stepName string, now func() time.Time) *StepWatcher {
	return &StepWatcher{log: log, stepName: stepName, now: now}
}

// Start begins timing the step.
func (n *StepWatcher) Start() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.startTime = n.now()
	n.endTime = time.Time{}
	n.rows = 0
	n.err = nil
	n.isRunning = true
}

// Stop ends timing the step with its final row count and error, if any.
func (n *StepWatcher) Stop(rows int, err error) {
	n.mu.Lock()
	n.endTime = n.now()
	n.rows = int64(rows)
	n.err = err
	n.isRunning = false
	n.mu.Unlock()
	n.log.Debug(n.RenderStats().String())
}

// RenderStats gets a struct filled with stats at the point of time it is called.
func (n *StepWatcher) RenderStats() Stats {
	n.mu.Lock()
	defer n.mu.Unlock()
	end := n.endTime
	statusText := "complete"
	switch {
	case n.isRunning:
		statusText = "running"
		end = n.now()
	case n.err != nil:
		statusText = "failed"
	}
	elapsed := end.Sub(n.startTime)
	s := Stats{
		StepName:       n.stepName,
		StatusText:     statusText,
		ElapsedTimeSec: elapsed.Seconds(),
		TotalRows:      n.rows,
	}
	if secs := elapsed.Seconds(); secs > 0 {
		s.RowsPerSecond = int64(float64(n.rows) / secs)
	}
	if n.err != nil {
		s.Error = n.err.Error()
	}
	return s
}

// String will format the stats for general logging.
func (s Stats) String() string {
	return fmt.Sprintf(
		"Stats for %v %v "+
			"elapsedTimeSec=%.3f "+
			"totalRows=%v "+
			"rowsPerSecond=%v",
		s.StepName, s.StatusText,
		s.ElapsedTimeSec,
		s.TotalRows,
		s.RowsPerSecond,
	)
}

package stats

import (
	"sync"
	"time"

	"github.com/cevaris/ordered_map"
	"github.com/relloyd/batchetl/logger"
)

type StatsFetcher interface {
	GetStats() []Stats
}

// RunStatsManager implements StatsFetcher and keeps one StepWatcher per step of a run,
// in the order the steps were added.
type RunStatsManager struct {
	mu           sync.Mutex
	log          logger.Logger
	mapStepStats *ordered_map.OrderedMap // map of step name to *StepWatcher
	now          func() time.Time
}

// SetClock returns an option for NewRunStats that replaces time.Now.
func SetClock(now func() time.Time) func(t *RunStatsManager) {
	return func(t *RunStatsManager) {
		t.now = now
	}
}

// NewRunStats creates a new RunStatsManager.
func NewRunStats(log logger.Logger, options ...func(t *RunStatsManager)) *RunStatsManager {
	t := &RunStatsManager{log: log, mapStepStats: ordered_map.NewOrderedMap(), now: time.Now}
	for _, option := range options {
		option(t)
	}
	return t
}

// StartStep creates, or restarts, the StepWatcher called stepName.
func (t *RunStatsManager) StartStep(stepName string) *StepWatcher {
	t.mu.Lock()
	v, ok := t.mapStepStats.Get(stepName)
	if !ok {
		v = newStepWatcher(t.log, stepName, t.now)
		t.mapStepStats.Set(stepName, v)
	}
	t.mu.Unlock()
	sw := v.(*StepWatcher)
	sw.Start()
	return sw
}

// GetStats implements interface StatsFetcher{}.
func (t *RunStatsManager) GetStats() []Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	iter := t.mapStepStats.IterFunc()
	statsList := make([]Stats, 0, t.mapStepStats.Len())
	for kv, ok := iter(); ok; kv, ok = iter() { // for each step...
		statsList = append(statsList, kv.Value.(*StepWatcher).RenderStats())
	}
	return statsList
}

// LogStats logs one line per step.
func (t *RunStatsManager) LogStats() {
	for _, s := range t.GetStats() {
		t.log.Info(s.String())
	}
}

package stats

import (
	"errors"
	"testing"
	"time"

	"github.com/relloyd/batchetl/logger"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time {
	return c.t
}

func TestRunStatsManager(t *testing.T) {
	log := logger.NewLogger("batchetl", "error", false)
	clock := &fakeClock{t: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)}
	m := NewRunStats(log, SetClock(clock.now))

	sw := m.StartStep("extract orders")
	clock.t = clock.t.Add(2 * time.Second)
	if got := m.GetStats()[0]; got.StatusText != "running" || got.ElapsedTimeSec != 2 {
		t.Fatalf("unexpected running stats: %+v", got)
	}
	sw.Stop(100, nil)

	sw = m.StartStep("load orders")
	clock.t = clock.t.Add(time.Second)
	sw.Stop(0, errors.New("boom"))

	got := m.GetStats()
	if len(got) != 2 {
		t.Fatalf("expected 2 steps; got %v", len(got))
	}
	if got[0].StepName != "extract orders" || got[0].TotalRows != 100 || got[0].RowsPerSecond != 50 || got[0].StatusText != "complete" {
		t.Fatalf("unexpected stats: %+v", got[0])
	}
	if got[1].StatusText != "failed" || got[1].Error != "boom" {
		t.Fatalf("unexpected stats: %+v", got[1])
	}
	// Restarting a step replaces its numbers rather than adding a new entry.
	m.StartStep("extract orders").Stop(5, nil)
	if got = m.GetStats(); len(got) != 2 || got[0].TotalRows != 5 {
		t.Fatalf("unexpected stats after restart: %+v", got)
	}
	m.LogStats()
}

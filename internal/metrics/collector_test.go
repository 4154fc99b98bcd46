package metrics

import (
	"errors"
	"testing"
	"time"
)

func TestCollectorRecordsCounters(t *testing.T) {
	c := NewCollector(true)
	c.RecordCommand("focus", nil)
	c.RecordCommand("focus", errors.New("no focused window"))
	c.RecordRuleMatch(true)
	c.RecordGeometryFailure()
	c.RecordQuarantine()

	snap := c.Snapshot()
	if !snap.Enabled {
		t.Fatalf("expected snapshot to be enabled")
	}
	if snap.Totals.Executed != 1 || snap.Totals.Failed != 1 {
		t.Fatalf("unexpected command totals: %#v", snap.Totals)
	}
	if snap.Totals.RuleMatches != 1 || snap.Totals.RulesIgnored != 1 {
		t.Fatalf("unexpected rule totals: %#v", snap.Totals)
	}
	if snap.Totals.GeometryFailures != 1 || snap.Totals.Quarantined != 1 {
		t.Fatalf("unexpected backend totals: %#v", snap.Totals)
	}
	if len(snap.Commands) != 1 {
		t.Fatalf("expected one command kind in snapshot, got %d", len(snap.Commands))
	}
	focus := snap.Commands[0]
	if focus.Kind != "focus" || focus.Executed != 1 || focus.Failed != 1 {
		t.Fatalf("unexpected command counters: %#v", focus)
	}
	if focus.LastRun.IsZero() || focus.LastFailed.IsZero() {
		t.Fatalf("expected timestamps to be recorded: %#v", focus)
	}
}

func TestCollectorToggle(t *testing.T) {
	c := NewCollector(false)
	c.RecordCommand("focus", nil)
	if snap := c.Snapshot(); snap.Enabled || len(snap.Commands) != 0 {
		t.Fatalf("expected disabled snapshot: %#v", snap)
	}

	c.SetEnabled(true)
	c.RecordCommand("focus", nil)
	c.RecordRuleMatch(false)
	snap := c.Snapshot()
	if !snap.Enabled || snap.Totals.Executed != 1 || snap.Totals.RuleMatches != 1 {
		t.Fatalf("unexpected enabled snapshot: %#v", snap)
	}

	c.SetEnabled(false)
	snap = c.Snapshot()
	if snap.Enabled {
		t.Fatalf("expected disabled after toggle")
	}
	if !snap.Started.IsZero() {
		t.Fatalf("expected started timestamp reset, got %v", snap.Started)
	}

	time.Sleep(10 * time.Millisecond)
	c.SetEnabled(true)
	c.RecordCommand("focus", nil)
	snap = c.Snapshot()
	if snap.Totals.Executed != 1 {
		t.Fatalf("expected counters to reset after re-enable: %#v", snap)
	}
}

func TestNilCollectorIsSafeToUse(t *testing.T) {
	var c *Collector
	c.RecordCommand("focus", nil)
	c.RecordRuleMatch(true)
	c.RecordGeometryFailure()
	c.RecordQuarantine()
	c.SetEnabled(true)
	if c.Enabled() {
		t.Fatalf("nil collector should report disabled")
	}
	if snap := c.Snapshot(); snap.Enabled {
		t.Fatalf("nil collector should produce an empty disabled snapshot")
	}
}

// Package metrics aggregates opt-in counters for commands, rule
// evaluations, and backend writes so domectl can report what the
// dispatcher has been doing without reading its logs.
package metrics

import (
	"sort"
	"sync"
	"time"
)

// Collector aggregates anonymous telemetry counters for one running
// dispatcher.
type Collector struct {
	mu      sync.RWMutex
	enabled bool
	started time.Time

	commands map[string]*CommandMetrics
	totals   Totals
}

// CommandMetrics captures per-command-kind counters tracked by the
// collector (e.g. "focus", "move", "toggle", "exec").
type CommandMetrics struct {
	Kind       string
	Executed   uint64
	Failed     uint64
	LastRun    time.Time
	LastFailed time.Time
}

// Totals aggregates counters across every command kind plus the
// dispatcher-wide counters that aren't keyed by command.
type Totals struct {
	Executed         uint64
	Failed           uint64
	RuleMatches      uint64
	RulesIgnored     uint64
	GeometryFailures uint64
	Quarantined      uint64
}

// Snapshot is the serializable view of the current metrics state.
type Snapshot struct {
	Enabled  bool
	Started  time.Time
	Totals   Totals
	Commands []CommandMetrics
}

// NewCollector returns a collector with the provided opt-in state.
func NewCollector(enabled bool) *Collector {
	c := &Collector{}
	c.SetEnabled(enabled)
	return c
}

// Enabled reports whether telemetry collection is currently active.
func (c *Collector) Enabled() bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled
}

// SetEnabled toggles telemetry collection, resetting counters when enabling.
func (c *Collector) SetEnabled(enabled bool) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.enabled == enabled {
		return
	}
	c.enabled = enabled
	if !enabled {
		c.commands = nil
		c.totals = Totals{}
		c.started = time.Time{}
		return
	}
	c.started = time.Now()
	c.commands = make(map[string]*CommandMetrics)
	c.totals = Totals{}
}

// RecordCommand increments the executed or failed counter for kind,
// depending on whether the dispatcher's Execute call returned an error.
func (c *Collector) RecordCommand(kind string, err error) {
	if c == nil {
		return
	}
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return
	}
	if c.commands == nil {
		c.commands = make(map[string]*CommandMetrics)
	}
	m, ok := c.commands[kind]
	if !ok {
		m = &CommandMetrics{Kind: kind}
		c.commands[kind] = m
	}
	if err != nil {
		m.Failed++
		m.LastFailed = now
		c.totals.Failed++
		return
	}
	m.Executed++
	m.LastRun = now
	c.totals.Executed++
}

// RecordRuleMatch increments the matched-rule counter, split by whether
// the match resulted in the window being ignored.
func (c *Collector) RecordRuleMatch(ignored bool) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return
	}
	c.totals.RuleMatches++
	if ignored {
		c.totals.RulesIgnored++
	}
}

// RecordGeometryFailure increments the backend geometry-write failure
// counter, called once per failed ApplyGeometry regardless of whether it
// crossed the quarantine threshold.
func (c *Collector) RecordGeometryFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return
	}
	c.totals.GeometryFailures++
}

// RecordQuarantine increments the counter of windows newly quarantined
// after crossing the consecutive-failure threshold.
func (c *Collector) RecordQuarantine() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return
	}
	c.totals.Quarantined++
}

// Snapshot returns the current counters for display or logging.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap := Snapshot{Enabled: c.enabled}
	if !c.enabled {
		return snap
	}
	snap.Started = c.started
	snap.Totals = c.totals
	if len(c.commands) == 0 {
		return snap
	}
	snap.Commands = make([]CommandMetrics, 0, len(c.commands))
	for _, m := range c.commands {
		if m == nil {
			continue
		}
		snap.Commands = append(snap.Commands, *m)
	}
	sort.Slice(snap.Commands, func(i, j int) bool {
		return snap.Commands[i].Kind < snap.Commands[j].Kind
	})
	return snap
}

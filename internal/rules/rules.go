package rules

import (
	"fmt"

	"github.com/dome-wm/dome/internal/config"
	"github.com/dome-wm/dome/internal/tree"
)

// compiledRule pairs a compiled matcher with the rule it was compiled
// from, so a match can still report which on_open commands to run.
type compiledRule struct {
	matcher compiledMatcher
	spec    config.RuleSpec
}

// Evaluation is the outcome of matching a newly-discovered window against
// the configured rule set.
type Evaluation struct {
	Ignore   bool
	Commands []string
	Trace    []Decision
}

// Engine evaluates window metadata against one platform's ignore/on_open
// rule tables and remembers windows it has told the caller to ignore.
type Engine struct {
	ignore []compiledRule
	onOpen []compiledRule

	ignored map[tree.WindowId]struct{}
}

// Build compiles a platform's rule tables into an Engine.
func Build(rules config.PlatformRules) (*Engine, error) {
	e := &Engine{ignored: make(map[tree.WindowId]struct{})}
	for i, rc := range rules.Ignore {
		m, err := compileMatcher(rc.App, rc.BundleID, rc.Process, rc.Title)
		if err != nil {
			return nil, fmt.Errorf("ignore[%d]: %w", i, err)
		}
		e.ignore = append(e.ignore, compiledRule{matcher: m, spec: rc})
	}
	for i, rc := range rules.OnOpen {
		m, err := compileMatcher(rc.App, rc.BundleID, rc.Process, rc.Title)
		if err != nil {
			return nil, fmt.Errorf("on_open[%d]: %w", i, err)
		}
		e.onOpen = append(e.onOpen, compiledRule{matcher: m, spec: rc})
	}
	return e, nil
}

// Evaluate matches meta against the rule tables. Ignore rules are
// first-match-wins: as soon as one matches, evaluation stops and Ignore
// is reported without consulting on_open. Otherwise every matching
// on_open rule runs, in config order, and their Run commands are
// concatenated.
func (e *Engine) Evaluate(meta WindowMeta) Evaluation {
	var eval Evaluation
	for _, r := range e.ignore {
		matched := r.matcher.matches(meta)
		eval.Trace = append(eval.Trace, Decision{Table: "ignore", Rule: ruleLabel(r.spec), Matched: matched})
		if matched {
			eval.Ignore = true
			return eval
		}
	}
	for _, r := range e.onOpen {
		matched := r.matcher.matches(meta)
		eval.Trace = append(eval.Trace, Decision{Table: "on_open", Rule: ruleLabel(r.spec), Matched: matched})
		if matched {
			eval.Commands = append(eval.Commands, r.spec.Run...)
		}
	}
	return eval
}

// MarkIgnored records that id was excluded from the engine by an ignore
// rule, so later events about it can be dropped without re-matching.
func (e *Engine) MarkIgnored(id tree.WindowId) {
	e.ignored[id] = struct{}{}
}

// IsIgnored reports whether id was previously marked ignored.
func (e *Engine) IsIgnored(id tree.WindowId) bool {
	_, ok := e.ignored[id]
	return ok
}

// Forget removes id from the ignored set, used when a WindowId is
// retired by the platform backend and could later be reassigned.
func (e *Engine) Forget(id tree.WindowId) {
	delete(e.ignored, id)
}

func ruleLabel(spec config.RuleSpec) string {
	switch {
	case spec.App != "":
		return "app=" + spec.App
	case spec.BundleID != "":
		return "bundle_id=" + spec.BundleID
	case spec.Process != "":
		return "process=" + spec.Process
	case spec.Title != "":
		return "title=" + spec.Title
	default:
		return "*"
	}
}

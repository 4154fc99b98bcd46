package rules

import "fmt"

// Decision records one rule's verdict during an Evaluate call, so a
// caller can log why a window was ignored or which on_open rules fired.
type Decision struct {
	Table   string
	Rule    string
	Matched bool
}

// SummarizeTrace renders an evaluation trace as human-readable lines.
func SummarizeTrace(trace []Decision) []string {
	if len(trace) == 0 {
		return nil
	}
	lines := make([]string, 0, len(trace))
	for _, d := range trace {
		lines = append(lines, fmt.Sprintf("%s[%s] => %t", d.Table, d.Rule, d.Matched))
	}
	return lines
}

package config

import (
	"reflect"
	"strings"

	"github.com/google/go-cmp/cmp"
)

// DiffSerialized returns a unified line diff between two raw config
// payloads, used to log what changed on a hot reload.
func DiffSerialized(previous, current []byte) string {
	prevLines := splitLines(previous)
	currLines := splitLines(current)
	if diff := cmp.Diff(prevLines, currLines); diff != "" {
		return diff
	}
	return ""
}

func splitLines(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return []string{""}
	}
	return strings.Split(text, "\n")
}

// Diff reports which concerns differ between two already-validated
// configs, so a hot reload can skip redundant recomputation.
type Diff struct {
	LayoutChanged  bool
	RulesChanged   bool
	KeymapsChanged bool
}

// Changed reports whether any concern differs.
func (d Diff) Changed() bool {
	return d.LayoutChanged || d.RulesChanged || d.KeymapsChanged
}

// DiffConfigs compares old against next.
func DiffConfigs(old, next *Config) Diff {
	var d Diff
	if old.BorderSize != next.BorderSize ||
		old.AutomaticTiling != next.AutomaticTiling ||
		old.MinWidth != next.MinWidth || old.MinHeight != next.MinHeight ||
		old.MaxWidth != next.MaxWidth || old.MaxHeight != next.MaxHeight ||
		old.TabBarHeight != next.TabBarHeight || old.Gaps != next.Gaps {
		d.LayoutChanged = true
	}
	if !reflect.DeepEqual(old.MacOS, next.MacOS) || !reflect.DeepEqual(old.Windows, next.Windows) {
		d.RulesChanged = true
	}
	if !reflect.DeepEqual(old.Chords, next.Chords) {
		d.KeymapsChanged = true
	}
	return d
}

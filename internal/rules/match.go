package rules

import (
	"fmt"
	"regexp"
	"strings"
)

// WindowMeta is the metadata a platform backend reports about a
// newly-discovered window, before it is admitted into the tree.
type WindowMeta struct {
	App      string
	BundleID string
	Process  string
	Title    string
}

// fieldMatcher matches one WindowMeta field against either a literal
// (case-sensitive exact) string or, when the configured value is wrapped
// in slashes, a compiled regular expression.
type fieldMatcher struct {
	literal string
	regex   *regexp.Regexp
}

func compileFieldMatcher(raw string) (fieldMatcher, error) {
	if strings.HasPrefix(raw, "/") && strings.HasSuffix(raw, "/") && len(raw) >= 2 {
		pattern := raw[1 : len(raw)-1]
		re, err := regexp.Compile(pattern)
		if err != nil {
			return fieldMatcher{}, fmt.Errorf("compile regex %q: %w", raw, err)
		}
		return fieldMatcher{regex: re}, nil
	}
	return fieldMatcher{literal: raw}, nil
}

func (m fieldMatcher) matches(value string) bool {
	if m.regex != nil {
		return m.regex.MatchString(value)
	}
	return value == m.literal
}

// compiledMatcher matches a WindowMeta against a single rule entry. Only
// fields present in the rule constrain the match; an unset field is
// ignored. A rule with no fields set at all matches everything.
type compiledMatcher struct {
	app      *fieldMatcher
	bundleID *fieldMatcher
	process  *fieldMatcher
	title    *fieldMatcher
}

func (m compiledMatcher) matches(meta WindowMeta) bool {
	if m.app != nil && !m.app.matches(meta.App) {
		return false
	}
	if m.bundleID != nil && !m.bundleID.matches(meta.BundleID) {
		return false
	}
	if m.process != nil && !m.process.matches(meta.Process) {
		return false
	}
	if m.title != nil && !m.title.matches(meta.Title) {
		return false
	}
	return true
}

func compileMatcher(app, bundleID, process, title string) (compiledMatcher, error) {
	var m compiledMatcher
	for _, f := range []struct {
		raw string
		dst **fieldMatcher
	}{
		{app, &m.app},
		{bundleID, &m.bundleID},
		{process, &m.process},
		{title, &m.title},
	} {
		if f.raw == "" {
			continue
		}
		fm, err := compileFieldMatcher(f.raw)
		if err != nil {
			return compiledMatcher{}, err
		}
		*f.dst = &fm
	}
	return m, nil
}

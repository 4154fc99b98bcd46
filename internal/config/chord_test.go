package config

import "testing"

func TestParseChordModifiersAndKey(t *testing.T) {
	c, err := ParseChord("cmd+shift+h")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !c.Has(ModCmd) || !c.Has(ModShift) || c.Has(ModCtrl) || c.Has(ModAlt) {
		t.Fatalf("unexpected modifiers: %+v", c)
	}
	if c.Key != "h" {
		t.Fatalf("expected key 'h', got %q", c.Key)
	}
}

func TestParseChordAcceptsAllModifierSpellings(t *testing.T) {
	for _, raw := range []string{"win+ctrl+opt+shift+return", "super+ctrl+alt+shift+return"} {
		c, err := ParseChord(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if c.Modifiers != ModCmd|ModCtrl|ModAlt|ModShift {
			t.Fatalf("expected all modifiers set for %q, got %v", raw, c.Modifiers)
		}
	}
}

func TestParseChordRejectsMissingKey(t *testing.T) {
	if _, err := ParseChord("cmd+shift"); err == nil {
		t.Fatalf("expected error for chord with no trailing key")
	}
}

func TestParseChordRejectsUnknownModifier(t *testing.T) {
	if _, err := ParseChord("fn+h"); err == nil {
		t.Fatalf("expected error for unrecognized modifier")
	}
}

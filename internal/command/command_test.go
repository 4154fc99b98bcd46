package command

import (
	"testing"

	"github.com/dome-wm/dome/internal/geometry"
)

func TestParseFocusDirection(t *testing.T) {
	c, err := Parse("focus left")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Kind != FocusDirection || c.Direction != geometry.Left {
		t.Fatalf("unexpected command: %+v", c)
	}
}

func TestParseFocusMonitorByDirectionOrName(t *testing.T) {
	c, err := Parse("focus monitor right")
	if err != nil || c.Kind != FocusMonitor || c.MonitorByName {
		t.Fatalf("expected directional monitor target, got %+v, %v", c, err)
	}
	c, err = Parse("focus monitor laptop-builtin")
	if err != nil || !c.MonitorByName || c.MonitorName != "laptop-builtin" {
		t.Fatalf("expected named monitor target, got %+v, %v", c, err)
	}
}

func TestParseToggleVariants(t *testing.T) {
	for _, in := range []string{"toggle spawn_direction", "toggle direction", "toggle layout", "toggle float"} {
		if _, err := Parse(in); err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
	}
	if _, err := Parse("toggle bogus"); err == nil {
		t.Fatalf("expected error for unknown toggle argument")
	}
}

func TestParseExecKeepsRawCommand(t *testing.T) {
	c, err := Parse("exec open -a Terminal")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.ExecCommand != "open -a Terminal" {
		t.Fatalf("expected raw command preserved, got %q", c.ExecCommand)
	}
}

func TestParseLaunchWithConfig(t *testing.T) {
	c, err := Parse("launch --config /tmp/dome.toml")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.LaunchConfigPath != "/tmp/dome.toml" {
		t.Fatalf("expected config path, got %q", c.LaunchConfigPath)
	}
}

func TestParseRejectsUnknownVerb(t *testing.T) {
	if _, err := Parse("defenestrate now"); err == nil {
		t.Fatalf("expected error for unknown verb")
	}
}

func TestRoundTripString(t *testing.T) {
	cases := []string{
		"focus left",
		"focus parent",
		"focus next_tab",
		"focus workspace 3",
		"move up",
		"toggle layout",
		"exit",
	}
	for _, in := range cases {
		c, err := Parse(in)
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
		if got := c.String(); got != in {
			t.Fatalf("round trip mismatch: parsed %q, rendered %q", in, got)
		}
	}
}

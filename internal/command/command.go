// Package command implements the CLI/IPC grammar shared by the control
// socket and the domectl CLI: one line in, one Command out.
package command

import (
	"fmt"
	"strings"

	"github.com/dome-wm/dome/internal/geometry"
)

// Kind distinguishes the command variants.
type Kind int

const (
	FocusDirection Kind = iota
	FocusParent
	FocusTab
	FocusWorkspace
	FocusMonitor
	MoveDirection
	MoveWorkspace
	MoveMonitor
	ToggleSpawnDirection
	ToggleDirection
	ToggleLayout
	ToggleFloat
	Exec
	Exit
	Launch
)

// String names k for logging and metrics, independent of any particular
// Command's field values.
func (k Kind) String() string {
	switch k {
	case FocusDirection, FocusParent, FocusTab, FocusWorkspace, FocusMonitor:
		return "focus"
	case MoveDirection, MoveWorkspace, MoveMonitor:
		return "move"
	case ToggleSpawnDirection, ToggleDirection, ToggleLayout, ToggleFloat:
		return "toggle"
	case Exec:
		return "exec"
	case Exit:
		return "exit"
	case Launch:
		return "launch"
	default:
		return "unknown"
	}
}

// TabCycle selects the direction of a next_tab/prev_tab command.
type TabCycle int

const (
	TabNext TabCycle = iota
	TabPrev
)

// Command is the parsed form of one CLI/IPC command line. Only the fields
// relevant to Kind are populated.
type Command struct {
	Kind Kind

	Direction geometry.Direction // FocusDirection, MoveDirection
	Tab       TabCycle           // FocusTab

	WorkspaceName string // FocusWorkspace, MoveWorkspace

	// MonitorDirection/MonitorName are mutually exclusive resolutions of
	// the `(up|down|left|right|<name>)` monitor target grammar.
	MonitorDirection geometry.Direction
	MonitorByName    bool
	MonitorName      string

	ExecCommand      string // Exec
	LaunchConfigPath string // Launch
}

// Parse parses a single command line per the grammar:
//
//	focus   up|down|left|right
//	focus   parent
//	focus   next_tab|prev_tab
//	focus   workspace <name>
//	focus   monitor (up|down|left|right|<name>)
//	move    up|down|left|right
//	move    workspace <name>
//	move    monitor (up|down|left|right|<name>)
//	toggle  spawn_direction|direction|layout|float
//	exec    <shell-command>
//	exit
//	launch  [--config <path>]
func Parse(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{}, fmt.Errorf("command: empty input")
	}
	fields := strings.Fields(line)
	verb := fields[0]
	args := fields[1:]

	switch verb {
	case "focus":
		return parseFocus(args)
	case "move":
		return parseMove(args)
	case "toggle":
		return parseToggle(args)
	case "exec":
		rest := strings.TrimSpace(strings.TrimPrefix(line, verb))
		if rest == "" {
			return Command{}, fmt.Errorf("exec: missing shell command")
		}
		return Command{Kind: Exec, ExecCommand: rest}, nil
	case "exit":
		return Command{Kind: Exit}, nil
	case "launch":
		return parseLaunch(args)
	default:
		return Command{}, fmt.Errorf("command: unknown verb %q", verb)
	}
}

func parseMonitorTarget(cmd Command, target string) (Command, error) {
	if d, err := geometry.ParseDirection(target); err == nil {
		cmd.MonitorDirection = d
		return cmd, nil
	}
	cmd.MonitorByName = true
	cmd.MonitorName = target
	return cmd, nil
}

func parseFocus(args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, fmt.Errorf("focus: missing argument")
	}
	switch args[0] {
	case "up", "down", "left", "right":
		d, err := geometry.ParseDirection(args[0])
		if err != nil {
			return Command{}, fmt.Errorf("focus: %w", err)
		}
		return Command{Kind: FocusDirection, Direction: d}, nil
	case "parent":
		return Command{Kind: FocusParent}, nil
	case "next_tab":
		return Command{Kind: FocusTab, Tab: TabNext}, nil
	case "prev_tab":
		return Command{Kind: FocusTab, Tab: TabPrev}, nil
	case "workspace":
		if len(args) < 2 {
			return Command{}, fmt.Errorf("focus workspace: missing name")
		}
		return Command{Kind: FocusWorkspace, WorkspaceName: args[1]}, nil
	case "monitor":
		if len(args) < 2 {
			return Command{}, fmt.Errorf("focus monitor: missing target")
		}
		return parseMonitorTarget(Command{Kind: FocusMonitor}, args[1])
	default:
		return Command{}, fmt.Errorf("focus: unknown argument %q", args[0])
	}
}

func parseMove(args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, fmt.Errorf("move: missing argument")
	}
	switch args[0] {
	case "up", "down", "left", "right":
		d, err := geometry.ParseDirection(args[0])
		if err != nil {
			return Command{}, fmt.Errorf("move: %w", err)
		}
		return Command{Kind: MoveDirection, Direction: d}, nil
	case "workspace":
		if len(args) < 2 {
			return Command{}, fmt.Errorf("move workspace: missing name")
		}
		return Command{Kind: MoveWorkspace, WorkspaceName: args[1]}, nil
	case "monitor":
		if len(args) < 2 {
			return Command{}, fmt.Errorf("move monitor: missing target")
		}
		return parseMonitorTarget(Command{Kind: MoveMonitor}, args[1])
	default:
		return Command{}, fmt.Errorf("move: unknown argument %q", args[0])
	}
}

func parseToggle(args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, fmt.Errorf("toggle: missing argument")
	}
	switch args[0] {
	case "spawn_direction":
		return Command{Kind: ToggleSpawnDirection}, nil
	case "direction":
		return Command{Kind: ToggleDirection}, nil
	case "layout":
		return Command{Kind: ToggleLayout}, nil
	case "float":
		return Command{Kind: ToggleFloat}, nil
	default:
		return Command{}, fmt.Errorf("toggle: unknown argument %q", args[0])
	}
}

func parseLaunch(args []string) (Command, error) {
	cmd := Command{Kind: Launch}
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--config":
			if i+1 >= len(args) {
				return Command{}, fmt.Errorf("launch: --config requires a path")
			}
			cmd.LaunchConfigPath = args[i+1]
			i++
		default:
			return Command{}, fmt.Errorf("launch: unknown flag %q", args[i])
		}
	}
	return cmd, nil
}

// String renders cmd back into its canonical command-line form.
func (c Command) String() string {
	switch c.Kind {
	case FocusDirection:
		return "focus " + c.Direction.String()
	case FocusParent:
		return "focus parent"
	case FocusTab:
		if c.Tab == TabNext {
			return "focus next_tab"
		}
		return "focus prev_tab"
	case FocusWorkspace:
		return "focus workspace " + c.WorkspaceName
	case FocusMonitor:
		return "focus monitor " + monitorTargetString(c)
	case MoveDirection:
		return "move " + c.Direction.String()
	case MoveWorkspace:
		return "move workspace " + c.WorkspaceName
	case MoveMonitor:
		return "move monitor " + monitorTargetString(c)
	case ToggleSpawnDirection:
		return "toggle spawn_direction"
	case ToggleDirection:
		return "toggle direction"
	case ToggleLayout:
		return "toggle layout"
	case ToggleFloat:
		return "toggle float"
	case Exec:
		return "exec " + c.ExecCommand
	case Exit:
		return "exit"
	case Launch:
		if c.LaunchConfigPath == "" {
			return "launch"
		}
		return "launch --config " + c.LaunchConfigPath
	default:
		return "unknown"
	}
}

func monitorTargetString(c Command) string {
	if c.MonitorByName {
		return c.MonitorName
	}
	return c.MonitorDirection.String()
}

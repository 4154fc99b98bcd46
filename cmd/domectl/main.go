// Command domectl is the CLI client for domed: it forwards one command
// line over the control socket and prints the daemon's reply.
//
// Exit codes: 0 on success, 2 if the command line itself doesn't parse,
// 3 if no daemon is reachable on the control socket, 4 if the daemon
// rejected the command.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/dome-wm/dome/internal/command"
	"github.com/dome-wm/dome/internal/config"
	"github.com/dome-wm/dome/internal/control/client"
)

const (
	exitOK         = 0
	exitUsage      = 1
	exitParseError = 2
	exitNoServer   = 3
	exitRejected   = 4
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	fs := pflag.NewFlagSet("domectl", pflag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	socket := fs.String("socket", "", "path to domed control socket")
	timeout := fs.Duration("timeout", 2*time.Second, "control request timeout")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s [flags] <command...>\n", "domectl")
		fmt.Fprintln(fs.Output())
		fmt.Fprintln(fs.Output(), "Commands (forwarded verbatim to domed):")
		fmt.Fprintln(fs.Output(), "  focus up|down|left|right|parent|next_tab|prev_tab")
		fmt.Fprintln(fs.Output(), "  focus workspace <name>")
		fmt.Fprintln(fs.Output(), "  focus monitor (up|down|left|right|<name>)")
		fmt.Fprintln(fs.Output(), "  move up|down|left|right")
		fmt.Fprintln(fs.Output(), "  move workspace <name>")
		fmt.Fprintln(fs.Output(), "  move monitor (up|down|left|right|<name>)")
		fmt.Fprintln(fs.Output(), "  toggle spawn_direction|direction|layout|float")
		fmt.Fprintln(fs.Output(), "  exec <shell-command>")
		fmt.Fprintln(fs.Output(), "  exit")
		fmt.Fprintln(fs.Output(), "  launch [--config <path>]")
		fmt.Fprintln(fs.Output(), "  metrics")
		fmt.Fprintln(fs.Output(), "  inspect at <x> <y>\treport the window, if any, under the given screen point")
		fmt.Fprintln(fs.Output())
		fmt.Fprintln(fs.Output(), "  check --config <path>\tvalidate a configuration file without contacting domed")
		fmt.Fprintln(fs.Output())
		fmt.Fprintln(fs.Output(), "Flags:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(argv); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	args := fs.Args()
	if len(args) == 0 {
		fs.Usage()
		return exitUsage
	}

	if args[0] == "check" {
		return runCheck(args[1:])
	}

	line := strings.Join(args, " ")
	if line != "metrics" && !strings.HasPrefix(line, "inspect at ") {
		if _, err := command.Parse(line); err != nil {
			printErr(err)
			return exitParseError
		}
	}

	cli, err := client.New(*socket)
	if err != nil {
		printErr(err)
		return exitNoServer
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	reply, err := cli.Send(ctx, line)
	if err != nil {
		printErr(err)
		return exitNoServer
	}
	if strings.HasPrefix(reply, "ERR:") {
		printErr(errors.New(strings.TrimSpace(strings.TrimPrefix(reply, "ERR:"))))
		return exitRejected
	}
	fmt.Println(reply)
	return exitOK
}

func runCheck(args []string) int {
	fs := pflag.NewFlagSet("check", pflag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	configPath := fs.String("config", "", "path to configuration file")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if *configPath == "" {
		fs.Usage()
		return exitUsage
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		printErr(err)
		return exitParseError
	}
	for _, warning := range cfg.Warnings {
		fmt.Fprintln(os.Stderr, "warning:", warning)
	}
	fmt.Println("Configuration OK")
	return exitOK
}

// printErr writes msg to stderr, in red when stderr is an interactive
// terminal (and the user hasn't opted out via NO_COLOR).
func printErr(err error) {
	if isStderrTerminal() && os.Getenv("NO_COLOR") == "" {
		fmt.Fprintf(os.Stderr, "\x1b[31merror:\x1b[0m %v\n", err)
		return
	}
	fmt.Fprintln(os.Stderr, "error:", err)
}

func isStderrTerminal() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// Command domed is the Dome server: it owns the World, the event loop
// that mutates it, and the control socket that domectl and other clients
// send commands over. It currently ships with an in-memory test backend
// and decorator in place of a real macOS/Windows platform integration
// (see internal/dome/testbackend) — wiring a Cocoa/Win32 backend in is
// future work the dispatcher's PlatformBackend seam is built for.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/dome-wm/dome/internal/config"
	"github.com/dome-wm/dome/internal/control"
	"github.com/dome-wm/dome/internal/dome"
	"github.com/dome-wm/dome/internal/dome/testbackend"
	"github.com/dome-wm/dome/internal/metrics"
	"github.com/dome-wm/dome/internal/rules"
	"github.com/dome-wm/dome/internal/util"
)

func main() {
	cfgPath := pflag.String("config", config.DefaultPath(), "path to TOML config")
	logLevel := pflag.String("log-level", "info", "log level (trace|debug|info|warn|error)")
	metricsOn := pflag.Bool("metrics", false, "enable opt-in counters queryable via the \"metrics\" control command")
	pflag.Parse()

	logger := util.NewLogger(util.ParseLogLevel(*logLevel))

	platform := currentPlatform()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		exitErr(fmt.Errorf("load config: %w", err))
	}

	ruleEngine, err := rules.Build(platformRules(cfg, platform))
	if err != nil {
		exitErr(fmt.Errorf("compile rules: %w", err))
	}
	for _, warning := range cfg.Warnings {
		logger.Warnf("config: %s", warning)
	}

	world := dome.NewWorld(cfg, ruleEngine)

	backend := testbackend.New(nil)
	decorator := testbackend.NewDecorator()
	collector := metrics.NewCollector(*metricsOn)

	commands := make(chan dome.IpcRequest)
	configEv := make(chan dome.ConfigEvent, 1)

	disp := dome.NewDispatcher(world, backend, decorator, logger, platform, collector, commands, configEv)

	ctrlSrv, err := control.NewServer(commands, logger)
	if err != nil {
		exitErr(fmt.Errorf("start control server: %w", err))
	}

	cfgFullPath, err := filepath.Abs(*cfgPath)
	if err != nil {
		exitErr(fmt.Errorf("resolve config path: %w", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	onReload := func(next *config.Config, err error) {
		if err != nil {
			configEv <- dome.ConfigReloadError{Err: err}
			return
		}
		configEv <- dome.ConfigReload{Config: next}
	}
	if err := config.Watch(ctx, cfgFullPath, onReload); err != nil {
		exitErr(fmt.Errorf("watch config: %w", err))
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	errs := make(chan error, 2)
	go func() {
		errs <- disp.Run(ctx)
	}()
	go func() {
		errs <- ctrlSrv.Serve(ctx)
	}()

	for {
		select {
		case err := <-errs:
			cancel()
			if err != nil {
				logger.Errorf("domed exited: %v", err)
				os.Exit(1)
			}
			logger.Infof("domed stopped")
			return
		case sig := <-sigs:
			switch sig {
			case syscall.SIGHUP:
				logger.Infof("received SIGHUP, reloading config")
				next, err := config.Load(*cfgPath)
				if err != nil {
					logger.Errorf("reload failed: %v", err)
					continue
				}
				configEv <- dome.ConfigReload{Config: next}
			case os.Interrupt, syscall.SIGTERM:
				logger.Infof("received %s, shutting down", sig)
				cancel()
			}
		}
	}
}

// currentPlatform maps the build's GOOS to the rule table the dispatcher
// should read from; domed only ever runs on one of these two targets.
func currentPlatform() dome.Platform {
	if runtime.GOOS == "windows" {
		return dome.PlatformWindows
	}
	return dome.PlatformMacOS
}

func platformRules(cfg *config.Config, platform dome.Platform) config.PlatformRules {
	if platform == dome.PlatformWindows {
		return cfg.Windows
	}
	return cfg.MacOS
}

func exitErr(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}

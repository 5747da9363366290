package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/1broseidon/cursorsync/internal/config"
	"github.com/1broseidon/cursorsync/internal/daemon"
	"github.com/1broseidon/cursorsync/internal/ipc"
	"github.com/1broseidon/cursorsync/internal/platform"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		os.Exit(runDaemon(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "identity":
		os.Exit(runIdentity(os.Args[2:]))
	case "extract":
		os.Exit(runExtract(os.Args[2:]))
	case "snapshot":
		os.Exit(runSnapshot(os.Args[2:]))
	case "reset":
		os.Exit(runReset(os.Args[2:]))
	case "position":
		os.Exit(runPosition(os.Args[2:]))
	case "watch":
		os.Exit(runWatch(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: cursorsync <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Start the cursor daemon (foreground)")
	fmt.Fprintln(w, "  status              Show daemon status")
	fmt.Fprintln(w, "  identity            Print the identity of the displayed cursor")
	fmt.Fprintln(w, "  extract             Print the displayed cursor bitmap as JSON")
	fmt.Fprintln(w, "  snapshot            Write the displayed cursor as PNG or CBOR")
	fmt.Fprintln(w, "  reset               Force the daemon to re-detect the cursor")
	fmt.Fprintln(w, "  position            Print the pointer location")
	fmt.Fprintln(w, "  watch               Stream cursor changes")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config init         Write a default config file")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "  config explain      Explain a config value")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'cursorsync <command> --help' for command-specific options.")
}

// newFlagSet builds a flag set whose usage prints the given lines followed by
// the flag defaults.
func newFlagSet(name string, usage ...string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		for _, line := range usage {
			fmt.Fprintln(os.Stderr, line)
		}
		if fs.HasFlags() {
			fmt.Fprintln(os.Stderr, "")
			fmt.Fprintln(os.Stderr, "Options:")
			fs.PrintDefaults()
		}
	}
	return fs
}

// parseFlags returns -1 when parsing succeeded, otherwise the exit code.
func parseFlags(fs *pflag.FlagSet, args []string, maxArgs int) int {
	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() > maxArgs {
		fmt.Fprintf(os.Stderr, "%s: too many arguments\n", fs.Name())
		fs.Usage()
		return 2
	}
	return -1
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	res, err := config.LoadFromPath(path)
	if err != nil {
		return nil, err
	}
	return res.Config, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
}

func openBackend(cfg *config.Config) (platform.Backend, error) {
	return platform.Open(platform.Options{
		Identity:   cfg.IdentityMode(),
		Display:    cfg.Display,
		XAuthority: cfg.XAuthority,
	})
}

func runDaemon(args []string) int {
	fs := newFlagSet("daemon",
		"Usage: cursorsync daemon [--config PATH]",
		"",
		"Track the system cursor and serve it over IPC until interrupted.")
	configPath := fs.String("config", "", "Config file path (default: ~/.config/cursorsync/config.yaml)")
	if code := parseFlags(fs, args, 0); code >= 0 {
		return code
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	backend, err := openBackend(cfg)
	if err != nil {
		logger.Error("failed to open cursor backend", "error", err)
		return 1
	}
	defer backend.Close()

	monitor, err := daemon.NewMonitor(daemon.MonitorConfig{
		Interval:     cfg.PollInterval,
		CacheEntries: cfg.Cache.MaxEntries,
		Logger:       logger,
	}, backend)
	if err != nil {
		logger.Error("failed to create monitor", "error", err)
		return 1
	}
	defer monitor.Close()

	if cfg.IPC.Enabled {
		// NewServer unlinks whatever socket is in the way, so make sure it
		// is not a live daemon first.
		if err := ipc.NewClient(cfg.IPC.Socket).Ping(); err == nil {
			logger.Error("another cursorsync daemon is already running")
			return 1
		}
		ipcServer, err := ipc.NewServer(cfg.IPC.Socket, monitor)
		if err != nil {
			logger.Error("failed to create IPC server", "error", err)
			return 1
		}
		if err := ipcServer.Start(); err != nil {
			logger.Error("failed to start IPC server", "error", err)
			return 1
		}
		defer ipcServer.Stop()
	} else {
		logger.Info("IPC disabled; changes are only logged")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// SIGHUP forces a re-detect, mirroring the RESET command.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				monitor.Reset()
			}
		}
	}()

	events, unsubscribe := monitor.Subscribe()
	defer unsubscribe()
	go func() {
		for ev := range events {
			logger.Info("cursor changed", "identity", ev.Identity, "seed", ev.Seed)
		}
	}()

	logger.Info("cursorsync daemon started", "backend", backend.Name(), "identity", backend.Mode())
	monitor.Run(ctx)
	logger.Info("shutting down cursorsync daemon")
	return 0
}

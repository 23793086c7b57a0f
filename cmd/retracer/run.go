package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattjoyce/retracer/internal/config"
	"github.com/mattjoyce/retracer/internal/dispatch"
	"github.com/mattjoyce/retracer/internal/events"
	"github.com/mattjoyce/retracer/internal/log"
	"github.com/mattjoyce/retracer/internal/protocol"
	"github.com/mattjoyce/retracer/internal/replay"
	"github.com/mattjoyce/retracer/internal/tui/watch"
)

// replayFlags are the flags shared by run, state and snapshots.
type replayFlags struct {
	configPath string
	api        string
	single     bool
	double     bool
	benchmark  bool
	call       int64
	snapshots  bool
	out        string
	format     string
	jsonOut    bool
	watch      bool

	set map[string]bool
}

func newReplayFlagSet(cmd string, f *replayFlags) *flag.FlagSet {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&f.configPath, "config", "", "Path to configuration file")
	fs.StringVar(&f.api, "api", "", "Graphics API of the trace (gl, egl)")
	fs.BoolVar(&f.single, "sb", false, "Single buffered replay")
	fs.BoolVar(&f.double, "db", false, "Double buffered replay")
	fs.BoolVar(&f.benchmark, "benchmark", false, "Benchmark mode")
	fs.Int64Var(&f.call, "call", -1, "Call index for state capture")
	fs.BoolVar(&f.snapshots, "snapshots", false, "Capture snapshots")
	fs.StringVar(&f.out, "out", "", "Output file (state) or directory (snapshots)")
	fs.StringVar(&f.format, "format", "png", "Snapshot format (pnm, png)")
	fs.BoolVar(&f.jsonOut, "json", false, "Print the outcome as JSON")
	fs.BoolVar(&f.watch, "watch", false, "Follow the run in a live monitor")
	return fs
}

// parseReplayArgs parses flags that may appear before or after the trace path.
func parseReplayArgs(cmd string, args []string) (*replayFlags, string, error) {
	f := &replayFlags{set: make(map[string]bool)}
	fs := newReplayFlagSet(cmd, f)

	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, "", err
		}
		if fs.NArg() == 0 {
			break
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}
	fs.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })

	if len(positional) != 1 {
		return nil, "", fmt.Errorf("expected exactly one trace file, got %d", len(positional))
	}
	if f.single && f.double {
		return nil, "", errors.New("-sb and -db are mutually exclusive")
	}
	if f.format != "png" && f.format != "pnm" {
		return nil, "", fmt.Errorf("unknown snapshot format %q (want pnm or png)", f.format)
	}

	switch cmd {
	case "state":
		if f.call < 0 {
			return nil, "", errors.New("state requires -call N")
		}
		if f.snapshots {
			return nil, "", errors.New("-snapshots is not valid with state")
		}
	case "snapshots":
		if f.set["call"] {
			return nil, "", errors.New("-call is not valid with snapshots")
		}
		f.snapshots = true
	}
	return f, positional[0], nil
}

// options merges config defaults with explicit flags.
func (f *replayFlags) options(cfg *config.Config, trace string) (replay.Options, error) {
	opts := cfg.Options(trace)

	if f.set["api"] {
		api, err := replay.ParseAPI(f.api)
		if err != nil {
			return replay.Options{}, err
		}
		opts.API = api
	}
	if f.single {
		opts.DoubleBuffered = false
	}
	if f.double {
		opts.DoubleBuffered = true
	}
	if f.set["benchmark"] {
		opts.Benchmarking = f.benchmark
	}
	if f.call >= 0 {
		opts.CaptureStateAt = replay.Call(f.call)
	}
	opts.CaptureSnapshots = f.snapshots
	return opts, nil
}

func runReplay(cmd string, args []string) int {
	if hasHelpFlag(args) {
		printUsage()
		return exitOK
	}

	f, trace, err := parseReplayArgs(cmd, args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return exitUsage
	}

	cfg, err := config.LoadOrDefault(f.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config load error: %v\n", err)
		return exitUsage
	}

	level := cfg.Log.Level
	if f.watch && cfg.Log.FileOptions() == nil {
		// Keep stderr quiet while the monitor owns the terminal.
		level = "error"
	}
	log.SetupWithFile(level, cfg.Log.Format, cfg.Log.FileOptions())
	logger := log.WithComponent("main")

	opts, err := f.options(cfg, trace)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return exitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := events.NewHub(256)
	ctrl := dispatch.NewController(
		dispatch.NewExecLauncher(cfg.TerminationGrace),
		dispatch.SystemEnvironment(cfg.BinaryDir),
		hub,
	)

	var sub <-chan events.Event
	if f.watch {
		var unsubscribe func()
		sub, unsubscribe = hub.Subscribe()
		defer unsubscribe()
	}

	run, err := ctrl.Start(ctx, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid replay options: %v\n", err)
		return exitUsage
	}
	logger.Debug("replay started", "run_id", run.ID, "command", run.Command.String())

	if f.watch {
		p := tea.NewProgram(watch.New(sub, ctrl.Cancel), tea.WithAltScreen(), tea.WithContext(ctx))
		if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
			ctrl.Cancel()
		}
	}

	<-run.Done()
	out := run.Outcome()

	if err := report(os.Stdout, os.Stderr, run, out, f); err != nil {
		fmt.Fprintf(os.Stderr, "Output error: %v\n", err)
		return exitReplayFail
	}
	return exitCode(out)
}

func exitCode(out protocol.Outcome) int {
	switch {
	case out.Summary == protocol.MsgTerminated && out.Err == nil:
		return exitTerminated
	case truncatedStream(out):
		return exitOK
	case out.Err != nil:
		return exitReplayFail
	default:
		return exitOK
	}
}

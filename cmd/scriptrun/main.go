// Command scriptrun loads a scene file, attaches its Lua, JavaScript, wasm and
// Go behaviors, and runs it headless or in a terminal UI.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/pkg/profile"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/scriptlib/config"
	"github.com/wippyai/scriptlib/internal/runner"
	"github.com/wippyai/scriptlib/wasmscript"
)

func main() {
	var (
		scenePath   = flag.String("scene", "", "Path to a scene .toml file")
		frames      = flag.Int("frames", -1, "Frames to simulate (default from SCRIPTLIB_FRAMES)")
		dt          = flag.Duration("dt", 0, "Fixed timestep (default from SCRIPTLIB_TIMESTEP)")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		prof        = flag.String("profile", "", "Write a cpu or mem profile to the current directory")
	)
	flag.Parse()

	if *scenePath == "" {
		fmt.Fprintln(os.Stderr, "Usage: scriptrun -scene <scene.toml> [-frames n] [-dt 16ms]")
		fmt.Fprintln(os.Stderr, "       scriptrun -scene <scene.toml> -i  (interactive mode)")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *frames >= 0 {
		cfg.Frames = *frames
	}
	if *dt > 0 {
		cfg.Timestep = *dt
	}

	switch *prof {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.Quiet).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.Quiet).Stop()
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown profile %q\n", *prof)
		os.Exit(1)
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: -i needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(*scenePath, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*scenePath, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func options(cfg config.Runner, logger *zap.Logger) runner.Options {
	return runner.Options{
		Logger: logger,
		Wasm: &wasmscript.Config{
			MemoryLimitPages: cfg.WasmMemoryPages,
			Encoding:         cfg.Encoding(),
			Logger:           logger,
		},
	}
}

func run(scenePath string, cfg config.Runner) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger, err := config.NewLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	opts := options(cfg, logger)
	if cfg.Trace {
		tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(&framePrinter{w: os.Stdout}))
		defer func() { _ = tp.Shutdown(context.Background()) }()
		opts.TracerProvider = tp
	}

	r, err := runner.Load(ctx, scenePath, opts)
	if err != nil {
		return fmt.Errorf("load scene: %w", err)
	}
	defer func() { _ = r.Close(context.Background()) }()

	fmt.Printf("Scene: %s\n", scenePath)
	fmt.Printf("Entities: %d\n", len(r.Entities()))
	fmt.Printf("Instances: %d\n\n", len(r.Host().Instances()))

	if err := r.Start(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	printLogs(r)

	start := time.Now()
	var contacts, faults int
	n := 0
	for ; n < cfg.Frames && ctx.Err() == nil; n++ {
		f, err := r.Step(ctx, cfg.DT())
		if err != nil {
			return fmt.Errorf("frame %d: %w", n+1, err)
		}
		contacts += f.Contacts
		faults += f.Faults
		printLogs(r)
	}

	fmt.Printf("\n--- %d frames in %s, %d contacts, %d faults ---\n", n, time.Since(start).Round(time.Microsecond), contacts, faults)
	for _, row := range r.Entities() {
		fmt.Printf("  %-12s (%7.2f %7.2f %7.2f) %s\n", row.Name, row.Position.X, row.Position.Y, row.Position.Z, strings.Join(row.Behaviors, ", "))
	}
	return nil
}

func printLogs(r *runner.Runner) {
	for _, line := range r.Logs() {
		fmt.Printf("[%s] %s\n", line.Level, line.Message)
	}
}

// framePrinter prints one line per finished frame span.
type framePrinter struct {
	w io.Writer
}

func (p *framePrinter) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

func (p *framePrinter) OnEnd(s sdktrace.ReadOnlySpan) {
	if s.Name() != "scriptlib.frame" {
		return
	}
	var frame, updated, faults int64
	for _, kv := range s.Attributes() {
		switch kv.Key {
		case attribute.Key("scriptlib.frame"):
			frame = kv.Value.AsInt64()
		case attribute.Key("scriptlib.updated"):
			updated = kv.Value.AsInt64()
		case attribute.Key("scriptlib.faults"):
			faults = kv.Value.AsInt64()
		}
	}
	fmt.Fprintf(p.w, "frame %d: %d updated, %d faults, %s\n", frame, updated, faults, s.EndTime().Sub(s.StartTime()))
}

func (p *framePrinter) Shutdown(context.Context) error { return nil }

func (p *framePrinter) ForceFlush(context.Context) error { return nil }

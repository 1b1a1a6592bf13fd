// Package runner loads scene files into the reference engine and drives the
// step, dispatch and tick loop for the scriptrun command.
package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/wippyai/scriptlib/errors"
	"github.com/wippyai/scriptlib/host"
	"github.com/wippyai/scriptlib/internal/behaviors"
	"github.com/wippyai/scriptlib/jsscript"
	"github.com/wippyai/scriptlib/luascript"
	"github.com/wippyai/scriptlib/native"
	"github.com/wippyai/scriptlib/native/sim"
	"github.com/wippyai/scriptlib/vec"
	"github.com/wippyai/scriptlib/wasmscript"
)

// Options configures a Runner.
type Options struct {
	// Dir resolves relative script paths.
	Dir string

	Logger         *zap.Logger
	TracerProvider trace.TracerProvider
	Wasm           *wasmscript.Config
}

// Runner owns one engine scene and the host dispatching its scripts.
type Runner struct {
	eng     *sim.Engine
	scene   native.ID
	h       *host.Host
	wasm    *wasmscript.Runtime
	dir     string
	logger  *zap.Logger
	scripts map[string]string
	logSeen int
}

// Frame reports one Step.
type Frame struct {
	host.FrameStats
	Contacts int
}

// Summary reports a Run.
type Summary struct {
	Frames   int
	Contacts int
	Faults   int
	Duration time.Duration
}

// Load reads a scene file and builds a runner for it. Script paths resolve
// against the scene file's directory unless opts.Dir is set.
func Load(ctx context.Context, path string, opts Options) (*Runner, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindNotFound, err, "read scene")
	}
	sc, err := DecodeScene(string(src))
	if err != nil {
		return nil, err
	}
	if opts.Dir == "" {
		opts.Dir = filepath.Dir(path)
	}
	return New(ctx, sc, opts)
}

// New spawns the scene's entities and attaches their behaviors and systems.
func New(ctx context.Context, sc *Scene, opts Options) (*Runner, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	eng := sim.New()
	r := &Runner{
		eng:     eng,
		scene:   eng.NewScene(),
		dir:     opts.Dir,
		logger:  logger,
		scripts: make(map[string]string),
	}

	hopts := []host.Option{host.WithLogger(logger)}
	if opts.TracerProvider != nil {
		hopts = append(hopts, host.WithTracerProvider(opts.TracerProvider))
	}
	r.h = host.New(eng, r.scene, hopts...)

	wasmCfg := opts.Wasm
	if wasmCfg == nil {
		wasmCfg = &wasmscript.Config{}
	}
	if wasmCfg.Logger == nil {
		wasmCfg.Logger = logger
	}
	wasm, err := wasmscript.NewRuntimeWithConfig(ctx, wasmCfg)
	if err != nil {
		return nil, err
	}
	r.wasm = wasm

	if err := r.build(ctx, sc); err != nil {
		_ = r.Close(ctx)
		return nil, err
	}
	return r, nil
}

func (r *Runner) build(ctx context.Context, sc *Scene) error {
	if err := behaviors.Register(r.h); err != nil {
		return err
	}

	if len(sc.Gravity) > 0 {
		g, err := vec3("gravity", sc.Gravity, sim.DefaultGravity)
		if err != nil {
			return err
		}
		r.eng.SetWorldGravity(g)
	}
	for _, name := range sc.Meshes {
		r.eng.AddAsset(native.AssetMesh, name)
	}
	for _, name := range sc.Materials {
		r.eng.AddAsset(native.AssetMaterial, name)
	}
	for _, name := range sc.Audio {
		r.eng.AddAsset(native.AssetAudio, name)
	}
	for _, p := range sc.Prefabs {
		spec, err := p.spec(r.eng)
		if err != nil {
			return err
		}
		r.eng.AddPrefab(p.Name, spec)
	}

	for _, d := range sc.Entities {
		spec, err := d.spec(r.eng)
		if err != nil {
			return err
		}
		h, err := r.eng.Spawn(r.scene, spec)
		if err != nil {
			return errors.Native(d.Name, "Spawn", err)
		}
		for _, b := range d.Behaviors {
			name, err := r.scriptType(ctx, b.Type, b.Script, host.KindBehavior)
			if err != nil {
				return err
			}
			id, err := r.h.AttachBehavior(h, name)
			if err != nil {
				return err
			}
			if err := r.setFields(id, b.Fields); err != nil {
				return err
			}
		}
	}

	for _, s := range sc.Systems {
		name, err := r.scriptType(ctx, s.Type, s.Script, host.KindSystem)
		if err != nil {
			return err
		}
		sel, err := selector(s)
		if err != nil {
			return err
		}
		id, err := r.h.AddSystem(name, sel)
		if err != nil {
			return err
		}
		if err := r.setFields(id, s.Fields); err != nil {
			return err
		}
	}

	return r.eng.SetSimulating(sc.Physics)
}

func selector(s SystemDef) (host.Selector, error) {
	switch {
	case s.Select != "":
		return host.ExprSelector(s.Select)
	case s.Tags != 0:
		return host.TagSelector(s.Tags), nil
	default:
		return host.AllSelector(), nil
	}
}

func (r *Runner) setFields(id host.InstanceID, fields map[string]any) error {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := r.h.SetField(id, name, fieldValue(fields[name])); err != nil {
			return err
		}
	}
	return nil
}

// scriptType returns the type name to attach, loading and registering the
// script file the first time it is referenced.
func (r *Runner) scriptType(ctx context.Context, typ, script string, kind host.Kind) (string, error) {
	if script == "" {
		if typ == "" {
			return "", errors.InvalidInput(errors.PhaseConfig, "behavior or system needs a type or a script")
		}
		return typ, nil
	}

	path := script
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.dir, path)
	}
	key := kind.String() + ":" + path
	if name, ok := r.scripts[key]; ok {
		return name, nil
	}

	ext := filepath.Ext(path)
	name := typ
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), ext)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrap(errors.PhaseLoad, errors.KindNotFound, err, "read script "+script)
	}

	switch {
	case ext == ".lua" && kind == host.KindBehavior:
		_, err = luascript.RegisterBehavior(r.h, name, string(src))
	case ext == ".lua":
		_, err = luascript.RegisterSystem(r.h, name, string(src))
	case ext == ".js" && kind == host.KindBehavior:
		_, err = jsscript.RegisterBehavior(r.h, name, string(src))
	case ext == ".js":
		_, err = jsscript.RegisterSystem(r.h, name, string(src))
	case ext == ".wasm" && kind == host.KindBehavior:
		_, err = wasmscript.RegisterBehavior(r.h, r.wasm, name, src)
	default:
		err = errors.InvalidInput(errors.PhaseLoad, fmt.Sprintf("cannot load %s %s as a %s", ext, script, kind))
	}
	if err != nil {
		return "", err
	}
	r.logger.Debug("script registered",
		zap.String("type", name),
		zap.String("kind", kind.String()),
		zap.String("path", path))
	r.scripts[key] = name
	return name, nil
}

// Start fires OnSceneLoaded.
func (r *Runner) Start(ctx context.Context) error {
	return r.h.Start(ctx)
}

// Step advances physics by dt, dispatches the contacts it produced and ticks
// the host.
func (r *Runner) Step(ctx context.Context, dt float32) (Frame, error) {
	contacts := r.eng.Step(dt)
	for _, c := range contacts {
		var err error
		if c.Trigger {
			err = r.h.DispatchTrigger(ctx, c.A, c.B, c.Start)
		} else {
			err = r.h.DispatchCollision(ctx, c.A, c.B, c.Start)
		}
		if err != nil {
			return Frame{}, err
		}
	}
	stats, err := r.h.Tick(ctx, dt)
	if err != nil {
		return Frame{}, err
	}
	return Frame{FrameStats: stats, Contacts: len(contacts)}, nil
}

// Run starts the scene and steps it frames times, stopping early when ctx is
// cancelled.
func (r *Runner) Run(ctx context.Context, frames int, dt float32) (Summary, error) {
	start := time.Now()
	var sum Summary
	if err := r.Start(ctx); err != nil {
		return sum, err
	}
	for i := 0; i < frames; i++ {
		if err := ctx.Err(); err != nil {
			break
		}
		f, err := r.Step(ctx, dt)
		if err != nil {
			return sum, err
		}
		sum.Frames++
		sum.Contacts += f.Contacts
		sum.Faults += f.Faults
	}
	sum.Duration = time.Since(start)
	return sum, nil
}

// SetKey forwards key state to the engine input.
func (r *Runner) SetKey(code int32, down bool) {
	r.eng.SetKey(code, down)
}

// Logs returns the script log lines written since the previous call.
func (r *Runner) Logs() []sim.LogLine {
	all := r.eng.Logs()
	if r.logSeen > len(all) {
		r.logSeen = 0
	}
	out := all[r.logSeen:]
	r.logSeen = len(all)
	return out
}

// EntityRow describes one entity for display.
type EntityRow struct {
	Name      string
	Position  vec.Vector3
	Behaviors []string
}

// Entities lists the scene's entities with their attached behavior types.
func (r *Runner) Entities() []EntityRow {
	types := make(map[native.Handle][]string)
	for _, info := range r.h.Instances() {
		if info.Kind == host.KindBehavior && info.State < host.StateShuttingDown {
			types[info.Entity] = append(types[info.Entity], info.Type)
		}
	}
	var rows []EntityRow
	for _, h := range r.eng.Entities(r.scene) {
		name, err := r.eng.Name(h)
		if err != nil {
			continue
		}
		pos, _ := r.eng.Position(h)
		rows = append(rows, EntityRow{Name: name, Position: pos, Behaviors: types[h]})
	}
	return rows
}

// Frame returns the number of frames ticked so far.
func (r *Runner) Frame() uint64 { return r.h.Frame() }

// Faults returns the number of script faults so far.
func (r *Runner) Faults() uint64 { return r.h.Faults() }

// Host returns the dispatch host.
func (r *Runner) Host() *host.Host { return r.h }

// Close shuts every instance down and releases the wasm runtime.
func (r *Runner) Close(ctx context.Context) error {
	err := r.h.Close(ctx)
	if werr := r.wasm.Close(ctx); err == nil {
		err = werr
	}
	return err
}

package wasmscript

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/scriptlib/errors"
	"github.com/wippyai/scriptlib/marshal"
)

// HostModule is the import module name guests link against.
const HostModule = "scriptlib"

// Runtime owns one wazero runtime with the scriptlib host module
// instantiated. Scripts loaded from the same runtime share compiled code;
// every instance gets its own module instance and memory.
type Runtime struct {
	rt       wazero.Runtime
	encoding marshal.Encoding
	logger   *zap.Logger
}

// Config holds runtime configuration.
type Config struct {
	// MemoryLimitPages caps guest memory in 64KiB pages. 0 keeps the wazero
	// default.
	MemoryLimitPages uint32

	// Encoding is the string encoding guests use for log messages.
	Encoding marshal.Encoding

	// Logger receives boundary diagnostics. Nil uses the package logger.
	Logger *zap.Logger
}

// NewRuntime creates a runtime with the default configuration.
func NewRuntime(ctx context.Context) (*Runtime, error) {
	return NewRuntimeWithConfig(ctx, nil)
}

// NewRuntimeWithConfig creates a runtime. Cancelling the context passed to a
// hook closes the guest instance that is running it.
func NewRuntimeWithConfig(ctx context.Context, cfg *Config) (*Runtime, error) {
	runtimeCfg := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	r := &Runtime{logger: Logger()}
	if cfg != nil {
		if cfg.MemoryLimitPages > 0 {
			runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
		}
		r.encoding = cfg.Encoding
		if cfg.Logger != nil {
			r.logger = cfg.Logger
		}
	}

	r.rt = wazero.NewRuntimeWithConfig(ctx, runtimeCfg)
	if _, err := r.hostModule().Instantiate(ctx); err != nil {
		_ = r.rt.Close(ctx)
		return nil, errors.Load("instantiate host module", err)
	}
	return r, nil
}

// Close releases the runtime and every instance created from it.
func (r *Runtime) Close(ctx context.Context) error {
	return r.rt.Close(ctx)
}

// Load compiles a core module and checks its imports and hook exports.
func (r *Runtime) Load(ctx context.Context, name string, bin []byte) (*Script, error) {
	compiled, err := r.rt.CompileModule(ctx, bin)
	if err != nil {
		return nil, errors.Load(fmt.Sprintf("wasm script %s", name), err)
	}

	for _, def := range compiled.ImportedFunctions() {
		mod, fn, _ := def.Import()
		if mod != HostModule {
			_ = compiled.Close(ctx)
			return nil, errors.Load(fmt.Sprintf("wasm script %s imports %s.%s", name, mod, fn), nil)
		}
	}

	s := &Script{r: r, name: name, compiled: compiled}
	exported := compiled.ExportedFunctions()
	for _, e := range hookExports {
		def, ok := exported[e.name]
		if !ok {
			continue
		}
		if !sameTypes(def.ParamTypes(), e.params) || len(def.ResultTypes()) != 0 {
			_ = compiled.Close(ctx)
			return nil, errors.Load(fmt.Sprintf("wasm script %s: export %s has the wrong signature", name, e.name), nil)
		}
		s.hooks |= e.hook
	}
	return s, nil
}

func sameTypes(a, b []api.ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

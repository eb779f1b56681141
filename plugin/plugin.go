package plugin

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/dissect-runtime/abi"
	"github.com/wippyai/dissect-runtime/attr"
	"github.com/wippyai/dissect-runtime/dissector"
	"github.com/wippyai/dissect-runtime/errors"
	"github.com/wippyai/dissect-runtime/layer"
	"github.com/wippyai/dissect-runtime/resource"
)

// AnalyzeExport is the guest entry point.
const AnalyzeExport = "analyze"

// Config describes a plugin.
type Config struct {
	// Name identifies the dissector. Required.
	Name string
	// Hints lists the layer ids the plugin analyzes. Required.
	Hints []string
	// MemoryLimitPages caps guest memory in 64KiB pages. 0 keeps the
	// wazero default.
	MemoryLimitPages uint32
	// Types and Groups are registered on every worker's host so layers
	// and attributes created by id get their declared classes.
	Types  []*layer.Type
	Groups [][]*attr.Class
}

// Option configures a Plugin.
type Option func(*Plugin)

// WithLogger sets the plugin logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Plugin) { p.logger = l }
}

// WithCompilationCache shares compiled code with other plugins.
func WithCompilationCache(c wazero.CompilationCache) Option {
	return func(p *Plugin) { p.cache = c }
}

// Plugin is a dissector backed by a WebAssembly module.
type Plugin struct {
	cache  wazero.CompilationCache
	logger *zap.Logger
	code   []byte
	cfg    Config
}

var _ dissector.Dissector = (*Plugin)(nil)

// Load validates code and returns a plugin. Imports from the host module
// that the host does not provide fail with *errors.MissingSymbolsError.
func Load(ctx context.Context, code []byte, cfg Config, opts ...Option) (*Plugin, error) {
	if cfg.Name == "" {
		return nil, errors.InvalidInput(errors.PhaseResolve, "plugin name is required")
	}
	if len(cfg.Hints) == 0 {
		return nil, errors.InvalidInput(errors.PhaseResolve, fmt.Sprintf("plugin %s has no hints", cfg.Name))
	}

	p := &Plugin{cfg: cfg, code: code}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	if p.cache == nil {
		p.cache = wazero.NewCompilationCache()
	}
	p.logger = p.logger.With(zap.String("plugin", cfg.Name))

	rt := wazero.NewRuntimeWithConfig(ctx, p.runtimeConfig())
	defer rt.Close(ctx)

	compiled, err := rt.CompileModule(ctx, code)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseResolve, errors.KindInvalidInput, err, "compile "+cfg.Name)
	}
	if err := p.checkImports(compiled); err != nil {
		return nil, err
	}
	if err := checkAnalyze(cfg.Name, compiled); err != nil {
		return nil, err
	}

	p.logger.Debug("plugin loaded",
		zap.Strings("hints", cfg.Hints),
		zap.Int("size", len(code)))
	return p, nil
}

// LoadFile reads and loads a plugin from path.
func LoadFile(ctx context.Context, path string, cfg Config, opts ...Option) (*Plugin, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseResolve, errors.KindNotFound, err, "read "+path)
	}
	return Load(ctx, code, cfg, opts...)
}

func (p *Plugin) runtimeConfig() wazero.RuntimeConfig {
	cfg := wazero.NewRuntimeConfig().WithCompilationCache(p.cache)
	if p.cfg.MemoryLimitPages > 0 {
		cfg = cfg.WithMemoryLimitPages(p.cfg.MemoryLimitPages)
	}
	return cfg
}

func (p *Plugin) checkImports(compiled wazero.CompiledModule) error {
	exports := abi.Exports()
	var missing []errors.MissingSymbol
	for _, def := range compiled.ImportedFunctions() {
		module, name, _ := def.Import()
		if module != abi.ModuleName {
			missing = append(missing, errors.MissingSymbol{
				Name:   module + "." + name,
				Reason: "unknown module",
			})
			continue
		}
		if !slices.Contains(exports, name) {
			missing = append(missing, errors.MissingSymbol{Name: name, Reason: "not found"})
		}
	}
	if len(missing) > 0 {
		err := errors.NewMissingSymbolsError(p.cfg.Name, missing)
		p.logger.Error("plugin imports unresolved", zap.Error(err))
		return err
	}
	return nil
}

func checkAnalyze(name string, compiled wazero.CompiledModule) error {
	def, ok := compiled.ExportedFunctions()[AnalyzeExport]
	if !ok {
		return errors.NotFound(errors.PhaseResolve, "export", AnalyzeExport)
	}
	params, results := def.ParamTypes(), def.ResultTypes()
	if !slices.Equal(params, []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}) ||
		!slices.Equal(results, []api.ValueType{api.ValueTypeI32}) {
		return errors.New(errors.PhaseResolve, errors.KindTypeMismatch).
			Path(name, AnalyzeExport).
			Detail("want (i32, i32) -> i32").
			Build()
	}
	return nil
}

func (p *Plugin) Name() string { return p.cfg.Name }

func (p *Plugin) Hints() []string { return p.cfg.Hints }

// NewWorker instantiates the guest in a fresh runtime.
func (p *Plugin) NewWorker(dctx *dissector.Context) (dissector.Worker, error) {
	ctx := context.Background()
	logger := p.logger.With(zap.Int("worker", dctx.Worker()))

	rt := wazero.NewRuntimeWithConfig(ctx, p.runtimeConfig())
	host := abi.NewHost(dctx.Tokens(), abi.WithLogger(logger))
	for _, t := range p.cfg.Types {
		host.RegisterType(t)
	}
	for _, g := range p.cfg.Groups {
		host.RegisterGroup(g...)
	}

	if _, err := host.Instantiate(ctx, rt); err != nil {
		rt.Close(ctx)
		return nil, errors.Wrap(errors.PhaseABI, errors.KindInvalidInput, err, "instantiate host module")
	}
	compiled, err := rt.CompileModule(ctx, p.code)
	if err != nil {
		rt.Close(ctx)
		return nil, errors.Wrap(errors.PhaseResolve, errors.KindInvalidInput, err, "compile "+p.cfg.Name)
	}
	// Anonymous so workers never collide on the module name.
	mod, err := rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		rt.Close(ctx)
		return nil, errors.Wrap(errors.PhaseABI, errors.KindInvalidInput, err, "instantiate "+p.cfg.Name)
	}

	return &worker{
		name:    p.cfg.Name,
		rt:      rt,
		host:    host,
		mod:     mod,
		analyze: mod.ExportedFunction(AnalyzeExport),
		logger:  logger,
	}, nil
}

type worker struct {
	rt      wazero.Runtime
	mod     api.Module
	analyze api.Function
	host    *abi.Host
	logger  *zap.Logger
	name    string
}

// Analyze passes the stack and the context to the guest.
func (w *worker) Analyze(dctx *dissector.Context, s *layer.Stack) error {
	table := w.host.Table()
	defer table.Clear()

	hs := table.Insert(resource.KindStack, s)
	hc := table.Insert(resource.KindContext, abi.Options(dctx))
	if hs == 0 || hc == 0 {
		return errors.New(errors.PhaseABI, errors.KindInvalidHandle).
			Detail("handle table full").
			Build()
	}

	out, err := w.analyze.Call(context.Background(), api.EncodeU32(uint32(hs)), api.EncodeU32(uint32(hc)))
	if err != nil {
		return errors.Wrap(errors.PhaseABI, errors.KindInvalidInput, err, w.name+" trapped")
	}
	if status := int32(api.DecodeU32(out[0])); status != 0 {
		return errors.New(errors.PhaseDissect, errors.KindInvalidEncoding).
			Path(w.name).
			Value(status).
			Detail("analyze returned %d", status).
			Build()
	}
	return nil
}

func (w *worker) Close() error {
	return w.rt.Close(context.Background())
}

// Package wasmhost loads external transform plugins compiled to
// WebAssembly. Plugins are ordinary .wasm files exporting a small JSON ABI;
// each call runs in a fresh module instance, so a misbehaving plugin cannot
// corrupt host state or other calls.
package wasmhost

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/cwbudde/wavescope/transform"
)

// compilationCache is shared across hosts so reloading the same plugin
// skips recompilation.
var compilationCache = wazero.NewCompilationCache()

// Host owns the wazero runtime external transform plugins execute in.
type Host struct {
	runtime wazero.Runtime
	logger  *slog.Logger
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithLogger routes host diagnostics to l. A nil logger is ignored.
func WithLogger(l *slog.Logger) HostOption {
	return func(h *Host) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewHost creates a plugin runtime with WASI available to guests.
func NewHost(ctx context.Context, opts ...HostOption) (*Host, error) {
	config := wazero.NewRuntimeConfig().WithCompilationCache(compilationCache)
	r := wazero.NewRuntimeWithConfig(ctx, config)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
		_ = r.Close(ctx)
		return nil, fmt.Errorf("wasmhost: instantiate WASI: %w", err)
	}
	h := &Host{runtime: r, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Loader returns the registry loader for ".wasm" candidates.
func (h *Host) Loader() transform.Loader {
	return h.load
}

func (h *Host) load(path string) (transform.Entry, error) {
	ctx := context.Background()

	raw, err := os.ReadFile(path)
	if err != nil {
		return transform.Entry{}, fmt.Errorf("wasmhost: read %s: %w", path, err)
	}
	compiled, err := h.runtime.CompileModule(ctx, raw)
	if err != nil {
		return transform.Entry{}, fmt.Errorf("wasmhost: compile %s: %w", path, err)
	}

	p := &plugin{host: h, compiled: compiled, name: filepath.Base(path)}
	info, err := p.describe(ctx)
	if err != nil {
		_ = compiled.Close(ctx)
		return transform.Entry{}, err
	}
	sch, err := p.paramsSchema(ctx)
	if err != nil {
		_ = compiled.Close(ctx)
		return transform.Entry{}, err
	}
	p.schema = sch

	h.logger.Debug("loaded wasm transform", "path", path, "id", info.ID, "version", info.Version)
	return transform.Entry{Info: info, Transform: p}, nil
}

// Close releases the runtime and every module compiled through it.
func (h *Host) Close() error {
	return h.runtime.Close(context.Background())
}

package transform

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Registry resolves analyzers by identifier. Builtins survive every reload
// while external plugins are rescanned from the plugin directory.
//
// An external plugin that declares its own id stays reachable under the
// fallback id derived from its filename ("plugin:<basename>") as well, so
// presets written against either identifier keep resolving after the
// plugin starts or stops declaring one.
type Registry struct {
	mu       sync.Mutex
	logger   *slog.Logger
	dir      string
	builtins []Entry
	loaders  map[string]Loader

	entries  map[string]Entry // id or alias
	order    []string         // primary ids in listing order
	external []Entry
}

// RegistryOption configures a [Registry] at construction time.
type RegistryOption func(*Registry)

// WithBuiltins sets the analyzers registered ahead of any external plugin
// on every ReloadAll.
func WithBuiltins(entries ...Entry) RegistryOption {
	return func(r *Registry) {
		r.builtins = append(r.builtins, entries...)
	}
}

// WithExternalDir sets the directory scanned for plugin files. An empty
// directory disables external loading.
func WithExternalDir(dir string) RegistryOption {
	return func(r *Registry) {
		r.dir = dir
	}
}

// WithLoader registers a loader for files with the given extension,
// for example ".wasm".
func WithLoader(ext string, fn Loader) RegistryOption {
	return func(r *Registry) {
		r.loaders[ext] = fn
	}
}

// WithLogger sets the logger used for load diagnostics.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry returns an empty registry. Call ReloadAll to populate it.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		logger:  slog.Default(),
		loaders: make(map[string]Loader),
		entries: make(map[string]Entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReloadAll rebuilds the id table: builtins first, then one load attempt
// per matching file in the external directory, in filename order. A failing
// candidate is logged and skipped, it never aborts the scan. External
// plugins from the previous scan are closed. Returns the number of
// registered analyzers.
func (r *Registry) ReloadAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closeExternalLocked()
	r.entries = make(map[string]Entry)
	r.order = r.order[:0]

	for _, e := range r.builtins {
		r.registerLocked(e)
	}

	if r.dir != "" && len(r.loaders) > 0 {
		r.scanLocked()
	}
	return len(r.order)
}

func (r *Registry) scanLocked() {
	dirents, err := os.ReadDir(r.dir)
	if err != nil {
		if !os.IsNotExist(err) {
			r.logger.Warn("plugin directory unreadable", "dir", r.dir, "error", err)
		}
		return
	}

	var names []string
	for _, de := range dirents {
		if de.IsDir() {
			continue
		}
		if _, ok := r.loaders[filepath.Ext(de.Name())]; ok {
			names = append(names, de.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(r.dir, name)
		entry, err := r.loaders[filepath.Ext(name)](path)
		if err != nil {
			r.logger.Warn("plugin load failed", "path", path, "error", err)
			continue
		}

		stem := strings.TrimSuffix(name, filepath.Ext(name))
		fallback := "plugin:" + stem
		if entry.Info.ID == "" {
			entry.Info.ID = fallback
		}
		r.registerLocked(entry)
		if entry.Info.ID != fallback {
			r.entries[fallback] = entry
		}
		r.external = append(r.external, entry)
		r.logger.Info("plugin loaded", "id", entry.Info.ID, "path", path)
	}
}

func (r *Registry) registerLocked(e Entry) {
	id := e.Info.ID
	if id == "" {
		r.logger.Warn("analyzer with empty id skipped")
		return
	}
	if _, dup := r.entries[id]; dup {
		r.logger.Warn("duplicate analyzer id, replacing", "id", id)
	} else {
		r.order = append(r.order, id)
	}
	r.entries[id] = e
}

func (r *Registry) closeExternalLocked() {
	for _, e := range r.external {
		if c, ok := e.Transform.(io.Closer); ok {
			if err := c.Close(); err != nil {
				r.logger.Warn("plugin close failed", "id", e.Info.ID, "error", err)
			}
		}
	}
	r.external = nil
}

// Get resolves an analyzer by its id or one of its aliases.
func (r *Registry) Get(id string) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	return e, ok
}

// List returns the registered analyzers: builtins in registration order,
// then external plugins in filename order. Aliases are not repeated.
func (r *Registry) List() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entries[id])
	}
	return out
}

// Close releases the resources of loaded external plugins. The registry
// stays usable; a later ReloadAll scans fresh.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for _, e := range r.external {
		if c, ok := e.Transform.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	r.external = nil
	return errors.Join(errs...)
}

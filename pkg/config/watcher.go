// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads configuration when the files behind it change. It is
// used by the long-running MCP server mode; one-shot sessions load
// configuration once and never watch.
type Watcher struct {
	mu        sync.RWMutex
	paths     map[string]bool // absolute paths of the tracked config files
	loadPath  string          // primary config file, reloaded on change
	profile   string          // overlay reapplied on every reload
	sets      map[string]any  // --set overrides reapplied on every reload
	fsw       *fsnotify.Watcher
	debounce  time.Duration
	pending   map[string]time.Time
	config    *Config
	listeners []func(*Config)
	quit      chan struct{}
	done      chan struct{}
	stopOnce  sync.Once
	logger    *slog.Logger
}

// WatcherOption configures the watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the settle window applied to bursts of file events.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithWatchLogger sets the logger for the watcher.
func WithWatchLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// NewWatcher tracks the given config files and loads the initial
// configuration from the first of them. The parent directories are
// watched rather than the files themselves, so editors that save via
// rename-replace are still observed.
func NewWatcher(paths []string, opts ...WatcherOption) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		paths:    make(map[string]bool, len(paths)),
		fsw:      fsw,
		debounce: 500 * time.Millisecond,
		pending:  make(map[string]time.Time),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}

	dirs := make(map[string]bool)
	for i, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			continue
		}
		w.paths[abs] = true
		if i == 0 {
			w.loadPath = path
		}
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, err
		}
	}

	cfg, err := w.loadConfig()
	if err != nil {
		fsw.Close()
		return nil, err
	}
	w.config = cfg

	return w, nil
}

// OnChange registers fn to run after every successful reload.
func (w *Watcher) OnChange(fn func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, fn)
}

// Config returns the most recently loaded configuration.
func (w *Watcher) Config() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

// Start launches the event loop and returns immediately.
func (w *Watcher) Start(ctx context.Context) {
	go w.watch(ctx)
}

// Stop halts watching and waits for the event loop started by Start to
// drain. Calling it more than once is safe.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.quit)
		<-w.done
		w.fsw.Close()
	})
}

func (w *Watcher) watch(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.quit:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("config watch error", "error", err)
		case <-ticker.C:
			if w.drainSettled() {
				w.reload()
			}
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.paths[abs] {
		return
	}
	w.pending[abs] = time.Now()
}

// drainSettled reports whether any pending change has settled past the
// debounce window, and clears those entries.
func (w *Watcher) drainSettled() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	settled := false
	for path, at := range w.pending {
		if now.Sub(at) >= w.debounce {
			delete(w.pending, path)
			settled = true
		}
	}
	return settled
}

func (w *Watcher) reload() {
	cfg, err := w.loadConfig()
	if err != nil {
		w.logger.Error("config reload failed, keeping previous config", "error", err)
		return
	}

	w.mu.Lock()
	w.config = cfg
	listeners := slices.Clone(w.listeners)
	w.mu.Unlock()

	w.logger.Info("config reloaded", "path", w.loadPath)

	for _, fn := range listeners {
		fn(cfg)
	}
}

func (w *Watcher) loadConfig() (*Config, error) {
	return load(w.loadPath, w.profile, w.sets)
}

// watchPaths lists the files worth tracking for a config path: the file
// itself plus any profile variants that exist next to it.
func watchPaths(configPath string, profiles ...string) []string {
	if configPath == "" {
		return nil
	}
	paths := []string{configPath}
	seen := make(map[string]bool)
	for _, profile := range append([]string{"dev", "prod", "staging", "local"}, profiles...) {
		p := profileConfigPath(configPath, profile)
		if p != "" && !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}
	return paths
}

// WatchConfig builds a watcher over configPath and its profile variants,
// starts it, and returns it along with the initial configuration.
func WatchConfig(ctx context.Context, configPath string, opts ...WatcherOption) (*Watcher, *Config, error) {
	return watchAndStart(ctx, watchPaths(configPath), opts)
}

// WatchConfigCLI is WatchConfig for a CLI invocation: it parses --config,
// --profile/--env, and --set from args, and reapplies the profile overlay
// and the overrides on every reload, not just the first load.
func WatchConfigCLI(ctx context.Context, args []string, opts ...WatcherOption) (*Watcher, *Config, error) {
	flags, sets, err := parseCLIOverrides(args)
	if err != nil {
		return nil, nil, err
	}
	opts = append(opts, func(w *Watcher) {
		w.profile = flags.profile
		w.sets = sets
	})
	return watchAndStart(ctx, watchPaths(flags.configPath, flags.profile), opts)
}

func watchAndStart(ctx context.Context, paths []string, opts []WatcherOption) (*Watcher, *Config, error) {
	watcher, err := NewWatcher(paths, opts...)
	if err != nil {
		return nil, nil, err
	}
	watcher.Start(ctx)
	return watcher, watcher.Config(), nil
}

// ReloadableConfig hands long-running modes a stable handle on the live
// configuration. Readers always see a complete snapshot, never a
// half-applied update.
type ReloadableConfig struct {
	current atomic.Pointer[Config]
}

// NewReloadableConfig seeds the handle with cfg.
func NewReloadableConfig(cfg *Config) *ReloadableConfig {
	r := &ReloadableConfig{}
	r.current.Store(cfg)
	return r
}

// Get returns the current snapshot.
func (r *ReloadableConfig) Get() *Config {
	return r.current.Load()
}

// Update replaces the snapshot, typically from a watcher callback.
func (r *ReloadableConfig) Update(cfg *Config) {
	r.current.Store(cfg)
}

// Log returns the log section of the current snapshot.
func (r *ReloadableConfig) Log() LogConfig {
	return r.current.Load().Log
}

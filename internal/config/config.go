// Package config implements the YAML-backed configuration registry: values
// are loaded from a file into a flat map keyed by normalised lowercase
// dotted names, and a change-listener can be registered against a top-level
// key (the runtime only wires this up for "logs") to get hot-reload without
// restarting the process.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/pinecone-robotics/sentry-core/internal/log"
)

// Node is a decoded YAML value: a leaf (string/float64/bool/nil) or a
// nested map[string]any / []any, as produced by yaml.v3's default decode.
type Node = any

// reloadDebounce absorbs the burst of fsnotify events a single `save`
// tends to produce (write, then chmod, then another write for some
// editors), matching the debounce pattern used elsewhere in the pack for
// file-watch driven reloads.
const reloadDebounce = 150 * time.Millisecond

// Registry holds a flattened, dotted-key view of a YAML config file and
// optionally watches it for changes.
type Registry struct {
	mu     sync.RWMutex
	path   string
	flat   map[string]Node
	raw    map[string]Node
	change map[string][]func(Node)

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Load reads and flattens the YAML file at path.
func Load(path string) (*Registry, error) {
	r := &Registry{
		path:   path,
		change: map[string][]func(Node){},
	}
	if err := r.reload(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) reload() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", r.path, err)
	}
	var raw map[string]Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("config: parse %s: %w", r.path, err)
	}

	flat := map[string]Node{}
	flatten("", raw, flat)

	r.mu.Lock()
	r.raw = raw
	r.flat = flat
	r.mu.Unlock()
	return nil
}

// flatten walks a decoded YAML map, building dotted lowercase key paths.
func flatten(prefix string, node Node, out map[string]Node) {
	m, ok := node.(map[string]Node)
	if !ok {
		if prefix != "" {
			out[prefix] = node
		}
		return
	}
	for k, v := range m {
		key := strings.ToLower(k)
		if prefix != "" {
			key = prefix + "." + key
		}
		if child, ok := v.(map[string]Node); ok {
			flatten(key, child, out)
		} else {
			out[key] = v
		}
	}
}

// Get returns the value at a normalised dotted key.
func (r *Registry) Get(key string) (Node, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.flat[strings.ToLower(key)]
	return v, ok
}

// GetString returns the value at key as a string, or def if absent or of
// the wrong type.
func (r *Registry) GetString(key, def string) string {
	if v, ok := r.Get(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// GetFloat returns the value at key as a float64, or def if absent or of
// the wrong type.
func (r *Registry) GetFloat(key string, def float64) float64 {
	if v, ok := r.Get(key); ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		}
	}
	return def
}

// GetBool returns the value at key as a bool, or def if absent or of the
// wrong type.
func (r *Registry) GetBool(key string, def bool) bool {
	if v, ok := r.Get(key); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Section returns the raw (un-flattened) subtree at a top-level key, for
// callers that want to unmarshal a whole block (e.g. "logs") themselves.
func (r *Registry) Section(key string) (Node, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.raw[strings.ToLower(key)]
	return v, ok
}

// OnChange registers fn to be called with the new Section(key) value
// whenever Watch detects the file changed and a reload succeeds. Multiple
// listeners on the same key all fire, in registration order.
func (r *Registry) OnChange(key string, fn func(Node)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key = strings.ToLower(key)
	r.change[key] = append(r.change[key], fn)
}

// Watch starts an fsnotify watch on the config file's directory (fsnotify
// does not reliably track a file across editors that write-and-rename) and
// reloads + fires listeners on a debounced write event. It returns once the
// watch is established; call Stop to end it.
func (r *Registry) Watch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: create watcher: %w", err)
	}
	dir := filepath.Dir(r.path)
	if err := w.Add(dir); err != nil {
		w.Close()
		return fmt.Errorf("config: watch %s: %w", dir, err)
	}
	r.watcher = w
	r.done = make(chan struct{})
	go r.watchLoop()
	return nil
}

// Stop ends the watch started by Watch. Safe to call if Watch was never
// called.
func (r *Registry) Stop() {
	if r.watcher == nil {
		return
	}
	close(r.done)
	r.watcher.Close()
}

func (r *Registry) watchLoop() {
	logger := log.Component("config")
	target := filepath.Base(r.path)
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-r.done:
			return
		case ev, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != target {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
				timerC = timer.C
			} else {
				timer.Reset(reloadDebounce)
			}
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("watch error", "err", err)
		case <-timerC:
			timerC = nil
			if err := r.reload(); err != nil {
				logger.Warn("reload failed", "err", err)
				continue
			}
			r.fireListeners(logger)
		}
	}
}

func (r *Registry) fireListeners(logger interface{ Info(string, ...any) }) {
	r.mu.RLock()
	listeners := make(map[string][]func(Node), len(r.change))
	for k, fns := range r.change {
		listeners[k] = fns
	}
	r.mu.RUnlock()

	for key, fns := range listeners {
		section, ok := r.Section(key)
		if !ok {
			continue
		}
		for _, fn := range fns {
			fn(section)
		}
	}
	logger.Info("config reloaded", "path", r.path)
}

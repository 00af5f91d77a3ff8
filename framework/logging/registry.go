// Package logging provides a registry of named, hierarchical loggers built on zap.
//
// Logger names are dot-separated paths; "" is the root. Each name has an optional level and a
// list of handlers (zapcore.Core values). A record is accepted if its level is at least the
// effective level of the logger it was written to (its own level if set, otherwise the nearest
// ancestor's), and it is then written to the handlers of that logger and of every ancestor.
//
// A Registry is an ordinary value rather than process-global state, so fixtures can attach and
// detach handlers and change levels for the duration of one test and hand the registry to the
// code under test explicitly.
package logging

import (
	"strings"
	"sync"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultRootLevel is the level of the root logger in a new registry.
const DefaultRootLevel = zapcore.WarnLevel

// Handle identifies a handler added with AddHandler.
type Handle struct {
	name string
	core zapcore.Core
}

// Name returns the logger name the handler was added to.
func (h *Handle) Name() string { return h.name }

type node struct {
	level    zapcore.Level
	levelSet bool
	handlers []*Handle
}

// Registry holds logger levels and handlers. It is safe for concurrent use.
type Registry struct {
	lock      sync.RWMutex
	nodes     map[string]*node
	rootLevel zapcore.Level
}

// NewRegistry creates a registry whose root logger is at DefaultRootLevel and has no handlers.
func NewRegistry() *Registry {
	return NewRegistryAt(DefaultRootLevel)
}

// NewRegistryAt is like NewRegistry but starts the root logger at rootLevel. ResetLevel("")
// restores that level.
func NewRegistryAt(rootLevel zapcore.Level) *Registry {
	r := &Registry{nodes: make(map[string]*node), rootLevel: rootLevel}
	r.SetLevel("", rootLevel)
	return r
}

// Logger returns a zap logger that writes through the registry under name.
func (r *Registry) Logger(name string) *zap.Logger {
	return zap.New(&registryCore{registry: r, name: name}).Named(name)
}

// Logr returns the same logger as Logger, wrapped as a logr.Logger.
func (r *Registry) Logr(name string) logr.Logger {
	return zapr.NewLogger(r.Logger(name))
}

// AddHandler attaches core to the logger name. The handler still applies its own level check in
// addition to the logger's effective level.
func (r *Registry) AddHandler(name string, core zapcore.Core) *Handle {
	h := &Handle{name: name, core: core}
	r.lock.Lock()
	n := r.nodeLocked(name)
	n.handlers = append(n.handlers, h)
	r.lock.Unlock()
	return h
}

// RemoveHandler detaches a handler. Removing a handler that is not attached does nothing.
func (r *Registry) RemoveHandler(h *Handle) {
	if h == nil {
		return
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	n, ok := r.nodes[h.name]
	if !ok {
		return
	}
	for i, existing := range n.handlers {
		if existing == h {
			n.handlers = append(n.handlers[:i:i], n.handlers[i+1:]...)
			return
		}
	}
}

// SetLevel sets the level of the logger name.
func (r *Registry) SetLevel(name string, level zapcore.Level) {
	r.lock.Lock()
	n := r.nodeLocked(name)
	n.level, n.levelSet = level, true
	r.lock.Unlock()
}

// ResetLevel unsets the level of the logger name, so that it inherits from its ancestors again.
// The root logger reverts to the level the registry was created with.
func (r *Registry) ResetLevel(name string) {
	if name == "" {
		r.SetLevel("", r.rootLevel)
		return
	}
	r.lock.Lock()
	if n, ok := r.nodes[name]; ok {
		n.levelSet = false
	}
	r.lock.Unlock()
}

// Level returns the level set on name itself, and false if it is unset.
func (r *Registry) Level(name string) (zapcore.Level, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	if n, ok := r.nodes[name]; ok && n.levelSet {
		return n.level, true
	}
	return 0, false
}

// EffectiveLevel returns the level that decides whether a record written to name is accepted.
func (r *Registry) EffectiveLevel(name string) zapcore.Level {
	r.lock.RLock()
	defer r.lock.RUnlock()
	for _, ancestor := range lineage(name) {
		if n, ok := r.nodes[ancestor]; ok && n.levelSet {
			return n.level
		}
	}
	return DefaultRootLevel
}

// HandlerCount returns the number of handlers attached directly to name.
func (r *Registry) HandlerCount(name string) int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	if n, ok := r.nodes[name]; ok {
		return len(n.handlers)
	}
	return 0
}

func (r *Registry) nodeLocked(name string) *node {
	n, ok := r.nodes[name]
	if !ok {
		n = &node{}
		r.nodes[name] = n
	}
	return n
}

// handlersFor returns the handlers of name and all its ancestors, nearest first.
func (r *Registry) handlersFor(name string) []zapcore.Core {
	r.lock.RLock()
	defer r.lock.RUnlock()
	var ret []zapcore.Core
	for _, ancestor := range lineage(name) {
		if n, ok := r.nodes[ancestor]; ok {
			for _, h := range n.handlers {
				ret = append(ret, h.core)
			}
		}
	}
	return ret
}

// enabledWithin reports whether level is accepted by name or by any logger below it.
func (r *Registry) enabledWithin(name string, level zapcore.Level) bool {
	if level >= r.EffectiveLevel(name) {
		return true
	}
	r.lock.RLock()
	defer r.lock.RUnlock()
	for other, n := range r.nodes {
		if n.levelSet && level >= n.level && isDescendant(other, name) {
			return true
		}
	}
	return false
}

// handlersWithin returns the handlers of name, its ancestors and its descendants.
func (r *Registry) handlersWithin(name string) []zapcore.Core {
	ret := r.handlersFor(name)
	r.lock.RLock()
	defer r.lock.RUnlock()
	for other, n := range r.nodes {
		if isDescendant(other, name) {
			for _, h := range n.handlers {
				ret = append(ret, h.core)
			}
		}
	}
	return ret
}

func isDescendant(name, ancestor string) bool {
	if ancestor == "" {
		return name != ""
	}
	return strings.HasPrefix(name, ancestor+".")
}

// lineage returns name followed by each of its ancestors, ending with the root "".
func lineage(name string) []string {
	ret := []string{name}
	for name != "" {
		i := strings.LastIndexByte(name, '.')
		if i < 0 {
			name = ""
		} else {
			name = name[:i]
		}
		ret = append(ret, name)
	}
	return ret
}

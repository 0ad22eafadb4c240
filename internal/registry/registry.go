// Package registry maps exchange codes to calendar definitions and caches
// built calendar handles. A Registry is an explicit dependency passed to its
// consumers; there is no process-wide singleton.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/ig248/exchange-calendars/internal/calendar"
)

// ErrUnknownCalendar reports a name with no registered definition.
var ErrUnknownCalendar = errors.New("registry: unknown calendar")

// cacheKey identifies one built calendar: same definition name, bounds and
// side policy means the same immutable handle can be shared.
type cacheKey struct {
	name  string
	start calendar.Date
	end   calendar.Date
	side  calendar.Side
}

// Registry holds calendar definitions and built handles. Registration and
// lookup are safe for concurrent use; built handles are immutable so handing
// the same *Calendar to many readers is free.
type Registry struct {
	log *slog.Logger

	mu    sync.RWMutex
	defs  map[string]*calendar.Definition
	cache map[cacheKey]*calendar.Calendar
}

// New creates a Registry preloaded with the builtin definitions.
func New(log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	r := &Registry{
		log:   log,
		defs:  make(map[string]*calendar.Definition),
		cache: make(map[cacheKey]*calendar.Calendar),
	}
	for _, def := range builtinDefinitions() {
		// Builtins are constructed in this package; a validation failure
		// here is a programming error, not runtime input.
		if err := r.Register(def); err != nil {
			panic(fmt.Sprintf("registry: builtin %s: %v", def.Name, err))
		}
	}
	return r
}

// Register validates def and adds it under its name, replacing any previous
// definition and dropping that name's cached builds.
func (r *Registry) Register(def *calendar.Definition) error {
	if def.Name == "" {
		return fmt.Errorf("registry: definition has no name")
	}
	if err := def.Validate(); err != nil {
		return fmt.Errorf("registering %q: %w", def.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.defs[def.Name] = def
	r.dropCachedLocked(def.Name)
	return nil
}

// Names returns the registered calendar names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definition returns the registered definition for name.
func (r *Registry) Definition(name string) (*calendar.Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCalendar, name)
	}
	return def, nil
}

// Get returns the built calendar for name over [start, end] under side,
// building and caching it on first use. Concurrent callers may race to build
// the same calendar; the handles are interchangeable and the last stored one
// wins.
func (r *Registry) Get(name string, start, end calendar.Date, side calendar.Side) (*calendar.Calendar, error) {
	key := cacheKey{name: name, start: start, end: end, side: side}

	r.mu.RLock()
	if c, ok := r.cache[key]; ok {
		r.mu.RUnlock()
		return c, nil
	}
	def, ok := r.defs[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCalendar, name)
	}

	c, err := calendar.Open(def, start, end, side)
	if err != nil {
		return nil, fmt.Errorf("building calendar %q: %w", name, err)
	}
	r.log.Debug("calendar built", "name", name, "start", start.String(), "end", end.String(),
		"side", string(side), "sessions", len(c.Sessions()))

	r.mu.Lock()
	r.cache[key] = c
	r.mu.Unlock()
	return c, nil
}

// Invalidate drops every cached build of name. The definition stays
// registered.
func (r *Registry) Invalidate(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropCachedLocked(name)
}

func (r *Registry) dropCachedLocked(name string) {
	for key := range r.cache {
		if key.name == name {
			delete(r.cache, key)
		}
	}
}

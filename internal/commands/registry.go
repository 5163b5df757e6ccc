package commands

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Registry maps command names and aliases to commands.
type Registry struct {
	mu      sync.RWMutex
	byName  map[string]Command
	aliases map[string]string // alias -> primary name
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName:  make(map[string]Command),
		aliases: make(map[string]string),
	}
}

// Register adds c under its name and aliases.
// Names are matched case-insensitively, so they must be registered in lower case.
func (r *Registry) Register(c Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := append([]string{c.Name()}, c.Aliases()...)
	for _, key := range keys {
		if key != strings.ToLower(key) {
			return fmt.Errorf("command name must be lower case: %s", key)
		}
		if r.taken(key) {
			return fmt.Errorf("command already registered: %s", key)
		}
	}

	r.byName[c.Name()] = c
	for _, alias := range c.Aliases() {
		r.aliases[alias] = c.Name()
	}
	return nil
}

func (r *Registry) taken(key string) bool {
	_, cmd := r.byName[key]
	_, alias := r.aliases[key]
	return cmd || alias
}

// Find looks up a command by name or alias, ignoring case.
func (r *Registry) Find(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key := strings.ToLower(name)
	if primary, ok := r.aliases[key]; ok {
		key = primary
	}
	cmd, ok := r.byName[key]
	return cmd, ok
}

// All returns every command once, sorted by name.
func (r *Registry) All() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Command, 0, len(r.byName))
	for _, cmd := range r.byName {
		result = append(result, cmd)
	}
	slices.SortFunc(result, func(a, b Command) int {
		return cmp.Compare(a.Name(), b.Name())
	})
	return result
}

// DefaultRegistry holds the commands registered by this package's init functions.
var DefaultRegistry = NewRegistry()

// Register adds c to DefaultRegistry and panics on a name clash.
func Register(c Command) {
	if err := DefaultRegistry.Register(c); err != nil {
		panic(err)
	}
}

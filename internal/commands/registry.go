package commands

import (
	"fmt"
	"sort"
	"sync"
)

// DefaultCommand runs when taskflow is invoked without a command.
const DefaultCommand = "list"

// Registry maps command names and aliases to commands.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Command
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Command)}
}

// Register adds c under its name and aliases. It fails if any of them is
// taken, or if c claims both NeedsAuth and UsesSession: a command either
// sits behind the route guard or manages the session itself.
func (r *Registry) Register(c Command) error {
	if c.NeedsAuth() && c.UsesSession() {
		return fmt.Errorf("command %s: NeedsAuth and UsesSession are exclusive", c.Name())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	names := append([]string{c.Name()}, c.Aliases()...)
	for i, n := range names {
		if _, taken := r.byName[n]; taken {
			if i == 0 {
				return fmt.Errorf("command already registered: %s", n)
			}
			return fmt.Errorf("command alias already registered: %s", n)
		}
	}
	for _, n := range names {
		r.byName[n] = c
	}
	return nil
}

// Find looks up a command by name or alias.
func (r *Registry) Find(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.byName[name]
	return cmd, ok
}

// All returns each command once, sorted by name.
func (r *Registry) All() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	unique := make(map[string]Command, len(r.byName))
	for _, cmd := range r.byName {
		unique[cmd.Name()] = cmd
	}
	all := make([]Command, 0, len(unique))
	for _, cmd := range unique {
		all = append(all, cmd)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name() < all[j].Name() })
	return all
}

// Groups splits All into the commands anyone can run and the ones behind the
// route guard.
func (r *Registry) Groups() (public, protected []Command) {
	for _, cmd := range r.All() {
		if cmd.NeedsAuth() {
			protected = append(protected, cmd)
		} else {
			public = append(public, cmd)
		}
	}
	return public, protected
}

// DefaultRegistry holds every built-in command.
var DefaultRegistry = NewRegistry()

// Register adds c to DefaultRegistry and panics on conflict.
func Register(c Command) {
	if err := DefaultRegistry.Register(c); err != nil {
		panic(err)
	}
}

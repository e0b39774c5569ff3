package sorters

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registryMu sync.Mutex
	registry   = make(map[string]Sorter)
)

// Register makes a sorter available under its name. Built-in sorters
// register themselves in init; external packages may add their own.
// Registering the same name twice panics.
func Register(s Sorter) {
	registryMu.Lock()
	defer registryMu.Unlock()
	name := s.Name()
	if _, dup := registry[name]; dup {
		panic("sorters: Register called twice for " + name)
	}
	registry[name] = s
}

// Get resolves a registered sorter by name.
func Get(name string) (Sorter, error) {
	registryMu.Lock()
	defer registryMu.Unlock()
	s, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %v)", ErrUnknownSorter, name, names())
	}
	return s, nil
}

// Names lists the registered sorter names in sorted order.
func Names() []string {
	registryMu.Lock()
	defer registryMu.Unlock()
	return names()
}

func names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

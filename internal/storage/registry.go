package storage

import (
	"fmt"
	"sort"
	"sync"

	"github.com/myuser/kvgate/internal/config"
)

// Factory opens an engine from a config. The config is owned by the caller
// and released after the factory returns, so engines copy what they keep.
type Factory func(cfg *config.Config) (Engine, error)

// Info describes a registered engine.
type Info struct {
	Name string
	Open Factory
	// AllowEmptyKey is the engine's zero-length key policy for point
	// operations. Range bounds may always be empty.
	AllowEmptyKey bool
	// Ordered engines support bounded scans.
	Ordered bool
}

var (
	mu       sync.RWMutex
	registry = make(map[string]Info)
)

// Register makes an engine available by name. It panics on duplicates,
// which only happen at init time.
func Register(info Info) {
	if info.Name == "" || info.Open == nil {
		panic("storage: Register with empty name or nil factory")
	}
	mu.Lock()
	defer mu.Unlock()
	if _, dup := registry[info.Name]; dup {
		panic(fmt.Sprintf("storage: engine %q registered twice", info.Name))
	}
	registry[info.Name] = info
}

// Lookup returns the engine registered under name.
func Lookup(name string) (Info, error) {
	mu.RLock()
	defer mu.RUnlock()
	info, ok := registry[name]
	if !ok {
		return Info{}, fmt.Errorf("%w: %q", ErrUnknownEngine, name)
	}
	return info, nil
}

// Engines returns the registered engine names, sorted.
func Engines() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

package storage

import (
	"fmt"
	"sort"
	"sync"

	"github.com/kbukum/transcriptcheck/errors"
	"github.com/kbukum/transcriptcheck/logger"
)

// Factory creates a Storage backend from the shared Config.
type Factory func(cfg Config, log *logger.Logger) (Storage, error)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]Factory)
)

// RegisterFactory registers a storage backend factory for the given provider name.
// Backend packages call this from an init function.
func RegisterFactory(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// Providers lists the registered backend names.
func Providers() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New creates the Storage backend selected by cfg.Provider. The backend
// package must have been imported so its factory is registered.
func New(cfg Config, log *logger.Logger) (Storage, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l := log.WithComponent("storage")

	factoriesMu.RLock()
	f, ok := factories[cfg.Provider]
	factoriesMu.RUnlock()
	if !ok {
		return nil, errors.Configuration(fmt.Sprintf("storage: provider %q is not registered (have %v)", cfg.Provider, Providers()))
	}

	l.Info("initializing storage", logger.Fields("provider", cfg.Provider, "prefix", cfg.Prefix))
	return f(cfg, l)
}

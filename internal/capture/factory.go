package capture

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/tagscope/tagscope/internal/catalog"
	"github.com/tagscope/tagscope/internal/interfaces"
)

// BackendConstructor constructs an interfaces.Capturer given the config,
// catalog and logger.
type BackendConstructor func(cfg Config, cat *catalog.Catalog, logger interfaces.Logger) (interfaces.Capturer, error)

var (
	mu       sync.RWMutex
	backends = map[string]BackendConstructor{}
)

// RegisterBackend registers a named backend constructor. Name is lower-cased
// internally. Calling RegisterBackend with the same name overwrites the
// previous constructor.
func RegisterBackend(name Backend, ctor BackendConstructor) {
	if name == "" || ctor == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	backends[strings.ToLower(string(name))] = ctor
}

// New constructs the configured capture backend. It returns an error if the
// named backend has not been registered.
func New(cfg Config, cat *catalog.Catalog, logger interfaces.Logger) (interfaces.Capturer, error) {
	name := strings.ToLower(strings.TrimSpace(string(cfg.Backend)))
	if name == "" {
		name = string(BackendChromedp)
	}

	mu.RLock()
	ctor, ok := backends[name]
	mu.RUnlock()
	if !ok || ctor == nil {
		return nil, fmt.Errorf("capture backend %q not registered: available backends=%v", name, ListBackends())
	}

	c, err := ctor(cfg, cat, logger)
	if err != nil {
		return nil, fmt.Errorf("constructing capture backend %q: %w", name, err)
	}
	if c == nil {
		return nil, errors.New("capture backend constructor returned nil")
	}
	return c, nil
}

// ListBackends returns the list of registered backend names.
func ListBackends() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(backends))
	for k := range backends {
		out = append(out, k)
	}
	return out
}

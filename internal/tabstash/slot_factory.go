package tabstash

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
)

type SlotBackendFactory func(dsn string) (SlotBackend, error)

var slotFactoryRegistry = struct {
	mu        sync.RWMutex
	factories map[string]SlotBackendFactory
}{
	factories: map[string]SlotBackendFactory{},
}

// RegisterSlotBackendFactory installs a backend factory for a DSN scheme,
// taking precedence over the built-in schemes.
func RegisterSlotBackendFactory(scheme string, factory SlotBackendFactory) {
	scheme = normalizeSlotScheme(scheme)
	if scheme == "" || factory == nil {
		return
	}
	slotFactoryRegistry.mu.Lock()
	defer slotFactoryRegistry.mu.Unlock()
	slotFactoryRegistry.factories[scheme] = factory
}

func lookupSlotBackendFactory(scheme string) (SlotBackendFactory, bool) {
	scheme = normalizeSlotScheme(scheme)
	slotFactoryRegistry.mu.RLock()
	defer slotFactoryRegistry.mu.RUnlock()
	factory, ok := slotFactoryRegistry.factories[scheme]
	return factory, ok
}

func normalizeSlotScheme(scheme string) string {
	return strings.ToLower(strings.TrimSpace(scheme))
}

// BuildSlotBackendFromDSN selects a slot backend by DSN scheme. A bare path
// or file:// DSN maps to the JSON file backend.
func BuildSlotBackendFromDSN(dsn string) (SlotBackend, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, nil
	}
	parsed, err := url.Parse(dsn)
	if err != nil {
		return nil, err
	}
	scheme := normalizeSlotScheme(parsed.Scheme)
	if factory, ok := lookupSlotBackendFactory(scheme); ok {
		return factory(dsn)
	}
	switch scheme {
	case "", "file":
		path, pathErr := dsnPath(parsed, dsn)
		if pathErr != nil {
			return nil, pathErr
		}
		return NewJSONFileSlotBackend(path), nil
	case "memory", "mem", "inmem":
		return NewInMemorySlotBackend(), nil
	case "postgres", "postgresql":
		return NewPostgresSlotBackend(dsn)
	case "sqlite":
		path, pathErr := dsnPath(parsed, dsn)
		if pathErr != nil {
			return nil, pathErr
		}
		return NewSQLiteSlotBackend(path)
	case "mysql":
		return nil, fmt.Errorf("%w: slot backend %s", ErrNotImplemented, scheme)
	default:
		return nil, fmt.Errorf("unsupported slot backend scheme: %s", scheme)
	}
}

func dsnPath(parsed *url.URL, raw string) (string, error) {
	if parsed == nil {
		return "", ErrInvalidInput
	}
	if strings.TrimSpace(parsed.Scheme) == "" {
		if strings.TrimSpace(raw) == "" {
			return "", ErrInvalidInput
		}
		return strings.TrimSpace(raw), nil
	}
	path := strings.TrimSpace(parsed.Path)
	if path == "" {
		path = strings.TrimSpace(parsed.Opaque)
	}
	if path == "" {
		path = strings.TrimSpace(parsed.Host)
	}
	if path == "" {
		return "", ErrInvalidInput
	}
	return path, nil
}

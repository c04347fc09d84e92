// Package provider defines the cloud provider contract for Mittari.
package provider

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/yairfalse/mittari/internal/runner"
	"github.com/yairfalse/mittari/internal/sizing"
	"github.com/yairfalse/mittari/pkg/inventory"
)

// Provider enumerates and sizes resources for one cloud.
type Provider interface {
	// Name returns the provider identifier (e.g., "gcp", "azure").
	Name() string

	// Kinds returns the resource kinds this provider can inventory.
	Kinds() []inventory.Kind

	// ListScopes discovers the accessible isolation boundaries
	// (projects, subscriptions, compartments). Failure here is fatal
	// to the provider's whole run; there is nothing to iterate.
	ListScopes(ctx context.Context) ([]inventory.Scope, error)

	// List enumerates descriptors for one (scope, kind) pair with a
	// single vendor CLI call. On failure it returns an empty list and
	// an error for the classifier, never partial data.
	List(ctx context.Context, scope inventory.Scope, kind inventory.Kind) ([]inventory.Descriptor, error)

	// SizingChain returns the measurement strategies for a kind, or
	// nil when the kind's descriptors are already sized by List.
	SizingChain(kind inventory.Kind) *sizing.Chain
}

// Config is passed to provider factories.
type Config struct {
	Runner runner.Runner
	Logger zerolog.Logger
}

// Factory creates a provider instance.
type Factory func(cfg Config) (Provider, error)

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// Register adds a provider factory. Called from provider init().
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[name] = f
}

// New creates a provider by name.
func New(name string, cfg Config) (Provider, error) {
	mu.RLock()
	f, ok := factories[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown provider %q (registered: %v)", name, Names())
	}
	return f(cfg)
}

// Names returns registered provider names, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clear removes all factories. Used for testing.
func Clear() {
	mu.Lock()
	defer mu.Unlock()
	factories = make(map[string]Factory)
}

// Supports reports whether the provider inventories the given kind.
func Supports(p Provider, kind inventory.Kind) bool {
	for _, k := range p.Kinds() {
		if k == kind {
			return true
		}
	}
	return false
}

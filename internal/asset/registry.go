package asset

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry is a thread-safe index of known assets by ID and symbol.
type Registry struct {
	mu       sync.RWMutex
	byID     map[AssetID]*Asset
	bySymbol map[string][]*Asset
}

// NewRegistry creates a new empty asset registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:     make(map[AssetID]*Asset),
		bySymbol: make(map[string][]*Asset),
	}
}

// Register adds an asset. Registering the same ID twice panics.
func (r *Registry) Register(a *Asset) {
	if a == nil {
		panic("asset: cannot register nil asset")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[a.ID()]; exists {
		panic(fmt.Sprintf("asset: %s already registered", a.ID()))
	}

	key := normalizeSymbol(a.Symbol())
	r.byID[a.ID()] = a
	r.bySymbol[key] = append(r.bySymbol[key], a)
}

// Get retrieves an asset by its ID.
func (r *Registry) Get(id AssetID) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	return a, ok
}

// Lookup returns the first registered asset with symbol, case-insensitively.
func (r *Registry) Lookup(symbol string) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	assets := r.bySymbol[normalizeSymbol(symbol)]
	if len(assets) == 0 {
		return nil, false
	}
	return assets[0], true
}

// GetBySymbolAndChain retrieves an asset by symbol and chain ID.
func (r *Registry) GetBySymbolAndChain(symbol string, chainID uint64) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.bySymbol[normalizeSymbol(symbol)] {
		if a.ChainID() == chainID {
			return a, true
		}
	}
	return nil, false
}

// All returns all registered assets ordered by symbol then chain.
func (r *Registry) All() []*Asset {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Asset, 0, len(r.byID))
	for _, a := range r.byID {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Symbol() != result[j].Symbol() {
			return result[i].Symbol() < result[j].Symbol()
		}
		return result[i].ChainID() < result[j].ChainID()
	})
	return result
}

// Count returns the number of registered assets.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

func normalizeSymbol(s string) string {
	return strings.ToUpper(s)
}

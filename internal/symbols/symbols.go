// Package symbols produces display names and listings for model symbols.
package symbols

import (
	"sort"
	"sync"

	"github.com/ianlancetaylor/demangle"

	"zeroir/internal/ir"
)

// Cache memoizes demangled names. The zero value is not usable; use
// NewCache.
type Cache struct {
	mu    sync.RWMutex
	names map[string]string
	hits  int
}

func NewCache() *Cache {
	return &Cache{names: make(map[string]string)}
}

// Demangle returns the demangled form of name, or name itself when it
// is not a mangled C++ or Rust symbol.
func (c *Cache) Demangle(name string) string {
	c.mu.RLock()
	if d, ok := c.names[name]; ok {
		c.mu.RUnlock()
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		return d
	}
	c.mu.RUnlock()

	d := demangle.Filter(name, demangle.NoClones)

	c.mu.Lock()
	c.names[name] = d
	c.mu.Unlock()
	return d
}

// Stats returns the number of cached names and cache hits.
func (c *Cache) Stats() (names, hits int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.names), c.hits
}

// Entry is one row of a symbol listing.
type Entry struct {
	Name      string `json:"name"`
	Demangled string `json:"demangled,omitempty"`
	Address   uint64 `json:"address,omitempty"`
	HasAddr   bool   `json:"hasAddress"`
	Type      string `json:"type,omitempty"`
	Scope     string `json:"scope,omitempty"`
}

// List returns the model's symbols, addressed ones first in address
// order, then addressless ones by name.
func List(m *ir.Model, c *Cache) []Entry {
	out := make([]Entry, 0, len(m.Symbols()))
	for _, s := range m.Symbols() {
		e := Entry{Name: s.Name}
		e.Address, e.HasAddr = s.Address()
		if d := c.Demangle(s.Name); d != s.Name {
			e.Demangled = d
		}
		if info, ok := m.Aux.SymbolInfo[s.ID()]; ok {
			e.Type, e.Scope = info.Type, info.Scope
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.HasAddr != b.HasAddr {
			return a.HasAddr
		}
		if a.HasAddr && a.Address != b.Address {
			return a.Address < b.Address
		}
		return a.Name < b.Name
	})
	return out
}
